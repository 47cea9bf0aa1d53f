// Package argops implements C4: the ARG operations that mutate the
// ancestry-segment store, active-material map, and lineage registry, and
// notify the tree-sequence recorder, exactly per spec §4.4.
package argops

import (
	"math"

	"github.com/grailbio/base/log"

	"github.com/discoal-go/discoal/arg"
	"github.com/discoal-go/discoal/registry"
	"github.com/discoal-go/discoal/simcontext"
)

// pickTwoDistinct draws two distinct lineages from pop without replacement.
func pickTwoDistinct(ctx *simcontext.SimulationContext, pop int) (l, r *registry.Lineage) {
	n := ctx.Registry.PopulationSize(pop)
	if n < 2 {
		log.Panicf("argops: Coalesce requires >=2 lineages in population %d, have %d", pop, n)
	}
	l = ctx.Registry.PickPopulation(pop, ctx.RNG.Intn)
	for {
		r = ctx.Registry.PickPopulation(pop, ctx.RNG.Intn)
		if r != l {
			return l, r
		}
	}
}

// Coalesce merges two randomly chosen lineages from population p into a
// new parent at event_time (§4.4).
func Coalesce(ctx *simcontext.SimulationContext, pop int, eventTime float64) {
	left, right := pickTwoDistinct(ctx, pop)

	parentID := ctx.Recorder.AddNode(eventTime, pop, false)
	merged := ctx.Arena.Merge(left.Ancestry, right.Ancestry, parentID)

	lid := ctx.Registry.NewLineage()
	parent := &registry.Lineage{
		ID:           lid,
		Time:         eventTime,
		Population:   pop,
		RecorderID:   parentID,
		Ancestry:     merged,
		CarriesSweep: left.CarriesSweep || right.CarriesSweep,
		Sweep:        left.Sweep,
	}

	left.Ancestry.Each(func(s *arg.Segment) {
		ctx.Recorder.AddEdge(parentID, s.Recorder, s.Start, s.End)
	})
	right.Ancestry.Each(func(s *arg.Segment) {
		ctx.Recorder.AddEdge(parentID, s.Recorder, s.Start, s.End)
	})

	ctx.Registry.Remove(left)
	ctx.Registry.Remove(right)
	ctx.Registry.Add(parent)

	ctx.Active.Absorb(parent.Ancestry, ctx.SampleSize)
}

// sweepClassForParent decides the sweep class a recombination/gc parent
// receives, per §4.4's "sweep-aware recombination" rule: the parent that
// inherits the sweep site keeps the child's class; the other parent gets
// class c with probability x (if c==B) or 1-x (if c==b), else the
// opposite class.
func sweepClassForParent(ctx *simcontext.SimulationContext, childClass registry.SweepClass, inheritsSweepSite bool, freqX float64) registry.SweepClass {
	if inheritsSweepSite || childClass == registry.SweepNone {
		return childClass
	}
	p := freqX
	if childClass == registry.Sweepb {
		p = 1 - freqX
	}
	if ctx.RNG.Float64() < p {
		return childClass
	}
	if childClass == registry.SweepB {
		return registry.Sweepb
	}
	return registry.SweepB
}

// Recombine draws lineage L from population p and crossover site x,
// rejecting (no-op) unless x lies strictly within L's ancestry span and is
// active. On acceptance, splits L into two parents per §4.4.
//
// freqX/duringSweep let the sweep-phase caller apply the sweep-aware
// class-assignment rule; pass duringSweep=false outside a sweep epoch.
func Recombine(ctx *simcontext.SimulationContext, pop int, eventTime float64, duringSweep bool, freqX float64) (accepted bool) {
	l := ctx.Registry.PickPopulation(pop, ctx.RNG.Intn)
	if l == nil {
		return false
	}
	lo, hi := l.Ancestry.First(), l.Ancestry.Last()
	if lo < 0 {
		return false
	}
	x := ctx.RNG.Intn(ctx.Params.NSites)
	if !(x > lo && x < hi) || !ctx.Active.IsActive(x) {
		return false
	}

	fullARG := ctx.Params.FullARG
	var leftRec, rightRec arg.NodeID = arg.NoNode, arg.NoNode
	if fullARG {
		leftRec = ctx.Recorder.AddNode(eventTime, pop, false)
		rightRec = ctx.Recorder.AddNode(eventTime, pop, false)
	}

	leftAncestry := ctx.Arena.SplitLeft(l.Ancestry, x, fullARG, leftRec)
	rightAncestry := ctx.Arena.SplitRight(l.Ancestry, x, fullARG, rightRec)

	if fullARG {
		l.Ancestry.Each(func(s *arg.Segment) {
			if s.Start < x {
				ctx.Recorder.AddEdge(leftRec, s.Recorder, max(s.Start, 0), min(s.End, x))
			}
			if s.End > x {
				ctx.Recorder.AddEdge(rightRec, s.Recorder, max(s.Start, x), s.End)
			}
		})
	}

	leftClass, rightClass := l.Sweep, l.Sweep
	if duringSweep {
		leftInherits := x > ctx.SweepSite
		rightInherits := !leftInherits
		leftClass = sweepClassForParent(ctx, l.Sweep, leftInherits, freqX)
		rightClass = sweepClassForParent(ctx, l.Sweep, rightInherits, freqX)
	}

	lp := &registry.Lineage{
		ID: ctx.Registry.NewLineage(), Time: eventTime, Population: pop,
		RecorderID: leftRec, Ancestry: leftAncestry, CarriesSweep: l.CarriesSweep, Sweep: leftClass,
	}
	rp := &registry.Lineage{
		ID: ctx.Registry.NewLineage(), Time: eventTime, Population: pop,
		RecorderID: rightRec, Ancestry: rightAncestry, CarriesSweep: l.CarriesSweep, Sweep: rightClass,
	}

	ctx.Registry.Remove(l)
	ctx.Registry.Add(lp)
	ctx.Registry.Add(rp)
	return true
}

// GeneConvert behaves like Recombine but converts a tract [x, x+L) drawn
// with a geometric length around mean gcMean, per §4.4.
func GeneConvert(ctx *simcontext.SimulationContext, pop int, eventTime float64, gcMean int, duringSweep bool, freqX float64) (accepted bool) {
	l := ctx.Registry.PickPopulation(pop, ctx.RNG.Intn)
	if l == nil {
		return false
	}
	lo, hi := l.Ancestry.First(), l.Ancestry.Last()
	if lo < 0 {
		return false
	}
	x := ctx.RNG.Intn(ctx.Params.NSites + 1)
	tractLen := geometricTractLength(ctx, gcMean)
	end := x + tractLen
	if end > ctx.Params.NSites {
		end = ctx.Params.NSites
	}
	if x >= end || end <= lo || x >= hi {
		return false
	}

	fullARG := ctx.Params.FullARG
	var convRec, unconvRec arg.NodeID = arg.NoNode, arg.NoNode
	if fullARG {
		convRec = ctx.Recorder.AddNode(eventTime, pop, false)
		unconvRec = ctx.Recorder.AddNode(eventTime, pop, false)
	}

	converted, unconverted := ctx.Arena.SplitGeneConversion(l.Ancestry, x, end, fullARG, convRec, unconvRec)
	if converted.Empty() || unconverted.Empty() {
		return false
	}

	if fullARG {
		l.Ancestry.Each(func(s *arg.Segment) {
			lo2, hi2 := max(s.Start, x), min(s.End, end)
			if lo2 < hi2 {
				ctx.Recorder.AddEdge(convRec, s.Recorder, lo2, hi2)
			}
			if s.Start < x {
				ctx.Recorder.AddEdge(unconvRec, s.Recorder, s.Start, min(s.End, x))
			}
			if s.End > end {
				ctx.Recorder.AddEdge(unconvRec, s.Recorder, max(s.Start, end), s.End)
			}
		})
	}

	convClass, unconvClass := l.Sweep, l.Sweep
	if duringSweep {
		convInherits := ctx.SweepSite >= x && ctx.SweepSite < end
		convClass = sweepClassForParent(ctx, l.Sweep, convInherits, freqX)
		unconvClass = sweepClassForParent(ctx, l.Sweep, !convInherits, freqX)
	}

	lp := &registry.Lineage{
		ID: ctx.Registry.NewLineage(), Time: eventTime, Population: pop,
		RecorderID: convRec, Ancestry: converted, CarriesSweep: l.CarriesSweep, Sweep: convClass,
	}
	rp := &registry.Lineage{
		ID: ctx.Registry.NewLineage(), Time: eventTime, Population: pop,
		RecorderID: unconvRec, Ancestry: unconverted, CarriesSweep: l.CarriesSweep, Sweep: unconvClass,
	}

	ctx.Registry.Remove(l)
	ctx.Registry.Add(lp)
	ctx.Registry.Add(rp)
	return true
}

// geometricTractLength draws a Geometric(1/mean)-distributed tract length
// via inverse-CDF sampling, the same formula original_source uses
// (ceil(log(U)/log(1-1/gcMean))) rather than a rejection loop.
func geometricTractLength(ctx *simcontext.SimulationContext, mean int) int {
	if mean <= 1 {
		return 1
	}
	u := ctx.RNG.Float64()
	for u == 0 {
		u = ctx.RNG.Float64()
	}
	n := int(math.Ceil(math.Log(u) / math.Log(1.0-1.0/float64(mean))))
	if n < 1 {
		n = 1
	}
	return n
}

// Migrate moves one uniformly random lineage from src to dst. If src is
// empty, this is a documented no-op (§4.4, §7 "operational no-ops").
func Migrate(ctx *simcontext.SimulationContext, src, dst int) (moved bool) {
	l := ctx.Registry.PickPopulation(src, ctx.RNG.Intn)
	if l == nil {
		return false
	}
	ctx.Registry.MoveToPopulation(l, dst)
	return true
}

// SweepClassSwap flips one random lineage in population p from class c to
// its opposite, modeling recurrent adaptive mutation during a sweep
// (§4.4).
func SweepClassSwap(ctx *simcontext.SimulationContext, pop int, c registry.SweepClass) (swapped bool) {
	if pop != 0 {
		return false
	}
	l := ctx.Registry.PickPopulationSweep(c, ctx.RNG.Intn)
	if l == nil {
		return false
	}
	newClass := registry.SweepB
	if c == registry.SweepB {
		newClass = registry.Sweepb
	}
	ctx.Registry.MoveToSweepClass(l, newClass)
	return true
}

// Admix moves each lineage currently in the daughter population to parent1
// with probability prop, else parent2 — the backward-time admixture
// operation named but not detailed in spec §3/§4.4, supplemented here from
// original_source/discoal_multipop.c's "-ea" handling.
func Admix(ctx *simcontext.SimulationContext, daughter, parent1, parent2 int, prop float64) {
	lineages := append([]*registry.Lineage(nil), ctx.Registry.All()...)
	for _, l := range lineages {
		if l.Population != daughter {
			continue
		}
		if ctx.RNG.Float64() < prop {
			ctx.Registry.MoveToPopulation(l, parent1)
		} else {
			ctx.Registry.MoveToPopulation(l, parent2)
		}
	}
}

// Join moves every lineage from src into dst, implementing a backward-time
// population merge ('p'/'ed'/'ej' events, §4.4's admixture/join paragraph
// and §3's event schema).
func Join(ctx *simcontext.SimulationContext, src, dst int) {
	lineages := append([]*registry.Lineage(nil), ctx.Registry.All()...)
	for _, l := range lineages {
		if l.Population == src {
			ctx.Registry.MoveToPopulation(l, dst)
		}
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

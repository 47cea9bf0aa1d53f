// Package scheduler implements C7: the neutral-phase and sweep-phase
// event loops that drive the coalescent process forward in backward time,
// exactly per spec.md §4.7, plus the supplemented left-flanking-locus rate
// terms from original_source/discoal_multipop.c.
package scheduler

import (
	"math"

	"github.com/grailbio/base/log"

	"github.com/discoal-go/discoal/arg"
	"github.com/discoal-go/discoal/argops"
	"github.com/discoal-go/discoal/registry"
	"github.com/discoal-go/discoal/simcontext"
	"github.com/discoal-go/discoal/trajectory"
)

// freeInterval is the "every K coalescent events, flush buffered edges"
// policy named in spec.md §4.7 item 5 (K=10 there is an example value;
// this is the constant this implementation uses).
const freeInterval = 10

// candidate is one categorical bucket in the event-rate mixture: a rate
// and the ARG operation to run if this bucket is drawn.
type candidate struct {
	rate  float64
	apply func()
}

// pick draws one candidate proportional to its rate out of total,
// mirroring the legacy program's running-cumulative-sum dispatch.
func pick(rng func() float64, total float64, cands []candidate) {
	u := rng() * total
	cum := 0.0
	for _, c := range cands {
		cum += c.rate
		if u < cum {
			c.apply()
			return
		}
	}
	// Floating-point rounding can leave u slightly past the last
	// cumulative bound; fall back to the last candidate rather than
	// silently doing nothing.
	if len(cands) > 0 {
		cands[len(cands)-1].apply()
	}
}

// neutralCandidates builds the per-population coalescent/recombination/
// gene-conversion/migration rate buckets for the ordinary (non-sweep)
// phase, per spec.md §4.7 item 1.
func neutralCandidates(ctx *simcontext.SimulationContext, t float64, coalesceCount *int) []candidate {
	var cands []candidate
	npops := ctx.Registry.NumPopulations()
	for p := 0; p < npops; p++ {
		n := float64(ctx.Registry.PopulationSize(p))
		sigma := ctx.PopnSizeMultiplier[p]
		if n >= 2 {
			pop := p
			cands = append(cands, candidate{
				rate: n * (n - 1) / (2 * sigma),
				apply: func() {
					argops.Coalesce(ctx, pop, t)
					*coalesceCount++
				},
			})
		}
		if n >= 1 && ctx.Params.Rho > 0 {
			pop := p
			cands = append(cands, candidate{
				rate:  ctx.Params.Rho * n / 2,
				apply: func() { argops.Recombine(ctx, pop, t, false, 0) },
			})
		}
		if n >= 1 && ctx.Params.GammaConvRate > 0 {
			pop := p
			cands = append(cands, candidate{
				rate:  ctx.Params.GammaConvRate * n / 2,
				apply: func() { argops.GeneConvert(ctx, pop, t, ctx.Params.GCMean, false, 0) },
			})
		}
		if n >= 1 && p < len(ctx.CurrentMigMat) {
			row := ctx.CurrentMigMat[p]
			var rowSum float64
			for _, m := range row {
				rowSum += m
			}
			if rowSum > 0 {
				for q, m := range row {
					if m <= 0 || q == p {
						continue
					}
					src, dst := p, q
					cands = append(cands, candidate{
						rate:  m * n / 2,
						apply: func() { argops.Migrate(ctx, src, dst) },
					})
				}
			}
		}
	}
	return cands
}

// RunNeutralPhase advances the process between two consecutive
// demographic events at tStart < tEnd, executing a Poisson stream of
// coalescent/recombination/gene-conversion/migration events until the
// phase boundary is reached, per spec.md §4.7 items 1-4.
func RunNeutralPhase(ctx *simcontext.SimulationContext, tStart, tEnd float64) (nextTime float64, err error) {
	t := tStart
	coalesceCount := 0
	for {
		cands := neutralCandidates(ctx, t, &coalesceCount)
		var total float64
		for _, c := range cands {
			total += c.rate
		}
		if total <= 0 {
			return tEnd, nil
		}
		dt := -math.Log(ctx.RNG.Float64()) / total
		if t+dt >= tEnd {
			return tEnd, nil
		}
		t += dt
		pick(ctx.RNG.Float64, total, cands)
		if coalesceCount > 0 && coalesceCount%freeInterval == 0 {
			ctx.Recorder.Flush()
			coalesceCount = 0
		}
	}
}

// sweepCandidates builds the sweep-epoch rate buckets: the two sweep
// classes' coalescent/recombination/gene-conversion rates, the recurrent
// adaptive mutation rate, the optional left-flanking-locus rates, and
// every other population's ordinary rates (since only population 0
// carries the sweep), per spec.md §4.7's sweep-phase paragraph.
func sweepCandidates(ctx *simcontext.SimulationContext, t, freq float64, coalesceCount *int) []candidate {
	var cands []candidate
	sigma0 := ctx.PopnSizeMultiplier[0]
	nB := float64(ctx.Registry.SweepClassSize(registry.SweepB))
	nb := float64(ctx.Registry.SweepClassSize(registry.Sweepb))

	if nB >= 2 && freq > 0 {
		cands = append(cands, candidate{
			rate: nB * (nB - 1) / (2 * sigma0 * freq),
			apply: func() { argops.Coalesce(ctx, 0, t); *coalesceCount++ },
		})
	}
	if nb >= 2 && freq < 1 {
		cands = append(cands, candidate{
			rate: nb * (nb - 1) / (2 * sigma0 * (1 - freq)),
			apply: func() { argops.Coalesce(ctx, 0, t); *coalesceCount++ },
		})
	}
	if ctx.Params.Rho > 0 {
		if nB >= 1 {
			cands = append(cands, candidate{
				rate:  ctx.Params.Rho * nB / 2,
				apply: func() { argops.Recombine(ctx, 0, t, true, freq) },
			})
		}
		if nb >= 1 {
			cands = append(cands, candidate{
				rate:  ctx.Params.Rho * nb / 2,
				apply: func() { argops.Recombine(ctx, 0, t, true, freq) },
			})
		}
	}
	if ctx.Params.GammaConvRate > 0 {
		if nB >= 1 {
			cands = append(cands, candidate{
				rate:  ctx.Params.GammaConvRate * nB / 2,
				apply: func() { argops.GeneConvert(ctx, 0, t, ctx.Params.GCMean, true, freq) },
			})
		}
		if nb >= 1 {
			cands = append(cands, candidate{
				rate:  ctx.Params.GammaConvRate * nb / 2,
				apply: func() { argops.GeneConvert(ctx, 0, t, ctx.Params.GCMean, true, freq) },
			})
		}
	}
	if ctx.Params.UA > 0 && nB >= 1 && freq > 0 {
		cands = append(cands, candidate{
			rate:  ctx.Params.UA * nB / (2 * freq),
			apply: func() { argops.SweepClassSwap(ctx, 0, registry.SweepB) },
		})
	}
	if ctx.Params.LeftFlankingMode && ctx.Params.LeftRho > 0 {
		if freq < 1 {
			cands = append(cands, candidate{
				rate:  ctx.Params.LeftRho * (nB + nb) / 2 * (1 - freq),
				apply: func() { argops.Recombine(ctx, 0, t, true, freq) },
			})
		}
		if freq > 0 {
			cands = append(cands, candidate{
				rate:  ctx.Params.LeftRho * (nB + nb) / 2 * freq,
				apply: func() { argops.Recombine(ctx, 0, t, true, freq) },
			})
		}
	}

	npops := ctx.Registry.NumPopulations()
	for p := 1; p < npops; p++ {
		n := float64(ctx.Registry.PopulationSize(p))
		sigma := ctx.PopnSizeMultiplier[p]
		if n >= 2 {
			pop := p
			cands = append(cands, candidate{
				rate: n * (n - 1) / (2 * sigma),
				apply: func() { argops.Coalesce(ctx, pop, t); *coalesceCount++ },
			})
		}
		if n >= 1 && ctx.Params.Rho > 0 {
			pop := p
			cands = append(cands, candidate{
				rate:  ctx.Params.Rho * n / 2,
				apply: func() { argops.Recombine(ctx, pop, t, false, 0) },
			})
		}
		if n >= 1 && ctx.Params.GammaConvRate > 0 {
			pop := p
			cands = append(cands, candidate{
				rate:  ctx.Params.GammaConvRate * n / 2,
				apply: func() { argops.GeneConvert(ctx, pop, t, ctx.Params.GCMean, false, 0) },
			})
		}
		if n >= 1 && p < len(ctx.CurrentMigMat) {
			row := ctx.CurrentMigMat[p]
			for q, m := range row {
				if m <= 0 || q == p {
					continue
				}
				src, dst := p, q
				cands = append(cands, candidate{
					rate:  m * n / 2,
					apply: func() { argops.Migrate(ctx, src, dst) },
				})
			}
		}
	}
	return cands
}

// InitializeSweepClasses partitions every population-0 lineage not yet
// classified into the beneficial (B) or unfavored (b) sweep class, with
// probability freq of landing in B — run once when a sweep epoch begins
// (state machine transition NEUTRAL -> SWEEP), grounded in
// original_source/discoal_multipop.c's sweep-onset class assignment.
//
// Each lineage placed in B is tagged CarriesSweep and its current recorder
// node id is returned: since that node is already the common ancestor of
// every sample beneath it, placing the selected-site mutation there (after
// simplification) gives exactly the present-day carriers the right derived
// state without any further bookkeeping.
func InitializeSweepClasses(ctx *simcontext.SimulationContext, freq float64) []arg.NodeID {
	var carriers []arg.NodeID
	lineages := append([]*registry.Lineage(nil), ctx.Registry.All()...)
	for _, l := range lineages {
		if l.Population != 0 || l.Sweep != registry.SweepNone {
			continue
		}
		if ctx.RNG.Float64() < freq {
			ctx.Registry.MoveToSweepClass(l, registry.SweepB)
			l.CarriesSweep = true
			carriers = append(carriers, l.RecorderID)
		} else {
			ctx.Registry.MoveToSweepClass(l, registry.Sweepb)
		}
	}
	return carriers
}

// ResetSweepClasses clears every population-0 lineage's sweep-class
// tag, run once a sweep ends for good (stillSweeping == false), so a
// later sweep epoch starts from a clean partition.
func ResetSweepClasses(ctx *simcontext.SimulationContext) {
	lineages := append([]*registry.Lineage(nil), ctx.Registry.All()...)
	for _, l := range lineages {
		if l.Population == 0 && l.Sweep != registry.SweepNone {
			ctx.Registry.MoveToSweepClass(l, registry.SweepNone)
		}
	}
}

// RunSweepPhase drives the conditional sweep process using a precomputed
// trajectory, via Braverman-style rejection sampling: each step advances
// the trajectory by one dt, computes the "nothing happens" probability
// 1 - (Σ rates)*dt, and either accepts that null step or fires one
// categorically chosen event, per spec.md §4.7's sweep-phase paragraph.
// Returns stillSweeping=true if tEnd was reached before the trajectory
// hit its lower absorption boundary (so the caller should reenter the
// sweep from the next demographic epoch with the same trajectory).
func RunSweepPhase(ctx *simcontext.SimulationContext, traj *trajectory.MappedTrajectory, tStart, tEnd float64) (t float64, stillSweeping bool, err error) {
	t = tStart
	coalesceCount := 0
	lowerBoundary := 1.0 / (2.0 * float64(ctx.Params.EffectivePopnSize))

	for step := 0; ; step++ {
		freq64, ferr := traj.At(step)
		if ferr != nil {
			log.Panicf("scheduler: sweep trajectory exhausted mid-step at t=%v: %v", t, ferr)
		}
		freq := float64(freq64)
		if freq <= lowerBoundary {
			return t, false, nil
		}

		sigma0 := ctx.PopnSizeMultiplier[0]
		dt := 1.0 / (ctx.Params.DeltaTMod * sigma0 * float64(ctx.Params.EffectivePopnSize))
		if t+dt >= tEnd {
			return tEnd, true, nil
		}

		cands := sweepCandidates(ctx, t, freq, &coalesceCount)
		var total float64
		for _, c := range cands {
			total += c.rate
		}
		t += dt

		acceptNullProb := 1.0 - total*dt
		if acceptNullProb < 0 {
			acceptNullProb = 0
		}
		if ctx.RNG.Float64() < acceptNullProb {
			continue
		}
		if total > 0 {
			pick(ctx.RNG.Float64, total, cands)
		}
		if coalesceCount > 0 && coalesceCount%freeInterval == 0 {
			ctx.Recorder.Flush()
			coalesceCount = 0
		}
	}
}

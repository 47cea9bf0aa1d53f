// Package simcontext defines SimulationContext, the single struct that
// replaces the legacy program's forest of process-wide globals (§9 design
// note "globals vs. context"). One SimulationContext is built fresh per
// replicate and threaded by reference through the scheduler and ARG
// operations; its RNG field is what makes replicate output depend only on
// the seed pair, not on goroutine scheduling or global state.
package simcontext

import (
	"math/rand"

	"github.com/discoal-go/discoal/arg"
	"github.com/discoal-go/discoal/config"
	"github.com/discoal-go/discoal/registry"
	"github.com/discoal-go/discoal/rng"
	"github.com/discoal-go/discoal/tsrecorder"
)

// SimulationContext holds everything C4 (ARG operations) and C7 (the
// scheduler) need to run one replicate: the resolved parameters, the
// segment arena, active-material map, lineage registry, tree-sequence
// recorder, and the RNG.
type SimulationContext struct {
	Params config.Params

	Arena      *arg.Arena
	Active     *arg.ActiveMap
	Registry   *registry.Registry
	Recorder   *tsrecorder.Recorder
	RNG        *rand.Rand

	SampleSize int

	// CurrentMigMat is the migration-rate matrix in effect right now; it
	// starts as Params.MigMatConst and is mutated in place by 'M' events.
	CurrentMigMat [][]float64

	// PopnSizeMultiplier[p] is the current per-population size multiplier
	// sigma_p used in the neutral-phase rate formulas (§4.7).
	PopnSizeMultiplier []float64

	// SweepSite is the absolute site index of the selected locus, set from
	// Params.SweepSite when a sweep epoch begins. It is -1 before the first
	// sweep and when the selected locus lies outside the simulated region,
	// and keeps its value after a sweep ends.
	SweepSite int

	// pendingAncient holds ancient-sample lineages keyed by their negative
	// population id (-(popID+1)) until their activation event fires (§9
	// Open Question 1: these are kept out of PickPopulation/migration
	// entirely until activated, a deliberate guard the legacy code lacks).
	pendingAncient map[int][]*registry.Lineage

	// SweepCarriers accumulates the recorder node ids assigned to the
	// beneficial sweep class at every sweep onset this replicate runs
	// through; the selected-site mutation is placed on each of them once
	// the replicate's tree sequence is simplified.
	SweepCarriers []arg.NodeID
}

// New builds a fresh SimulationContext for one replicate. Replicates never
// share state (§5): every call gets its own arena, map, registry, recorder
// and RNG draw cursor (though the RNG stream itself is deterministic
// across replicates given the same seed pair and call sequence).
func New(p config.Params, seed1, seed2 uint64) *SimulationContext {
	npops := p.NPops
	if npops < 1 {
		npops = 1
	}
	ctx := &SimulationContext{
		Params:             p,
		Arena:              arg.NewArena(),
		Active:             arg.NewActiveMap(p.NSites),
		Registry:           registry.New(npops),
		Recorder:           tsrecorder.New(p.NSites, !p.FullARG),
		RNG:                rng.NewRand(seed1, seed2),
		SampleSize:         p.SampleSize,
		PopnSizeMultiplier: make([]float64, npops),
		SweepSite:          -1,
		pendingAncient:     map[int][]*registry.Lineage{},
	}
	for i := range ctx.PopnSizeMultiplier {
		ctx.PopnSizeMultiplier[i] = 1.0
	}
	if p.MigMatConst != nil {
		ctx.CurrentMigMat = cloneMatrix(p.MigMatConst)
	} else {
		ctx.CurrentMigMat = make([][]float64, npops)
		for i := range ctx.CurrentMigMat {
			ctx.CurrentMigMat[i] = make([]float64, npops)
		}
	}
	return ctx
}

func cloneMatrix(m [][]float64) [][]float64 {
	out := make([][]float64, len(m))
	for i, row := range m {
		out[i] = append([]float64(nil), row...)
	}
	return out
}

// SeedLeaves creates one leaf lineage and one sample recorder node per
// sampled chromosome, across the configured per-population sample sizes,
// and adds each to the registry (C9 step 1).
func (ctx *SimulationContext) SeedLeaves() {
	sizes := ctx.Params.SampleSizes
	if len(sizes) == 0 {
		sizes = []int{ctx.SampleSize}
	}
	for pop, n := range sizes {
		for i := 0; i < n; i++ {
			rid := ctx.Recorder.AddNode(0, pop, true)
			lid := ctx.Registry.NewLineage()
			l := &registry.Lineage{
				ID:         lid,
				Population: pop,
				RecorderID: rid,
				Ancestry:   ctx.Arena.NewList(0, ctx.Params.NSites, 1, rid),
			}
			ctx.Registry.Add(l)
		}
	}
}

// ActivateAncientSample moves every lineage pending under population
// -(pop+1) into pop at the given event time, implementing the
// ancient-sample activation named in §3's event schema and guarded per
// the Open-Question-1 decision recorded in SPEC_FULL.md.
func (ctx *SimulationContext) ActivateAncientSample(pop int, t float64) {
	key := -(pop + 1)
	pending := ctx.pendingAncient[key]
	for _, l := range pending {
		l.Time = t
		l.Population = pop
		ctx.Registry.Add(l)
	}
	delete(ctx.pendingAncient, key)
}

// AddPendingAncient registers n not-yet-active ancient-sample lineages
// under the negative population id convention, with fresh leaf ancestry
// and recorder nodes created at time t (their true sample time — the node
// table always reflects the moment the chromosome existed, even though the
// lineage cannot participate in events until activation).
func (ctx *SimulationContext) AddPendingAncient(n, pop int, t float64) {
	key := -(pop + 1)
	for i := 0; i < n; i++ {
		rid := ctx.Recorder.AddNode(t, pop, true)
		lid := ctx.Registry.NewLineage()
		l := &registry.Lineage{
			ID:         lid,
			Population: pop,
			Time:       t,
			RecorderID: rid,
			Ancestry:   ctx.Arena.NewList(0, ctx.Params.NSites, 1, rid),
		}
		ctx.pendingAncient[key] = append(ctx.pendingAncient[key], l)
	}
}

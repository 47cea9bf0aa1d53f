// Package mutation implements C8: post-simplification neutral mutation
// placement over the recorded tree sequence, exactly per spec.md §4.8.
package mutation

import (
	"math"
	"math/rand"

	"github.com/discoal-go/discoal/arg"
	"github.com/discoal-go/discoal/tsrecorder"
)

// poisson draws one Poisson(mean)-distributed count via Knuth's
// multiply-until-below-threshold algorithm. No pack example repo imports
// a statistics library with a Poisson sampler, and the algorithm is a few
// lines of stdlib math/rand — reaching for a whole ecosystem stats
// dependency for one distribution did not seem justified here (recorded
// in the project's dependency ledger).
func poisson(rng *rand.Rand, mean float64) int {
	if mean <= 0 {
		return 0
	}
	l := math.Exp(-mean)
	k := 0
	p := 1.0
	for {
		k++
		p *= rng.Float64()
		if p <= l {
			return k - 1
		}
	}
}

// PlaceMutations draws neutral mutations over every edge of the
// simplified tree sequence, in proportion to the edge's span-time product,
// and (if the replicate carries a selected-site mutation) adds it first on
// every lineage flagged as carrying it, per spec.md §4.8.
//
// sweepSiteCarriers, if non-nil, lists the post-simplification node ids
// that carry the selected mutation (set by the scheduler/driver when a
// sweep was simulated); it is nil for neutral-only replicates.
func PlaceMutations(rng *rand.Rand, rec *tsrecorder.Recorder, theta float64, nSites int, sweepSite float64, sweepSiteCarriers []arg.NodeID) error {
	for _, node := range sweepSiteCarriers {
		rec.AddMutation(sweepSite, node, "1")
	}

	if theta <= 0 || nSites <= 0 {
		return nil
	}

	for _, e := range rec.Edges() {
		parentTime := rec.Nodes[e.Parent].Time
		childTime := rec.Nodes[e.Child].Time
		span := float64(e.Right - e.Left)
		length := (parentTime - childTime) * span
		if length <= 0 {
			continue
		}
		mean := theta * length / float64(nSites)
		k := poisson(rng, mean)
		for i := 0; i < k; i++ {
			site := float64(e.Left) + rng.Float64()*span
			position := site / float64(nSites)
			rec.AddMutation(position, e.Child, "1")
		}
	}
	return nil
}

// Package registry implements the active-lineage registry (C3): the set
// of lineages still awaiting a coalescent/recombination/migration event,
// indexed both as a flat array and per-population so the scheduler can
// draw a uniformly random lineage from a population in O(1).
package registry

import "github.com/discoal-go/discoal/arg"

// LineageID is a dense identifier for a Lineage, handed out by
// Registry.NewLineage. The recorder never refers to it: edges and nodes are
// keyed by the lineage's recorder id (arg.NodeID), not the lineage object
// (§9 design note).
type LineageID int32

// SweepClass distinguishes the beneficial-background class (B) from the
// unfavored class (b) during a sweep epoch; None is used outside sweeps.
type SweepClass uint8

const (
	SweepNone SweepClass = iota
	SweepB
	Sweepb
)

// Lineage is one ARG node: a leaf, a coalescence (two children, one
// parent), or a recombination/gene-conversion (one child, two parents).
// It holds no child/parent pointers; ancestry is traced through the
// ancestry segment lists and the recorder.
type Lineage struct {
	ID LineageID

	Time       float64
	Population int
	Sweep      SweepClass

	Ancestry arg.List

	// RecorderID is null (arg.NoNode) for a minimal-mode recombination
	// parent; see arg.Segment.Recorder and the package doc on tsrecorder.
	RecorderID arg.NodeID

	InActiveSet    bool
	IsFullyRecoded bool
	CarriesSweep   bool

	// popIndex is this lineage's index within Registry.popLists[Population],
	// maintained for O(1) swap-remove, mirroring encoding/bam/shard.go's
	// index-carrying shard elements.
	popIndex int
	// sweepIndex is the index within Registry.sweepLists[Sweep] when
	// Population == 0 and Sweep != SweepNone.
	sweepIndex int
	// allIndex is this lineage's index within Registry.all.
	allIndex int
}

// Registry holds every active lineage, densely indexed for iteration and
// partitioned per population (and, during sweeps, per sweep class within
// population 0) for O(1) random draws.
type Registry struct {
	all []*Lineage

	popLists   [][]*Lineage
	popnSizes  []int
	sweepLists map[SweepClass][]*Lineage
	sweepSizes map[SweepClass]int

	nextID LineageID
}

// New builds a registry sized for npops populations.
func New(npops int) *Registry {
	return &Registry{
		popLists:   make([][]*Lineage, npops),
		popnSizes:  make([]int, npops),
		sweepLists: map[SweepClass][]*Lineage{SweepB: nil, Sweepb: nil},
		sweepSizes: map[SweepClass]int{SweepB: 0, Sweepb: 0},
	}
}

// NewLineage allocates the next dense LineageID for a newly created
// lineage; the caller is responsible for calling Add once its fields are
// populated.
func (r *Registry) NewLineage() LineageID {
	id := r.nextID
	r.nextID++
	return id
}

// Add inserts a lineage into the dense set, its population list, and (if
// applicable) its sweep-class partition.
func (r *Registry) Add(l *Lineage) {
	l.InActiveSet = true
	l.allIndex = len(r.all)
	r.all = append(r.all, l)

	l.popIndex = len(r.popLists[l.Population])
	r.popLists[l.Population] = append(r.popLists[l.Population], l)
	r.popnSizes[l.Population]++

	if l.Population == 0 && l.Sweep != SweepNone {
		r.sweepLists[l.Sweep] = append(r.sweepLists[l.Sweep], l)
		l.sweepIndex = len(r.sweepLists[l.Sweep]) - 1
		r.sweepSizes[l.Sweep]++
	}
}

// Remove drops a lineage from every index it participates in via
// swap-with-last, keeping all removals O(1).
func (r *Registry) Remove(l *Lineage) {
	if !l.InActiveSet {
		return
	}
	l.InActiveSet = false

	alast := len(r.all) - 1
	r.all[l.allIndex] = r.all[alast]
	r.all[l.allIndex].allIndex = l.allIndex
	r.all = r.all[:alast]

	pl := r.popLists[l.Population]
	last := len(pl) - 1
	pl[l.popIndex] = pl[last]
	pl[l.popIndex].popIndex = l.popIndex
	r.popLists[l.Population] = pl[:last]
	r.popnSizes[l.Population]--

	if l.Population == 0 && l.Sweep != SweepNone {
		sl := r.sweepLists[l.Sweep]
		slast := len(sl) - 1
		sl[l.sweepIndex] = sl[slast]
		sl[l.sweepIndex].sweepIndex = l.sweepIndex
		r.sweepLists[l.Sweep] = sl[:slast]
		r.sweepSizes[l.Sweep]--
	}
}

// PopulationSize returns the number of active lineages in population p.
func (r *Registry) PopulationSize(p int) int { return r.popnSizes[p] }

// SweepClassSize returns the number of active lineages in population 0
// with the given sweep class.
func (r *Registry) SweepClassSize(c SweepClass) int { return r.sweepSizes[c] }

// PickPopulation draws a uniformly random active lineage from population p
// using rnd as an index chooser over [0, n).
func (r *Registry) PickPopulation(p int, rnd func(n int) int) *Lineage {
	list := r.popLists[p]
	if len(list) == 0 {
		return nil
	}
	return list[rnd(len(list))]
}

// PickPopulationSweep draws a uniformly random lineage from population 0
// restricted to sweep class c.
func (r *Registry) PickPopulationSweep(c SweepClass, rnd func(n int) int) *Lineage {
	list := r.sweepLists[c]
	if len(list) == 0 {
		return nil
	}
	return list[rnd(len(list))]
}

// MoveToPopulation relocates a lineage's population membership (used by
// migration), keeping all indices consistent.
func (r *Registry) MoveToPopulation(l *Lineage, newPop int) {
	r.Remove(l)
	l.Population = newPop
	r.Add(l)
}

// MoveToSweepClass relocates a lineage to a different sweep class (used by
// recurrent adaptive mutation), keeping counters in sync.
func (r *Registry) MoveToSweepClass(l *Lineage, newClass SweepClass) {
	r.Remove(l)
	l.Sweep = newClass
	r.Add(l)
}

// All returns the dense active-lineage slice. Callers must not mutate it.
func (r *Registry) All() []*Lineage { return r.all }

// NumPopulations returns the number of populations this registry tracks.
func (r *Registry) NumPopulations() int { return len(r.popLists) }

// Total returns the number of active lineages across all populations.
func (r *Registry) Total() int {
	n := 0
	for _, c := range r.popnSizes {
		n += c
	}
	return n
}

package arg

import "sort"

// ActiveMap is the set of disjoint site intervals over [0, nSites) that
// have not yet reached MRCA, i.e. C2 from the design. totalActive tracks
// Σ(end-start) incrementally so the scheduler's termination check (§4.7,
// §8 invariant 2) is O(1).
type ActiveMap struct {
	// starts/ends are parallel sorted slices of disjoint interval bounds,
	// mirroring interval.BEDUnion's length-2N encoding style (start/end
	// kept separate rather than a single 2N array, since this map is
	// mutated far more often than BEDUnion's static input).
	starts, ends []int
	totalActive  int
	nSites       int
}

// NewActiveMap initializes the map with one interval [0, nSites).
func NewActiveMap(nSites int) *ActiveMap {
	return &ActiveMap{
		starts:      []int{0},
		ends:        []int{nSites},
		totalActive: nSites,
		nSites:      nSites,
	}
}

// TotalActive returns Σ(end-start) over all active intervals.
func (m *ActiveMap) TotalActive() int { return m.totalActive }

// IsActive reports whether site lies in some active interval.
func (m *ActiveMap) IsActive(site int) bool {
	i := sort.Search(len(m.starts), func(i int) bool { return m.starts[i] > site })
	if i == 0 {
		return false
	}
	i--
	return site < m.ends[i]
}

// RemoveRegion subtracts [left, right) from the active set, splitting or
// shrinking the intervals it overlaps and decrementing totalActive by the
// portion actually removed.
func (m *ActiveMap) RemoveRegion(left, right int) {
	if left >= right {
		return
	}
	var newStarts, newEnds []int
	for i := range m.starts {
		s, e := m.starts[i], m.ends[i]
		if e <= left || s >= right {
			newStarts = append(newStarts, s)
			newEnds = append(newEnds, e)
			continue
		}
		lo, hi := max(s, left), min(e, right)
		m.totalActive -= hi - lo
		if s < lo {
			newStarts = append(newStarts, s)
			newEnds = append(newEnds, lo)
		}
		if e > hi {
			newStarts = append(newStarts, hi)
			newEnds = append(newEnds, e)
		}
	}
	m.starts, m.ends = newStarts, newEnds
}

// Absorb walks an ancestry tree (the union of segment lists belonging to a
// lineage set, here taken as a single List for a just-created parent) and
// removes every segment whose Count has reached sampleSize — the
// "fixed" condition from §4.1 — from the active set.
func (m *ActiveMap) Absorb(l List, sampleSize int) {
	l.Each(func(s *Segment) {
		if s.Count == sampleSize {
			m.RemoveRegion(s.Start, s.End)
		}
	})
}

// CheckInvariants verifies totalActive == Σ(end-start) and that intervals
// are sorted, disjoint, non-empty. Exercised from tests only (§8 invariant
// 2), mirroring circular/bitmap_test.go's internal-invariant-helper style.
func (m *ActiveMap) CheckInvariants() error {
	sum := 0
	for i := range m.starts {
		if m.starts[i] >= m.ends[i] {
			return errInvariant("empty or inverted active interval")
		}
		if i > 0 && m.starts[i] < m.ends[i-1] {
			return errInvariant("active intervals not sorted/disjoint")
		}
		sum += m.ends[i] - m.starts[i]
	}
	if sum != m.totalActive {
		return errInvariant("totalActive out of sync with interval sum")
	}
	return nil
}

type invariantError string

func (e invariantError) Error() string { return "arg: invariant violated: " + string(e) }

func errInvariant(msg string) error { return invariantError(msg) }

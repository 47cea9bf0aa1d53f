// Package arg implements the ancestry-segment store (C1) and the
// active-material map (C2): the per-lineage interval bookkeeping that
// backs coalescence, recombination, and gene conversion, and the global
// record of which sites have not yet reached their most recent common
// ancestor.
//
// Segments are immutable once published: Merge/SplitLeft/SplitRight/
// SplitGeneConversion always allocate new segments for any interval they
// change, and share unchanged tail segments by reference (copy-on-write),
// per the ownership design in the project's §9 design notes. This file
// borrows the allocator shape of encoding/bam's FreePool without its memory
// reuse (see Arena), simplified for the single-threaded,
// single-replicate-at-a-time scheduling model: no
// atomics or per-P sharding are needed because only one goroutine ever
// touches an Arena (§5).
package arg

import "github.com/grailbio/base/log"

// NodeID identifies a recorder (tree-sequence) node. A Segment may have no
// recorder id yet (NoNode) when it was produced by a minimal-mode
// recombination that deliberately did not materialize a node (§4.5/§9).
type NodeID int64

// NoNode (-1) is the sentinel meaning "no recorder node assigned"; the zero
// value of NodeID is a valid node id.
const NoNode NodeID = -1

// Segment is a half-open site interval [Start, End) carried by a lineage,
// together with the number of sample leaves that descend through it
// (Count) and the recorder node id it should be attributed to (Recorder).
//
// Segment is reference-counted (refs) so that sibling lineages produced by
// a split can share tail segments until one side is mutated.
type Segment struct {
	Start, End int
	Count      int
	Recorder   NodeID

	next *Segment
	refs int32
}

// List is a persistent, singly-linked, ascending, non-overlapping sequence
// of Segments. The zero value is the empty list.
type List struct {
	head *Segment
}

// Arena owns Segment allocation for one replicate. Reset is O(1): it only
// zeroes the live-segment counter; every segment is a fresh allocation,
// matching spec §5's "segment arena
// supports O(1) reset between replicates" requirement. We do not attempt to
// reuse freed Segment memory across replicates (unlike encoding/bam's
// FreePool) because the constant-factor win is not worth the bookkeeping
// for a single-threaded simulator — new-replicate segment counts are
// bounded by sample size and event count, not worth pooling across
// replicate boundaries that already reset every other table.
type Arena struct {
	live int64
}

// NewArena returns a fresh segment arena.
func NewArena() *Arena { return &Arena{} }

// Reset drops the arena's live-segment counter. Safe to call between
// replicates; existing Lists from the previous replicate must not be used
// afterward.
func (a *Arena) Reset() { a.live = 0 }

// New allocates a single segment [start, end) with the given count and
// recorder id, refcount 1.
func (a *Arena) New(start, end, count int, rec NodeID) *Segment {
	if start >= end {
		log.Panicf("arg: degenerate segment [%d,%d)", start, end)
	}
	if count <= 0 {
		log.Panicf("arg: non-positive segment count %d", count)
	}
	a.live++
	return &Segment{Start: start, End: end, Count: count, Recorder: rec, refs: 1}
}

// NewList builds a List out of a single new segment.
func (a *Arena) NewList(start, end, count int, rec NodeID) List {
	return List{head: a.New(start, end, count, rec)}
}

// Retain bumps every segment in the list's refcount. Lists are shared, not
// deep-copied, when more than one lineage exposes the same ancestry.
func (l List) Retain() List {
	for s := l.head; s != nil; s = s.next {
		s.refs++
	}
	return l
}

// Release decrements the refcount of every segment in the list. A segment
// whose refcount reaches zero is dropped (its memory is left for the GC;
// nothing is freed or pooled explicitly).
func (l List) Release() {
	for s := l.head; s != nil; s = s.next {
		s.refs--
	}
}

// Empty reports whether the list has no segments.
func (l List) Empty() bool { return l.head == nil }

// Each walks the list's segments in ascending order.
func (l List) Each(fn func(*Segment)) {
	for s := l.head; s != nil; s = s.next {
		fn(s)
	}
}

// First returns the smallest Start among the list's segments, or -1 if
// empty. Used for the recombination/gene-conversion "extreme ancestry
// limit" checks in §4.4.
func (l List) First() int {
	if l.head == nil {
		return -1
	}
	return l.head.Start
}

// Last returns the largest End among the list's segments, or -1 if empty.
func (l List) Last() int {
	if l.head == nil {
		return -1
	}
	end := l.head.End
	for s := l.head.next; s != nil; s = s.next {
		end = s.End
	}
	return end
}

// GetCount returns the ancestry count carried at site, or 0 if no segment
// in the list covers it. Linear scan, per §4.1; a balanced-tree accelerator
// is not needed at the scales this simulator targets (nSites bounded by
// MAXSITES, segment counts bounded by event count per replicate).
func (l List) GetCount(site int) int {
	for s := l.head; s != nil; s = s.next {
		if site < s.Start {
			return 0
		}
		if site < s.End {
			return s.Count
		}
	}
	return 0
}

func appendSeg(tail **Segment, s *Segment) **Segment {
	*tail = s
	return &s.next
}

// Merge produces the list that, at every site, carries the sum of a's and
// b's counts, via the two-pointer sweep described in §4.1. Overlapping
// sub-intervals are summed into new segments tagged with parentRec;
// non-overlapping runs keep their counts and are also attributed to
// parentRec, so they are copied unless they already carry parentRec, in
// which case they are retained by reference (their refcount bumped).
func (a *Arena) Merge(x, y List, parentRec NodeID) List {
	var out List
	tail := &out.head
	sx, sy := x.head, y.head
	// xStart/yStart track how much of sx/sy remains unconsumed by a prior
	// partial overlap; they advance independently of sx.Start/sy.Start so
	// the two-pointer sweep never writes back into a possibly-shared input
	// segment (inputs stay immutable, per the package's copy-on-write
	// invariant — callers that read x/y's own segments after Merge, such
	// as argops.Coalesce's edge-emission pass, must see them unchanged).
	var xStart, yStart int
	if sx != nil {
		xStart = sx.Start
	}
	if sy != nil {
		yStart = sy.Start
	}

	for sx != nil && sy != nil {
		switch {
		case sx.End <= yStart:
			tail = appendSeg(tail, a.clone(sx, xStart, sx.End, sx.Count, parentRec))
			sx = sx.next
			if sx != nil {
				xStart = sx.Start
			}
		case sy.End <= xStart:
			tail = appendSeg(tail, a.clone(sy, yStart, sy.End, sy.Count, parentRec))
			sy = sy.next
			if sy != nil {
				yStart = sy.Start
			}
		default:
			lo := max(xStart, yStart)
			if xStart < lo {
				tail = appendSeg(tail, a.clone(sx, xStart, lo, sx.Count, parentRec))
			} else if yStart < lo {
				tail = appendSeg(tail, a.clone(sy, yStart, lo, sy.Count, parentRec))
			}
			hi := min(sx.End, sy.End)
			tail = appendSeg(tail, a.New(lo, hi, sx.Count+sy.Count, parentRec))
			if sx.End == hi {
				sx = sx.next
				if sx != nil {
					xStart = sx.Start
				}
			} else {
				xStart = hi
			}
			if sy.End == hi {
				sy = sy.next
				if sy != nil {
					yStart = sy.Start
				}
			} else {
				yStart = hi
			}
		}
	}
	for sx != nil {
		tail = appendSeg(tail, a.clone(sx, xStart, sx.End, sx.Count, parentRec))
		sx = sx.next
		if sx != nil {
			xStart = sx.Start
		}
	}
	for sy != nil {
		tail = appendSeg(tail, a.clone(sy, yStart, sy.End, sy.Count, parentRec))
		sy = sy.next
		if sy != nil {
			yStart = sy.Start
		}
	}
	*tail = nil
	return out
}

func (a *Arena) clone(from *Segment, start, end, count int, rec NodeID) *Segment {
	if start == from.Start && end == from.End && count == from.Count && rec == from.Recorder {
		from.refs++
		return from
	}
	return a.New(start, end, count, rec)
}

// SplitLeft returns the sub-list whose intervals lie entirely below x. A
// segment straddling x is split into two new segments.
//
// fullARG controls whose recorder id the straddling/whole segments below x
// receive: in full-ARG mode the emitted segments get newRec (the newly
// created parent); in minimal mode they keep the child's existing recorder
// id, which is how edges are later attributed to descendants through unary
// recombination nodes (§4.1, §9).
func (a *Arena) SplitLeft(l List, x int, fullARG bool, newRec NodeID) List {
	var out List
	tail := &out.head
	for s := l.head; s != nil && s.Start < x; s = s.next {
		rec := s.Recorder
		if fullARG {
			rec = newRec
		}
		if s.End <= x {
			tail = appendSeg(tail, a.clone(s, s.Start, s.End, s.Count, rec))
		} else {
			tail = appendSeg(tail, a.New(s.Start, x, s.Count, rec))
		}
	}
	*tail = nil
	return out
}

// SplitRight returns the sub-list whose intervals lie entirely at-or-above
// x, mirroring SplitLeft.
func (a *Arena) SplitRight(l List, x int, fullARG bool, newRec NodeID) List {
	var out List
	tail := &out.head
	for s := l.head; s != nil; s = s.next {
		if s.End <= x {
			continue
		}
		rec := s.Recorder
		if fullARG {
			rec = newRec
		}
		if s.Start >= x {
			tail = appendSeg(tail, a.clone(s, s.Start, s.End, s.Count, rec))
		} else {
			tail = appendSeg(tail, a.New(x, s.End, s.Count, rec))
		}
	}
	*tail = nil
	return out
}

// SplitGeneConversion returns (converted, unconverted): converted holds the
// intersection of l with [start, end); unconverted holds everything else.
func (a *Arena) SplitGeneConversion(l List, start, end int, fullARG bool, convertedRec, unconvertedRec NodeID) (converted, unconverted List) {
	var convTail, unconvTail = &converted.head, &unconverted.head
	for s := l.head; s != nil; s = s.next {
		lo, hi := max(s.Start, start), min(s.End, end)
		if lo < hi {
			rec := s.Recorder
			if fullARG {
				rec = convertedRec
			}
			if lo == s.Start && hi == s.End {
				convTail = appendSeg(convTail, a.clone(s, lo, hi, s.Count, rec))
			} else {
				convTail = appendSeg(convTail, a.New(lo, hi, s.Count, rec))
			}
		}
		if s.Start < start {
			rec := s.Recorder
			if fullARG {
				rec = unconvertedRec
			}
			hi2 := min(s.End, start)
			unconvTail = appendSeg(unconvTail, a.New(s.Start, hi2, s.Count, rec))
		}
		if s.End > end {
			rec := s.Recorder
			if fullARG {
				rec = unconvertedRec
			}
			lo2 := max(s.Start, end)
			unconvTail = appendSeg(unconvTail, a.New(lo2, s.End, s.Count, rec))
		}
	}
	*convTail = nil
	*unconvTail = nil
	return converted, unconverted
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

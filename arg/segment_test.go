package arg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArenaNewRejectsDegenerate(t *testing.T) {
	a := NewArena()
	assert.Panics(t, func() { a.New(5, 5, 1, NoNode) })
	assert.Panics(t, func() { a.New(0, 5, 0, NoNode) })
}

func TestListGetCount(t *testing.T) {
	a := NewArena()
	l := a.NewList(10, 20, 3, NoNode)
	assert.Equal(t, 0, l.GetCount(5))
	assert.Equal(t, 3, l.GetCount(10))
	assert.Equal(t, 3, l.GetCount(19))
	assert.Equal(t, 0, l.GetCount(20))
}

func TestMergeDisjoint(t *testing.T) {
	a := NewArena()
	x := a.NewList(0, 10, 1, NoNode)
	y := a.NewList(10, 20, 1, NoNode)
	m := a.Merge(x, y, 99)
	var got []Segment
	m.Each(func(s *Segment) { got = append(got, *s) })
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].Start)
	assert.Equal(t, 10, got[0].End)
	assert.Equal(t, 1, got[0].Count)
	assert.Equal(t, 10, got[1].Start)
	assert.Equal(t, 20, got[1].End)
}

func TestMergeOverlapping(t *testing.T) {
	a := NewArena()
	x := a.NewList(0, 10, 1, NoNode)
	y := a.NewList(5, 15, 2, NoNode)
	m := a.Merge(x, y, NodeID(7))
	var got []Segment
	m.Each(func(s *Segment) { got = append(got, *s) })
	require.Len(t, got, 3)
	assert.Equal(t, Segment{Start: 0, End: 5, Count: 1, Recorder: NodeID(7)}, stripLinks(got[0]))
	assert.Equal(t, Segment{Start: 5, End: 10, Count: 3, Recorder: NodeID(7)}, stripLinks(got[1]))
	assert.Equal(t, Segment{Start: 10, End: 15, Count: 2, Recorder: NodeID(7)}, stripLinks(got[2]))

	total := 0
	for _, s := range got {
		total += (s.End - s.Start) * s.Count
	}
	assert.Equal(t, 5*1+5*3+5*2, total)
}

func stripLinks(s Segment) Segment {
	s.next = nil
	s.refs = 0
	return s
}

func TestSplitLeftRight(t *testing.T) {
	a := NewArena()
	l := a.NewList(0, 20, 1, NoNode)
	left := a.SplitLeft(l, 10, true, NodeID(1))
	right := a.SplitRight(l, 10, true, NodeID(2))
	assert.Equal(t, 0, left.First())
	assert.Equal(t, 10, left.Last())
	assert.Equal(t, 10, right.First())
	assert.Equal(t, 20, right.Last())
}

func TestSplitLeftMinimalModeKeepsChildRecorder(t *testing.T) {
	a := NewArena()
	l := a.NewList(0, 20, 1, NodeID(42))
	left := a.SplitLeft(l, 10, false, NodeID(99))
	left.Each(func(s *Segment) {
		assert.Equal(t, NodeID(42), s.Recorder)
	})
}

func TestSplitGeneConversion(t *testing.T) {
	a := NewArena()
	l := a.NewList(0, 100, 1, NoNode)
	converted, unconverted := a.SplitGeneConversion(l, 30, 50, true, NodeID(1), NodeID(2))
	assert.Equal(t, 30, converted.First())
	assert.Equal(t, 50, converted.Last())
	var unconvIntervals [][2]int
	unconverted.Each(func(s *Segment) { unconvIntervals = append(unconvIntervals, [2]int{s.Start, s.End}) })
	assert.Equal(t, [][2]int{{0, 30}, {50, 100}}, unconvIntervals)
}

func TestRetainRelease(t *testing.T) {
	a := NewArena()
	l := a.NewList(0, 10, 1, NoNode)
	l.Retain()
	assert.EqualValues(t, 2, l.head.refs)
	l.Release()
	l.Release()
	assert.EqualValues(t, 0, l.head.refs)
}

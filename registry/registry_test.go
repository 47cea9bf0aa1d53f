package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddRemove(t *testing.T) {
	r := New(2)
	l1 := &Lineage{ID: r.NewLineage(), Population: 0}
	l2 := &Lineage{ID: r.NewLineage(), Population: 0}
	l3 := &Lineage{ID: r.NewLineage(), Population: 1}
	r.Add(l1)
	r.Add(l2)
	r.Add(l3)
	assert.Equal(t, 2, r.PopulationSize(0))
	assert.Equal(t, 1, r.PopulationSize(1))
	assert.Equal(t, 3, r.Total())

	r.Remove(l1)
	assert.Equal(t, 1, r.PopulationSize(0))
	assert.Equal(t, 2, r.Total())
	assert.False(t, l1.InActiveSet)
	// l2 should still be consistently indexed after the swap-remove.
	assert.Same(t, l2, r.popLists[0][l2.popIndex])
	assert.Same(t, l2, r.all[l2.allIndex])
}

func TestPickPopulationEmpty(t *testing.T) {
	r := New(1)
	require.Nil(t, r.PickPopulation(0, func(int) int { return 0 }))
}

func TestMoveToPopulation(t *testing.T) {
	r := New(2)
	l := &Lineage{ID: r.NewLineage(), Population: 0}
	r.Add(l)
	r.MoveToPopulation(l, 1)
	assert.Equal(t, 0, r.PopulationSize(0))
	assert.Equal(t, 1, r.PopulationSize(1))
	assert.Equal(t, 1, l.Population)
}

func TestSweepClassPartition(t *testing.T) {
	r := New(1)
	lb := &Lineage{ID: r.NewLineage(), Population: 0, Sweep: SweepB}
	lsmall := &Lineage{ID: r.NewLineage(), Population: 0, Sweep: Sweepb}
	r.Add(lb)
	r.Add(lsmall)
	assert.Equal(t, 1, r.SweepClassSize(SweepB))
	assert.Equal(t, 1, r.SweepClassSize(Sweepb))

	r.MoveToSweepClass(lb, Sweepb)
	assert.Equal(t, 0, r.SweepClassSize(SweepB))
	assert.Equal(t, 2, r.SweepClassSize(Sweepb))
}

package arg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActiveMapInit(t *testing.T) {
	m := NewActiveMap(1000)
	assert.Equal(t, 1000, m.TotalActive())
	assert.True(t, m.IsActive(0))
	assert.True(t, m.IsActive(999))
	assert.False(t, m.IsActive(1000))
	require.NoError(t, m.CheckInvariants())
}

func TestActiveMapRemoveRegionMiddle(t *testing.T) {
	m := NewActiveMap(100)
	m.RemoveRegion(40, 60)
	assert.Equal(t, 80, m.TotalActive())
	assert.True(t, m.IsActive(39))
	assert.False(t, m.IsActive(50))
	assert.True(t, m.IsActive(60))
	require.NoError(t, m.CheckInvariants())
}

func TestActiveMapRemoveAll(t *testing.T) {
	m := NewActiveMap(100)
	m.RemoveRegion(0, 100)
	assert.Equal(t, 0, m.TotalActive())
	assert.False(t, m.IsActive(50))
	require.NoError(t, m.CheckInvariants())
}

func TestActiveMapAbsorb(t *testing.T) {
	a := NewArena()
	m := NewActiveMap(100)
	l := a.NewList(0, 50, 4, NoNode) // fixed: count == sampleSize
	m.Absorb(l, 4)
	assert.Equal(t, 50, m.TotalActive())
	assert.False(t, m.IsActive(25))
	require.NoError(t, m.CheckInvariants())
}

func TestActiveMapAbsorbPartialNotRemoved(t *testing.T) {
	a := NewArena()
	m := NewActiveMap(100)
	l := a.NewList(0, 50, 3, NoNode) // not fixed: count < sampleSize
	m.Absorb(l, 4)
	assert.Equal(t, 100, m.TotalActive())
}

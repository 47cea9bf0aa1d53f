package mutation

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/discoal-go/discoal/arg"
	"github.com/discoal-go/discoal/tsrecorder"
)

func buildSimpleTree(t *testing.T) *tsrecorder.Recorder {
	t.Helper()
	rec := tsrecorder.New(100, true)
	leaf0 := rec.AddNode(0, 0, true)
	leaf1 := rec.AddNode(0, 0, true)
	root := rec.AddNode(2.0, 0, false)
	rec.AddEdge(root, leaf0, 0, 100)
	rec.AddEdge(root, leaf1, 0, 100)
	_, err := rec.Simplify()
	require.NoError(t, err)
	return rec
}

func TestPlaceMutationsAddsNeutralMutations(t *testing.T) {
	rec := buildSimpleTree(t)
	rng := rand.New(rand.NewSource(99))
	err := PlaceMutations(rng, rec, 50.0, 100, 0.5, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, rec.Mutations)
	for _, m := range rec.Mutations {
		assert.Equal(t, "1", m.Derived)
	}
}

func TestPlaceMutationsZeroThetaAddsNothing(t *testing.T) {
	rec := buildSimpleTree(t)
	rng := rand.New(rand.NewSource(1))
	err := PlaceMutations(rng, rec, 0, 100, 0.5, nil)
	require.NoError(t, err)
	assert.Empty(t, rec.Mutations)
}

func TestPlaceMutationsAddsSweepCarrierFirst(t *testing.T) {
	rec := buildSimpleTree(t)
	rng := rand.New(rand.NewSource(5))
	carriers := []arg.NodeID{0}
	err := PlaceMutations(rng, rec, 0, 100, 0.25, carriers)
	require.NoError(t, err)
	require.Len(t, rec.Mutations, 1)
	assert.Equal(t, arg.NodeID(0), rec.Mutations[0].Node)
	assert.InDelta(t, 0.25, rec.Sites[rec.Mutations[0].Site].Position, 1e-9)
}

func TestPoissonZeroMeanAlwaysZero(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 10; i++ {
		assert.Equal(t, 0, poisson(rng, 0))
	}
}

package tsrecorder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/discoal-go/discoal/arg"
)

func TestAddNodeSamples(t *testing.T) {
	r := New(100, true)
	n0 := r.AddNode(0, 0, true)
	n1 := r.AddNode(0, 0, true)
	assert.Equal(t, []arg.NodeID{n0, n1}, r.SampleIDs())
}

func TestEdgeSquashing(t *testing.T) {
	r := New(100, true)
	p := r.AddNode(1, 0, false)
	c := r.AddNode(0, 0, true)
	r.AddEdge(p, c, 0, 10)
	r.AddEdge(p, c, 10, 20)
	r.Flush()
	require.Len(t, r.Edges(), 1)
	assert.Equal(t, 0, r.Edges()[0].Left)
	assert.Equal(t, 20, r.Edges()[0].Right)
}

func TestEdgeSquashingNonAbutting(t *testing.T) {
	r := New(100, true)
	p := r.AddNode(1, 0, false)
	c := r.AddNode(0, 0, true)
	r.AddEdge(p, c, 0, 10)
	r.AddEdge(p, c, 15, 20)
	r.Flush()
	require.Len(t, r.Edges(), 2)
}

func TestSimplifyDropsUnsampledUnreferencedNodes(t *testing.T) {
	r := New(100, false)
	leaf := r.AddNode(0, 0, true)
	unused := r.AddNode(5, 0, false)
	_ = unused
	parent := r.AddNode(1, 0, false)
	r.AddEdge(parent, leaf, 0, 100)
	nm, err := r.Simplify()
	require.NoError(t, err)
	assert.Equal(t, arg.NoNode, nm[unused])
	assert.NotEqual(t, arg.NoNode, nm[leaf])
	assert.NotEqual(t, arg.NoNode, nm[parent])
	assert.Len(t, r.Nodes, 2)
}

func TestSimplifyMinimalModeElidesUnaryRecombinationNode(t *testing.T) {
	r := New(100, true)
	leaf := r.AddNode(0, 0, true)
	rec := r.AddNode(1, 0, false) // recombination parent, unary (1 child, 1 parent)
	coal := r.AddNode(2, 0, false)

	r.AddEdge(rec, leaf, 0, 50)
	r.AddEdge(coal, rec, 0, 50)

	_, err := r.Simplify()
	require.NoError(t, err)
	// rec should have been spliced out: coal -> leaf directly.
	require.Len(t, r.Edges(), 1)
	assert.Equal(t, leaf, r.Edges()[0].Child)
}

func TestAddMutationDedupsSite(t *testing.T) {
	r := New(100, true)
	n := r.AddNode(0, 0, true)
	r.AddMutation(0.5, n, "1")
	r.AddMutation(0.5, n, "1")
	assert.Len(t, r.Sites, 1)
	assert.Len(t, r.Mutations, 2)
}

func TestAddEdgePanicsOnUnrecordedEndpoint(t *testing.T) {
	r := New(100, true)
	assert.Panics(t, func() { r.AddEdge(arg.NoNode, arg.NoNode, 0, 10) })
}

package genotype

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/discoal-go/discoal/tsrecorder"
)

func buildTwoSampleTree(t *testing.T) *tsrecorder.Recorder {
	t.Helper()
	rec := tsrecorder.New(100, true)
	leaf0 := rec.AddNode(0, 0, true)
	leaf1 := rec.AddNode(0, 0, true)
	root := rec.AddNode(1, 0, false)
	rec.AddEdge(root, leaf0, 0, 100)
	rec.AddEdge(root, leaf1, 0, 100)
	_, err := rec.Simplify()
	require.NoError(t, err)
	return rec
}

func TestWriteProducesHeaderAndRows(t *testing.T) {
	rec := buildTwoSampleTree(t)
	rec.AddMutation(0.3, rec.SampleIDs()[0], "1")

	var buf bytes.Buffer
	err := Write(&buf, rec, "discoal 2 1 100 -t 5", 1, 2)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.True(t, len(lines) >= 6)
	assert.Equal(t, "discoal 2 1 100 -t 5", lines[0])
	assert.Equal(t, "1 2", lines[1])
	assert.Equal(t, "//", lines[2])
	assert.Equal(t, "segsites: 1", lines[3])
	assert.Equal(t, "positions: 0.300000", lines[4])
	assert.Equal(t, "1", lines[5])
	assert.Equal(t, "0", lines[6])
}

func TestWriteNoMutationsAllZero(t *testing.T) {
	rec := buildTwoSampleTree(t)
	var buf bytes.Buffer
	err := Write(&buf, rec, "discoal 2 1 100", 5, 6)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "segsites: 0")
}

package tskit

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/discoal-go/discoal/tsrecorder"
)

func buildRecorder(t *testing.T) *tsrecorder.Recorder {
	t.Helper()
	rec := tsrecorder.New(10, true)
	leaf := rec.AddNode(0, 0, true)
	root := rec.AddNode(1, 0, false)
	rec.AddEdge(root, leaf, 0, 10)
	_, err := rec.Simplify()
	require.NoError(t, err)
	rec.AddMutation(0.5, leaf, "1")
	return rec
}

func TestPersistSingleReplicateNoSuffix(t *testing.T) {
	dir := t.TempDir()
	rec := buildRecorder(t)
	path := filepath.Join(dir, "out.ts")

	err := Persist(context.Background(), rec, path, 0, 1)
	require.NoError(t, err)

	data, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# NODES")
	assert.Contains(t, string(data), "# MUTATIONS")
}

func TestPersistMultiReplicateAddsSuffix(t *testing.T) {
	dir := t.TempDir()
	rec := buildRecorder(t)
	path := filepath.Join(dir, "out.ts")

	err := Persist(context.Background(), rec, path, 2, 5)
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "out_rep2.ts"))
	require.NoError(t, statErr)
}

func TestReplicatePathNoSuffixWhenSingle(t *testing.T) {
	assert.Equal(t, "foo.ts", replicatePath("foo.ts", 0, 1))
	assert.Equal(t, "foo_rep3.ts", replicatePath("foo.ts", 3, 10))
	assert.Equal(t, "foo_rep0", replicatePath("foo", 0, 2))
}

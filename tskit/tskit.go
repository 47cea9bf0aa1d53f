// Package tskit persists a simplified tree sequence to an external table
// collection file: the node/edge/site/mutation columns named in spec.md
// §4.5, written through the same abstracted-storage path the teacher uses
// for BAM/PAM output, so the same code handles local and cloud paths.
package tskit

import (
	"bufio"
	"context"
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"

	"github.com/discoal-go/discoal/tsrecorder"
)

// Persist writes rec's simplified tables to path, through
// github.com/grailbio/base/file.Create (mirroring
// markduplicates/mark_duplicates.go's generateBAM output path), sectioned
// as NODES / EDGES / SITES / MUTATIONS, one record per line. When
// numReplicates > 1, replicateIdx (0-based) is appended to the base path
// as "_repN" before the extension, per spec.md §6.
func Persist(ctx context.Context, rec *tsrecorder.Recorder, path string, replicateIdx, numReplicates int) error {
	outPath := replicatePath(path, replicateIdx, numReplicates)

	out, err := file.Create(ctx, outPath)
	if err != nil {
		return errors.E(err, "tskit: create output", outPath)
	}
	w := bufio.NewWriter(out.Writer(ctx))

	fmt.Fprintf(w, "# NODES\ttime\tpopulation\tis_sample\n")
	for _, n := range rec.Nodes {
		fmt.Fprintf(w, "%g\t%d\t%t\n", n.Time, n.Population, n.IsSample)
	}
	fmt.Fprintf(w, "# EDGES\tleft\tright\tparent\tchild\n")
	for _, e := range rec.Edges() {
		fmt.Fprintf(w, "%d\t%d\t%d\t%d\n", e.Left, e.Right, e.Parent, e.Child)
	}
	fmt.Fprintf(w, "# SITES\tposition\tancestral\n")
	for _, s := range rec.Sites {
		fmt.Fprintf(w, "%g\t%s\n", s.Position, s.Ancestral)
	}
	fmt.Fprintf(w, "# MUTATIONS\tsite\tnode\tderived\n")
	for _, m := range rec.Mutations {
		fmt.Fprintf(w, "%d\t%d\t%s\n", m.Site, m.Node, m.Derived)
	}

	if err := w.Flush(); err != nil {
		out.Close(ctx)
		return errors.E(err, "tskit: flush output", outPath)
	}
	if err := out.Close(ctx); err != nil {
		return errors.E(err, "tskit: close output", outPath)
	}
	return nil
}

// replicatePath appends "_repN" (0-based replicateIdx) before path's
// extension when numReplicates > 1, matching spec.md §6's "a per-replicate
// suffix _repN is appended when numReplicates > 1".
func replicatePath(path string, replicateIdx, numReplicates int) string {
	if numReplicates <= 1 {
		return path
	}
	ext := extOf(path)
	base := path[:len(path)-len(ext)]
	return fmt.Sprintf("%s_rep%d%s", base, replicateIdx, ext)
}

func extOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			return path[i:]
		}
		if path[i] == '/' {
			break
		}
	}
	return ""
}

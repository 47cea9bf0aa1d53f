// Package genotype emits the legacy per-replicate text format described
// in spec.md §6: a command-line/seed header, then segsites/positions and
// one 0/1 row per sampled chromosome.
package genotype

import (
	"bufio"
	"fmt"
	"io"
	"sort"

	"github.com/klauspost/compress/gzip"

	"github.com/discoal-go/discoal/arg"
	"github.com/discoal-go/discoal/tsrecorder"
)

// Write emits one replicate's genotype block to w: the three-line header
// (commandLine, "seed1 seed2", "//"), segsites/positions, then one row of
// 0/1 characters per entry in sampleIDs, derived from rec's mutation
// table by walking up from each sample to see which mutations it carries.
//
// gzip compression is the caller's choice: wrap w in
// github.com/klauspost/compress/gzip (as interval/bedunion.go does for BED
// input) via NewGzipWriter below when the output path ends in ".gz".
func Write(w io.Writer, rec *tsrecorder.Recorder, commandLine string, seed1, seed2 uint64) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, commandLine)
	fmt.Fprintf(bw, "%d %d\n", seed1, seed2)
	fmt.Fprintln(bw, "//")

	sites := make([]int, len(rec.Sites))
	for i := range sites {
		sites[i] = i
	}
	sort.Slice(sites, func(i, j int) bool { return rec.Sites[sites[i]].Position < rec.Sites[sites[j]].Position })
	siteRank := make([]int, len(rec.Sites))
	for rank, site := range sites {
		siteRank[site] = rank
	}

	segsites := len(rec.Sites)
	fmt.Fprintf(bw, "segsites: %d\n", segsites)
	fmt.Fprint(bw, "positions:")
	for _, site := range sites {
		fmt.Fprintf(bw, " %.6f", rec.Sites[site].Position)
	}
	fmt.Fprintln(bw)

	carries := carriersBySample(rec, segsites, siteRank)
	for _, row := range carries {
		bw.Write(row)
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// NewGzipWriter wraps w for ".gz"-suffixed output paths, grounded in
// interval/bedunion.go's klauspost/compress/gzip usage.
func NewGzipWriter(w io.Writer) *gzip.Writer { return gzip.NewWriter(w) }

// carriersBySample returns, for each sample node (in SampleIDs order), a
// byte row of '0'/'1' across the rank-ordered site set. A mutation's
// derived state applies to the mutation's node and every sample reachable
// from it through the edge table (downward in child direction); since
// Mutations.Node is always a post-simplification id and edges go
// parent->child, membership is computed by a reachability pass per
// mutation rather than a full tree walk per sample, mirroring how
// markduplicates/metrics.go favors one linear pass over repeated queries.
func carriersBySample(rec *tsrecorder.Recorder, segsites int, siteRank []int) [][]byte {
	sampleIDs := rec.SampleIDs()
	sampleIndex := make(map[arg.NodeID]int, len(sampleIDs))
	for i, id := range sampleIDs {
		sampleIndex[id] = i
	}

	rows := make([][]byte, len(sampleIDs))
	for i := range rows {
		row := make([]byte, segsites)
		for j := range row {
			row[j] = '0'
		}
		rows[i] = row
	}

	children := make(map[arg.NodeID][]arg.NodeID)
	for _, e := range rec.Edges() {
		children[e.Parent] = append(children[e.Parent], e.Child)
	}

	descendantSamples := map[arg.NodeID][]int{}
	var collect func(arg.NodeID) []int
	collect = func(id arg.NodeID) []int {
		if cached, ok := descendantSamples[id]; ok {
			return cached
		}
		var out []int
		if idx, ok := sampleIndex[id]; ok {
			out = append(out, idx)
		}
		for _, c := range children[id] {
			out = append(out, collect(c)...)
		}
		descendantSamples[id] = out
		return out
	}

	for _, m := range rec.Mutations {
		rank := siteRank[m.Site]
		for _, sampleIdx := range collect(m.Node) {
			rows[sampleIdx][rank] = '1'
		}
	}
	return rows
}

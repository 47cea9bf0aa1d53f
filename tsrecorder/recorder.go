// Package tsrecorder implements the tree-sequence-shaped recorder (C5):
// append-only node/edge/site/mutation tables, an edge-squashing buffer,
// and the minimal/full-ARG simplification modes described in §4.5.
//
// Edge buffering and flush-on-trigger mirror encoding/pam/pamwriter.go's
// buffered field writer: edges accumulate in a buffer until a flush point;
// as each edge is added, one sharing (parent, child) with an abutting
// interval is squashed into the buffered edge, exactly preserving
// post-simplification semantics
// (§5 ordering guarantees, §8 invariant 6).
package tsrecorder

import (
	"sort"

	farm "github.com/dgryski/go-farm"
	"github.com/grailbio/base/log"

	"github.com/discoal-go/discoal/arg"
)

// Node mirrors a tree-sequence node record: time, population, sample flag.
type Node struct {
	Time       float64
	Population int
	IsSample   bool
}

// Edge mirrors a tree-sequence edge record.
type Edge struct {
	Parent, Child arg.NodeID
	Left, Right   int
}

// Site is a mutation site: a position and the ancestral state (always "0"
// in this simulator, since only bi-allelic neutral mutations are placed).
type Site struct {
	Position float64
	Ancestral string
}

// Mutation attaches a derived state to a node at a site.
type Mutation struct {
	Site    int
	Node    arg.NodeID
	Derived string
}

// Recorder accumulates nodes, edges, sites and mutations for one
// replicate. Simplify() renumbers nodes/edges with respect to the sample
// set and optionally elides unary internal nodes.
type Recorder struct {
	nSites int

	Nodes []Node
	edges []Edge
	// buffer holds edges not yet squashed/flushed; bufKey maps the squash
	// key (parent,child hash) to the buffer index of the last edge with
	// that key so consecutive abutting edges can be merged in O(1).
	buffer []Edge
	bufKey map[uint64]int

	Sites     []Site
	Mutations []Mutation

	minimalMode bool
	sampleIDs   []arg.NodeID

	flushCount int
}

// New creates a recorder for nSites sites. minimalMode selects whether
// simplification later elides unary recombination nodes (true) or keeps
// them (false, "full ARG", flag KEEP_UNARY in §4.5).
func New(nSites int, minimalMode bool) *Recorder {
	return &Recorder{
		nSites:      nSites,
		bufKey:      make(map[uint64]int),
		minimalMode: minimalMode,
	}
}

// AddNode appends a node and returns its id. Leaf nodes are added at
// initialization (marked sample); internal nodes are added at operation
// time, except that in minimal mode a recombination's shared internal
// node is deliberately never added (§4.5).
func (r *Recorder) AddNode(time float64, population int, isSample bool) arg.NodeID {
	id := arg.NodeID(len(r.Nodes))
	r.Nodes = append(r.Nodes, Node{Time: time, Population: population, IsSample: isSample})
	if isSample {
		r.sampleIDs = append(r.sampleIDs, id)
	}
	return id
}

// MinimalMode reports whether this recorder elides unary recombination
// nodes.
func (r *Recorder) MinimalMode() bool { return r.minimalMode }

func squashKey(parent, child arg.NodeID) uint64 {
	var buf [16]byte
	putInt64(buf[0:8], int64(parent))
	putInt64(buf[8:16], int64(child))
	return farm.Hash64(buf[:])
}

func putInt64(b []byte, v int64) {
	u := uint64(v)
	for i := 0; i < 8; i++ {
		b[i] = byte(u >> (8 * uint(i)))
	}
}

// AddEdge buffers one edge. Consecutive edges with identical (parent,
// child) and abutting intervals (right_i == left_{i+1}) are squashed
// in-place; everything else is appended to the buffer for the next flush.
func (r *Recorder) AddEdge(parent, child arg.NodeID, left, right int) {
	if parent == arg.NoNode || child == arg.NoNode {
		log.Panicf("tsrecorder: edge endpoint not recorded (parent=%d child=%d)", parent, child)
	}
	if left >= right {
		return
	}
	key := squashKey(parent, child)
	if idx, ok := r.bufKey[key]; ok && r.buffer[idx].Right == left {
		r.buffer[idx].Right = right
		return
	}
	r.bufKey[key] = len(r.buffer)
	r.buffer = append(r.buffer, Edge{Parent: parent, Child: child, Left: left, Right: right})
}

// Flush moves every buffered edge into the permanent edge table and
// clears the squash index. Must be called before any node that is a
// buffered edge endpoint is freed by the caller (§5 ordering guarantee).
func (r *Recorder) Flush() {
	r.edges = append(r.edges, r.buffer...)
	r.buffer = r.buffer[:0]
	r.bufKey = make(map[uint64]int)
	r.flushCount++
}

// NodeMap renumbers old node ids to new ones after simplification; an
// entry of arg.NoNode means the node was dropped.
type NodeMap []arg.NodeID

// Simplify flushes any pending edges, sorts the edge table, and — in
// minimal mode — removes internal nodes that are unary (appear as the
// child of exactly one edge and the parent of exactly one edge, i.e. a
// recombination junction that was nonetheless materialized). Returns the
// renumbering and updates the sample-id vector (§4.5).
func (r *Recorder) Simplify() (NodeMap, error) {
	r.Flush()

	if r.minimalMode {
		r.elideUnaryNodes()
	}

	sort.SliceStable(r.edges, func(i, j int) bool {
		if r.edges[i].Parent != r.edges[j].Parent {
			return r.Nodes[r.edges[i].Parent].Time < r.Nodes[r.edges[j].Parent].Time
		}
		return r.edges[i].Left < r.edges[j].Left
	})

	keep := make([]bool, len(r.Nodes))
	for _, id := range r.sampleIDs {
		keep[id] = true
	}
	for _, e := range r.edges {
		keep[e.Parent] = true
		keep[e.Child] = true
	}

	nm := make(NodeMap, len(r.Nodes))
	var newNodes []Node
	for old, k := range keep {
		if !k {
			nm[old] = arg.NoNode
			continue
		}
		nm[old] = arg.NodeID(len(newNodes))
		newNodes = append(newNodes, r.Nodes[old])
	}
	for i, e := range r.edges {
		r.edges[i] = Edge{Parent: nm[e.Parent], Child: nm[e.Child], Left: e.Left, Right: e.Right}
	}
	r.Nodes = newNodes
	for i, id := range r.sampleIDs {
		r.sampleIDs[i] = nm[id]
	}

	sort.Slice(r.Mutations, func(i, j int) bool {
		return r.Sites[r.Mutations[i].Site].Position < r.Sites[r.Mutations[j].Site].Position
	})
	for i, m := range r.Mutations {
		r.Mutations[i].Node = nm[m.Node]
		_ = i
	}
	return nm, nil
}

// elideUnaryNodes drops nodes that are the parent of exactly one edge and
// the child of exactly one edge — the signature of a recombination
// junction that was nonetheless materialized as a node — splicing their
// single child edge directly to their single parent edge, so the
// resulting topology has the recombination junction disappear while the
// sample tree topology is preserved (§4.5, "minimal tree sequence").
func (r *Recorder) elideUnaryNodes() {
	childCount := map[arg.NodeID]int{}
	parentCount := map[arg.NodeID]int{}
	childEdge := map[arg.NodeID]int{}
	parentEdge := map[arg.NodeID]int{}
	for i, e := range r.edges {
		parentCount[e.Child]++
		childEdge[e.Child] = i
		childCount[e.Parent]++
		parentEdge[e.Parent] = i
	}

	sampleSet := map[arg.NodeID]bool{}
	for _, s := range r.sampleIDs {
		sampleSet[s] = true
	}

	changed := true
	for changed {
		changed = false
		for n := range r.Nodes {
			id := arg.NodeID(n)
			if sampleSet[id] {
				continue
			}
			if childCount[id] == 1 && parentCount[id] == 1 {
				upIdx := childEdge[id]    // edge where id is the child (id's parent edge going up)
				downIdx := parentEdge[id] // edge where id is the parent (id's child edge going down)
				up := r.edges[upIdx]
				down := r.edges[downIdx]
				if up.Left == down.Left && up.Right == down.Right {
					r.edges[downIdx] = Edge{Parent: up.Parent, Child: down.Child, Left: down.Left, Right: down.Right}
					r.edges = append(r.edges[:upIdx], r.edges[upIdx+1:]...)
					childCount = map[arg.NodeID]int{}
					parentCount = map[arg.NodeID]int{}
					childEdge = map[arg.NodeID]int{}
					parentEdge = map[arg.NodeID]int{}
					for i, e := range r.edges {
						parentCount[e.Child]++
						childEdge[e.Child] = i
						childCount[e.Parent]++
						parentEdge[e.Parent] = i
					}
					changed = true
					break
				}
			}
		}
	}
}

// AddMutation records a derived-state mutation at the given position,
// creating the site if it does not already exist at that position.
func (r *Recorder) AddMutation(position float64, node arg.NodeID, derived string) {
	site := r.siteAt(position)
	r.Mutations = append(r.Mutations, Mutation{Site: site, Node: node, Derived: derived})
}

func (r *Recorder) siteAt(position float64) int {
	for i, s := range r.Sites {
		if s.Position == position {
			return i
		}
	}
	r.Sites = append(r.Sites, Site{Position: position, Ancestral: "0"})
	return len(r.Sites) - 1
}

// Edges returns the (post-simplification) edge table.
func (r *Recorder) Edges() []Edge { return r.edges }

// SampleIDs returns the (post-simplification) sample-node id vector.
func (r *Recorder) SampleIDs() []arg.NodeID { return r.sampleIDs }

// Stats is a small summary of the recorder's table sizes, grounded in
// markduplicates/metrics.go's end-of-run stats struct.
type Stats struct {
	NumNodes     int
	NumEdges     int
	NumSites     int
	NumMutations int
}

// Stats returns the current table sizes.
func (r *Recorder) Stats() Stats {
	return Stats{
		NumNodes:     len(r.Nodes),
		NumEdges:     len(r.edges),
		NumSites:     len(r.Sites),
		NumMutations: len(r.Mutations),
	}
}

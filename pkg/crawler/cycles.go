package crawler

import (
	"maps"
	"slices"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/multi"
	"gonum.org/v1/gonum/graph/topo"
)

// groupGraph is the group hierarchy discovered by a crawl, in gonum form.
type groupGraph struct {
	*multi.DirectedGraph

	root  uuid.UUID
	nodes map[uuid.UUID]*groupNode
}

var _ dot.Attributers = (*groupGraph)(nil)

func (g *groupGraph) DOTAttributers() (graph, node, edge encoding.Attributer) {
	return g, nil, nil
}

func (g *groupGraph) Attributes() []encoding.Attribute {
	return []encoding.Attribute{{
		Key:   "rankdir",
		Value: "LR",
	}}
}

type groupNode struct {
	id    int64
	group uuid.UUID
	root  bool
}

var (
	_ dot.Node            = (*groupNode)(nil)
	_ encoding.Attributer = (*groupNode)(nil)
)

func (n *groupNode) ID() int64 {
	return n.id
}

func (n *groupNode) DOTID() string {
	return n.group.String()
}

func (n *groupNode) Attributes() []encoding.Attribute {
	if !n.root {
		return nil
	}
	return []encoding.Attribute{{Key: "shape", Value: "doublecircle"}}
}

// newGroupGraph builds the graph of r. Node ids follow the order of the group
// ids so the output is stable. Self references are skipped unless selfLoops.
func newGroupGraph(r *Result, selfLoops bool) *groupGraph {
	g := &groupGraph{
		DirectedGraph: multi.NewDirectedGraph(),
		root:          r.Root,
		nodes:         make(map[uuid.UUID]*groupNode),
	}

	ids := map[uuid.UUID]struct{}{r.Root: {}}
	for _, id := range r.Groups {
		ids[id] = struct{}{}
	}
	for parent, children := range r.Edges {
		ids[parent] = struct{}{}
		for _, child := range children {
			ids[child] = struct{}{}
		}
	}

	for i, id := range slices.SortedFunc(maps.Keys(ids), compareIDs) {
		n := &groupNode{id: int64(i), group: id, root: id == r.Root}
		g.nodes[id] = n
		g.AddNode(n)
	}

	for parent, children := range r.Edges {
		from := g.nodes[parent]
		for _, child := range children {
			if child == parent && !selfLoops {
				continue
			}
			to := g.nodes[child]
			if g.HasEdgeFromTo(from.ID(), to.ID()) {
				continue
			}
			g.SetLine(g.NewLine(from, to))
		}
	}

	return g
}

// FindAllCycles lists every elementary cycle among the groups expanded by the
// crawl that produced r. Unlike [Result.Cycles], which holds the cycles met
// along the branches that happened to be walked, the listing is exhaustive
// and deterministic. Each cycle starts at its smallest group id.
func FindAllCycles(r *Result) []CycleRecord {
	g := newGroupGraph(r, false)

	var cycles []CycleRecord
	for parent, children := range r.Edges {
		if slices.Contains(children, parent) {
			cycles = append(cycles, NewCycleRecord(parent))
		}
	}

	for _, nodes := range topo.DirectedCyclesIn(g) {
		// the first node is repeated at the end
		path := make([]uuid.UUID, 0, len(nodes)-1)
		for _, n := range nodes[:len(nodes)-1] {
			path = append(path, n.(*groupNode).group)
		}
		cycles = append(cycles, NewCycleRecord(rotateToSmallest(path)...))
	}

	slices.SortFunc(cycles, func(a, b CycleRecord) int {
		return slices.CompareFunc(a.path, b.path, compareIDs)
	})
	return cycles
}

func rotateToSmallest(path []uuid.UUID) []uuid.UUID {
	if len(path) == 0 {
		return path
	}
	smallest := 0
	for i := range path {
		if compareIDs(path[i], path[smallest]) < 0 {
			smallest = i
		}
	}
	return append(slices.Clone(path[smallest:]), path[:smallest]...)
}

// EncodeDOT renders the group hierarchy of r in DOT format. The root is drawn
// as a double circle.
func EncodeDOT(r *Result) ([]byte, error) {
	return dot.MarshalMulti(newGroupGraph(r, true), "groups", "", "  ")
}

var _ graph.Directed = (*groupGraph)(nil)

// Package portgraph provides an immutable representation of node-labeled,
// port-labeled directed multigraphs.
//
// A Graph is built once from node label sets and an edge list and never
// changes afterwards. Construction precomputes flat incidence indices so that
// every neighbor query is an O(1) slice lookup:
//
//	outgoing[n] = indices of edges whose source is n
//	incoming[n] = indices of edges whose destination is n
//
// Both the pattern (query) graph and the target (host) graph of a matching
// problem are instances of the same type.
package portgraph

import (
	"errors"
	"fmt"
	"sort"
)

// ErrEdgeEndpoint is returned by Build when an edge references a node index
// outside the graph.
var ErrEdgeEndpoint = errors.New("edge endpoint out of range")

// Edge is a directed edge between two ports.
// Port names are opaque tokens; two edges are equal only if all four fields match.
type Edge struct {
	Src     int
	SrcPort string
	Dst     int
	DstPort string
}

// String renders the edge as "src.port->dst.port".
func (e Edge) String() string {
	return fmt.Sprintf("%d.%s->%d.%s", e.Src, e.SrcPort, e.Dst, e.DstPort)
}

// Graph is an immutable labeled port graph with precomputed adjacency.
//
// Thread safety: all methods are read-only and safe for concurrent use.
// Slices returned by accessors alias internal storage and must not be modified.
type Graph struct {
	labels   [][]int
	edges    []Edge
	outgoing [][]int
	incoming [][]int

	// edgeSet collapses duplicate edges for existence tests.
	edgeSet map[Edge]struct{}

	// byLabel maps a label to the ascending list of nodes carrying it.
	byLabel map[int][]int
}

// Build constructs a Graph from per-node label sets and an edge list.
// Label sets are copied, sorted and de-duplicated. Edges keep their order;
// edge i in the input is edge i of the graph.
func Build(labels [][]int, edges []Edge) (*Graph, error) {
	n := len(labels)
	g := &Graph{
		labels:   make([][]int, n),
		edges:    make([]Edge, len(edges)),
		outgoing: make([][]int, n),
		incoming: make([][]int, n),
		edgeSet:  make(map[Edge]struct{}, len(edges)),
		byLabel:  make(map[int][]int),
	}

	for i, ls := range labels {
		g.labels[i] = normalizeLabels(ls)
		for _, l := range g.labels[i] {
			g.byLabel[l] = append(g.byLabel[l], i)
		}
	}

	copy(g.edges, edges)
	for i, e := range g.edges {
		if e.Src < 0 || e.Src >= n || e.Dst < 0 || e.Dst >= n {
			return nil, fmt.Errorf("edge %d (%s) in graph of %d nodes: %w", i, e, n, ErrEdgeEndpoint)
		}
		g.outgoing[e.Src] = append(g.outgoing[e.Src], i)
		g.incoming[e.Dst] = append(g.incoming[e.Dst], i)
		g.edgeSet[e] = struct{}{}
	}

	return g, nil
}

// MustBuild is like Build but panics on error. Intended for tests and
// statically known graphs.
func MustBuild(labels [][]int, edges []Edge) *Graph {
	g, err := Build(labels, edges)
	if err != nil {
		panic(err)
	}
	return g
}

func normalizeLabels(ls []int) []int {
	out := make([]int, len(ls))
	copy(out, ls)
	sort.Ints(out)
	j := 0
	for i, l := range out {
		if i == 0 || l != out[j-1] {
			out[j] = l
			j++
		}
	}
	return out[:j]
}

// NumNodes returns the number of nodes.
func (g *Graph) NumNodes() int { return len(g.labels) }

// NumEdges returns the number of edges, duplicates included.
func (g *Graph) NumEdges() int { return len(g.edges) }

// Labels returns the sorted label set of node n.
func (g *Graph) Labels(n int) []int { return g.labels[n] }

// HasLabel reports whether node n carries label l.
func (g *Graph) HasLabel(n, l int) bool {
	ls := g.labels[n]
	i := sort.SearchInts(ls, l)
	return i < len(ls) && ls[i] == l
}

// Edge returns edge i.
func (g *Graph) Edge(i int) Edge { return g.edges[i] }

// Edges returns all edges in input order.
func (g *Graph) Edges() []Edge { return g.edges }

// OutEdges returns the indices of edges whose source is n, in input order.
func (g *Graph) OutEdges(n int) []int { return g.outgoing[n] }

// InEdges returns the indices of edges whose destination is n, in input order.
func (g *Graph) InEdges(n int) []int { return g.incoming[n] }

// IncidentEdges returns the incoming then outgoing edge indices of n.
// A self-loop appears twice.
func (g *Graph) IncidentEdges(n int) []int {
	out := make([]int, 0, len(g.incoming[n])+len(g.outgoing[n]))
	out = append(out, g.incoming[n]...)
	return append(out, g.outgoing[n]...)
}

// HasEdge reports whether the exact edge tuple exists.
func (g *Graph) HasEdge(e Edge) bool {
	_, ok := g.edgeSet[e]
	return ok
}

// NodesWithLabel returns, in ascending order, the nodes that carry label l.
func (g *Graph) NodesWithLabel(l int) []int { return g.byLabel[l] }

// String returns a short summary of the graph.
func (g *Graph) String() string {
	return fmt.Sprintf("Graph{nodes: %d, edges: %d, labels: %d}", len(g.labels), len(g.edges), len(g.byLabel))
}

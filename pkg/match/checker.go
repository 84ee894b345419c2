package match

import "github.com/gitrdm/monomatch/pkg/portgraph"

// Checker validates assignments against injectivity and edge preservation.
// All methods are pure: they read the graphs and the assignment and never
// modify either.
type Checker struct {
	pattern *portgraph.Graph
	target  *portgraph.Graph
}

// NewChecker returns a checker for mapping pattern onto target.
func NewChecker(pattern, target *portgraph.Graph) *Checker {
	return &Checker{pattern: pattern, target: target}
}

// CheckAssignment reports whether a (possibly partial) assignment is
// consistent: assigned slots are pairwise distinct, and every pattern edge
// with both endpoints assigned exists in the target with identical ports.
func (c *Checker) CheckAssignment(a Assignment) bool {
	used := make([]uint64, wordsFor(c.target.NumNodes()))
	for _, t := range a {
		if t == Unassigned {
			continue
		}
		if t < 0 || t >= c.target.NumNodes() {
			return false
		}
		bit := uint64(1) << uint(t%64)
		if used[t/64]&bit != 0 {
			return false
		}
		used[t/64] |= bit
	}

	for i := 0; i < c.pattern.NumEdges(); i++ {
		if !c.CheckEdge(a, i) {
			return false
		}
	}
	return true
}

// CheckEdge applies the edge-existence rule to pattern edge i only.
// An edge whose endpoints are not both assigned is vacuously satisfied.
func (c *Checker) CheckEdge(a Assignment, i int) bool {
	e := c.pattern.Edge(i)
	src, dst := a[e.Src], a[e.Dst]
	if src == Unassigned || dst == Unassigned {
		return true
	}
	return c.supports(e, src, dst)
}

// CheckNode is the incremental form of CheckAssignment used after assigning
// pattern node n: n's target must differ from every other assigned slot, and
// every edge incident to n must hold. If the assignment without n was
// consistent, CheckNode(a, n) == CheckAssignment(a).
func (c *Checker) CheckNode(a Assignment, n int) bool {
	t := a[n]
	if t == Unassigned {
		return true
	}
	if t < 0 || t >= c.target.NumNodes() {
		return false
	}
	for i, other := range a {
		if i != n && other == t {
			return false
		}
	}
	for _, ei := range c.pattern.IncidentEdges(n) {
		if !c.CheckEdge(a, ei) {
			return false
		}
	}
	return true
}

// supports reports whether pattern edge e maps onto a target edge when its
// source goes to src and its destination to dst.
func (c *Checker) supports(e portgraph.Edge, src, dst int) bool {
	return c.target.HasEdge(portgraph.Edge{Src: src, SrcPort: e.SrcPort, Dst: dst, DstPort: e.DstPort})
}

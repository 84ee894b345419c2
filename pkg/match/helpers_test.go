package match

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/gitrdm/monomatch/pkg/portgraph"
)

// edge is shorthand for building fixtures.
func edge(src int, sp string, dst int, dp string) portgraph.Edge {
	return portgraph.Edge{Src: src, SrcPort: sp, Dst: dst, DstPort: dp}
}

// pairProblem is the two-node problem whose unique solution is [0 1].
func pairProblem() (pattern, target *portgraph.Graph) {
	target = portgraph.MustBuild([][]int{{1}, {2}}, []portgraph.Edge{edge(0, "a", 1, "b")})
	pattern = portgraph.MustBuild([][]int{{1}, {2}}, []portgraph.Edge{edge(0, "a", 1, "b")})
	return pattern, target
}

// chainProblem maps a two-node chain onto a three-node chain, all label 1.
// Solutions: [0 1] and [1 2].
func chainProblem() (pattern, target *portgraph.Graph) {
	target = portgraph.MustBuild(
		[][]int{{1}, {1}, {1}},
		[]portgraph.Edge{edge(0, "o", 1, "i"), edge(1, "o", 2, "i")},
	)
	pattern = portgraph.MustBuild([][]int{{1}, {1}}, []portgraph.Edge{edge(0, "o", 1, "i")})
	return pattern, target
}

// randomProblem builds a small target and a pattern which, when embed is
// set, is an induced copy of part of the target (so at least one solution
// exists), plus a few random extra edges that may make it infeasible.
func randomProblem(seed uint64, embed bool) (pattern, target *portgraph.Graph) {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	ports := []string{"a", "b", "c"}

	tn := 5 + r.IntN(3)
	tLabels := make([][]int, tn)
	for i := range tLabels {
		tLabels[i] = []int{1 + r.IntN(2)}
		if r.IntN(4) == 0 {
			tLabels[i] = append(tLabels[i], 3)
		}
	}
	var tEdges []portgraph.Edge
	for i := 0; i < tn*2; i++ {
		tEdges = append(tEdges, edge(r.IntN(tn), ports[r.IntN(len(ports))], r.IntN(tn), ports[r.IntN(len(ports))]))
	}
	target = portgraph.MustBuild(tLabels, tEdges)

	pn := 2 + r.IntN(3)
	perm := r.Perm(tn)[:pn]
	pLabels := make([][]int, pn)
	back := make(map[int]int, pn)
	for i, t := range perm {
		ls := target.Labels(t)
		pLabels[i] = []int{ls[r.IntN(len(ls))]}
		back[t] = i
	}
	var pEdges []portgraph.Edge
	if embed {
		for _, te := range target.Edges() {
			s, okS := back[te.Src]
			d, okD := back[te.Dst]
			if okS && okD && r.IntN(3) > 0 {
				pEdges = append(pEdges, edge(s, te.SrcPort, d, te.DstPort))
			}
		}
	} else {
		for i := 0; i < pn; i++ {
			pEdges = append(pEdges, edge(r.IntN(pn), ports[r.IntN(len(ports))], r.IntN(pn), ports[r.IntN(len(ports))]))
		}
	}
	pattern = portgraph.MustBuild(pLabels, pEdges)
	return pattern, target
}

// bruteForce enumerates every label-compatible injective assignment and keeps
// the ones CheckAssignment accepts, in lexicographic order.
func bruteForce(pattern, target *portgraph.Graph) []Assignment {
	c := NewChecker(pattern, target)
	a := NewAssignment(pattern.NumNodes())
	var out []Assignment
	var rec func(n int)
	rec = func(n int) {
		if n == len(a) {
			if c.CheckAssignment(a) {
				out = append(out, a.Clone())
			}
			return
		}
		for t := 0; t < target.NumNodes(); t++ {
			if !target.HasLabel(t, pattern.Labels(n)[0]) || slices.Contains(a[:n], t) {
				continue
			}
			a[n] = t
			rec(n + 1)
			a[n] = Unassigned
		}
	}
	rec(0)
	return out
}

// sortSolutions orders solutions lexicographically.
func sortSolutions(sols []Assignment) []Assignment {
	out := slices.Clone(sols)
	slices.SortFunc(out, func(x, y Assignment) int { return slices.Compare(x, y) })
	return out
}

// recordingObserver keeps every event as a string.
type recordingObserver struct {
	events []string
}

func (r *recordingObserver) AssignmentTried(_ Assignment, node, value int, ok bool) {
	r.events = append(r.events, fmt.Sprintf("try %d=%d %v", node, value, ok))
}

func (r *recordingObserver) DomainPruned(node int, before, after *Domain) {
	r.events = append(r.events, fmt.Sprintf("prune %d %s->%s", node, before, after))
}

func (r *recordingObserver) ArcRemoved(tail, head, e, value int) {
	r.events = append(r.events, fmt.Sprintf("arc %d->%d e%d -%d", tail, head, e, value))
}

func (r *recordingObserver) SolutionFound(a Assignment) {
	r.events = append(r.events, fmt.Sprintf("solution %v", []int(a)))
}

func (r *recordingObserver) tries() int {
	n := 0
	for _, e := range r.events {
		if len(e) > 4 && e[:4] == "try " {
			n++
		}
	}
	return n
}

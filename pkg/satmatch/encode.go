// Package satmatch decides port-graph monomorphism by reduction to SAT.
//
// It is an independent engine used to cross-check the constraint solver in
// package match: both must agree on satisfiability, and every model decoded
// here must pass match.Checker.
package satmatch

import (
	"github.com/go-air/gini/inter"
	"github.com/go-air/gini/z"

	"github.com/gitrdm/monomatch/pkg/match"
	"github.com/gitrdm/monomatch/pkg/portgraph"
)

// Encoding maps "pattern node n sits on target node t" to boolean variables.
// Only pairs surviving the initial domain filter get a variable.
type Encoding struct {
	pattern *portgraph.Graph
	target  *portgraph.Graph

	// lits[n] maps target node -> literal for pattern node n.
	lits []map[int]z.Lit
	// byTarget[t] lists the literals placing some pattern node on t.
	byTarget map[int][]z.Lit

	numVars    int
	numClauses int
	empty      bool
}

// NewEncoding allocates one variable per (pattern node, candidate) pair of
// the given domains.
func NewEncoding(pattern, target *portgraph.Graph, domains *match.Snapshot) *Encoding {
	enc := &Encoding{
		pattern:  pattern,
		target:   target,
		lits:     make([]map[int]z.Lit, pattern.NumNodes()),
		byTarget: make(map[int][]z.Lit),
	}
	for n := range enc.lits {
		enc.lits[n] = make(map[int]z.Lit)
		d := domains.Domain(n)
		if d.IsEmpty() {
			enc.empty = true
		}
		d.IterateValues(func(t int) bool {
			enc.numVars++
			m := z.Var(enc.numVars).Pos()
			enc.lits[n][t] = m
			enc.byTarget[t] = append(enc.byTarget[t], m)
			return true
		})
	}
	return enc
}

// HasEmptyDomain reports whether some pattern node had no candidate, making
// the formula trivially unsatisfiable.
func (enc *Encoding) HasEmptyDomain() bool { return enc.empty }

// NumVars returns the number of boolean variables.
func (enc *Encoding) NumVars() int { return enc.numVars }

// NumClauses returns the number of clauses added by AddClauses.
func (enc *Encoding) NumClauses() int { return enc.numClauses }

// Lit returns the literal for placing n on t, or z.LitNull when t is not a
// candidate for n.
func (enc *Encoding) Lit(n, t int) z.Lit {
	if m, ok := enc.lits[n][t]; ok {
		return m
	}
	return z.LitNull
}

func (enc *Encoding) clause(g inter.Adder, ms ...z.Lit) {
	for _, m := range ms {
		g.Add(m)
	}
	g.Add(z.LitNull)
	enc.numClauses++
}

// candidates returns n's target nodes in ascending order.
func (enc *Encoding) candidates(n int) []int {
	out := make([]int, 0, len(enc.lits[n]))
	for t := 0; t < enc.target.NumNodes(); t++ {
		if _, ok := enc.lits[n][t]; ok {
			out = append(out, t)
		}
	}
	return out
}

// AddClauses adds the monomorphism constraints to g:
//   - every pattern node sits on exactly one candidate;
//   - no target node hosts two pattern nodes;
//   - for every pattern edge (s,sp,d,dp) and candidate a of s, placing s on a
//     forces d onto some b with (a,sp,b,dp) in the target.
func (enc *Encoding) AddClauses(g inter.Adder) {
	for n := range enc.lits {
		cands := enc.candidates(n)
		ms := make([]z.Lit, len(cands))
		for i, t := range cands {
			ms[i] = enc.lits[n][t]
		}
		enc.clause(g, ms...)
		enc.atMostOne(g, ms)
	}

	for t := 0; t < enc.target.NumNodes(); t++ {
		enc.atMostOne(g, enc.byTarget[t])
	}

	for _, e := range enc.pattern.Edges() {
		for _, a := range enc.candidates(e.Src) {
			ma := enc.lits[e.Src][a]
			if e.Src == e.Dst {
				if !enc.target.HasEdge(portgraph.Edge{Src: a, SrcPort: e.SrcPort, Dst: a, DstPort: e.DstPort}) {
					enc.clause(g, ma.Not())
				}
				continue
			}
			ms := []z.Lit{ma.Not()}
			for _, ti := range enc.target.OutEdges(a) {
				te := enc.target.Edge(ti)
				if te.SrcPort != e.SrcPort || te.DstPort != e.DstPort {
					continue
				}
				if mb := enc.Lit(e.Dst, te.Dst); mb != z.LitNull {
					ms = append(ms, mb)
				}
			}
			enc.clause(g, ms...)
		}
	}
}

// atMostOne adds the pairwise encoding.
func (enc *Encoding) atMostOne(g inter.Adder, ms []z.Lit) {
	for i := 0; i < len(ms); i++ {
		for j := i + 1; j < len(ms); j++ {
			enc.clause(g, ms[i].Not(), ms[j].Not())
		}
	}
}

// Model is the part of a solver Decode needs.
type Model interface {
	Value(m z.Lit) bool
}

// Decode reads an assignment out of a satisfying model.
func (enc *Encoding) Decode(model Model) match.Assignment {
	a := match.NewAssignment(enc.pattern.NumNodes())
	for n := range enc.lits {
		for _, t := range enc.candidates(n) {
			if model.Value(enc.lits[n][t]) {
				a[n] = t
				break
			}
		}
	}
	return a
}

// Block adds a clause excluding exactly assignment a.
func (enc *Encoding) Block(g inter.Adder, a match.Assignment) {
	ms := make([]z.Lit, 0, len(a))
	for n, t := range a {
		ms = append(ms, enc.lits[n][t].Not())
	}
	enc.clause(g, ms...)
}

package match

import (
	"errors"
	"fmt"

	"github.com/gitrdm/monomatch/pkg/portgraph"
)

// ErrInvariantViolation is matched by errors describing an ill-formed problem.
var ErrInvariantViolation = errors.New("invariant violation")

// InvariantError reports a pattern node that does not carry exactly one label.
type InvariantError struct {
	Node   int
	Labels []int
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("pattern node %d must carry exactly one label, has %d %v", e.Node, len(e.Labels), e.Labels)
}

// Is allows errors.Is(err, ErrInvariantViolation).
func (e *InvariantError) Is(target error) bool { return target == ErrInvariantViolation }

// patternLabels returns the single label of every pattern node.
func patternLabels(pattern *portgraph.Graph) ([]int, error) {
	labels := make([]int, pattern.NumNodes())
	for n := range labels {
		ls := pattern.Labels(n)
		if len(ls) != 1 {
			return nil, &InvariantError{Node: n, Labels: ls}
		}
		labels[n] = ls[0]
	}
	return labels, nil
}

// InitialDomains computes, for each pattern node, the target nodes whose label
// set contains the pattern node's label. Edge structure is ignored; it is the
// job of the checker and the propagators.
//
// Returns an *InvariantError if any pattern node has zero or several labels.
// Empty domains are not an error.
func InitialDomains(pattern, target *portgraph.Graph) (*Snapshot, error) {
	labels, err := patternLabels(pattern)
	if err != nil {
		return nil, err
	}
	domains := make([]*Domain, len(labels))
	for n, l := range labels {
		domains[n] = DomainFromValues(target.NumNodes(), target.NodesWithLabel(l))
	}
	return &Snapshot{domains: domains}, nil
}

// StructuralDomains refines InitialDomains with a local structure filter:
// target node t stays in the domain of pattern node n only if, for every
// pattern edge incident to n, t has a target edge in the same direction with
// the same port pair whose far end carries the far pattern node's label.
// A pattern self-loop requires a target self-loop with the same ports.
//
// The filter only looks one edge deep, so it never removes a value that
// belongs to a complete solution.
func StructuralDomains(pattern, target *portgraph.Graph) (*Snapshot, error) {
	snap, err := InitialDomains(pattern, target)
	if err != nil {
		return nil, err
	}
	labels, _ := patternLabels(pattern)

	domains := snap.builder()
	for n := range domains {
		var drop []int
		domains[n].IterateValues(func(t int) bool {
			if !structurallyCompatible(pattern, target, labels, n, t) {
				drop = append(drop, t)
			}
			return true
		})
		domains[n] = domains[n].RemoveAll(drop)
	}
	return &Snapshot{domains: domains}, nil
}

func structurallyCompatible(pattern, target *portgraph.Graph, labels []int, n, t int) bool {
	for _, ei := range pattern.OutEdges(n) {
		pe := pattern.Edge(ei)
		if !hasPortEdge(target, target.OutEdges(t), pe, true, labels[pe.Dst], pe.Src == pe.Dst, t) {
			return false
		}
	}
	for _, ei := range pattern.InEdges(n) {
		pe := pattern.Edge(ei)
		if !hasPortEdge(target, target.InEdges(t), pe, false, labels[pe.Src], pe.Src == pe.Dst, t) {
			return false
		}
	}
	return true
}

// hasPortEdge scans candidate target edges (outgoing when fromSource is set,
// incoming otherwise) for one with pe's ports whose far end carries label.
func hasPortEdge(target *portgraph.Graph, candidates []int, pe portgraph.Edge, fromSource bool, label int, selfLoop bool, t int) bool {
	for _, ti := range candidates {
		te := target.Edge(ti)
		if te.SrcPort != pe.SrcPort || te.DstPort != pe.DstPort {
			continue
		}
		far := te.Dst
		if !fromSource {
			far = te.Src
		}
		if selfLoop && far != t {
			continue
		}
		if target.HasLabel(far, label) {
			return true
		}
	}
	return false
}

package match

import "github.com/gitrdm/monomatch/pkg/portgraph"

// Propagator shrinks domains by removing values that cannot take part in a
// consistent completion.
//
// Two algorithms are provided:
//   - AC3: fixpoint arc consistency over the arcs derived from pattern edges.
//     Sound but not complete; re-running it on its own output removes nothing.
//   - ForwardCheck: re-tests only the neighbors of a just-assigned variable
//     against the edges that connect them. Cheaper, no cascading.
//
// Both are copy-on-write: the input snapshot is never modified and a new
// snapshot is returned when anything was removed.
type Propagator struct {
	pattern  *portgraph.Graph
	checker  *Checker
	observer Observer

	// removals counts values removed since construction.
	removals int
}

// NewPropagator returns a propagator for the given problem. A nil observer
// is replaced by NopObserver.
func NewPropagator(pattern, target *portgraph.Graph, observer Observer) *Propagator {
	if observer == nil {
		observer = NopObserver{}
	}
	return &Propagator{
		pattern:  pattern,
		checker:  NewChecker(pattern, target),
		observer: observer,
	}
}

// Removals returns the number of domain values removed so far.
func (p *Propagator) Removals() int { return p.removals }

// arc is a directed view of pattern edge `edge` from tail to head.
type arc struct {
	tail, head, edge int
}

// arcByID decodes dense arc ids: 2*edge is source->destination,
// 2*edge+1 is destination->source.
func (p *Propagator) arcByID(id int) arc {
	e := p.pattern.Edge(id / 2)
	if id%2 == 0 {
		return arc{tail: e.Src, head: e.Dst, edge: id / 2}
	}
	return arc{tail: e.Dst, head: e.Src, edge: id / 2}
}

// supported reports whether value x of a.tail has a support y in head.
func (p *Propagator) supported(a arc, x int, head *Domain) bool {
	e := p.pattern.Edge(a.edge)
	if a.tail == a.head {
		return p.checker.supports(e, x, x)
	}
	found := false
	head.IterateValues(func(y int) bool {
		if a.tail == e.Src {
			found = p.checker.supports(e, x, y)
		} else {
			found = p.checker.supports(e, y, x)
		}
		return !found
	})
	return found
}

// AC3 runs arc consistency to a fixpoint. It returns the reduced snapshot and
// true, or (nil, false) as soon as any domain becomes empty.
//
// The worklist starts with both arcs of every pattern edge. When a value is
// removed from node n, every arc whose head is n is re-enqueued, since the
// supports it relied on may be gone.
func (p *Propagator) AC3(s *Snapshot) (*Snapshot, bool) {
	if i := s.FirstEmpty(); i >= 0 {
		return nil, false
	}
	numArcs := 2 * p.pattern.NumEdges()
	if numArcs == 0 {
		return s, true
	}

	domains := s.builder()
	queue := make([]int, 0, numArcs)
	queued := make([]bool, numArcs)
	for id := 0; id < numArcs; id++ {
		queue = append(queue, id)
		queued[id] = true
	}

	changed := false
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		queued[id] = false

		a := p.arcByID(id)
		tail, head := domains[a.tail], domains[a.head]

		var drop []int
		tail.IterateValues(func(x int) bool {
			if !p.supported(a, x, head) {
				drop = append(drop, x)
			}
			return true
		})
		if len(drop) == 0 {
			continue
		}

		for _, x := range drop {
			p.observer.ArcRemoved(a.tail, a.head, a.edge, x)
		}
		p.removals += len(drop)
		domains[a.tail] = tail.RemoveAll(drop)
		changed = true
		if domains[a.tail].IsEmpty() {
			return nil, false
		}

		for _, ei := range p.pattern.InEdges(a.tail) {
			if id := 2 * ei; !queued[id] {
				queue = append(queue, id)
				queued[id] = true
			}
		}
		for _, ei := range p.pattern.OutEdges(a.tail) {
			if id := 2*ei + 1; !queued[id] {
				queue = append(queue, id)
				queued[id] = true
			}
		}
	}

	if !changed {
		return s, true
	}
	return &Snapshot{domains: domains}, true
}

// ForwardCheck prunes the domains of the unassigned neighbors of v, which
// must already be assigned in a. Each neighbor candidate is tested against
// the edges linking it to v. Returns (nil, false) if a neighbor's domain
// becomes empty.
func (p *Propagator) ForwardCheck(s *Snapshot, a Assignment, v int) (*Snapshot, bool) {
	var domains []*Domain
	current := func(n int) *Domain {
		if domains != nil {
			return domains[n]
		}
		return s.Domain(n)
	}

	for _, ei := range p.pattern.IncidentEdges(v) {
		e := p.pattern.Edge(ei)
		u := e.Dst
		if u == v {
			u = e.Src
		}
		if u == v || a[u] != Unassigned {
			continue
		}

		before := current(u)
		var drop []int
		before.IterateValues(func(y int) bool {
			var ok bool
			if e.Src == v {
				ok = p.checker.supports(e, a[v], y)
			} else {
				ok = p.checker.supports(e, y, a[v])
			}
			if !ok {
				drop = append(drop, y)
			}
			return true
		})
		if len(drop) == 0 {
			continue
		}

		if domains == nil {
			domains = s.builder()
		}
		after := before.RemoveAll(drop)
		domains[u] = after
		p.removals += len(drop)
		p.observer.DomainPruned(u, before, after)
		if after.IsEmpty() {
			return nil, false
		}
	}

	if domains == nil {
		return s, true
	}
	return &Snapshot{domains: domains}, true
}

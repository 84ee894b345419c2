package match

import (
	"fmt"
	"strings"
)

// Unassigned marks an assignment slot with no target node yet.
const Unassigned = -1

// Assignment maps each pattern node (by index) to a target node or Unassigned.
//
// During search the solver mutates a single Assignment in place along one
// root-to-leaf path and restores slots on backtrack. Copies are handed out
// for solutions.
type Assignment []int

// NewAssignment returns an assignment of n unassigned slots.
func NewAssignment(n int) Assignment {
	a := make(Assignment, n)
	for i := range a {
		a[i] = Unassigned
	}
	return a
}

// Clone returns an independent copy.
func (a Assignment) Clone() Assignment {
	out := make(Assignment, len(a))
	copy(out, a)
	return out
}

// IsComplete reports whether every slot is assigned.
func (a Assignment) IsComplete() bool {
	for _, v := range a {
		if v == Unassigned {
			return false
		}
	}
	return true
}

// Snapshot is an immutable vector of per-variable domains.
//
// A snapshot is never modified after creation. Narrow returns a new snapshot
// that shares every untouched Domain with its parent, so creating a branch
// costs one pointer slice copy and siblings can never observe each other's
// propagation.
type Snapshot struct {
	domains []*Domain
}

// NewSnapshot wraps the given domains. The slice is copied.
func NewSnapshot(domains []*Domain) *Snapshot {
	ds := make([]*Domain, len(domains))
	copy(ds, domains)
	return &Snapshot{domains: ds}
}

// Len returns the number of variables.
func (s *Snapshot) Len() int { return len(s.domains) }

// Domain returns the domain of variable v.
func (s *Snapshot) Domain(v int) *Domain { return s.domains[v] }

// Narrow returns a snapshot in which variable v has domain d, and whether
// anything changed. When d equals the current domain the receiver itself is
// returned.
func (s *Snapshot) Narrow(v int, d *Domain) (*Snapshot, bool) {
	if s.domains[v].Equal(d) {
		return s, false
	}
	ns := &Snapshot{domains: make([]*Domain, len(s.domains))}
	copy(ns.domains, s.domains)
	ns.domains[v] = d
	return ns, true
}

// builder returns a private, writable copy of the domain vector. Propagators
// use it to apply many removals before freezing a single new snapshot.
func (s *Snapshot) builder() []*Domain {
	ds := make([]*Domain, len(s.domains))
	copy(ds, s.domains)
	return ds
}

// FirstEmpty returns the first variable with an empty domain, or -1.
func (s *Snapshot) FirstEmpty() int {
	for i, d := range s.domains {
		if d.IsEmpty() {
			return i
		}
	}
	return -1
}

// Equal reports whether both snapshots hold equal domains for every variable.
func (s *Snapshot) Equal(other *Snapshot) bool {
	if len(s.domains) != len(other.domains) {
		return false
	}
	for i := range s.domains {
		if !s.domains[i].Equal(other.domains[i]) {
			return false
		}
	}
	return true
}

// Values returns every domain as a sorted value slice, indexed by variable.
func (s *Snapshot) Values() [][]int {
	out := make([][]int, len(s.domains))
	for i, d := range s.domains {
		out[i] = d.Values()
	}
	return out
}

func (s *Snapshot) String() string {
	parts := make([]string, len(s.domains))
	for i, d := range s.domains {
		parts[i] = fmt.Sprintf("%d:%s", i, d)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Package match implements subgraph monomorphism over labeled port graphs as
// a finite-domain constraint satisfaction problem.
//
// Each pattern node is a variable whose domain is a set of target nodes.
// Constraints are injectivity (no two pattern nodes share a target node) and
// edge preservation (every pattern edge maps onto a target edge with the same
// ports). The solver combines label-filtered initial domains, optional AC-3
// or forward-checking propagation, and depth-first search with the
// minimum-remaining-values heuristic.
//
// This file defines Domain, the immutable bitset used for candidate sets.
package match

import (
	"fmt"
	"math/bits"
	"strings"
)

// Domain is an immutable set of target node indices in [0, Size()).
// Each value is represented by a single bit, giving O(1) membership tests
// and word-parallel set operations.
//
// All operations return new domains rather than modifying in place, which is
// what lets search branches share unchanged domains safely.
type Domain struct {
	size  int      // universe size (number of target nodes)
	words []uint64 // bit i represents target node i
}

func wordsFor(size int) int { return (size + 63) / 64 }

// NewDomain returns an empty domain over a universe of size values.
func NewDomain(size int) *Domain {
	if size < 0 {
		size = 0
	}
	return &Domain{size: size, words: make([]uint64, wordsFor(size))}
}

// FullDomain returns a domain containing every value in [0, size).
func FullDomain(size int) *Domain {
	d := NewDomain(size)
	for i := 0; i < size; i++ {
		d.words[i/64] |= 1 << uint(i%64)
	}
	return d
}

// DomainFromValues returns a domain containing the given values.
// Values outside [0, size) are ignored.
func DomainFromValues(size int, values []int) *Domain {
	d := NewDomain(size)
	for _, v := range values {
		if v >= 0 && v < size {
			d.words[v/64] |= 1 << uint(v%64)
		}
	}
	return d
}

// Size returns the universe size.
func (d *Domain) Size() int { return d.size }

// Count returns the number of values in the domain.
// Uses hardware popcount (O(number of words)).
func (d *Domain) Count() int {
	count := 0
	for _, w := range d.words {
		count += bits.OnesCount64(w)
	}
	return count
}

// IsEmpty reports whether the domain has no values.
func (d *Domain) IsEmpty() bool {
	for _, w := range d.words {
		if w != 0 {
			return false
		}
	}
	return true
}

// Has reports whether v is in the domain.
func (d *Domain) Has(v int) bool {
	if v < 0 || v >= d.size {
		return false
	}
	return (d.words[v/64]>>uint(v%64))&1 == 1
}

// IsSingleton reports whether the domain holds exactly one value.
func (d *Domain) IsSingleton() bool { return d.Count() == 1 }

// Min returns the smallest value, or -1 for an empty domain.
func (d *Domain) Min() int {
	for i, w := range d.words {
		if w != 0 {
			return i*64 + bits.TrailingZeros64(w)
		}
	}
	return -1
}

// Remove returns a domain without v. The receiver is returned unchanged
// when v is absent.
func (d *Domain) Remove(v int) *Domain {
	if !d.Has(v) {
		return d
	}
	nd := d.clone()
	nd.words[v/64] &^= 1 << uint(v%64)
	return nd
}

// RemoveAll returns a domain without any of the given values.
func (d *Domain) RemoveAll(values []int) *Domain {
	nd := d
	for _, v := range values {
		if nd.Has(v) {
			if nd == d {
				nd = d.clone()
			}
			nd.words[v/64] &^= 1 << uint(v%64)
		}
	}
	return nd
}

// Singleton returns a domain containing only v, over the same universe.
func (d *Domain) Singleton(v int) *Domain {
	return DomainFromValues(d.size, []int{v})
}

// Intersect returns the values present in both domains.
// Domains over different universes intersect to the empty set.
func (d *Domain) Intersect(other *Domain) *Domain {
	if d.size != other.size {
		return NewDomain(d.size)
	}
	nd := NewDomain(d.size)
	for i := range d.words {
		nd.words[i] = d.words[i] & other.words[i]
	}
	return nd
}

// IterateValues calls f for each value in ascending order.
// Returning false from f stops the iteration.
func (d *Domain) IterateValues(f func(v int) bool) {
	for i, w := range d.words {
		for w != 0 {
			v := i*64 + bits.TrailingZeros64(w)
			if !f(v) {
				return
			}
			w &= w - 1
		}
	}
}

// Values returns all values in ascending order.
func (d *Domain) Values() []int {
	out := make([]int, 0, d.Count())
	d.IterateValues(func(v int) bool {
		out = append(out, v)
		return true
	})
	return out
}

// Equal reports whether both domains contain the same values over the same universe.
func (d *Domain) Equal(other *Domain) bool {
	if d.size != other.size {
		return false
	}
	for i := range d.words {
		if d.words[i] != other.words[i] {
			return false
		}
	}
	return true
}

// IsSubsetOf reports whether every value of d is also in other.
func (d *Domain) IsSubsetOf(other *Domain) bool {
	if d.size != other.size {
		return d.IsEmpty()
	}
	for i := range d.words {
		if d.words[i]&^other.words[i] != 0 {
			return false
		}
	}
	return true
}

func (d *Domain) clone() *Domain {
	words := make([]uint64, len(d.words))
	copy(words, d.words)
	return &Domain{size: d.size, words: words}
}

// String renders the domain as "{0,3,4}" or "{2..9}" for a consecutive run.
func (d *Domain) String() string {
	values := d.Values()
	switch {
	case len(values) == 0:
		return "{}"
	case len(values) == 1:
		return fmt.Sprintf("{%d}", values[0])
	case values[len(values)-1]-values[0] == len(values)-1:
		return fmt.Sprintf("{%d..%d}", values[0], values[len(values)-1])
	}

	var b strings.Builder
	b.WriteString("{")
	for i, v := range values {
		if i > 0 {
			b.WriteString(",")
		}
		if i >= 19 && len(values) > 20 {
			fmt.Fprintf(&b, "...+%d more", len(values)-19)
			break
		}
		fmt.Fprintf(&b, "%d", v)
	}
	b.WriteString("}")
	return b.String()
}

package match

import (
	"reflect"
	"testing"
)

func TestDomain_Basics(t *testing.T) {
	d := DomainFromValues(10, []int{1, 3, 5, 12, -1})

	if d.Size() != 10 {
		t.Errorf("Size() = %d, want 10", d.Size())
	}
	if d.Count() != 3 {
		t.Errorf("Count() = %d, want 3 (out-of-range values ignored)", d.Count())
	}
	if !d.Has(3) || d.Has(2) || d.Has(12) {
		t.Errorf("Has() wrong for %s", d)
	}
	if d.Min() != 1 {
		t.Errorf("Min() = %d, want 1", d.Min())
	}
	if got := d.Values(); !reflect.DeepEqual(got, []int{1, 3, 5}) {
		t.Errorf("Values() = %v", got)
	}
}

func TestDomain_Empty(t *testing.T) {
	d := NewDomain(70)
	if !d.IsEmpty() || d.Count() != 0 || d.Min() != -1 {
		t.Errorf("NewDomain(70) should be empty, got %s", d)
	}
	if d.String() != "{}" {
		t.Errorf("String() = %q", d.String())
	}
}

func TestDomain_FullSpansWords(t *testing.T) {
	d := FullDomain(130)
	if d.Count() != 130 {
		t.Fatalf("Count() = %d, want 130", d.Count())
	}
	if !d.Has(0) || !d.Has(64) || !d.Has(129) || d.Has(130) {
		t.Error("membership across word boundaries is wrong")
	}
	if d.String() != "{0..129}" {
		t.Errorf("String() = %q", d.String())
	}
}

func TestDomain_RemoveIsCopyOnWrite(t *testing.T) {
	d := DomainFromValues(8, []int{0, 2, 4})

	same := d.Remove(3)
	if same != d {
		t.Error("Remove of an absent value should return the receiver")
	}

	nd := d.Remove(2)
	if nd == d {
		t.Fatal("Remove should return a new domain")
	}
	if !d.Has(2) {
		t.Error("original domain was modified")
	}
	if nd.Has(2) || nd.Count() != 2 {
		t.Errorf("Remove(2) = %s", nd)
	}

	all := d.RemoveAll([]int{0, 4, 7})
	if got := all.Values(); !reflect.DeepEqual(got, []int{2}) {
		t.Errorf("RemoveAll = %v", got)
	}
	if d.RemoveAll([]int{1, 3}) != d {
		t.Error("RemoveAll with nothing to remove should return the receiver")
	}
}

func TestDomain_SetOperations(t *testing.T) {
	a := DomainFromValues(8, []int{1, 2, 3})
	b := DomainFromValues(8, []int{2, 3, 4})

	if got := a.Intersect(b).Values(); !reflect.DeepEqual(got, []int{2, 3}) {
		t.Errorf("Intersect = %v", got)
	}
	if !a.Intersect(b).IsSubsetOf(a) {
		t.Error("intersection should be a subset")
	}
	if a.IsSubsetOf(b) {
		t.Error("a is not a subset of b")
	}
	if !a.Singleton(2).IsSingleton() {
		t.Error("Singleton should hold one value")
	}
	if !a.Equal(DomainFromValues(8, []int{3, 2, 1})) {
		t.Error("Equal should ignore construction order")
	}
	if a.Equal(DomainFromValues(9, []int{1, 2, 3})) {
		t.Error("domains over different universes are not equal")
	}
}

func TestDomain_IterateValuesStops(t *testing.T) {
	d := DomainFromValues(100, []int{5, 64, 70, 99})
	var seen []int
	d.IterateValues(func(v int) bool {
		seen = append(seen, v)
		return v < 64
	})
	if !reflect.DeepEqual(seen, []int{5, 64}) {
		t.Errorf("IterateValues visited %v", seen)
	}
}

func TestDomain_String(t *testing.T) {
	tests := []struct {
		values []int
		want   string
	}{
		{[]int{4}, "{4}"},
		{[]int{2, 3, 4}, "{2..4}"},
		{[]int{0, 3, 4}, "{0,3,4}"},
	}
	for _, tt := range tests {
		if got := DomainFromValues(10, tt.values).String(); got != tt.want {
			t.Errorf("String(%v) = %q, want %q", tt.values, got, tt.want)
		}
	}
}

func TestSnapshot_NarrowSharesUntouchedDomains(t *testing.T) {
	d0 := DomainFromValues(4, []int{0, 1})
	d1 := DomainFromValues(4, []int{2, 3})
	s := NewSnapshot([]*Domain{d0, d1})

	ns, changed := s.Narrow(0, d0.Singleton(1))
	if !changed {
		t.Fatal("Narrow should report a change")
	}
	if s.Domain(0) != d0 {
		t.Error("parent snapshot was modified")
	}
	if ns.Domain(1) != d1 {
		t.Error("untouched domain should be shared")
	}
	if got := ns.Domain(0).Values(); !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("narrowed domain = %v", got)
	}

	same, changed := s.Narrow(1, DomainFromValues(4, []int{3, 2}))
	if changed || same != s {
		t.Error("narrowing to an equal domain should return the receiver")
	}

	if s.FirstEmpty() != -1 {
		t.Error("no domain is empty")
	}
	empty, _ := s.Narrow(1, NewDomain(4))
	if empty.FirstEmpty() != 1 {
		t.Errorf("FirstEmpty() = %d, want 1", empty.FirstEmpty())
	}
	if ns.String() != "[0:{1} 1:{2..3}]" {
		t.Errorf("String() = %q", ns.String())
	}
}

func TestAssignment(t *testing.T) {
	a := NewAssignment(3)
	if a.IsComplete() {
		t.Error("fresh assignment is not complete")
	}
	a[0], a[1], a[2] = 2, 0, 1
	if !a.IsComplete() {
		t.Error("assignment should be complete")
	}
	c := a.Clone()
	c[0] = 9
	if a[0] != 2 {
		t.Error("Clone must not alias")
	}
}

package record

import (
	"slices"
	"strings"
)

// Equal reports deep equality. Values of different kinds are never equal,
// arrays compare element-wise in order and objects compare by key set,
// regardless of key order.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case Undefined, Null:
		return true
	case Bool:
		return a.b == b.b
	case Number:
		return a.n == b.n
	case String:
		return a.s == b.s
	case Array:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !Equal(a.arr[i], b.arr[i]) {
				return false
			}
		}
		return true
	case Object:
		if len(a.obj.keys) != len(b.obj.keys) {
			return false
		}
		for _, k := range a.obj.keys {
			other, ok := b.obj.values[k]
			if !ok || !Equal(a.obj.values[k], other) {
				return false
			}
		}
		return true
	}
	return false
}

// Compare orders values first by kind rank, then by value: numbers
// numerically, strings lexicographically, false before true. Composite
// values fall back to their canonical JSON.
func Compare(a, b Value) int {
	if a.kind != b.kind {
		if a.kind < b.kind {
			return -1
		}
		return 1
	}
	switch a.kind {
	case Bool:
		switch {
		case a.b == b.b:
			return 0
		case !a.b:
			return -1
		default:
			return 1
		}
	case Number:
		switch {
		case a.n < b.n:
			return -1
		case a.n > b.n:
			return 1
		}
		return 0
	case String:
		return strings.Compare(a.s, b.s)
	case Array, Object:
		return strings.Compare(a.Canonical(), b.Canonical())
	}
	return 0
}

// SortedDistinct sorts values and drops duplicates. The input is not modified.
func SortedDistinct(values []Value) []Value {
	out := make([]Value, len(values))
	copy(out, values)
	slices.SortStableFunc(out, Compare)
	return slices.CompactFunc(out, Equal)
}

// Set collects distinct values in insertion order.
type Set struct {
	index map[string]struct{}
	items []Value
}

// NewSet returns an empty value set.
func NewSet() *Set {
	return &Set{index: make(map[string]struct{})}
}

// Add inserts v unless an equal value is already present.
func (s *Set) Add(v Value) {
	k := v.kind.String() + ":" + v.Canonical()
	if _, ok := s.index[k]; ok {
		return
	}
	s.index[k] = struct{}{}
	s.items = append(s.items, v)
}

// Sorted returns the set members ordered by Compare.
func (s *Set) Sorted() []Value {
	out := make([]Value, len(s.items))
	copy(out, s.items)
	slices.SortStableFunc(out, Compare)
	return out
}

// Len returns the number of distinct values.
func (s *Set) Len() int { return len(s.items) }

func sortStrings(s []string) { slices.Sort(s) }

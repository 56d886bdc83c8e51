package codec

import (
	"fmt"
	"reflect"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// OrderedMap is a string-keyed map that remembers insertion order.
// It round-trips through storage with its order intact.
type OrderedMap = orderedmap.OrderedMap[string, any]

// NewOrderedMap returns an empty OrderedMap.
func NewOrderedMap() *OrderedMap {
	return orderedmap.New[string, any]()
}

// Set is an insertion-ordered collection of unique comparable members.
type Set struct {
	m *orderedmap.OrderedMap[any, struct{}]
}

// NewSet builds a set from items. It panics if an item is not comparable.
func NewSet(items ...any) *Set {
	s := &Set{m: orderedmap.New[any, struct{}]()}
	for _, it := range items {
		s.Add(it)
	}
	return s
}

// Add inserts v and reports whether it was new. Like a Go map key, v must be
// comparable; Add panics otherwise.
func (s *Set) Add(v any) bool {
	if s.m == nil {
		s.m = orderedmap.New[any, struct{}]()
	}
	_, present := s.m.Set(v, struct{}{})
	return !present
}

// Has reports membership.
func (s *Set) Has(v any) bool {
	if s == nil || s.m == nil || !isComparable(v) {
		return false
	}
	_, ok := s.m.Get(v)
	return ok
}

// Delete removes v and reports whether it was present.
func (s *Set) Delete(v any) bool {
	if s == nil || s.m == nil || !isComparable(v) {
		return false
	}
	_, ok := s.m.Delete(v)
	return ok
}

// Len returns the number of members.
func (s *Set) Len() int {
	if s == nil || s.m == nil {
		return 0
	}
	return s.m.Len()
}

// Values returns the members in insertion order.
func (s *Set) Values() []any {
	out := make([]any, 0, s.Len())
	if s.Len() == 0 {
		return out
	}
	for p := s.m.Oldest(); p != nil; p = p.Next() {
		out = append(out, p.Key)
	}
	return out
}

func (s *Set) String() string { return fmt.Sprintf("Set%v", s.Values()) }

func isComparable(v any) bool {
	return v == nil || reflect.TypeOf(v).Comparable()
}

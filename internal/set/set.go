// Package set provides a map-backed set type.
package set

import "slices"

type Set[T comparable] map[T]struct{}

func New[T comparable](vals ...T) Set[T] {
	s := make(Set[T], len(vals))
	for _, v := range vals {
		s.Add(v)
	}
	return s
}

// Add adds v to s. It reports whether v was not already present.
func (s Set[T]) Add(v T) bool {
	if s.Has(v) {
		return false
	}
	s[v] = struct{}{}
	return true
}

// Delete removes v from s. It reports whether v was present.
func (s Set[T]) Delete(v T) bool {
	if !s.Has(v) {
		return false
	}
	delete(s, v)
	return true
}

func (s Set[T]) Has(v T) bool {
	_, ok := s[v]
	return ok
}

// Slice returns the elements of s in an unspecified order.
func (s Set[T]) Slice() []T {
	r := make([]T, 0, len(s))
	for v := range s {
		r = append(r, v)
	}
	return r
}

// Sorted returns the elements of s ordered by cmp.
func Sorted[T comparable](s Set[T], cmp func(T, T) int) []T {
	r := s.Slice()
	slices.SortFunc(r, cmp)
	return r
}

// Package objstore implements the ID to object mapping used by both
// ends of a connection.
package objstore

import (
	"iter"
	"maps"
	"slices"
)

// Store maps object IDs to objects. IDs allocated by the store itself
// come from the range given to New. IDs in any range may be added
// explicitly.
type Store[T any] struct {
	objects     map[uint32]T
	first, last uint32
	next        uint32
}

// New returns a store that allocates IDs from [first, last].
func New[T any](first, last uint32) *Store[T] {
	if (first == 0) || (last < first) {
		panic("objstore: invalid ID range")
	}

	return &Store[T]{
		objects: make(map[uint32]T),
		first:   first,
		last:    last,
		next:    first,
	}
}

// Add stores obj under id. It returns false if id is zero or already
// in use.
func (s *Store[T]) Add(id uint32, obj T) bool {
	if id == 0 {
		return false
	}
	if _, ok := s.objects[id]; ok {
		return false
	}

	s.objects[id] = obj
	return true
}

// Alloc stores obj under a free ID from the store's range. It returns
// false if the range is exhausted.
func (s *Store[T]) Alloc(obj T) (uint32, bool) {
	size := uint64(s.last-s.first) + 1
	for range size {
		id := s.next
		if s.next == s.last {
			s.next = s.first
		} else {
			s.next++
		}

		if _, ok := s.objects[id]; !ok {
			s.objects[id] = obj
			return id, true
		}
	}
	return 0, false
}

// InRange reports whether id is in the range that the store
// allocates from.
func (s *Store[T]) InRange(id uint32) bool {
	return (id >= s.first) && (id <= s.last)
}

func (s *Store[T]) Get(id uint32) (T, bool) {
	obj, ok := s.objects[id]
	return obj, ok
}

func (s *Store[T]) Delete(id uint32) {
	delete(s.objects, id)
}

func (s *Store[T]) Len() int {
	return len(s.objects)
}

// All yields every stored object in descending ID order, so that
// objects are visited before the objects that created them. The store
// may be modified during iteration.
func (s *Store[T]) All() iter.Seq2[uint32, T] {
	return func(yield func(uint32, T) bool) {
		ids := slices.Sorted(maps.Keys(s.objects))
		for _, id := range slices.Backward(ids) {
			obj, ok := s.objects[id]
			if !ok {
				continue
			}
			if !yield(id, obj) {
				return
			}
		}
	}
}

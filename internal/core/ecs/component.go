package ecs

import "iter"

// Store is a dense, contiguous store for one component type. Values live in a
// packed slice; a sparse index table maps entity index to dense slot and the
// ids slice maps back for swap-remove compaction.
//
// Store is never locked. Writers are serialized by the system graph.
type Store[T any] struct {
	id     ComponentID
	dense  []T
	ids    []EntityID
	sparse []int32
}

func newStore[T any](id ComponentID, capacity int) *Store[T] {
	return &Store[T]{
		id:     id,
		dense:  make([]T, 0, capacity),
		ids:    make([]EntityID, 0, capacity),
		sparse: make([]int32, 0, capacity),
	}
}

func (s *Store[T]) ID() ComponentID { return s.id }

func (s *Store[T]) slot(id EntityID) (int, bool) {
	idx := id.Index()
	if int(idx) >= len(s.sparse) {
		return 0, false
	}
	d := s.sparse[idx]
	if d < 0 || s.ids[d] != id {
		return 0, false
	}
	return int(d), true
}

// Insert stores v for id, returning the previous value if one was present.
func (s *Store[T]) Insert(id EntityID, v T) (T, bool) {
	if d, ok := s.slot(id); ok {
		prev := s.dense[d]
		s.dense[d] = v
		return prev, true
	}
	idx := int(id.Index())
	for len(s.sparse) <= idx {
		s.sparse = append(s.sparse, -1)
	}
	var zero T
	if d := s.sparse[idx]; d >= 0 {
		// Slot still held by an older generation of this index.
		s.ids[d] = id
		s.dense[d] = v
		return zero, false
	}
	s.sparse[idx] = int32(len(s.dense))
	s.dense = append(s.dense, v)
	s.ids = append(s.ids, id)
	return zero, false
}

// Remove swap-removes the value of id. Order of the remaining values changes.
func (s *Store[T]) Remove(id EntityID) (T, bool) {
	var zero T
	d, ok := s.slot(id)
	if !ok {
		return zero, false
	}
	v := s.dense[d]
	last := len(s.dense) - 1
	if d != last {
		moved := s.ids[last]
		s.dense[d] = s.dense[last]
		s.ids[d] = moved
		s.sparse[moved.Index()] = int32(d)
	}
	s.dense[last] = zero
	s.dense = s.dense[:last]
	s.ids = s.ids[:last]
	s.sparse[id.Index()] = -1
	return v, true
}

func (s *Store[T]) erase(id EntityID) bool {
	_, ok := s.Remove(id)
	return ok
}

// Get returns a copy of the value of id.
func (s *Store[T]) Get(id EntityID) (T, bool) {
	if d, ok := s.slot(id); ok {
		return s.dense[d], true
	}
	var zero T
	return zero, false
}

// GetMut returns a pointer into the dense slice. It is valid until the next
// insert or remove on this store.
func (s *Store[T]) GetMut(id EntityID) (*T, bool) {
	if d, ok := s.slot(id); ok {
		return &s.dense[d], true
	}
	return nil, false
}

func (s *Store[T]) Has(id EntityID) bool {
	_, ok := s.slot(id)
	return ok
}

func (s *Store[T]) Len() int {
	return len(s.dense)
}

// Entities returns the dense id slice. Callers must not modify it.
func (s *Store[T]) Entities() []EntityID {
	return s.ids
}

// All yields (id, value) pairs in dense order. Each call starts a fresh pass
// over the current dense slice; order is not stable across removals.
func (s *Store[T]) All() iter.Seq2[EntityID, *T] {
	return func(yield func(EntityID, *T) bool) {
		for i := 0; i < len(s.dense); i++ {
			if !yield(s.ids[i], &s.dense[i]) {
				return
			}
		}
	}
}

func (s *Store[T]) Each(fn func(EntityID, *T)) {
	for i := range s.dense {
		fn(s.ids[i], &s.dense[i])
	}
}

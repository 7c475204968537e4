// Package objectstore is a concurrent in-memory KV of domain objects keyed
// by int64 IDs, with deterministic ascending-ID iteration. It mirrors the
// records a service has reconciled from its DataStore so reads never touch
// Redis.
package objectstore

import (
	"sort"
	"sync"
)

// ObjectStore stores values as provided: pointer values remain live
// references, so callers must treat retrieved objects as immutable and
// replace them via Upsert instead of mutating in place.
type ObjectStore[T any] struct {
	mu   sync.RWMutex
	byID map[int64]T
	ids  []int64 // ascending
}

func New[T any]() *ObjectStore[T] {
	return &ObjectStore[T]{byID: make(map[int64]T)}
}

// Upsert inserts or overwrites the value at id.
func (s *ObjectStore[T]) Upsert(id int64, value T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[id]; !exists {
		i := sort.Search(len(s.ids), func(j int) bool { return s.ids[j] >= id })
		s.ids = append(s.ids, 0)
		copy(s.ids[i+1:], s.ids[i:])
		s.ids[i] = id
	}
	s.byID[id] = value
}

// Delete removes id if present; idempotent.
func (s *ObjectStore[T]) Delete(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[id]; !exists {
		return
	}
	delete(s.byID, id)
	i := sort.Search(len(s.ids), func(j int) bool { return s.ids[j] >= id })
	copy(s.ids[i:], s.ids[i+1:])
	s.ids = s.ids[:len(s.ids)-1]
}

// GetOne returns (value, ok).
func (s *ObjectStore[T]) GetOne(id int64) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.byID[id]
	return v, ok
}

// GetList returns all values in ascending ID order; the slices are copies.
func (s *ObjectStore[T]) GetList() ([]int64, []T) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, len(s.ids))
	copy(ids, s.ids)
	vals := make([]T, len(s.ids))
	for i, id := range s.ids {
		vals[i] = s.byID[id]
	}
	return ids, vals
}

// Len reports the number of stored objects.
func (s *ObjectStore[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

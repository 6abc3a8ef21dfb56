package cache

import "sync"

// Store is a thread-safe map from K to V with get-or-create semantics.
type Store[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]V
	order   []K // insertion order, for deterministic Drain
}

// New creates an empty store.
func New[K comparable, V any]() *Store[K, V] {
	return &Store[K, V]{
		entries: make(map[K]V),
	}
}

// Get retrieves a value.
// Returns (value, true) if found, (zero, false) otherwise.
func (s *Store[K, V]) Get(key K) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.entries[key]
	return v, ok
}

// GetOrCreate returns the stored value or creates it.
// create runs under the lock, so concurrent callers never create twice.
// A failed create stores nothing.
func (s *Store[K, V]) GetOrCreate(key K, create func() (V, error)) (V, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.entries[key]; ok {
		return v, nil
	}

	v, err := create()
	if err != nil {
		var zero V
		return zero, err
	}
	s.entries[key] = v
	s.order = append(s.order, key)
	return v, nil
}

// Delete removes key and hands its value back to the caller for release.
func (s *Store[K, V]) Delete(key K) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.entries[key]
	if !ok {
		return v, false
	}
	delete(s.entries, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return v, true
}

// Drain empties the store and returns the values in insertion order.
func (s *Store[K, V]) Drain() []V {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]V, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.entries[k])
	}
	s.entries = make(map[K]V)
	s.order = nil
	return out
}

// Len returns the number of entries.
func (s *Store[K, V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}

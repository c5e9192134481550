package registry

import (
	"slices"
	"sync"
)

// Registry is a thread-safe registry for values indexed by key.
// It uses sync.RWMutex for read-heavy workloads.
type Registry[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]V
}

// New creates a new empty registry.
func New[K comparable, V any]() *Registry[K, V] {
	return &Registry[K, V]{
		entries: make(map[K]V),
	}
}

// Register adds or updates a value in the registry.
func (r *Registry[K, V]) Register(key K, value V) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[key] = value
}

// Get returns the value for a key and whether it exists.
func (r *Registry[K, V]) Get(key K) (V, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.entries[key]
	return v, ok
}

// DeleteIf removes key only when match approves its current value and
// reports whether it did. The check and removal are atomic.
func (r *Registry[K, V]) DeleteIf(key K, match func(V) bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.entries[key]
	if !ok || !match(v) {
		return false
	}
	delete(r.entries, key)
	return true
}

// Len returns the number of entries in the registry.
func (r *Registry[K, V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Sorted returns the values whose keys satisfy keep, ordered by cmp on
// their keys. A nil keep selects every entry.
func (r *Registry[K, V]) Sorted(keep func(K) bool, cmp func(a, b K) int) []V {
	r.mu.RLock()
	keys := make([]K, 0, len(r.entries))
	for k := range r.entries {
		if keep == nil || keep(k) {
			keys = append(keys, k)
		}
	}
	slices.SortFunc(keys, cmp)
	values := make([]V, len(keys))
	for i, k := range keys {
		values[i] = r.entries[k]
	}
	r.mu.RUnlock()
	return values
}

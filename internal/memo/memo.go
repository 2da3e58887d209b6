// Package memo is a bounded, explicitly owned lookup cache.
package memo

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCapacity bounds a memo built with a non-positive capacity.
const DefaultCapacity = 256

// Memo is an LRU cache safe for concurrent use. It never expires entries on
// its own; owners call Invalidate or Purge when the backing data changes.
type Memo[K comparable, V any] struct {
	cache *lru.Cache[K, V]

	hits   atomic.Uint64
	misses atomic.Uint64
}

// New creates a memo holding at most capacity entries.
func New[K comparable, V any](capacity int) *Memo[K, V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	// lru.New only fails on a non-positive size
	cache, err := lru.New[K, V](capacity)
	if err != nil {
		panic(err)
	}
	return &Memo[K, V]{cache: cache}
}

// Get returns the cached value for key.
func (m *Memo[K, V]) Get(key K) (V, bool) {
	v, ok := m.cache.Get(key)
	if ok {
		m.hits.Add(1)
	} else {
		m.misses.Add(1)
	}
	return v, ok
}

// Put stores value under key, evicting the least recently used entry when full.
func (m *Memo[K, V]) Put(key K, value V) {
	m.cache.Add(key, value)
}

// GetOrLoad returns the cached value or calls load and caches its result.
// Failed loads are not cached.
func (m *Memo[K, V]) GetOrLoad(key K, load func() (V, error)) (V, error) {
	if v, ok := m.Get(key); ok {
		return v, nil
	}
	v, err := load()
	if err != nil {
		var zero V
		return zero, err
	}
	m.Put(key, v)
	return v, nil
}

// Invalidate removes key.
func (m *Memo[K, V]) Invalidate(key K) {
	m.cache.Remove(key)
}

// InvalidateFunc removes every key for which match returns true.
func (m *Memo[K, V]) InvalidateFunc(match func(K) bool) int {
	removed := 0
	for _, key := range m.cache.Keys() {
		if match(key) && m.cache.Remove(key) {
			removed++
		}
	}
	return removed
}

// Purge removes all entries.
func (m *Memo[K, V]) Purge() {
	m.cache.Purge()
}

// Len returns the number of cached entries.
func (m *Memo[K, V]) Len() int {
	return m.cache.Len()
}

// Stats returns hit and miss counts.
func (m *Memo[K, V]) Stats() (hits, misses uint64) {
	return m.hits.Load(), m.misses.Load()
}

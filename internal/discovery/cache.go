package discovery

import (
	"cmp"
	"maps"
	"slices"
	"sync"
	"time"
)

// Cache is a generic key-value cache of discovered host objects, such as
// network links.
//
// The table is only ever replaced as a whole, so readers never observe a
// partially updated state.
type Cache[K cmp.Ordered, V any] struct {
	mu        sync.RWMutex
	cache     map[K]V
	updatedAt time.Time
}

// NewEmptyCache returns an empty cache.
func NewEmptyCache[K cmp.Ordered, V any]() *Cache[K, V] {
	return &Cache[K, V]{
		cache: map[K]V{},
	}
}

// View returns a read-only snapshot of this cache.
func (m *Cache[K, V]) View() CacheView[K, V] {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return CacheView[K, V]{cache: m.cache, updatedAt: m.updatedAt}
}

// Swap atomically swaps the entire cache.
func (m *Cache[K, V]) Swap(cache map[K]V) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cache = cache
	m.updatedAt = time.Now()
}

// Update applies the given mutation to a copy of the cache and swaps the
// copy in.
func (m *Cache[K, V]) Update(fn func(cache map[K]V)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cache := maps.Clone(m.cache)
	if cache == nil {
		cache = map[K]V{}
	}
	fn(cache)

	m.cache = cache
	m.updatedAt = time.Now()
}

// CacheView is a read-only snapshot of the cache.
type CacheView[K cmp.Ordered, V any] struct {
	cache     map[K]V
	updatedAt time.Time
}

// Lookup returns the value for the specified key.
func (m CacheView[K, V]) Lookup(key K) (V, bool) {
	value, ok := m.cache[key]
	return value, ok
}

// Len returns the number of cached entries.
func (m CacheView[K, V]) Len() int {
	return len(m.cache)
}

// Keys returns cached keys in ascending order.
func (m CacheView[K, V]) Keys() []K {
	return slices.Sorted(maps.Keys(m.cache))
}

// UpdatedAt returns the time of the last swap, or zero time if the cache was
// never populated.
func (m CacheView[K, V]) UpdatedAt() time.Time {
	return m.updatedAt
}

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package cache

import (
	"cmp"
	"maps"
	"slices"
	"sync"
)

// Cache is a thread-safe map from keys to built artifacts, such as shader
// source to SPIR-V. Once it grows past its soft limit the least recently
// used entries are dropped and handed to the eviction callback.
//
// Cache must not be copied after creation (has mutex).
type Cache[K comparable, V any] struct {
	mu        sync.Mutex
	entries   map[K]*cacheEntry[V]
	softLimit int
	tick      int64 // Monotonic access counter
	onEvict   func(K, V)

	hits      uint64
	misses    uint64
	evictions uint64
}

type cacheEntry[V any] struct {
	value V
	atime int64
}

// Option configures a Cache.
type Option[K comparable, V any] func(*Cache[K, V])

// WithEvict sets a callback invoked for every entry removed by eviction,
// Delete or Clear. It runs with the cache lock held and must not call
// back into the cache.
func WithEvict[K comparable, V any](fn func(K, V)) Option[K, V] {
	return func(c *Cache[K, V]) { c.onEvict = fn }
}

// New creates a new cache with the given soft limit.
// A softLimit of 0 means unlimited.
func New[K comparable, V any](softLimit int, opts ...Option[K, V]) *Cache[K, V] {
	c := &Cache[K, V]{
		entries:   make(map[K]*cacheEntry[V]),
		softLimit: softLimit,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get retrieves a value from the cache.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	c.tick++
	entry.atime = c.tick
	return entry.value, true
}

// Set stores a value in the cache, replacing any previous value for key.
// A replaced value is passed to the eviction callback.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.entries[key]; ok && c.onEvict != nil {
		c.onEvict(key, old.value)
	}
	c.insert(key, value)
}

// Delete removes an entry from the cache.
// Returns true if the entry was found and removed.
func (c *Cache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return false
	}
	delete(c.entries, key)
	if c.onEvict != nil {
		c.onEvict(key, entry.value)
	}
	return true
}

// Clear removes all entries from the cache. Statistics are kept.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.onEvict != nil {
		for k, e := range c.entries {
			c.onEvict(k, e.value)
		}
	}
	c.entries = make(map[K]*cacheEntry[V])
	c.tick = 0
}

// Len returns the number of entries in the cache.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Capacity returns the soft limit of the cache.
func (c *Cache[K, V]) Capacity() int {
	return c.softLimit
}

// Stats returns cache statistics.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Len:       len(c.entries),
		Capacity:  c.softLimit,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
	if total := c.hits + c.misses; total > 0 {
		s.HitRate = float64(c.hits) / float64(total)
	}
	return s
}

// Caller must hold c.mu.
func (c *Cache[K, V]) insert(key K, value V) {
	c.tick++
	c.entries[key] = &cacheEntry[V]{value: value, atime: c.tick}
	if c.softLimit > 0 && len(c.entries) > c.softLimit {
		c.evictOldest()
	}
}

// evictOldest drops the least recently used entries until a quarter of
// the soft limit is free. Caller must hold c.mu.
func (c *Cache[K, V]) evictOldest() {
	keep := max(c.softLimit*3/4, 1)
	if len(c.entries) <= keep {
		return
	}
	keys := slices.SortedFunc(maps.Keys(c.entries), func(a, b K) int {
		return cmp.Compare(c.entries[a].atime, c.entries[b].atime)
	})
	for _, key := range keys[:len(keys)-keep] {
		if c.onEvict != nil {
			c.onEvict(key, c.entries[key].value)
		}
		delete(c.entries, key)
		c.evictions++
	}
}

// Stats contains cache statistics.
type Stats struct {
	// Len is the current number of entries.
	Len int
	// Capacity is the soft limit, 0 for unlimited.
	Capacity int
	Hits     uint64
	Misses   uint64
	// HitRate is Hits/(Hits+Misses), 0 before the first lookup.
	HitRate   float64
	Evictions uint64
}

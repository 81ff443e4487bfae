// Package cache implements C5, the Bounded Cache Layer: an approximate-LRU
// memoization wrapper, capacity-capped at config's cache_size, in front of
// each of the pipeline's pure functions (topic normalization, boolean
// canonicalization, whitelist membership). Built on
// github.com/hashicorp/golang-lru/v2 rather than a hand-rolled LRU, per the
// project's rule against reimplementing what a well-known library already
// does well; it replaces the original's @lru_cache method decorators with
// the explicit, component-owned cache spec §9 calls for.
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache memoizes a pure function K -> V behind an LRU of the given
// capacity. golang-lru holds at most capacity entries, evicting the least
// recently used one when a new key would exceed it.
type Cache[K comparable, V any] struct {
	lru *lru.Cache[K, V]
}

// New creates a Cache with the given capacity. Capacity <= 0 is treated as
// 1 (golang-lru rejects non-positive sizes).
func New[K comparable, V any](capacity int) *Cache[K, V] {
	if capacity <= 0 {
		capacity = 1
	}
	c, err := lru.New[K, V](capacity)
	if err != nil {
		// Only returned for capacity <= 0, already guarded above.
		panic(err)
	}
	return &Cache[K, V]{lru: c}
}

// GetOrCompute returns the cached value for key, computing and inserting it
// on a miss. Single-writer semantics are sufficient on the cooperative
// single-threaded ingress path (spec §5); golang-lru itself is safe for
// concurrent use should a caller parallelize.
func (c *Cache[K, V]) GetOrCompute(key K, compute func() V) V {
	if v, ok := c.lru.Get(key); ok {
		return v
	}
	v := compute()
	c.lru.Add(key, v)
	return v
}

// Clear evicts every entry, used when the whitelist set is replaced
// (spec §4.5: "whenever the whitelist set is replaced").
func (c *Cache[K, V]) Clear() {
	c.lru.Purge()
}

// Len reports the number of entries currently cached (test/diagnostic use).
func (c *Cache[K, V]) Len() int {
	return c.lru.Len()
}

// Package cache provides a bounded LRU cache keyed by 64-bit fingerprints.
// The result mapper uses it to reuse row-mapping plans across queries.
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// PlanCache is a fixed-capacity, concurrency-safe LRU.
type PlanCache[V any] struct {
	cache *lru.Cache[uint64, V]
}

// NewPlanCache creates a cache holding at most size entries.
func NewPlanCache[V any](size int) *PlanCache[V] {
	c, err := lru.New[uint64, V](size)
	if err != nil {
		// lru.New only fails on a non-positive size.
		panic(err)
	}
	return &PlanCache[V]{cache: c}
}

func (c *PlanCache[V]) Get(key uint64) (V, bool) {
	return c.cache.Get(key)
}

func (c *PlanCache[V]) Add(key uint64, value V) {
	c.cache.Add(key, value)
}

// Len returns the number of cached entries.
func (c *PlanCache[V]) Len() int {
	return c.cache.Len()
}

// Package cache holds named, size-bounded regions whose entries expire after
// a fixed time-to-live.
package cache

import (
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/windoze95/recipe-search-api/internal/metrics"
)

// Region is a process-wide LRU cache with per-entry expiry. It is safe for
// concurrent use.
type Region[V any] struct {
	name string
	lru  *expirable.LRU[string, V]
}

// NewRegion creates a region holding at most size entries, each living ttl.
func NewRegion[V any](name string, size int, ttl time.Duration) *Region[V] {
	if size <= 0 {
		size = 1
	}
	return &Region[V]{
		name: name,
		lru:  expirable.NewLRU[string, V](size, nil, ttl),
	}
}

// Name returns the region name.
func (r *Region[V]) Name() string {
	return r.name
}

// Get returns the cached value for key if present and not expired.
func (r *Region[V]) Get(key string) (V, bool) {
	v, ok := r.lru.Get(key)
	if ok {
		metrics.CacheHits.WithLabelValues(r.name).Inc()
	} else {
		metrics.CacheMisses.WithLabelValues(r.name).Inc()
	}
	return v, ok
}

// Add stores value under key, evicting the least recently used entry when full.
func (r *Region[V]) Add(key string, value V) {
	r.lru.Add(key, value)
}

// Remove drops key from the region.
func (r *Region[V]) Remove(key string) {
	r.lru.Remove(key)
}

// RemovePrefix drops every key starting with prefix and returns how many
// were removed.
func (r *Region[V]) RemovePrefix(prefix string) int {
	removed := 0
	for _, key := range r.lru.Keys() {
		if strings.HasPrefix(key, prefix) && r.lru.Remove(key) {
			removed++
		}
	}
	return removed
}

// Purge empties the region.
func (r *Region[V]) Purge() {
	r.lru.Purge()
}

// Len returns the number of entries, including expired ones not yet reaped.
func (r *Region[V]) Len() int {
	return r.lru.Len()
}

// SearchKey builds the search region key. Page and size are part of the key
// so different pages of one term never share an entry.
func SearchKey(term string, page, size int) string {
	return fmt.Sprintf("%s|%d|%d", term, page, size)
}

// SearchPrefix is the key prefix shared by every cached page of term.
func SearchPrefix(term string) string {
	return term + "|"
}

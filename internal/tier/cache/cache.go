// Package cache holds resolved tier configs in a bounded, concurrency-safe LRU.
package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"tiergate/internal/tier/metrics"
	"tiergate/internal/tier/models"
)

// TierCache maps (partner, service) keys to resolved tier configs.
// Capacity is fixed at construction; adding past capacity evicts the least
// recently used entry. There is no per-entry expiry.
//
// All operations are safe for concurrent use. Each call holds the underlying
// lock only for the in-memory operation itself, so callers must not expect
// a Get followed by a Put to be atomic.
type TierCache struct {
	entries  *lru.Cache[models.CacheKey, models.ConfigRecord]
	capacity int
	metrics  *metrics.Metrics
}

// Option configures the TierCache.
type Option func(*TierCache)

// WithMetrics sets the metrics sink for evictions, size and clears.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *TierCache) {
		c.metrics = m
	}
}

// New creates a cache holding at most capacity entries.
func New(capacity int, opts ...Option) (*TierCache, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("cache capacity must be positive, got %d", capacity)
	}
	entries, err := lru.New[models.CacheKey, models.ConfigRecord](capacity)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	c := &TierCache{
		entries:  entries,
		capacity: capacity,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get returns the cached record for key and marks it as recently used.
func (c *TierCache) Get(key models.CacheKey) (models.ConfigRecord, bool) {
	return c.entries.Get(key)
}

// Put stores record under key, evicting the least recently used entry when
// the cache is full.
func (c *TierCache) Put(key models.CacheKey, record models.ConfigRecord) {
	if evicted := c.entries.Add(key, record); evicted {
		c.metrics.RecordEviction()
	}
	c.metrics.SetCacheEntries(c.entries.Len())
}

// Clear removes every entry.
func (c *TierCache) Clear() {
	c.entries.Purge()
	c.metrics.IncrementClears()
	c.metrics.SetCacheEntries(0)
}

// Len reports the number of cached entries.
func (c *TierCache) Len() int {
	return c.entries.Len()
}

// Capacity reports the configured maximum number of entries.
func (c *TierCache) Capacity() int {
	return c.capacity
}

package fetcher

import (
	"sync"

	"linktagger/internal/observability/metrics"
)

// RedirectCache is a bounded in-memory map of original URL to last known
// resolved URL. It lets repeat resolutions skip the redirect chase.
//
// Eviction is strictly oldest-inserted-first: when an insert would exceed
// capacity, the oldest ~10% of entries (at least one) are dropped. Access
// recency never matters. Entries are advisory: a missing entry changes
// latency, never correctness. Entries live until evicted; there is no TTL.
//
// The cache is safe for concurrent use. The fetch pipeline deduplicates
// identical in-flight URLs, so concurrent readers exist even under the
// sequential batch model.
type RedirectCache struct {
	mu       sync.RWMutex
	capacity int
	entries  map[string]string
	order    []string // insertion order, oldest first
}

// NewRedirectCache creates a cache bounded to the given capacity.
// Capacities below 1 are treated as 1.
func NewRedirectCache(capacity int) *RedirectCache {
	if capacity < 1 {
		capacity = 1
	}
	return &RedirectCache{
		capacity: capacity,
		entries:  make(map[string]string, capacity),
	}
}

// Get returns the cached resolved URL for original, if any. Reads never
// mutate the cache.
func (c *RedirectCache) Get(original string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	resolved, ok := c.entries[original]
	return resolved, ok
}

// Put records original→resolved, evicting the oldest entries first when the
// cache is full. Re-inserting an existing key updates the value in place
// without consuming capacity.
func (c *RedirectCache) Put(original, resolved string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[original]; exists {
		c.entries[original] = resolved
		return
	}

	if len(c.entries) >= c.capacity {
		drop := c.capacity / 10
		if drop < 1 {
			drop = 1
		}
		for i := 0; i < drop && len(c.order) > 0; i++ {
			delete(c.entries, c.order[0])
			c.order = c.order[1:]
		}
	}

	c.entries[original] = resolved
	c.order = append(c.order, original)
	metrics.RedirectCacheSize.Set(float64(len(c.entries)))
}

// Len returns the current entry count.
func (c *RedirectCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

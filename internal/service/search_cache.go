package service

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

// ============================================================================
// resultCache - LRU cache with TTL for metered web searches
// ============================================================================

type cachedResult[V any] struct {
	value     V
	timestamp time.Time
}

type resultCache[V any] struct {
	mu      sync.Mutex
	entries map[string]*cachedResult[V]
	ttl     time.Duration
	maxSize int
	order   []string // LRU order (oldest first)
	now     func() time.Time
}

func newResultCache[V any](maxSize int, ttl time.Duration) *resultCache[V] {
	return &resultCache[V]{
		entries: make(map[string]*cachedResult[V]),
		ttl:     ttl,
		maxSize: maxSize,
		order:   make([]string, 0, max(maxSize, 0)),
		now:     time.Now,
	}
}

func (c *resultCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	cached, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if c.now().Sub(cached.timestamp) > c.ttl {
		delete(c.entries, key)
		c.removeFromOrder(key)
		return zero, false
	}

	c.removeFromOrder(key)
	c.order = append(c.order, key)
	return cached.value, true
}

func (c *resultCache[V]) Set(key string, value V) {
	if c.maxSize <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		for len(c.entries) >= c.maxSize && len(c.order) > 0 {
			delete(c.entries, c.order[0])
			c.order = c.order[1:]
		}
	}

	c.entries[key] = &cachedResult[V]{value: value, timestamp: c.now()}
	c.removeFromOrder(key)
	c.order = append(c.order, key)
}

func (c *resultCache[V]) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// searchCacheKey identifies one web search. The query is case folded and its
// whitespace collapsed so "Yerba  Mate" and "yerba mate" share an entry.
func searchCacheKey(provider, query string, n int) string {
	query = strings.Join(strings.Fields(strings.ToLower(query)), " ")
	return strings.ToLower(provider) + "|" + query + "|" + strconv.Itoa(n)
}

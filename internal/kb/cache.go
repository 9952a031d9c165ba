package kb

import (
	"sync"
)

// queryCache is a bounded answer cache keyed by (question, context). When
// full, the oldest entry is evicted. Concurrent lookups for the same key
// are not deduplicated; the occasional double query is acceptable because
// writes are last-write-wins.
type queryCache struct {
	mu      sync.Mutex
	entries map[string]string
	order   []string
	maxSize int
}

func newQueryCache(maxSize int) *queryCache {
	if maxSize <= 0 {
		maxSize = 128
	}
	return &queryCache{
		entries: make(map[string]string),
		maxSize: maxSize,
	}
}

func cacheKey(question, context string) string {
	return question + "\x00" + context
}

func (c *queryCache) get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	answer, ok := c.entries[key]
	return answer, ok
}

func (c *queryCache) put(key, answer string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		if len(c.order) >= c.maxSize {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.order = append(c.order, key)
	}
	c.entries[key] = answer
}

func (c *queryCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

package embed

import "sync"

// queryCache is a bounded cache of query embeddings keyed by query text.
// When the entry count reaches the cap, the oldest half of the entries is
// evicted in one batch. Document embeddings are never cached; documents
// are embedded once at ingestion while queries repeat.
type queryCache struct {
	mu      sync.Mutex
	max     int
	entries map[string][]float32
	order   []string
}

func newQueryCache(max int) *queryCache {
	if max <= 0 {
		max = DefaultCacheSize
	}
	return &queryCache{
		max:     max,
		entries: make(map[string][]float32),
	}
}

func (c *queryCache) get(text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	vec, ok := c.entries[text]
	return vec, ok
}

func (c *queryCache) put(text string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[text]; exists {
		c.entries[text] = vec
		return
	}
	if len(c.entries) >= c.max {
		half := len(c.order) / 2
		for _, key := range c.order[:half] {
			delete(c.entries, key)
		}
		c.order = append(c.order[:0], c.order[half:]...)
	}
	c.entries[text] = vec
	c.order = append(c.order, text)
}

func (c *queryCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *queryCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]float32)
	c.order = c.order[:0]
}

package engine

import (
	"container/list"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/flowsmith/socratic/internal/domain"
	"github.com/flowsmith/socratic/internal/enrich"
	"github.com/flowsmith/socratic/internal/question"
)

// questionCache is a bounded LRU over enriched questions. A hit returns the
// identical pointer that was stored, so callers can detect memoization by
// object identity.
type questionCache struct {
	mu      sync.Mutex
	max     int
	entries map[uint64]*list.Element
	order   *list.List
}

type cacheEntry struct {
	key   uint64
	value *enrich.EnrichedQuestion
}

func newQuestionCache(max int) *questionCache {
	if max <= 0 {
		max = 256
	}
	return &questionCache{
		max:     max,
		entries: make(map[uint64]*list.Element),
		order:   list.New(),
	}
}

// cacheKey hashes the full generation input. Any change to domain name,
// confidence, level, or history produces a different key.
func cacheKey(dc domain.Context, history []question.Turn, level int) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%.4f|%d|", dc.Name, dc.Confidence, level)
	// History serialization is deterministic for a fixed turn sequence.
	if b, err := json.Marshal(history); err == nil {
		h.Write(b)
	}
	return h.Sum64()
}

func (c *questionCache) get(key uint64) (*enrich.EnrichedQuestion, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).value, true
}

func (c *questionCache) put(key uint64, q *enrich.EnrichedQuestion) {
	if q == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*cacheEntry).value = q
		c.order.MoveToFront(el)
		return
	}

	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, value: q})

	if c.order.Len() > c.max {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
}

func (c *questionCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

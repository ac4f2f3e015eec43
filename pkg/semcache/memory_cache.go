package semcache

import (
	"context"
	"sync"
	"time"

	"github.com/redis-developer/banking-agent-semantic-routing-demo/pkg/routing"
)

// MemoryCache is the in-process driver: a bounded slice scanned linearly.
// The catalog is six intents, entry counts stay small.
type MemoryCache struct {
	maxDistance float64
	maxSize     int

	mu      sync.RWMutex
	entries []Entry
}

var _ Cache = &MemoryCache{}

func NewMemoryCache(maxDistance float64, maxSize int) *MemoryCache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &MemoryCache{
		maxDistance: maxDistance,
		maxSize:     maxSize,
	}
}

func (c *MemoryCache) Check(_ context.Context, vector []float32) (*Entry, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var best *Entry
	bestDistance := c.maxDistance
	for i := range c.entries {
		distance := routing.CosineDistance(vector, c.entries[i].Vector)
		if distance <= bestDistance {
			best = &c.entries[i]
			bestDistance = distance
		}
	}

	if best == nil {
		return nil, false, nil
	}
	hit := *best
	return &hit, true, nil
}

func (c *MemoryCache) Store(_ context.Context, entry Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = append(c.entries, entry)
	if len(c.entries) > c.maxSize {
		// drop oldest
		c.entries = c.entries[len(c.entries)-c.maxSize:]
	}
	return nil
}

// Len reports the current entry count.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

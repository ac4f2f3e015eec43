package semcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis-developer/banking-agent-semantic-routing-demo/pkg/routing"

	"github.com/redis/go-redis/v9"
)

const defaultRedisKey = "semcache:entries"

// RedisCache keeps entries as JSON in a bounded Redis list and ranks them
// with client-side cosine distance. Survives process restarts and is shared
// across instances.
type RedisCache struct {
	client      *redis.Client
	key         string
	maxDistance float64
	maxSize     int64
}

var _ Cache = &RedisCache{}

func NewRedisCache(client *redis.Client, maxDistance float64, maxSize int) *RedisCache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &RedisCache{
		client:      client,
		key:         defaultRedisKey,
		maxDistance: maxDistance,
		maxSize:     int64(maxSize),
	}
}

func (c *RedisCache) Check(ctx context.Context, vector []float32) (*Entry, bool, error) {
	raw, err := c.client.LRange(ctx, c.key, 0, -1).Result()
	if err != nil {
		return nil, false, fmt.Errorf("semcache lrange: %w", err)
	}

	var best *Entry
	bestDistance := c.maxDistance
	for _, item := range raw {
		var entry Entry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			// skip corrupt entries instead of failing the turn
			continue
		}
		distance := routing.CosineDistance(vector, entry.Vector)
		if distance <= bestDistance {
			e := entry
			best = &e
			bestDistance = distance
		}
	}

	if best == nil {
		return nil, false, nil
	}
	return best, true, nil
}

func (c *RedisCache) Store(ctx context.Context, entry Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("semcache marshal: %w", err)
	}

	pipe := c.client.TxPipeline()
	pipe.LPush(ctx, c.key, payload)
	pipe.LTrim(ctx, c.key, 0, c.maxSize-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("semcache store: %w", err)
	}
	return nil
}

package semcache

import (
	"context"
	"time"
)

// Entry is one cached exchange: the query vector it was stored under and the
// response payload to replay on a hit. Entries are append-only.
type Entry struct {
	Vector    []float32      `json:"vector"`
	Reply     string         `json:"reply"`
	Bullets   []string       `json:"bullets,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Cache answers repeated questions without re-running the pipeline. Check
// returns the closest entry within the distance threshold, or a miss.
type Cache interface {
	Check(ctx context.Context, vector []float32) (*Entry, bool, error)
	Store(ctx context.Context, entry Entry) error
}

// NoopCache is the disabled-toggle driver: every Check misses, Store drops.
type NoopCache struct{}

var _ Cache = NoopCache{}

func NewNoopCache() NoopCache {
	return NoopCache{}
}

func (NoopCache) Check(context.Context, []float32) (*Entry, bool, error) {
	return nil, false, nil
}

func (NoopCache) Store(context.Context, Entry) error {
	return nil
}

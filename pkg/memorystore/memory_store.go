package memorystore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/redis-developer/banking-agent-semantic-routing-demo/pkg/embedding"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/pkg/routing"

	"github.com/google/uuid"
)

// MemoryStore is the in-process driver: a per-session slice guarded by a
// RWMutex, with cosine math done in Go. Tests and the simulation binary run
// on it; production runs on the gorm driver.
type MemoryStore struct {
	provider embedding.EmbeddingProvider

	mu       sync.RWMutex
	sessions map[uuid.UUID][]Message
}

var _ Store = &MemoryStore{}

func NewMemoryStore(provider embedding.EmbeddingProvider) *MemoryStore {
	return &MemoryStore{
		provider: provider,
		sessions: make(map[uuid.UUID][]Message),
	}
}

func (s *MemoryStore) Append(ctx context.Context, sessionId uuid.UUID, _ string, messages ...Message) error {
	prepared := make([]Message, 0, len(messages))
	for _, msg := range messages {
		if msg.Id == uuid.Nil {
			msg.Id = uuid.New()
		}
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = time.Now()
		}
		if len(msg.Embedding) == 0 && s.provider != nil {
			vector, err := s.provider.Generate(ctx, msg.Text)
			if err != nil {
				return err
			}
			msg.Embedding = vector
		}
		prepared = append(prepared, msg)
	}

	// Nothing is stored unless every message in the batch prepared cleanly
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionId] = append(s.sessions[sessionId], prepared...)
	return nil
}

func (s *MemoryStore) Recent(_ context.Context, sessionId uuid.UUID, k int) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.sessions[sessionId]
	if k <= 0 || k > len(history) {
		k = len(history)
	}

	recent := make([]Message, k)
	copy(recent, history[len(history)-k:])
	return recent, nil
}

func (s *MemoryStore) Relevant(_ context.Context, sessionId uuid.UUID, query []float32, k int, maxDistance float64, exclude []uuid.UUID) ([]ScoredMessage, error) {
	if k <= 0 {
		return nil, nil
	}

	excluded := make(map[uuid.UUID]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var scored []ScoredMessage
	for _, msg := range s.sessions[sessionId] {
		if excluded[msg.Id] || len(msg.Embedding) == 0 {
			continue
		}
		distance := routing.CosineDistance(query, msg.Embedding)
		if distance > maxDistance {
			continue
		}
		scored = append(scored, ScoredMessage{Message: msg, Distance: distance})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Distance < scored[j].Distance
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

func (s *MemoryStore) Clear(_ context.Context, sessionId uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := int64(len(s.sessions[sessionId]))
	delete(s.sessions, sessionId)
	return removed, nil
}

package memorystore

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Message is one conversation turn half as the memory store sees it.
// Routing metadata rides along on user messages.
type Message struct {
	Id         uuid.UUID
	Role       string
	Text       string
	Embedding  []float32
	Intent     string
	Confidence string
	Score      float64
	CreatedAt  time.Time
}

// ScoredMessage pairs a message with its cosine distance to a query vector.
type ScoredMessage struct {
	Message  Message
	Distance float64
}

// Store is session-scoped conversation memory.
//
// Recent returns the last k messages in chronological order. Relevant returns
// up to k messages by ascending cosine distance, never farther than
// maxDistance, and never anything listed in exclude: callers pass the recent
// window's ids so the two result sets stay disjoint. Clear wipes the session
// and is idempotent; it reports how many messages were removed.
type Store interface {
	Append(ctx context.Context, sessionId uuid.UUID, userId string, messages ...Message) error
	Recent(ctx context.Context, sessionId uuid.UUID, k int) ([]Message, error)
	Relevant(ctx context.Context, sessionId uuid.UUID, query []float32, k int, maxDistance float64, exclude []uuid.UUID) ([]ScoredMessage, error)
	Clear(ctx context.Context, sessionId uuid.UUID) (int64, error)
}

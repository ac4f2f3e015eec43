package entity

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is one immutable conversation turn half. The embedding is
// attached at append time and never rewritten.
type ChatMessage struct {
	Id            uuid.UUID
	ChatSessionId uuid.UUID
	Role          string
	Text          string
	Embedding     []float32
	Metadata      MessageMetadata
	CreatedAt     time.Time
}

// MessageMetadata carries optional routing context for a user message.
type MessageMetadata struct {
	Intent     string  `json:"intent,omitempty"`
	Confidence string  `json:"confidence,omitempty"`
	Score      float64 `json:"score,omitempty"`
}

// ScoredChatMessage pairs a message with its cosine distance to a query
// vector, as returned by relevance search.
type ScoredChatMessage struct {
	Message  *ChatMessage
	Distance float64
}

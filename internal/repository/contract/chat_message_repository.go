package contract

import (
	"context"

	"github.com/redis-developer/banking-agent-semantic-routing-demo/internal/entity"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/internal/repository/specification"

	"github.com/google/uuid"
)

type ChatMessageRepository interface {
	Create(ctx context.Context, message *entity.ChatMessage) error
	CreateBulk(ctx context.Context, messages []*entity.ChatMessage) error
	DeleteByChatSessionId(ctx context.Context, sessionId uuid.UUID) (int64, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// SearchSimilar returns session messages ordered by ascending cosine
	// distance to the query embedding, skipping excludeIds and anything
	// farther than maxDistance.
	SearchSimilar(ctx context.Context, sessionId uuid.UUID, embedding []float32, limit int, maxDistance float64, excludeIds []uuid.UUID) ([]*entity.ScoredChatMessage, error)
}

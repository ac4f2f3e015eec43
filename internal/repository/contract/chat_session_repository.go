package contract

import (
	"context"

	"github.com/redis-developer/banking-agent-semantic-routing-demo/internal/entity"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/internal/repository/specification"

	"github.com/google/uuid"
)

type ChatSessionRepository interface {
	Create(ctx context.Context, session *entity.ChatSession) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error)
}

package memorystore

import (
	"context"
	"time"

	"github.com/redis-developer/banking-agent-semantic-routing-demo/internal/entity"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/internal/repository/contract"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/internal/repository/specification"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/pkg/embedding"

	"github.com/google/uuid"
)

// GormStore persists conversation memory through the chat repositories:
// Postgres rows with pgvector embeddings, relevance ranked in SQL.
type GormStore struct {
	sessions contract.ChatSessionRepository
	messages contract.ChatMessageRepository
	provider embedding.EmbeddingProvider
}

var _ Store = &GormStore{}

func NewGormStore(
	sessions contract.ChatSessionRepository,
	messages contract.ChatMessageRepository,
	provider embedding.EmbeddingProvider,
) *GormStore {
	return &GormStore{
		sessions: sessions,
		messages: messages,
		provider: provider,
	}
}

func (s *GormStore) Append(ctx context.Context, sessionId uuid.UUID, userId string, messages ...Message) error {
	if len(messages) == 0 {
		return nil
	}

	if err := s.ensureSession(ctx, sessionId, userId); err != nil {
		return err
	}

	entities := make([]*entity.ChatMessage, 0, len(messages))
	for _, msg := range messages {
		if msg.Id == uuid.Nil {
			msg.Id = uuid.New()
		}
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = time.Now()
		}
		if len(msg.Embedding) == 0 {
			vector, err := s.provider.Generate(ctx, msg.Text)
			if err != nil {
				return err
			}
			msg.Embedding = vector
		}
		entities = append(entities, &entity.ChatMessage{
			Id:            msg.Id,
			ChatSessionId: sessionId,
			Role:          msg.Role,
			Text:          msg.Text,
			Embedding:     msg.Embedding,
			Metadata: entity.MessageMetadata{
				Intent:     msg.Intent,
				Confidence: msg.Confidence,
				Score:      msg.Score,
			},
			CreatedAt: msg.CreatedAt,
		})
	}

	// single transaction, a turn commits all-or-nothing
	return s.messages.CreateBulk(ctx, entities)
}

func (s *GormStore) ensureSession(ctx context.Context, sessionId uuid.UUID, userId string) error {
	existing, err := s.sessions.FindOne(ctx, specification.ByID{ID: sessionId})
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	return s.sessions.Create(ctx, &entity.ChatSession{
		Id:        sessionId,
		UserId:    userId,
		CreatedAt: time.Now(),
	})
}

func (s *GormStore) Recent(ctx context.Context, sessionId uuid.UUID, k int) ([]Message, error) {
	if k <= 0 {
		return nil, nil
	}

	entities, err := s.messages.FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Limit{N: k},
	)
	if err != nil {
		return nil, err
	}

	// reverse into chronological order
	messages := make([]Message, len(entities))
	for i, e := range entities {
		messages[len(entities)-1-i] = fromEntity(e)
	}
	return messages, nil
}

func (s *GormStore) Relevant(ctx context.Context, sessionId uuid.UUID, query []float32, k int, maxDistance float64, exclude []uuid.UUID) ([]ScoredMessage, error) {
	if k <= 0 {
		return nil, nil
	}

	scored, err := s.messages.SearchSimilar(ctx, sessionId, query, k, maxDistance, exclude)
	if err != nil {
		return nil, err
	}

	messages := make([]ScoredMessage, len(scored))
	for i, sc := range scored {
		messages[i] = ScoredMessage{
			Message:  fromEntity(sc.Message),
			Distance: sc.Distance,
		}
	}
	return messages, nil
}

func (s *GormStore) Clear(ctx context.Context, sessionId uuid.UUID) (int64, error) {
	return s.messages.DeleteByChatSessionId(ctx, sessionId)
}

func fromEntity(e *entity.ChatMessage) Message {
	return Message{
		Id:         e.Id,
		Role:       e.Role,
		Text:       e.Text,
		Embedding:  e.Embedding,
		Intent:     e.Metadata.Intent,
		Confidence: e.Metadata.Confidence,
		Score:      e.Metadata.Score,
		CreatedAt:  e.CreatedAt,
	}
}

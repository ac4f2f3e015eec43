package implementation

import (
	"context"

	"github.com/redis-developer/banking-agent-semantic-routing-demo/internal/entity"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/internal/mapper"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/internal/model"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/internal/repository/contract"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type ChatMessageRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewChatMessageRepository(db *gorm.DB) contract.ChatMessageRepository {
	return &ChatMessageRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

func (r *ChatMessageRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ChatMessageRepositoryImpl) Create(ctx context.Context, message *entity.ChatMessage) error {
	m := r.mapper.ChatMessageToModel(message)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*message = *r.mapper.ChatMessageToEntity(m)
	return nil
}

func (r *ChatMessageRepositoryImpl) CreateBulk(ctx context.Context, messages []*entity.ChatMessage) error {
	if len(messages) == 0 {
		return nil
	}
	models := make([]*model.ChatMessage, len(messages))
	for i, msg := range messages {
		models[i] = r.mapper.ChatMessageToModel(msg)
	}

	// Bulk insert in one transaction so a turn commits all-or-nothing
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(models).Error
	})
	if err != nil {
		return err
	}

	for i, m := range models {
		*messages[i] = *r.mapper.ChatMessageToEntity(m)
	}
	return nil
}

func (r *ChatMessageRepositoryImpl) DeleteByChatSessionId(ctx context.Context, sessionId uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Where("chat_session_id = ?", sessionId).Delete(&model.ChatMessage{})
	return result.RowsAffected, result.Error
}

func (r *ChatMessageRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error) {
	var models []*model.ChatMessage
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.ChatMessage, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ChatMessageToEntity(m)
	}
	return entities, nil
}

func (r *ChatMessageRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.ChatMessage{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ChatMessageRepositoryImpl) SearchSimilar(ctx context.Context, sessionId uuid.UUID, embedding []float32, limit int, maxDistance float64, excludeIds []uuid.UUID) ([]*entity.ScoredChatMessage, error) {
	if limit <= 0 {
		limit = 5
	}

	type result struct {
		model.ChatMessage
		Distance float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	// Cosine distance via pgvector: embedding <=> query_vector
	query := r.db.WithContext(ctx).
		Table("chat_messages").
		Select("chat_messages.*, embedding <=> ? as distance", queryVector).
		Where("chat_session_id = ?", sessionId).
		Where("embedding <=> ? <= ?", queryVector, maxDistance)

	if len(excludeIds) > 0 {
		query = query.Where("id NOT IN ?", excludeIds)
	}

	err := query.
		Order("distance ASC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*entity.ScoredChatMessage, len(results))
	for i, res := range results {
		scored[i] = &entity.ScoredChatMessage{
			Message:  r.mapper.ChatMessageToEntity(&res.ChatMessage),
			Distance: res.Distance,
		}
	}
	return scored, nil
}

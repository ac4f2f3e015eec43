package mapper

import (
	"encoding/json"
	"time"

	"github.com/redis-developer/banking-agent-semantic-routing-demo/internal/entity"
	"github.com/redis-developer/banking-agent-semantic-routing-demo/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

// Session Mappers

func (m *ChatMapper) ChatSessionToEntity(s *model.ChatSession) *entity.ChatSession {
	if s == nil {
		return nil
	}

	var updatedAt *time.Time
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		updatedAt = &t
	}

	return &entity.ChatSession{
		Id:        s.Id,
		UserId:    s.UserId,
		CreatedAt: s.CreatedAt,
		UpdatedAt: updatedAt,
	}
}

func (m *ChatMapper) ChatSessionToModel(s *entity.ChatSession) *model.ChatSession {
	if s == nil {
		return nil
	}

	var updatedAt time.Time
	if s.UpdatedAt != nil {
		updatedAt = *s.UpdatedAt
	}

	return &model.ChatSession{
		Id:        s.Id,
		UserId:    s.UserId,
		CreatedAt: s.CreatedAt,
		UpdatedAt: updatedAt,
	}
}

// Message Mappers

func (m *ChatMapper) ChatMessageToEntity(msg *model.ChatMessage) *entity.ChatMessage {
	if msg == nil {
		return nil
	}

	var meta entity.MessageMetadata
	if len(msg.Metadata) > 0 {
		// malformed rows keep empty metadata rather than failing the read
		_ = json.Unmarshal(msg.Metadata, &meta)
	}

	return &entity.ChatMessage{
		Id:            msg.Id,
		ChatSessionId: msg.ChatSessionId,
		Role:          msg.Role,
		Text:          msg.Text,
		Embedding:     msg.Embedding.Slice(),
		Metadata:      meta,
		CreatedAt:     msg.CreatedAt,
	}
}

func (m *ChatMapper) ChatMessageToModel(msg *entity.ChatMessage) *model.ChatMessage {
	if msg == nil {
		return nil
	}

	var meta datatypes.JSON
	if msg.Metadata != (entity.MessageMetadata{}) {
		raw, err := json.Marshal(msg.Metadata)
		if err == nil {
			meta = raw
		}
	}

	return &model.ChatMessage{
		Id:            msg.Id,
		ChatSessionId: msg.ChatSessionId,
		Role:          msg.Role,
		Text:          msg.Text,
		Embedding:     pgvector.NewVector(msg.Embedding),
		Metadata:      meta,
		CreatedAt:     msg.CreatedAt,
	}
}

func (m *ChatMapper) ChatMessagesToEntities(msgs []model.ChatMessage) []*entity.ChatMessage {
	out := make([]*entity.ChatMessage, 0, len(msgs))
	for i := range msgs {
		out = append(out, m.ChatMessageToEntity(&msgs[i]))
	}
	return out
}

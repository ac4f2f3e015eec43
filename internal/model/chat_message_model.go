package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type ChatMessage struct {
	Id            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ChatSessionId uuid.UUID       `gorm:"type:uuid;not null;index"`
	Role          string          `gorm:"type:varchar(50);not null"`
	Text          string          `gorm:"type:text;not null"`
	Embedding     pgvector.Vector `gorm:"type:vector(768)"` // text-embedding dimension, nomic-embed-text and text-embedding-004 both emit 768
	Metadata      datatypes.JSON  `gorm:"type:jsonb"`
	CreatedAt     time.Time       `gorm:"autoCreateTime"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}

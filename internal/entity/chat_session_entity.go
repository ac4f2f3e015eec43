package entity

import (
	"time"

	"github.com/google/uuid"
)

type ChatSession struct {
	Id        uuid.UUID
	UserId    string
	CreatedAt time.Time
	UpdatedAt *time.Time
}

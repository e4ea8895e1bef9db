package model

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage rows are never updated after insert, so there is no UpdatedAt/DeletedAt.
type ChatMessage struct {
	Id            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ChatSessionId uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_chat_messages_session_position,priority:1"`
	Position      int64     `gorm:"not null;uniqueIndex:idx_chat_messages_session_position,priority:2"`
	Role          string    `gorm:"type:varchar(20);not null"`
	Chat          string    `gorm:"type:text;not null"`
	InputAt       time.Time `gorm:"not null"`
	OutputAt      time.Time `gorm:"not null"`
	DurationMs    int64     `gorm:"not null;default:0"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`

	Citations []ChatCitation `gorm:"foreignKey:ChatMessageId;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}

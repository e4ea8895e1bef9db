package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByChatSessionID struct {
	ChatSessionID uuid.UUID
}

func (s ByChatSessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("chat_session_id = ?", s.ChatSessionID)
}

type ByChatMessageID struct {
	ChatMessageID uuid.UUID
}

func (s ByChatMessageID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("chat_message_id = ?", s.ChatMessageID)
}

// ByClientID scopes sessions and prompts to one client.
type ByClientID struct {
	ClientID string
}

func (s ByClientID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("client_id = ?", s.ClientID)
}

// WithCitations preloads citations in rank order.
type WithCitations struct{}

func (s WithCitations) Apply(db *gorm.DB) *gorm.DB {
	return db.Preload("Citations", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("rank ASC")
	})
}

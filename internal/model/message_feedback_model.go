package model

import (
	"time"

	"github.com/google/uuid"
)

type MessageFeedback struct {
	Id            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ChatMessageId uuid.UUID `gorm:"type:uuid;not null;index"`
	Rating        int       `gorm:"not null"`
	Label         string    `gorm:"type:varchar(50)"`
	Comment       *string   `gorm:"type:text"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`

	ChatMessage ChatMessage `gorm:"foreignKey:ChatMessageId;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (MessageFeedback) TableName() string {
	return "message_feedbacks"
}

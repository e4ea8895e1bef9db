package entity

import (
	"time"

	"github.com/google/uuid"
)

type MessageFeedback struct {
	Id            uuid.UUID
	ChatMessageId uuid.UUID
	Rating        int
	Label         string
	Comment       *string
	CreatedAt     time.Time
}

package entity

import (
	"time"

	"github.com/google/uuid"
)

// ChatTurnAbandonment records that a turn stopped before PERSISTED.
// It holds no answer text.
type ChatTurnAbandonment struct {
	Id            uuid.UUID
	ChatSessionId uuid.UUID
	ClientId      string
	State         string
	Reason        string
	ErrorKind     string
	CreatedAt     time.Time
}

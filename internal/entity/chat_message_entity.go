package entity

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is immutable once appended. Position is assigned by the session store.
type ChatMessage struct {
	Id            uuid.UUID
	ChatSessionId uuid.UUID
	Position      int64
	Role          string
	Chat          string // always redacted
	Citations     []*ChatCitation
	InputAt       time.Time
	OutputAt      time.Time
	DurationMs    int64
	CreatedAt     time.Time
}

func (m *ChatMessage) CitedChunkIds() []string {
	ids := make([]string, len(m.Citations))
	for i, c := range m.Citations {
		ids[i] = c.ChunkId
	}
	return ids
}

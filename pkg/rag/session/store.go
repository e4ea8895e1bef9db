package session

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"multimodal-rag-be/internal/constant"
	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/pkg/apperror"

	"github.com/google/uuid"
)

// Store is the append-only conversation log. Appends to one session are serialized;
// different sessions never wait on each other.
type Store interface {
	Create(ctx context.Context, clientId, title string) (*entity.ChatSession, error)
	Get(ctx context.Context, sessionId uuid.UUID) (*entity.ChatSession, error)
	// Append assigns positions and timestamps and writes msgs as one step.
	Append(ctx context.Context, sessionId uuid.UUID, msgs ...*entity.ChatMessage) ([]*entity.ChatMessage, error)
	// History returns the last maxTurns turns oldest first; maxTurns <= 0 returns all.
	History(ctx context.Context, sessionId uuid.UUID, maxTurns int) ([]*entity.ChatMessage, error)
	Message(ctx context.Context, messageId uuid.UUID) (*entity.ChatMessage, error)
	AddFeedback(ctx context.Context, feedback *entity.MessageFeedback) (*entity.MessageFeedback, error)
	// Feedback lists what was recorded for a message, oldest first.
	Feedback(ctx context.Context, messageId uuid.UUID) ([]*entity.MessageFeedback, error)
	Delete(ctx context.Context, sessionId uuid.UUID) error
	RecordAbandonment(ctx context.Context, abandonment *entity.ChatTurnAbandonment) error
}

// DeriveTitle names a session after the first line of its first question.
func DeriveTitle(question string) string {
	title := strings.TrimSpace(question)
	if i := strings.IndexAny(title, "\r\n"); i >= 0 {
		title = strings.TrimSpace(title[:i])
	}
	if title == "" {
		return constant.ChatSessionDefaultTitle
	}
	if utf8.RuneCountInString(title) > constant.ChatSessionTitleMaxLen {
		runes := []rune(title)
		title = strings.TrimSpace(string(runes[:constant.ChatSessionTitleMaxLen-3])) + "..."
	}
	return title
}

func validateAppend(op string, msgs []*entity.ChatMessage) error {
	if len(msgs) == 0 {
		return apperror.Validation(op, "nothing to append")
	}
	for _, m := range msgs {
		if m == nil {
			return apperror.Validation(op, "nil message")
		}
		if m.Role != constant.ChatMessageRoleUser && m.Role != constant.ChatMessageRoleAssistant {
			return apperror.Validation(op, "unsupported role %q", m.Role)
		}
	}
	return nil
}

// stamp fills ids, positions and timestamps on messages about to follow lastPosition.
func stamp(sessionId uuid.UUID, msgs []*entity.ChatMessage, lastPosition int64, now time.Time) {
	for i, m := range msgs {
		if m.Id == uuid.Nil {
			m.Id = uuid.New()
		}
		m.ChatSessionId = sessionId
		m.Position = lastPosition + int64(i) + 1
		if m.InputAt.IsZero() {
			m.InputAt = now
		}
		if m.OutputAt.IsZero() {
			m.OutputAt = now
		}
		m.CreatedAt = now
		for rank, c := range m.Citations {
			if c.Id == uuid.Nil {
				c.Id = uuid.New()
			}
			c.ChatMessageId = m.Id
			c.Rank = rank
			c.CreatedAt = now
		}
	}
}

// lastTurns keeps the tail of an ordered log that covers maxTurns turns. A turn opens
// with a user message, so a leading assistant message left by the cut is dropped.
func lastTurns(msgs []*entity.ChatMessage, maxTurns int) []*entity.ChatMessage {
	if maxTurns <= 0 {
		return msgs
	}
	turns := 0
	start := len(msgs)
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == constant.ChatMessageRoleUser {
			turns++
			start = i
			if turns == maxTurns {
				break
			}
		}
	}
	return msgs[start:]
}

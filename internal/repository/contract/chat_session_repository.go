package contract

import (
	"context"
	"time"

	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ChatSessionRepository interface {
	Create(ctx context.Context, session *entity.ChatSession) error
	// Touch bumps updated_at after an append.
	Touch(ctx context.Context, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	// LockForUpdate takes a row lock; only meaningful inside a transaction.
	LockForUpdate(ctx context.Context, id uuid.UUID) (*entity.ChatSession, error)
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error)
}

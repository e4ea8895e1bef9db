package contract

import (
	"context"

	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ChatMessageRepository interface {
	// Create inserts the message and its citations.
	Create(ctx context.Context, message *entity.ChatMessage) error
	DeleteByChatSessionId(ctx context.Context, sessionId uuid.UUID) error
	MaxPosition(ctx context.Context, sessionId uuid.UUID) (int64, error)
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatMessage, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error)
}

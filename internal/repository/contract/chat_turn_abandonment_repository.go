package contract

import (
	"context"

	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/internal/repository/specification"
)

type ChatTurnAbandonmentRepository interface {
	Create(ctx context.Context, abandonment *entity.ChatTurnAbandonment) error
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}

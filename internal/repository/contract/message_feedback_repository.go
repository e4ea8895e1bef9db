package contract

import (
	"context"

	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/internal/repository/specification"
)

type MessageFeedbackRepository interface {
	Create(ctx context.Context, feedback *entity.MessageFeedback) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.MessageFeedback, error)
}

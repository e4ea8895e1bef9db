package contract

import (
	"context"

	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/internal/repository/specification"
)

type ClientPromptRepository interface {
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ClientPrompt, error)
	// Upsert inserts or replaces the prompt for prompt.ClientId and bumps Version.
	Upsert(ctx context.Context, prompt *entity.ClientPrompt) error
}

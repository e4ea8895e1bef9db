package unitofwork

import (
	"context"

	"multimodal-rag-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	ChatSessionRepository() contract.ChatSessionRepository
	ChatMessageRepository() contract.ChatMessageRepository
	ChatCitationRepository() contract.ChatCitationRepository
	MessageFeedbackRepository() contract.MessageFeedbackRepository
	ClientPromptRepository() contract.ClientPromptRepository
	ChunkEmbeddingRepository() contract.ChunkEmbeddingRepository
	ChatTurnAbandonmentRepository() contract.ChatTurnAbandonmentRepository
}

package implementation

import (
	"context"

	"multimodal-rag-be/internal/model"
	"multimodal-rag-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Citations are written through ChatMessageRepository.Create and read back
// with the WithCitations preload, so this repository only cleans up.
type ChatCitationRepositoryImpl struct {
	db *gorm.DB
}

func NewChatCitationRepository(db *gorm.DB) contract.ChatCitationRepository {
	return &ChatCitationRepositoryImpl{db: db}
}

func (r *ChatCitationRepositoryImpl) DeleteByChatSessionId(ctx context.Context, sessionId uuid.UUID) error {
	subQuery := r.db.Table("chat_messages").Select("id").Where("chat_session_id = ?", sessionId)
	return r.db.WithContext(ctx).Where("chat_message_id IN (?)", subQuery).Delete(&model.ChatCitation{}).Error
}

package implementation

import (
	"context"

	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/internal/mapper"
	"multimodal-rag-be/internal/model"
	"multimodal-rag-be/internal/repository/contract"
	"multimodal-rag-be/internal/repository/specification"

	"gorm.io/gorm"
)

type MessageFeedbackRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewMessageFeedbackRepository(db *gorm.DB) contract.MessageFeedbackRepository {
	return &MessageFeedbackRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

func (r *MessageFeedbackRepositoryImpl) Create(ctx context.Context, feedback *entity.MessageFeedback) error {
	m := r.mapper.FeedbackToModel(feedback)
	if err := r.db.WithContext(ctx).Omit("ChatMessage").Create(m).Error; err != nil {
		return err
	}
	*feedback = *r.mapper.FeedbackToEntity(m)
	return nil
}

func (r *MessageFeedbackRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.MessageFeedback, error) {
	var models []*model.MessageFeedback
	query := r.db.WithContext(ctx)
	for _, spec := range specs {
		query = spec.Apply(query)
	}
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.MessageFeedback, len(models))
	for i, m := range models {
		entities[i] = r.mapper.FeedbackToEntity(m)
	}
	return entities, nil
}

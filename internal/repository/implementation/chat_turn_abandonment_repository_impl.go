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

type ChatTurnAbandonmentRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewChatTurnAbandonmentRepository(db *gorm.DB) contract.ChatTurnAbandonmentRepository {
	return &ChatTurnAbandonmentRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

func (r *ChatTurnAbandonmentRepositoryImpl) Create(ctx context.Context, abandonment *entity.ChatTurnAbandonment) error {
	m := r.mapper.AbandonmentToModel(abandonment)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*abandonment = *r.mapper.AbandonmentToEntity(m)
	return nil
}

func (r *ChatTurnAbandonmentRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&model.ChatTurnAbandonment{})
	for _, spec := range specs {
		query = spec.Apply(query)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

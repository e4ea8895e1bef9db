package implementation

import (
	"context"
	"errors"

	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/internal/mapper"
	"multimodal-rag-be/internal/model"
	"multimodal-rag-be/internal/repository/contract"
	"multimodal-rag-be/internal/repository/specification"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ClientPromptRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.PromptMapper
}

func NewClientPromptRepository(db *gorm.DB) contract.ClientPromptRepository {
	return &ClientPromptRepositoryImpl{
		db:     db,
		mapper: mapper.NewPromptMapper(),
	}
}

func (r *ClientPromptRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ClientPromptRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ClientPrompt, error) {
	var m model.ClientPrompt
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *ClientPromptRepositoryImpl) Upsert(ctx context.Context, prompt *entity.ClientPrompt) error {
	m := r.mapper.ToModel(prompt)
	if m.Version == 0 {
		m.Version = 1
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "client_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"name":          m.Name,
			"system_prompt": m.SystemPrompt,
			"template":      m.Template,
			"is_active":     m.IsActive,
			"deleted_at":    nil,
			"updated_at":    gorm.Expr("NOW()"),
			"version":       gorm.Expr("client_prompts.version + 1"),
		}),
	}).Create(m).Error
	if err != nil {
		return err
	}

	var stored model.ClientPrompt
	if err := r.db.WithContext(ctx).Where("client_id = ?", prompt.ClientId).First(&stored).Error; err != nil {
		return err
	}
	*prompt = *r.mapper.ToEntity(&stored)
	return nil
}

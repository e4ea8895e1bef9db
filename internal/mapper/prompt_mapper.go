package mapper

import (
	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/internal/model"
)

type PromptMapper struct{}

func NewPromptMapper() *PromptMapper {
	return &PromptMapper{}
}

func (m *PromptMapper) ToEntity(p *model.ClientPrompt) *entity.ClientPrompt {
	if p == nil {
		return nil
	}
	return &entity.ClientPrompt{
		Id:           p.Id,
		ClientId:     p.ClientId,
		Name:         p.Name,
		SystemPrompt: p.SystemPrompt,
		Template:     p.Template,
		Version:      p.Version,
		IsActive:     p.IsActive,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func (m *PromptMapper) ToModel(p *entity.ClientPrompt) *model.ClientPrompt {
	if p == nil {
		return nil
	}
	return &model.ClientPrompt{
		Id:           p.Id,
		ClientId:     p.ClientId,
		Name:         p.Name,
		SystemPrompt: p.SystemPrompt,
		Template:     p.Template,
		Version:      p.Version,
		IsActive:     p.IsActive,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

package service

import (
	"context"
	"strings"

	"multimodal-rag-be/internal/constant"
	"multimodal-rag-be/internal/dto"
	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/internal/pkg/logger"
	"multimodal-rag-be/pkg/apperror"
	"multimodal-rag-be/pkg/events"
	"multimodal-rag-be/pkg/rag/orchestrator"
	"multimodal-rag-be/pkg/rag/prompt"
)

type IPromptService interface {
	Get(ctx context.Context, clientId string) (*dto.PromptResponse, error)
	Upsert(ctx context.Context, clientId string, request *dto.UpsertPromptRequest) (*dto.PromptResponse, error)
}

type promptService struct {
	orchestrator orchestrator.IOrchestrator
	store        prompt.Store
	resolver     prompt.IResolver
	publisher    events.Publisher
	logger       logger.ILogger
}

func NewPromptService(
	orch orchestrator.IOrchestrator,
	store prompt.Store,
	resolver prompt.IResolver,
	publisher events.Publisher,
	log logger.ILogger,
) IPromptService {
	return &promptService{
		orchestrator: orch,
		store:        store,
		resolver:     resolver,
		publisher:    publisher,
		logger:       log,
	}
}

func (ps *promptService) Get(ctx context.Context, clientId string) (*dto.PromptResponse, error) {
	resolved, err := ps.orchestrator.GetPrompt(ctx, clientId)
	if err != nil {
		return nil, err
	}
	return &dto.PromptResponse{
		ClientId:     clientId,
		Name:         resolved.Name,
		SystemPrompt: resolved.SystemPrompt,
		Template:     resolved.Template.Raw(),
		Version:      resolved.Version,
		DefaultUsed:  resolved.DefaultUsed,
	}, nil
}

// Upsert rejects a template the resolver could not render, then invalidates the
// local cache and announces the change to every other instance.
func (ps *promptService) Upsert(ctx context.Context, clientId string, request *dto.UpsertPromptRequest) (*dto.PromptResponse, error) {
	const op = "PromptService.Upsert"

	if strings.TrimSpace(clientId) == "" {
		return nil, apperror.Validation(op, "client id is required")
	}
	if _, err := prompt.ParseTemplate(request.Template); err != nil {
		return nil, apperror.Validation(op, "invalid template: %v", err)
	}

	active := true
	if request.IsActive != nil {
		active = *request.IsActive
	}

	stored, err := ps.store.Upsert(ctx, &entity.ClientPrompt{
		ClientId:     clientId,
		Name:         request.Name,
		SystemPrompt: request.SystemPrompt,
		Template:     request.Template,
		IsActive:     active,
	})
	if err != nil {
		return nil, apperror.Upstream(op, err)
	}

	ps.resolver.Invalidate(clientId)
	if err := ps.publisher.Publish(ctx, events.New(constant.EventPromptUpdated, map[string]interface{}{
		"client_id": clientId,
		"version":   stored.Version,
	})); err != nil {
		ps.logger.Warn("PromptService", "Failed to publish prompt update", map[string]interface{}{
			"client_id": clientId,
			"error":     err.Error(),
		})
	}

	ps.logger.Info("PromptService", "Prompt updated", map[string]interface{}{
		"client_id": clientId,
		"version":   stored.Version,
		"active":    stored.IsActive,
	})

	updatedAt := stored.UpdatedAt
	return &dto.PromptResponse{
		ClientId:     stored.ClientId,
		Name:         stored.Name,
		SystemPrompt: stored.SystemPrompt,
		Template:     stored.Template,
		Version:      stored.Version,
		UpdatedAt:    &updatedAt,
	}, nil
}

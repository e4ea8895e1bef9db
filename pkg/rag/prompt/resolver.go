package prompt

import (
	"context"

	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/internal/pkg/logger"
	"multimodal-rag-be/internal/repository/memory"
	"multimodal-rag-be/pkg/apperror"
)

// Resolved is what the assembler needs from a client's prompt configuration.
type Resolved struct {
	ClientId     string
	Name         string
	SystemPrompt string
	Template     *Template
	Version      int
	DefaultUsed  bool
}

type IResolver interface {
	Resolve(ctx context.Context, clientId string) (*Resolved, error)
	Invalidate(clientId string)
}

type Resolver struct {
	source   Source
	cache    *memory.PromptCache
	fallback *Resolved
	logger   logger.ILogger
}

// NewResolver fails when the process default itself is unusable.
func NewResolver(source Source, cache *memory.PromptCache, defaults entity.ClientPrompt, log logger.ILogger) (*Resolver, error) {
	tmpl, err := ParseTemplate(defaults.Template)
	if err != nil {
		return nil, err
	}
	return &Resolver{
		source: source,
		cache:  cache,
		fallback: &Resolved{
			Name:         defaults.Name,
			SystemPrompt: defaults.SystemPrompt,
			Template:     tmpl,
			DefaultUsed:  true,
		},
		logger: log,
	}, nil
}

func (r *Resolver) Default() *Resolved {
	c := *r.fallback
	return &c
}

func (r *Resolver) Resolve(ctx context.Context, clientId string) (*Resolved, error) {
	const op = "prompt.Resolve"

	if clientId == "" {
		return r.useDefault(clientId), nil
	}

	stored, cached := r.cache.Get(clientId)
	if !cached {
		var err error
		stored, err = r.source.FindByClientId(ctx, clientId)
		if err != nil {
			return nil, apperror.Upstream(op, err)
		}
		if stored == nil || !stored.IsActive {
			return r.useDefault(clientId), nil
		}
		r.cache.Save(clientId, stored)
	}

	tmpl, err := ParseTemplate(stored.Template)
	if err != nil {
		r.logger.Error("PromptResolver", "Stored template is invalid", map[string]interface{}{
			"client_id": clientId,
			"version":   stored.Version,
			"error":     err.Error(),
		})
		r.cache.Delete(clientId)
		return nil, err
	}

	return &Resolved{
		ClientId:     clientId,
		Name:         stored.Name,
		SystemPrompt: stored.SystemPrompt,
		Template:     tmpl,
		Version:      stored.Version,
	}, nil
}

func (r *Resolver) Invalidate(clientId string) {
	r.cache.Delete(clientId)
	r.logger.Debug("PromptResolver", "Prompt cache invalidated", map[string]interface{}{
		"client_id": clientId,
	})
}

func (r *Resolver) useDefault(clientId string) *Resolved {
	r.logger.Info("PromptResolver", "No prompt for client, using default", map[string]interface{}{
		"client_id": clientId,
	})
	d := r.Default()
	d.ClientId = clientId
	return d
}

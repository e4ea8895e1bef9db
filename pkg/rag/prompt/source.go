package prompt

import (
	"context"
	"sync"
	"time"

	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/internal/repository/specification"
	"multimodal-rag-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

// Source looks up the stored prompt for a client; (nil, nil) when there is none.
type Source interface {
	FindByClientId(ctx context.Context, clientId string) (*entity.ClientPrompt, error)
}

// Store is a Source that administrators can write to.
type Store interface {
	Source
	Upsert(ctx context.Context, p *entity.ClientPrompt) (*entity.ClientPrompt, error)
}

type RepositorySource struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewRepositorySource(uowFactory unitofwork.RepositoryFactory) *RepositorySource {
	return &RepositorySource{uowFactory: uowFactory}
}

func (s *RepositorySource) FindByClientId(ctx context.Context, clientId string) (*entity.ClientPrompt, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.ClientPromptRepository().FindOne(ctx, specification.ByClientID{ClientID: clientId})
}

func (s *RepositorySource) Upsert(ctx context.Context, p *entity.ClientPrompt) (*entity.ClientPrompt, error) {
	c := *p
	if c.Id == uuid.Nil {
		c.Id = uuid.New()
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ClientPromptRepository().Upsert(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// MemorySource backs the resolver when no database is configured.
type MemorySource struct {
	mu      sync.RWMutex
	prompts map[string]*entity.ClientPrompt
}

func NewMemorySource() *MemorySource {
	return &MemorySource{prompts: make(map[string]*entity.ClientPrompt)}
}

func (s *MemorySource) FindByClientId(ctx context.Context, clientId string) (*entity.ClientPrompt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prompts[clientId]
	if !ok {
		return nil, nil
	}
	c := *p
	return &c, nil
}

// Put stores p and bumps its version when it replaces an existing entry.
func (s *MemorySource) Put(p *entity.ClientPrompt) *entity.ClientPrompt {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *p
	if prev, ok := s.prompts[p.ClientId]; ok {
		c.Id = prev.Id
		c.CreatedAt = prev.CreatedAt
		c.Version = prev.Version + 1
	} else if c.Version == 0 {
		c.Version = 1
	}
	s.prompts[p.ClientId] = &c
	out := c
	return &out
}

func (s *MemorySource) Upsert(ctx context.Context, p *entity.ClientPrompt) (*entity.ClientPrompt, error) {
	c := *p
	now := time.Now()
	if c.Id == uuid.Nil {
		c.Id = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	return s.Put(&c), nil
}

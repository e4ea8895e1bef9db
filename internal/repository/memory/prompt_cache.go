package memory

import (
	"time"

	"multimodal-rag-be/internal/entity"

	"github.com/patrickmn/go-cache"
)

// PromptCache keeps resolved client prompts keyed by client id.
type PromptCache struct {
	cache *cache.Cache
}

func NewPromptCache(ttl time.Duration) *PromptCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &PromptCache{
		cache: cache.New(ttl, 2*ttl),
	}
}

func (r *PromptCache) Save(clientId string, prompt *entity.ClientPrompt) {
	r.cache.Set(clientId, prompt, cache.DefaultExpiration)
}

func (r *PromptCache) Get(clientId string) (*entity.ClientPrompt, bool) {
	if x, found := r.cache.Get(clientId); found {
		return x.(*entity.ClientPrompt), true
	}
	return nil, false
}

func (r *PromptCache) Delete(clientId string) {
	r.cache.Delete(clientId)
}

func (r *PromptCache) Flush() {
	r.cache.Flush()
}

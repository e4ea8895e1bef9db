package memory

import (
	"testing"
	"time"

	"multimodal-rag-be/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptCache(t *testing.T) {
	c := NewPromptCache(time.Minute)

	_, found := c.Get("acme")
	assert.False(t, found)

	c.Save("acme", &entity.ClientPrompt{ClientId: "acme", Version: 2})
	got, found := c.Get("acme")
	require.True(t, found)
	assert.Equal(t, 2, got.Version)

	c.Delete("acme")
	_, found = c.Get("acme")
	assert.False(t, found)
}

func TestPromptCacheExpires(t *testing.T) {
	c := NewPromptCache(20 * time.Millisecond)
	c.Save("acme", &entity.ClientPrompt{ClientId: "acme"})

	time.Sleep(40 * time.Millisecond)

	_, found := c.Get("acme")
	assert.False(t, found)
}

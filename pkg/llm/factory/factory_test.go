package factory

import (
	"context"
	"testing"

	"multimodal-rag-be/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLLMProvider(t *testing.T) {
	tests := []struct {
		provider string
		wantName string
		wantErr  bool
	}{
		{provider: "ollama", wantName: "ollama"},
		{provider: "openai", wantName: "openai"},
		{provider: "anthropic", wantErr: true},
		{provider: "gemini", wantErr: true},
		{provider: "mystery", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			cfg := &config.Config{}
			cfg.Ai.LLMProvider = tt.provider
			cfg.Ai.LLMModel = "m"

			p, err := NewLLMProvider(context.Background(), cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, p.Name())
		})
	}
}

package factory

import (
	"context"
	"fmt"

	"multimodal-rag-be/internal/config"
	"multimodal-rag-be/pkg/llm"
	"multimodal-rag-be/pkg/llm/anthropic"
	"multimodal-rag-be/pkg/llm/gemini"
	"multimodal-rag-be/pkg/llm/ollama"
	"multimodal-rag-be/pkg/llm/openai"
)

func NewLLMProvider(ctx context.Context, cfg *config.Config) (llm.LLMProvider, error) {
	defaults := llm.Options{
		Temperature: cfg.Ai.LLMTemperature,
		MaxTokens:   cfg.Ai.LLMMaxTokens,
	}

	switch cfg.Ai.LLMProvider {
	case "ollama":
		baseURL := cfg.Ai.OllamaBaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, cfg.Ai.LLMModel, defaults), nil
	case "openai":
		return openai.NewOpenAIProvider(cfg.Keys.OpenAI, cfg.Ai.OpenAIBaseURL, cfg.Ai.LLMModel, defaults), nil
	case "gemini":
		if cfg.Keys.GoogleGemini == "" {
			return nil, fmt.Errorf("GOOGLE_GEMINI_API_KEY is required for the gemini provider")
		}
		provider, err := gemini.NewGeminiProvider(ctx, cfg.Keys.GoogleGemini, cfg.Ai.LLMModel, defaults)
		if err != nil {
			return nil, err
		}
		return provider, nil
	case "anthropic":
		if cfg.Keys.Anthropic == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required for the anthropic provider")
		}
		return anthropic.NewAnthropicProvider(cfg.Keys.Anthropic, cfg.Ai.LLMModel, defaults), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Ai.LLMProvider)
	}
}

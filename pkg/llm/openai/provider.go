package openai

import (
	"context"
	"fmt"
	"sync"

	"multimodal-rag-be/pkg/llm"

	goopenai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider speaks the chat completions API. A custom base URL points it at
// any compatible router.
type OpenAIProvider struct {
	client    *goopenai.Client
	modelName string
	defaults  llm.Options
}

var _ llm.LLMProvider = &OpenAIProvider{}

func NewOpenAIProvider(apiKey, baseURL, modelName string, defaults llm.Options) *OpenAIProvider {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{
		client:    goopenai.NewClientWithConfig(cfg),
		modelName: modelName,
		defaults:  defaults,
	}
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

func (p *OpenAIProvider) Stream(ctx context.Context, req llm.Request, opts ...llm.Option) (llm.ChunkStream, error) {
	options := llm.ApplyOptions(p.defaults, opts...)

	messages := make([]goopenai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	for _, msg := range req.Messages {
		role := goopenai.ChatMessageRoleUser
		if msg.Role == "assistant" {
			role = goopenai.ChatMessageRoleAssistant
		}
		messages = append(messages, goopenai.ChatCompletionMessage{Role: role, Content: msg.Content})
	}

	model := p.modelName
	if options.Model != "" {
		model = options.Model
	}

	stream, err := p.client.CreateChatCompletionStream(ctx, goopenai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Stream:      true,
		MaxTokens:   options.MaxTokens,
		Temperature: float32(options.Temperature),
	})
	if err != nil {
		return nil, fmt.Errorf("openai stream: %w", err)
	}

	return &chatStream{stream: stream}, nil
}

type chatStream struct {
	stream *goopenai.ChatCompletionStream
	once   sync.Once
}

// Recv skips role-only and empty deltas; io.EOF from the SDK passes through.
func (s *chatStream) Recv() (string, error) {
	for {
		response, err := s.stream.Recv()
		if err != nil {
			return "", err
		}
		if len(response.Choices) == 0 {
			continue
		}
		if content := response.Choices[0].Delta.Content; content != "" {
			return content, nil
		}
	}
}

func (s *chatStream) Close() error {
	var err error
	s.once.Do(func() {
		err = s.stream.Close()
	})
	return err
}

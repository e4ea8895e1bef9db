package anthropic

import (
	"context"
	"io"
	"sync"

	"multimodal-rag-be/pkg/llm"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
)

const defaultMaxTokens = 1024

type AnthropicProvider struct {
	client    *anthropic.Client
	modelName string
	defaults  llm.Options
}

var _ llm.LLMProvider = &AnthropicProvider{}

func NewAnthropicProvider(apiKey, modelName string, defaults llm.Options, opts ...anthropicopt.RequestOption) *AnthropicProvider {
	opts = append([]anthropicopt.RequestOption{anthropicopt.WithAPIKey(apiKey)}, opts...)
	client := anthropic.NewClient(opts...)
	return &AnthropicProvider{client: &client, modelName: modelName, defaults: defaults}
}

func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

func (p *AnthropicProvider) Stream(ctx context.Context, req llm.Request, opts ...llm.Option) (llm.ChunkStream, error) {
	options := llm.ApplyOptions(p.defaults, opts...)

	model := p.modelName
	if options.Model != "" {
		model = options.Model
	}
	maxTokens := options.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(options.Temperature),
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}
	for _, msg := range req.Messages {
		block := anthropic.NewTextBlock(msg.Content)
		if msg.Role == "assistant" {
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(block))
			continue
		}
		params.Messages = append(params.Messages, anthropic.NewUserMessage(block))
	}

	return &messageStream{stream: p.client.Messages.NewStreaming(ctx, params)}, nil
}

type messageStream struct {
	stream *ssestream.Stream[anthropic.MessageStreamEventUnion]
	once   sync.Once
}

// Recv surfaces text deltas only; tool and thinking blocks are never requested.
func (s *messageStream) Recv() (string, error) {
	for s.stream.Next() {
		event := s.stream.Current()
		delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
		if !ok {
			continue
		}
		if text, ok := delta.Delta.AsAny().(anthropic.TextDelta); ok && text.Text != "" {
			return text.Text, nil
		}
	}
	if err := s.stream.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (s *messageStream) Close() error {
	var err error
	s.once.Do(func() {
		err = s.stream.Close()
	})
	return err
}

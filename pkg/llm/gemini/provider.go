package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"multimodal-rag-be/pkg/llm"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

type GeminiProvider struct {
	client    *genai.Client
	modelName string
	defaults  llm.Options
}

var _ llm.LLMProvider = &GeminiProvider{}

func NewGeminiProvider(ctx context.Context, apiKey, modelName string, defaults llm.Options) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiProvider{client: client, modelName: modelName, defaults: defaults}, nil
}

func (p *GeminiProvider) Name() string {
	return "gemini"
}

func (p *GeminiProvider) Close() error {
	return p.client.Close()
}

func (p *GeminiProvider) Stream(ctx context.Context, req llm.Request, opts ...llm.Option) (llm.ChunkStream, error) {
	options := llm.ApplyOptions(p.defaults, opts...)

	if len(req.Messages) == 0 {
		return nil, errors.New("gemini: request has no messages")
	}
	last := req.Messages[len(req.Messages)-1]
	if last.Role != "user" {
		return nil, fmt.Errorf("gemini: last message must come from the user, got %q", last.Role)
	}

	modelName := p.modelName
	if options.Model != "" {
		modelName = options.Model
	}
	model := p.client.GenerativeModel(modelName)
	if req.SystemPrompt != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.SystemPrompt)},
		}
	}
	model.SetTemperature(float32(options.Temperature))
	if options.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(options.MaxTokens))
	}

	chat := model.StartChat()
	for _, msg := range req.Messages[:len(req.Messages)-1] {
		role := "user"
		if msg.Role == "assistant" {
			role = "model"
		}
		chat.History = append(chat.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(msg.Content)},
		})
	}

	return &contentStream{iter: chat.SendMessageStream(ctx, genai.Text(last.Content))}, nil
}

type contentStream struct {
	iter   *genai.GenerateContentResponseIterator
	closed bool
	mu     sync.Mutex
}

func (s *contentStream) Recv() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for !s.closed {
		resp, err := s.iter.Next()
		if errors.Is(err, iterator.Done) {
			s.closed = true
			break
		}
		if err != nil {
			return "", fmt.Errorf("gemini stream: %w", err)
		}

		var sb strings.Builder
		for _, cand := range resp.Candidates {
			if cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				if txt, ok := part.(genai.Text); ok {
					sb.WriteString(string(txt))
				}
			}
			break
		}
		if sb.Len() > 0 {
			return sb.String(), nil
		}
	}
	return "", io.EOF
}

// The iterator has no close; cancelling the request context releases it.
func (s *contentStream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

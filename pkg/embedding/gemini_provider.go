package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	genaiopt "google.golang.org/api/option"
)

type GeminiProvider struct {
	client *genai.Client
	model  string
}

func NewGeminiProvider(apiKey string, model string) (EmbeddingProvider, error) {
	if apiKey == "" {
		return nil, errors.New("gemini embedding provider requires an api key")
	}
	if model == "" {
		model = "text-embedding-004"
	}

	client, err := genai.NewClient(context.Background(), genaiopt.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiProvider{
		client: client,
		model:  model,
	}, nil
}

func (p *GeminiProvider) Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error) {
	em := p.client.EmbeddingModel(p.model)
	switch taskType {
	case TaskRetrievalQuery:
		em.TaskType = genai.TaskTypeRetrievalQuery
	case TaskRetrievalDocument:
		em.TaskType = genai.TaskTypeRetrievalDocument
	}

	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, err
	}
	if res == nil || res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, errors.New("no embedding from gemini")
	}

	return &EmbeddingResponse{
		Embedding: EmbeddingResponseEmbedding{
			Values: res.Embedding.Values,
		},
	}, nil
}

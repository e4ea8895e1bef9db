package openai

import (
	"context"
	"errors"

	"multimodal-rag-be/pkg/embedding"

	"github.com/sashabaranov/go-openai"
)

type OpenAIProvider struct {
	client *openai.Client
	model  string
	dim    int
}

// NewOpenAIProvider accepts a custom baseURL for OpenAI compatible servers.
// dim > 0 asks text-embedding-3 models for shortened vectors.
func NewOpenAIProvider(apiKey, baseURL, model string, dim int) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		dim:    dim,
	}
}

func (p *OpenAIProvider) Generate(ctx context.Context, text string, taskType string) (*embedding.EmbeddingResponse, error) {
	req := openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(p.model),
	}
	if p.dim > 0 && p.model != string(openai.AdaEmbeddingV2) {
		req.Dimensions = p.dim
	}

	rsp, err := p.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(rsp.Data) == 0 || len(rsp.Data[0].Embedding) == 0 {
		return nil, errors.New("no embedding from openai")
	}

	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{
			Values: rsp.Data[0].Embedding,
		},
	}, nil
}

package embedding

import (
	"context"
	"errors"
	"testing"
	"time"

	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/internal/pkg/logger"
	"multimodal-rag-be/pkg/apperror"
	"multimodal-rag-be/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	dim   int
	err   error
	calls int
}

func (f *fakeProvider) Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &EmbeddingResponse{Embedding: EmbeddingResponseEmbedding{Values: make([]float32, f.dim)}}, nil
}

func testPolicy() utils.RetryPolicy {
	return utils.RetryPolicy{MaxTries: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
}

func TestGatewayEmbed(t *testing.T) {
	text := &fakeProvider{dim: 4}
	g := NewGateway(logger.NewNopLogger(), testPolicy(), false,
		Adapter{Modality: entity.ModalityText, Provider: text, Dimension: 4, Name: "fake"},
	)

	v, err := g.Embed(context.Background(), "refund policy", entity.ModalityText)
	require.NoError(t, err)
	assert.Len(t, v, 4)

	_, err = g.Embed(context.Background(), "refund policy", entity.ModalityImage)
	assert.Equal(t, apperror.KindConfiguration, apperror.KindOf(err))

	_, err = g.Embed(context.Background(), "   ", entity.ModalityText)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestGatewayEmbedWrongLength(t *testing.T) {
	g := NewGateway(logger.NewNopLogger(), testPolicy(), false,
		Adapter{Modality: entity.ModalityText, Provider: &fakeProvider{dim: 3}, Dimension: 4},
	)

	_, err := g.Embed(context.Background(), "q", entity.ModalityText)
	assert.Equal(t, apperror.KindConfiguration, apperror.KindOf(err))
}

func TestGatewayEmbedRetriesThenReportsUpstream(t *testing.T) {
	p := &fakeProvider{err: errors.New("connection refused")}
	g := NewGateway(logger.NewNopLogger(), testPolicy(), false,
		Adapter{Modality: entity.ModalityText, Provider: p, Dimension: 4},
	)

	_, err := g.Embed(context.Background(), "q", entity.ModalityText)
	assert.Equal(t, apperror.KindUpstream, apperror.KindOf(err))
	assert.Equal(t, 2, p.calls)
}

func TestGatewayEmbedDoesNotRetryClientErrors(t *testing.T) {
	p := &fakeProvider{err: &StatusError{Provider: "fake", StatusCode: 400}}
	g := NewGateway(logger.NewNopLogger(), testPolicy(), false,
		Adapter{Modality: entity.ModalityText, Provider: p, Dimension: 4},
	)

	_, err := g.Embed(context.Background(), "q", entity.ModalityText)
	assert.Equal(t, apperror.KindUpstream, apperror.KindOf(err))
	assert.Equal(t, 1, p.calls)
}

func TestGatewayValidate(t *testing.T) {
	tests := []struct {
		name     string
		adapters []Adapter
		expected map[entity.Modality]int
		probe    bool
		wantErr  bool
	}{
		{
			name: "dimensions agree",
			adapters: []Adapter{
				{Modality: entity.ModalityText, Provider: &fakeProvider{dim: 768}, Dimension: 768},
				{Modality: entity.ModalityImage, Provider: &fakeProvider{dim: 1024}, Dimension: 1024},
			},
			expected: map[entity.Modality]int{entity.ModalityText: 768, entity.ModalityImage: 1024},
		},
		{
			name: "declared dimension differs",
			adapters: []Adapter{
				{Modality: entity.ModalityText, Provider: &fakeProvider{dim: 768}, Dimension: 768},
			},
			expected: map[entity.Modality]int{entity.ModalityText: 1536},
			wantErr:  true,
		},
		{
			name: "probe catches a provider that lies",
			adapters: []Adapter{
				{Modality: entity.ModalityText, Provider: &fakeProvider{dim: 512}, Dimension: 768},
			},
			expected: map[entity.Modality]int{entity.ModalityText: 768},
			probe:    true,
			wantErr:  true,
		},
		{
			name: "adapter without a store space",
			adapters: []Adapter{
				{Modality: entity.ModalityImage, Provider: &fakeProvider{dim: 1024}, Dimension: 1024},
			},
			expected: map[entity.Modality]int{entity.ModalityText: 768},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGateway(logger.NewNopLogger(), testPolicy(), tt.probe, tt.adapters...)

			err := g.Validate(context.Background(), tt.expected)
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			assert.Equal(t, apperror.KindConfiguration, apperror.KindOf(err))
		})
	}
}

func TestGatewayModalitiesSorted(t *testing.T) {
	g := NewGateway(logger.NewNopLogger(), testPolicy(), false,
		Adapter{Modality: entity.ModalityText, Provider: &fakeProvider{}},
		Adapter{Modality: entity.ModalityImage, Provider: &fakeProvider{}},
	)
	assert.Equal(t, []entity.Modality{entity.ModalityImage, entity.ModalityText}, g.Modalities())
}

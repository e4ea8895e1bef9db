package embedding

import (
	"context"
	"errors"
	"sort"
	"strings"

	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/internal/pkg/logger"
	"multimodal-rag-be/pkg/apperror"
	"multimodal-rag-be/pkg/utils"
)

const probeInput = "dimension probe"

// Adapter binds one provider to the embedding space of a modality.
type Adapter struct {
	Modality  entity.Modality
	Provider  EmbeddingProvider
	Dimension int
	Name      string
}

type IGateway interface {
	Embed(ctx context.Context, input string, modality entity.Modality) ([]float32, error)
	Validate(ctx context.Context, expected map[entity.Modality]int) error
	Modalities() []entity.Modality
}

type Gateway struct {
	adapters map[entity.Modality]Adapter
	retry    utils.RetryPolicy
	probe    bool
	logger   logger.ILogger
}

func NewGateway(log logger.ILogger, retry utils.RetryPolicy, probe bool, adapters ...Adapter) *Gateway {
	m := make(map[entity.Modality]Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Modality] = a
	}
	return &Gateway{
		adapters: m,
		retry:    retry,
		probe:    probe,
		logger:   log,
	}
}

func (g *Gateway) Modalities() []entity.Modality {
	out := make([]entity.Modality, 0, len(g.adapters))
	for m := range g.adapters {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (g *Gateway) Embed(ctx context.Context, input string, modality entity.Modality) ([]float32, error) {
	const op = "embedding.Embed"

	adapter, ok := g.adapters[modality]
	if !ok {
		return nil, apperror.Configuration(op, "no embedding adapter for modality %q", modality)
	}
	if strings.TrimSpace(input) == "" {
		return nil, apperror.Validation(op, "input must not be empty")
	}

	res, err := utils.Retry(ctx, g.retry, func() (*EmbeddingResponse, error) {
		res, err := adapter.Provider.Generate(ctx, input, TaskRetrievalQuery)
		if err != nil {
			var statusErr *StatusError
			if errors.As(err, &statusErr) && !statusErr.Retryable() {
				return nil, utils.Permanent(err)
			}
			if ctx.Err() != nil {
				return nil, utils.Permanent(err)
			}
			return nil, err
		}
		return res, nil
	})
	if err != nil {
		g.logger.Warn("EmbeddingGateway", "Embedding failed", map[string]interface{}{
			"modality": modality.String(),
			"provider": adapter.Name,
			"error":    err.Error(),
		})
		return nil, apperror.Upstream(op, err)
	}

	values := res.Embedding.Values
	if len(values) != adapter.Dimension {
		return nil, apperror.Configuration(op, "%s adapter %q returned %d dimensions, store expects %d",
			modality, adapter.Name, len(values), adapter.Dimension)
	}
	return values, nil
}

// Validate checks every adapter against the store's expected dimension per modality.
// Any mismatch is fatal and must be reported before queries are served.
func (g *Gateway) Validate(ctx context.Context, expected map[entity.Modality]int) error {
	const op = "embedding.Validate"

	for modality, adapter := range g.adapters {
		want, ok := expected[modality]
		if !ok {
			return apperror.Configuration(op, "vector store has no %s space for adapter %q", modality, adapter.Name)
		}
		if adapter.Dimension != want {
			return apperror.Configuration(op, "%s adapter %q declares %d dimensions, store expects %d",
				modality, adapter.Name, adapter.Dimension, want)
		}
		if !g.probe {
			continue
		}

		res, err := adapter.Provider.Generate(ctx, probeInput, TaskRetrievalQuery)
		if err != nil {
			return apperror.Wrap(apperror.KindConfiguration, op, err)
		}
		if got := len(res.Embedding.Values); got != want {
			return apperror.Configuration(op, "%s adapter %q produced %d dimensions, store expects %d",
				modality, adapter.Name, got, want)
		}
	}

	for modality := range expected {
		if _, ok := g.adapters[modality]; !ok {
			g.logger.Warn("EmbeddingGateway", "Vector store modality has no adapter and will not be searched", map[string]interface{}{
				"modality": modality.String(),
			})
		}
	}

	g.logger.Info("EmbeddingGateway", "Embedding adapters validated", map[string]interface{}{
		"modalities": len(g.adapters),
		"probed":     g.probe,
	})
	return nil
}

package vectorstore

import (
	"context"

	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/pkg/apperror"
)

type Metric string

const (
	MetricCosine       Metric = "cosine"
	MetricInnerProduct Metric = "inner_product"
)

func (m Metric) Valid() bool {
	return m == MetricCosine || m == MetricInnerProduct
}

// Space is the fixed configuration of one modality's index.
type Space struct {
	Modality  entity.Modality
	Dimension int
	Metric    Metric
}

// Filter narrows the candidate set before top-k is taken.
type Filter struct {
	ClientId    string
	DocumentIds []string
}

type IVectorStore interface {
	// Query returns at most k results ordered by similarity desc, chunk id asc.
	Query(ctx context.Context, vector []float32, modality entity.Modality, k int, filter Filter) ([]*entity.RetrievalResult, error)
	Dimensions() map[entity.Modality]int
}

type spaces map[entity.Modality]Space

func newSpaces(list []Space) (spaces, error) {
	const op = "vectorstore.New"
	out := make(spaces, len(list))
	for _, s := range list {
		if !s.Modality.Valid() {
			return nil, apperror.Configuration(op, "unknown modality %q", s.Modality)
		}
		if !s.Metric.Valid() {
			return nil, apperror.Configuration(op, "unsupported metric %q for %s", s.Metric, s.Modality)
		}
		if s.Dimension <= 0 {
			return nil, apperror.Configuration(op, "%s dimension must be positive", s.Modality)
		}
		out[s.Modality] = s
	}
	return out, nil
}

func (s spaces) dimensions() map[entity.Modality]int {
	out := make(map[entity.Modality]int, len(s))
	for m, sp := range s {
		out[m] = sp.Dimension
	}
	return out
}

func (s spaces) check(op string, vector []float32, modality entity.Modality) (Space, error) {
	sp, ok := s[modality]
	if !ok {
		return Space{}, apperror.Configuration(op, "no %s space configured", modality)
	}
	if len(vector) != sp.Dimension {
		return Space{}, apperror.Configuration(op, "%s query vector has %d dimensions, space expects %d",
			modality, len(vector), sp.Dimension)
	}
	return sp, nil
}

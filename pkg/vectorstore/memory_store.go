package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"

	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/internal/mapper"
	"multimodal-rag-be/pkg/apperror"
)

// MemoryStore is a brute force index for development and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	spaces spaces
	rows   map[entity.Modality]map[string]*entity.ChunkEmbedding
	mapper *mapper.ChunkEmbeddingMapper
}

func NewMemoryStore(list ...Space) (*MemoryStore, error) {
	sp, err := newSpaces(list)
	if err != nil {
		return nil, err
	}
	rows := make(map[entity.Modality]map[string]*entity.ChunkEmbedding, len(sp))
	for m := range sp {
		rows[m] = make(map[string]*entity.ChunkEmbedding)
	}
	return &MemoryStore{
		spaces: sp,
		rows:   rows,
		mapper: mapper.NewChunkEmbeddingMapper(),
	}, nil
}

func (s *MemoryStore) Dimensions() map[entity.Modality]int {
	return s.spaces.dimensions()
}

// Add upserts by (chunk id, modality).
func (s *MemoryStore) Add(embeddings ...*entity.ChunkEmbedding) error {
	const op = "vectorstore.Add"

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range embeddings {
		if _, err := s.spaces.check(op, e.Vector, e.Modality); err != nil {
			return err
		}
		if e.ChunkId == "" {
			return apperror.Validation(op, "chunk id is required")
		}
		c := *e
		c.Vector = append([]float32(nil), e.Vector...)
		s.rows[e.Modality][e.ChunkId] = &c
	}
	return nil
}

func (s *MemoryStore) Query(ctx context.Context, vector []float32, modality entity.Modality, k int, filter Filter) ([]*entity.RetrievalResult, error) {
	const op = "vectorstore.Query"

	sp, err := s.spaces.check(op, vector, modality)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		return []*entity.RetrievalResult{}, nil
	}

	docs := make(map[string]struct{}, len(filter.DocumentIds))
	for _, id := range filter.DocumentIds {
		docs[id] = struct{}{}
	}

	s.mu.RLock()
	results := make([]*entity.RetrievalResult, 0, len(s.rows[modality]))
	for _, row := range s.rows[modality] {
		if filter.ClientId != "" && row.ClientId != filter.ClientId {
			continue
		}
		if len(docs) > 0 {
			if _, ok := docs[row.DocumentId]; !ok {
				continue
			}
		}
		results = append(results, s.mapper.ToRetrievalResult(row, similarity(sp.Metric, vector, row.Vector)))
	}
	s.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].ChunkId < results[j].ChunkId
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func similarity(metric Metric, a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if metric == MetricInnerProduct {
		return dot
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

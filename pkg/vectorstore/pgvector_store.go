package vectorstore

import (
	"context"

	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/internal/mapper"
	"multimodal-rag-be/internal/repository/contract"
	"multimodal-rag-be/internal/repository/unitofwork"
	"multimodal-rag-be/pkg/apperror"
)

// PgvectorStore searches the chunk_embeddings table. Both modalities share the table
// and are told apart by the modality column.
type PgvectorStore struct {
	uowFactory unitofwork.RepositoryFactory
	mapper     *mapper.ChunkEmbeddingMapper
	spaces     spaces
}

func NewPgvectorStore(uowFactory unitofwork.RepositoryFactory, list ...Space) (*PgvectorStore, error) {
	sp, err := newSpaces(list)
	if err != nil {
		return nil, err
	}
	return &PgvectorStore{
		uowFactory: uowFactory,
		mapper:     mapper.NewChunkEmbeddingMapper(),
		spaces:     sp,
	}, nil
}

func (s *PgvectorStore) Dimensions() map[entity.Modality]int {
	return s.spaces.dimensions()
}

func (s *PgvectorStore) Query(ctx context.Context, vector []float32, modality entity.Modality, k int, filter Filter) ([]*entity.RetrievalResult, error) {
	const op = "vectorstore.Query"

	sp, err := s.spaces.check(op, vector, modality)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		return []*entity.RetrievalResult{}, nil
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	rows, err := uow.ChunkEmbeddingRepository().SearchNearest(ctx, vector, contract.NearestParams{
		Modality:    string(modality),
		Metric:      string(sp.Metric),
		Limit:       k,
		ClientId:    filter.ClientId,
		DocumentIds: filter.DocumentIds,
	})
	if err != nil {
		return nil, apperror.Upstream(op, err)
	}

	results := make([]*entity.RetrievalResult, 0, len(rows))
	for _, row := range rows {
		results = append(results, s.mapper.ToRetrievalResult(row.Embedding, row.Similarity))
	}
	return results, nil
}

// VerifyStored compares the configured dimensions with the vectors already in the table.
func (s *PgvectorStore) VerifyStored(ctx context.Context) error {
	const op = "vectorstore.VerifyStored"

	uow := s.uowFactory.NewUnitOfWork(ctx)
	for modality, sp := range s.spaces {
		dims, err := uow.ChunkEmbeddingRepository().StoredDimensions(ctx, string(modality))
		if err != nil {
			return apperror.Upstream(op, err)
		}
		for _, d := range dims {
			if d != sp.Dimension {
				return apperror.Configuration(op, "stored %s vectors have %d dimensions, configured %d",
					modality, d, sp.Dimension)
			}
		}
	}
	return nil
}

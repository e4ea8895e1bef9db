package contract

import (
	"context"

	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/internal/repository/specification"
)

// ScoredChunkEmbedding wraps ChunkEmbedding with its similarity score
type ScoredChunkEmbedding struct {
	Embedding  *entity.ChunkEmbedding
	Similarity float64
}

// NearestParams describes one nearest-neighbor lookup. Metric is "cosine" or "inner_product".
type NearestParams struct {
	Modality    string
	Metric      string
	Limit       int
	ClientId    string
	DocumentIds []string
}

type ChunkEmbeddingRepository interface {
	CreateBulk(ctx context.Context, embeddings []*entity.ChunkEmbedding) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChunkEmbedding, error)
	// SearchNearest filters inside the query so the limit applies to the filtered set.
	SearchNearest(ctx context.Context, vector []float32, params NearestParams) ([]*ScoredChunkEmbedding, error)
	// StoredDimensions lists the distinct vector sizes stored for a modality.
	StoredDimensions(ctx context.Context, modality string) ([]int, error)
}

package implementation

import (
	"context"
	"fmt"

	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/internal/mapper"
	"multimodal-rag-be/internal/model"
	"multimodal-rag-be/internal/repository/contract"
	"multimodal-rag-be/internal/repository/specification"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type ChunkEmbeddingRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChunkEmbeddingMapper
}

func NewChunkEmbeddingRepository(db *gorm.DB) contract.ChunkEmbeddingRepository {
	return &ChunkEmbeddingRepositoryImpl{
		db:     db,
		mapper: mapper.NewChunkEmbeddingMapper(),
	}
}

func (r *ChunkEmbeddingRepositoryImpl) CreateBulk(ctx context.Context, embeddings []*entity.ChunkEmbedding) error {
	if len(embeddings) == 0 {
		return nil
	}
	models := make([]*model.ChunkEmbedding, len(embeddings))
	for i, e := range embeddings {
		models[i] = r.mapper.ToModel(e)
	}
	return r.db.WithContext(ctx).CreateInBatches(models, 100).Error
}

func (r *ChunkEmbeddingRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChunkEmbedding, error) {
	var models []*model.ChunkEmbedding
	query := r.db.WithContext(ctx)
	for _, spec := range specs {
		query = spec.Apply(query)
	}
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.ChunkEmbedding, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

// similarityExpr returns a "higher is closer" score for the metric.
// pgvector: <=> is cosine distance, <#> is negative inner product.
func similarityExpr(metric string) (string, error) {
	switch metric {
	case "cosine":
		return "1 - (embedding_value <=> ?)", nil
	case "inner_product":
		return "(embedding_value <#> ?) * -1", nil
	default:
		return "", fmt.Errorf("unsupported metric %q", metric)
	}
}

func (r *ChunkEmbeddingRepositoryImpl) SearchNearest(ctx context.Context, vector []float32, params contract.NearestParams) ([]*contract.ScoredChunkEmbedding, error) {
	if params.Limit <= 0 {
		return []*contract.ScoredChunkEmbedding{}, nil
	}

	expr, err := similarityExpr(params.Metric)
	if err != nil {
		return nil, err
	}

	type result struct {
		model.ChunkEmbedding
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(vector)

	query := r.db.WithContext(ctx).
		Table("chunk_embeddings").
		Select("chunk_embeddings.*, "+expr+" AS similarity", queryVector).
		Where("modality = ?", params.Modality).
		// pgvector refuses to compare vectors of different sizes
		Where("vector_dims(embedding_value) = ?", len(vector))
	if params.ClientId != "" {
		query = query.Where("client_id = ?", params.ClientId)
	}
	if len(params.DocumentIds) > 0 {
		query = query.Where("document_id IN ?", params.DocumentIds)
	}

	err = query.
		Order("similarity DESC").
		Order("chunk_id ASC").
		Limit(params.Limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredChunkEmbedding, len(results))
	for i := range results {
		scored[i] = &contract.ScoredChunkEmbedding{
			Embedding:  r.mapper.ToEntity(&results[i].ChunkEmbedding),
			Similarity: results[i].Similarity,
		}
	}
	return scored, nil
}

func (r *ChunkEmbeddingRepositoryImpl) StoredDimensions(ctx context.Context, modality string) ([]int, error) {
	var dims []int
	err := r.db.WithContext(ctx).
		Model(&model.ChunkEmbedding{}).
		Where("modality = ?", modality).
		Distinct().
		Pluck("vector_dims(embedding_value)", &dims).Error
	if err != nil {
		return nil, err
	}
	return dims, nil
}

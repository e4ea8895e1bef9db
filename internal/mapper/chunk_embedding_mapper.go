package mapper

import (
	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type ChunkEmbeddingMapper struct{}

func NewChunkEmbeddingMapper() *ChunkEmbeddingMapper {
	return &ChunkEmbeddingMapper{}
}

func (m *ChunkEmbeddingMapper) ToEntity(e *model.ChunkEmbedding) *entity.ChunkEmbedding {
	if e == nil {
		return nil
	}

	return &entity.ChunkEmbedding{
		Id:         e.Id,
		ChunkId:    e.ChunkId,
		Modality:   entity.Modality(e.Modality),
		ClientId:   e.ClientId,
		DocumentId: e.DocumentId,
		Page:       e.Page,
		Offset:     e.Offset,
		Content:    e.Content,
		SourceUri:  e.SourceUri,
		Metadata:   map[string]interface{}(e.Metadata),
		Vector:     e.EmbeddingValue.Slice(),
		CreatedAt:  e.CreatedAt,
	}
}

func (m *ChunkEmbeddingMapper) ToModel(e *entity.ChunkEmbedding) *model.ChunkEmbedding {
	if e == nil {
		return nil
	}

	return &model.ChunkEmbedding{
		Id:             e.Id,
		ChunkId:        e.ChunkId,
		Modality:       string(e.Modality),
		ClientId:       e.ClientId,
		DocumentId:     e.DocumentId,
		Page:           e.Page,
		Offset:         e.Offset,
		Content:        e.Content,
		SourceUri:      e.SourceUri,
		Metadata:       datatypes.JSONMap(e.Metadata),
		EmbeddingValue: pgvector.NewVector(e.Vector),
		CreatedAt:      e.CreatedAt,
	}
}

// ToRetrievalResult turns a scored row into the transient query result.
func (m *ChunkEmbeddingMapper) ToRetrievalResult(e *entity.ChunkEmbedding, similarity float64) *entity.RetrievalResult {
	return &entity.RetrievalResult{
		ChunkId:    e.ChunkId,
		Modality:   e.Modality,
		Modalities: []entity.Modality{e.Modality},
		Similarity: similarity,
		Content:    e.Content,
		Source: entity.SourceMetadata{
			DocumentId: e.DocumentId,
			ClientId:   e.ClientId,
			Page:       e.Page,
			Offset:     e.Offset,
			Uri:        e.SourceUri,
			Extra:      e.Metadata,
		},
	}
}

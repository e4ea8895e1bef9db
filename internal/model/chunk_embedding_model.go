package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// ChunkEmbedding holds vectors of both modalities. The column is dimensionless
// because text and image spaces differ; the expected size is checked at startup.
type ChunkEmbedding struct {
	Id             uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ChunkId        string            `gorm:"type:varchar(255);not null;uniqueIndex:idx_chunk_embeddings_chunk_modality,priority:1"`
	Modality       string            `gorm:"type:varchar(20);not null;uniqueIndex:idx_chunk_embeddings_chunk_modality,priority:2;index"`
	ClientId       string            `gorm:"type:varchar(100);index"`
	DocumentId     string            `gorm:"type:varchar(255);index"`
	Page           int               `gorm:"default:0"`
	Offset         int               `gorm:"column:chunk_offset;default:0"`
	Content        string            `gorm:"type:text"`
	SourceUri      string            `gorm:"type:text"`
	Metadata       datatypes.JSONMap `gorm:"type:jsonb"`
	EmbeddingValue pgvector.Vector   `gorm:"type:vector"`
	CreatedAt      time.Time         `gorm:"autoCreateTime"`
}

func (ChunkEmbedding) TableName() string {
	return "chunk_embeddings"
}

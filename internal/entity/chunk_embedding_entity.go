package entity

import (
	"time"

	"github.com/google/uuid"
)

// ChunkEmbedding is written by ingestion and read-only here.
type ChunkEmbedding struct {
	Id         uuid.UUID
	ChunkId    string
	Modality   Modality
	ClientId   string
	DocumentId string
	Page       int
	Offset     int
	Content    string
	SourceUri  string
	Metadata   map[string]interface{}
	Vector     []float32
	CreatedAt  time.Time
}

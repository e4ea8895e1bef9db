package specification

import (
	"gorm.io/gorm"
)

type ByModality struct {
	Modality string
}

func (s ByModality) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("modality = ?", s.Modality)
}

type ByDocumentIDs struct {
	DocumentIDs []string
}

func (s ByDocumentIDs) Apply(db *gorm.DB) *gorm.DB {
	if len(s.DocumentIDs) == 0 {
		return db
	}
	return db.Where("document_id IN ?", s.DocumentIDs)
}

type ByChunkID struct {
	ChunkID string
}

func (s ByChunkID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("chunk_id = ?", s.ChunkID)
}

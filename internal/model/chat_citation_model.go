package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ChatCitation struct {
	Id            uuid.UUID                   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ChatMessageId uuid.UUID                   `gorm:"type:uuid;not null;index"`
	Rank          int                         `gorm:"not null"`
	ChunkId       string                      `gorm:"type:varchar(255);not null"`
	Modality      string                      `gorm:"type:varchar(20);not null"`
	Modalities    datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	Similarity    float64                     `gorm:"not null;default:0"`
	FusedScore    float64                     `gorm:"not null;default:0"`
	DocumentId    string                      `gorm:"type:varchar(255)"`
	CreatedAt     time.Time                   `gorm:"autoCreateTime"`
}

func (ChatCitation) TableName() string {
	return "chat_citations"
}

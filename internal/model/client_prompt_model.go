package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ClientPrompt struct {
	Id           uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ClientId     string         `gorm:"type:varchar(100);uniqueIndex;not null"`
	Name         string         `gorm:"type:varchar(200);not null"`
	SystemPrompt string         `gorm:"type:text;not null"`
	Template     string         `gorm:"type:text;not null"`
	Version      int            `gorm:"not null;default:1"`
	IsActive     bool           `gorm:"not null;index"`
	CreatedAt    time.Time      `gorm:"autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime"`
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

func (ClientPrompt) TableName() string {
	return "client_prompts"
}

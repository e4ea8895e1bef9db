package entity

import (
	"time"

	"github.com/google/uuid"
)

// ClientPrompt is keyed by ClientId. Administrators change it out-of-band.
type ClientPrompt struct {
	Id           uuid.UUID
	ClientId     string
	Name         string
	SystemPrompt string
	Template     string
	Version      int
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

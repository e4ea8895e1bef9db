package dto

import "time"

type PromptResponse struct {
	ClientId     string     `json:"client_id"`
	Name         string     `json:"name"`
	SystemPrompt string     `json:"system_prompt"`
	Template     string     `json:"template"`
	Version      int        `json:"version"`
	DefaultUsed  bool       `json:"default_used"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

type UpsertPromptRequest struct {
	Name         string `json:"name" validate:"required,max=100"`
	SystemPrompt string `json:"system_prompt" validate:"required,max=20000"`
	Template     string `json:"template" validate:"required,max=20000"`
	IsActive     *bool  `json:"is_active,omitempty"`
}

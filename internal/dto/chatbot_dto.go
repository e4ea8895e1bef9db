package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateSessionRequest struct {
	ClientId string `json:"client_id" validate:"required,max=128"`
	Title    string `json:"title" validate:"max=200"`
}

type SessionResponse struct {
	Id        uuid.UUID  `json:"id"`
	ClientId  string     `json:"client_id"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

type QueryRequest struct {
	SessionId    uuid.UUID `json:"session_id"` // zero starts a new session
	ClientId     string    `json:"client_id" validate:"required,max=128"`
	Question     string    `json:"question" validate:"required,max=8000"`
	ModalityHint []string  `json:"modality_hint,omitempty" validate:"omitempty,dive,oneof=text image"`
	DocumentIds  []string  `json:"document_ids,omitempty" validate:"max=100"`
}

type CitationDTO struct {
	Rank       int      `json:"rank"`
	ChunkId    string   `json:"chunk_id"`
	Modality   string   `json:"modality"`
	Modalities []string `json:"modalities"`
	Similarity float64  `json:"similarity"`
	FusedScore float64  `json:"fused_score"`
	DocumentId string   `json:"document_id"`
}

type ChatMessageDTO struct {
	Id         uuid.UUID     `json:"id"`
	SessionId  uuid.UUID     `json:"session_id"`
	Position   int64         `json:"position"`
	Role       string        `json:"role"`
	Chat       string        `json:"chat"`
	Citations  []CitationDTO `json:"citations,omitempty"`
	InputAt    time.Time     `json:"input_at"`
	OutputAt   time.Time     `json:"output_at"`
	DurationMs int64         `json:"duration_ms"`
	CreatedAt  time.Time     `json:"created_at"`
}

type SourceDTO struct {
	DocumentId string `json:"document_id"`
	Page       int    `json:"page"`
	Offset     int    `json:"offset"`
	Uri        string `json:"uri,omitempty"`
}

type EvidenceDTO struct {
	ChunkId    string    `json:"chunk_id"`
	Modality   string    `json:"modality"`
	Modalities []string  `json:"modalities"`
	Similarity float64   `json:"similarity"`
	FusedScore float64   `json:"fused_score"`
	Content    string    `json:"content"`
	Source     SourceDTO `json:"source"`
}

type DegradedDTO struct {
	Modality string `json:"modality"`
	Phase    string `json:"phase"`
	Reason   string `json:"reason"`
}

type WarningDTO struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type StageTimingDTO struct {
	State      string `json:"state"`
	DurationMs int64  `json:"duration_ms"`
}

type TimingDTO struct {
	InputAt  time.Time        `json:"input_at"`
	OutputAt time.Time        `json:"output_at"`
	TotalMs  int64            `json:"total_ms"`
	Stages   []StageTimingDTO `json:"stages"`
}

type TokenUsageDTO struct {
	Total           int `json:"total"`
	Used            int `json:"used"`
	EvidenceUsed    int `json:"evidence_used"`
	HistoryUsed     int `json:"history_used"`
	DroppedHistory  int `json:"dropped_history"`
	DroppedEvidence int `json:"dropped_evidence"`
}

type TurnResponse struct {
	SessionId         uuid.UUID       `json:"session_id"`
	UserMessage       *ChatMessageDTO `json:"user_message"`
	AssistantMessage  *ChatMessageDTO `json:"assistant_message"`
	Evidence          []EvidenceDTO   `json:"evidence"`
	Degraded          []DegradedDTO   `json:"degraded,omitempty"`
	Warnings          []WarningDTO    `json:"warnings,omitempty"`
	DefaultPromptUsed bool            `json:"default_prompt_used"`
	States            []string        `json:"states"`
	Timing            TimingDTO       `json:"timing"`
	Tokens            TokenUsageDTO   `json:"tokens"`
}

type FeedbackRequest struct {
	MessageId uuid.UUID `json:"message_id" validate:"required"`
	Rating    int       `json:"rating" validate:"oneof=-1 1"`
	Label     string    `json:"label,omitempty" validate:"max=64"`
	Comment   *string   `json:"comment,omitempty" validate:"omitempty,max=2000"`
}

type FeedbackResponse struct {
	Id        uuid.UUID `json:"id"`
	MessageId uuid.UUID `json:"message_id"`
	Rating    int       `json:"rating"`
	Label     string    `json:"label,omitempty"`
	Comment   *string   `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Stream event names shared by the SSE and websocket transports.
const (
	StreamEventChunk = "chunk"
	StreamEventDone  = "done"
	StreamEventError = "error"
)

type StreamChunk struct {
	Text string `json:"text"`
}

type StreamError struct {
	ErrorKind string `json:"error_kind"`
	Message   string `json:"message"`
}

// StreamFrame is one websocket message.
type StreamFrame struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

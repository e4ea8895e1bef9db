package orchestrator

import (
	"time"

	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/pkg/apperror"
	"multimodal-rag-be/pkg/rag/assembler"
	"multimodal-rag-be/pkg/rag/search"

	"github.com/google/uuid"
)

// State is a step of one query turn. States are entered in declaration order.
type State string

const (
	StateReceived         State = "RECEIVED"
	StateRedacted         State = "REDACTED"
	StateEmbedded         State = "EMBEDDED"
	StateRetrieved        State = "RETRIEVED"
	StateContextBuilt     State = "CONTEXT_BUILT"
	StateGenerating       State = "GENERATING"
	StateStreaming        State = "STREAMING"
	StatePersisted        State = "PERSISTED"
	StateFeedbackReceived State = "FEEDBACK_RECEIVED"
)

// Abandonment reasons.
const (
	ReasonCanceled         = "canceled"
	ReasonDisconnected     = "disconnected"
	ReasonGenerationFailed = "generation_failed"
	ReasonPersistFailed    = "persist_failed"
)

type TurnRequest struct {
	SessionId    uuid.UUID // uuid.Nil starts a new session
	ClientId     string
	Question     string
	ModalityHint []entity.Modality
	DocumentIds  []string
}

// Sink receives answer chunks as they are generated. An error means the caller is
// gone and the turn is abandoned.
type Sink interface {
	Chunk(text string) error
}

type SinkFunc func(text string) error

func (f SinkFunc) Chunk(text string) error {
	return f(text)
}

type Warning struct {
	Kind    apperror.Kind `json:"kind"`
	Message string        `json:"message"`
}

type StageTiming struct {
	State      State `json:"state"`
	DurationMs int64 `json:"duration_ms"`
}

type Timing struct {
	InputAt  time.Time     `json:"input_at"`
	OutputAt time.Time     `json:"output_at"`
	TotalMs  int64         `json:"total_ms"`
	Stages   []StageTiming `json:"stages"`
}

type TurnResult struct {
	SessionId         uuid.UUID
	UserMessage       *entity.ChatMessage
	AssistantMessage  *entity.ChatMessage
	Evidence          []*entity.RetrievalResult
	Citations         []*entity.ChatCitation
	Degraded          []search.Degradation
	Warnings          []Warning
	DefaultPromptUsed bool
	States            []State
	Timing            Timing
	Tokens            assembler.Accounting
	DroppedHistory    int
	DroppedEvidence   int
}

// AbandonError reports a turn that stopped at or after GENERATING. Nothing from the
// turn was persisted.
type AbandonError struct {
	SessionId uuid.UUID
	State     State
	Reason    string
	Err       error
}

func (e *AbandonError) Error() string {
	return "turn abandoned at " + string(e.State) + " (" + e.Reason + "): " + e.Err.Error()
}

func (e *AbandonError) Unwrap() error {
	return e.Err
}

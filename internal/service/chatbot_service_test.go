package service

import (
	"context"
	"testing"
	"time"

	"multimodal-rag-be/internal/dto"
	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/pkg/rag/assembler"
	"multimodal-rag-be/pkg/rag/orchestrator"
	"multimodal-rag-be/pkg/rag/prompt"
	"multimodal-rag-be/pkg/rag/search"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubOrchestrator struct {
	orchestrator.IOrchestrator

	lastQuery    orchestrator.TurnRequest
	lastFeedback orchestrator.FeedbackRequest
	result       *orchestrator.TurnResult
	resolver     prompt.IResolver
}

func (s *stubOrchestrator) SubmitQuery(ctx context.Context, req orchestrator.TurnRequest, sink orchestrator.Sink) (*orchestrator.TurnResult, error) {
	s.lastQuery = req
	if err := sink.Chunk("streamed"); err != nil {
		return nil, err
	}
	return s.result, nil
}

func (s *stubOrchestrator) SubmitFeedback(ctx context.Context, req orchestrator.FeedbackRequest) (*entity.MessageFeedback, error) {
	s.lastFeedback = req
	return &entity.MessageFeedback{
		Id:            uuid.New(),
		ChatMessageId: req.MessageId,
		Rating:        req.Rating,
		Label:         req.Label,
		Comment:       req.Comment,
		CreatedAt:     time.Now(),
	}, nil
}

func (s *stubOrchestrator) GetHistory(ctx context.Context, clientId string, sessionId uuid.UUID) ([]*entity.ChatMessage, error) {
	return []*entity.ChatMessage{
		{Id: uuid.New(), ChatSessionId: sessionId, Position: 1, Role: "user", Chat: "hi"},
		{Id: uuid.New(), ChatSessionId: sessionId, Position: 2, Role: "assistant", Chat: "hello", Citations: []*entity.ChatCitation{
			{Rank: 0, ChunkId: "c1", Modality: entity.ModalityText, Modalities: []entity.Modality{entity.ModalityText}, DocumentId: "doc"},
		}},
	}, nil
}

func (s *stubOrchestrator) GetPrompt(ctx context.Context, clientId string) (*prompt.Resolved, error) {
	return s.resolver.Resolve(ctx, clientId)
}

func TestSendQueryMapsTurnResult(t *testing.T) {
	sessionId := uuid.New()
	stub := &stubOrchestrator{result: &orchestrator.TurnResult{
		SessionId:        sessionId,
		UserMessage:      &entity.ChatMessage{Role: "user", Chat: "refund?"},
		AssistantMessage: &entity.ChatMessage{Role: "assistant", Chat: "30 days [1]"},
		Evidence: []*entity.RetrievalResult{{
			ChunkId:    "refund-text",
			Modality:   entity.ModalityText,
			Modalities: []entity.Modality{entity.ModalityText, entity.ModalityImage},
			Similarity: 0.82,
			FusedScore: 1,
			Source:     entity.SourceMetadata{DocumentId: "policy", Page: 3},
		}},
		Degraded: []search.Degradation{{Modality: entity.ModalityImage, Phase: search.PhaseSearch, Reason: "timeout"}},
		States:   []orchestrator.State{orchestrator.StateReceived, orchestrator.StatePersisted},
		Timing: orchestrator.Timing{
			TotalMs: 12,
			Stages:  []orchestrator.StageTiming{{State: orchestrator.StateRetrieved, DurationMs: 5}},
		},
		Tokens:         assembler.Accounting{Total: 4096, Used: 300},
		DroppedHistory: 2,
	}}
	svc := NewChatbotService(stub)

	var chunks []string
	res, err := svc.SendQuery(context.Background(), &dto.QueryRequest{
		ClientId:     "acme",
		Question:     "refund?",
		ModalityHint: []string{"image"},
	}, orchestrator.SinkFunc(func(text string) error {
		chunks = append(chunks, text)
		return nil
	}))
	require.NoError(t, err)

	assert.Equal(t, []string{"streamed"}, chunks)
	assert.Equal(t, []entity.Modality{entity.ModalityImage}, stub.lastQuery.ModalityHint)
	assert.Equal(t, sessionId, res.SessionId)
	require.Len(t, res.Evidence, 1)
	assert.Equal(t, []string{"text", "image"}, res.Evidence[0].Modalities)
	assert.Equal(t, "policy", res.Evidence[0].Source.DocumentId)
	assert.Equal(t, []dto.DegradedDTO{{Modality: "image", Phase: "search", Reason: "timeout"}}, res.Degraded)
	assert.Equal(t, []string{"RECEIVED", "PERSISTED"}, res.States)
	assert.Equal(t, int64(5), res.Timing.Stages[0].DurationMs)
	assert.Equal(t, 2, res.Tokens.DroppedHistory)
	assert.Equal(t, "30 days [1]", res.AssistantMessage.Chat)
}

func TestGetChatHistoryMapsCitations(t *testing.T) {
	svc := NewChatbotService(&stubOrchestrator{})

	history, err := svc.GetChatHistory(context.Background(), "acme", uuid.New())
	require.NoError(t, err)

	require.Len(t, history, 2)
	assert.Empty(t, history[0].Citations)
	require.Len(t, history[1].Citations, 1)
	assert.Equal(t, "c1", history[1].Citations[0].ChunkId)
	assert.Equal(t, "text", history[1].Citations[0].Modality)
}

func TestSendFeedbackPassesThrough(t *testing.T) {
	stub := &stubOrchestrator{}
	svc := NewChatbotService(stub)
	comment := "helpful"
	messageId := uuid.New()

	res, err := svc.SendFeedback(context.Background(), &dto.FeedbackRequest{
		MessageId: messageId,
		Rating:    1,
		Label:     "accurate",
		Comment:   &comment,
	})
	require.NoError(t, err)

	assert.Equal(t, messageId, stub.lastFeedback.MessageId)
	assert.Equal(t, messageId, res.MessageId)
	assert.Equal(t, 1, res.Rating)
	assert.Equal(t, "helpful", *res.Comment)
}

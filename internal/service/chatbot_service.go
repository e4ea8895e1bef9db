package service

import (
	"context"

	"multimodal-rag-be/internal/dto"
	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/pkg/rag/orchestrator"

	"github.com/google/uuid"
)

// IChatbotService defines the chatbot service interface
type IChatbotService interface {
	CreateSession(ctx context.Context, request *dto.CreateSessionRequest) (*dto.SessionResponse, error)
	DeleteSession(ctx context.Context, clientId string, sessionId uuid.UUID) error
	GetChatHistory(ctx context.Context, clientId string, sessionId uuid.UUID) ([]*dto.ChatMessageDTO, error)
	CheckSession(ctx context.Context, clientId string, sessionId uuid.UUID) error
	SendQuery(ctx context.Context, request *dto.QueryRequest, sink orchestrator.Sink) (*dto.TurnResponse, error)
	SendFeedback(ctx context.Context, request *dto.FeedbackRequest) (*dto.FeedbackResponse, error)
	GetFeedback(ctx context.Context, clientId string, messageId uuid.UUID) ([]*dto.FeedbackResponse, error)
}

type chatbotService struct {
	orchestrator orchestrator.IOrchestrator
}

func NewChatbotService(orch orchestrator.IOrchestrator) IChatbotService {
	return &chatbotService{orchestrator: orch}
}

func (cs *chatbotService) CreateSession(ctx context.Context, request *dto.CreateSessionRequest) (*dto.SessionResponse, error) {
	sess, err := cs.orchestrator.CreateSession(ctx, request.ClientId, request.Title)
	if err != nil {
		return nil, err
	}
	return &dto.SessionResponse{
		Id:        sess.Id,
		ClientId:  sess.ClientId,
		Title:     sess.Title,
		CreatedAt: sess.CreatedAt,
		UpdatedAt: sess.UpdatedAt,
	}, nil
}

func (cs *chatbotService) DeleteSession(ctx context.Context, clientId string, sessionId uuid.UUID) error {
	return cs.orchestrator.DeleteSession(ctx, clientId, sessionId)
}

func (cs *chatbotService) GetChatHistory(ctx context.Context, clientId string, sessionId uuid.UUID) ([]*dto.ChatMessageDTO, error) {
	messages, err := cs.orchestrator.GetHistory(ctx, clientId, sessionId)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.ChatMessageDTO, 0, len(messages))
	for _, m := range messages {
		res = append(res, toMessageDTO(m))
	}
	return res, nil
}

func (cs *chatbotService) CheckSession(ctx context.Context, clientId string, sessionId uuid.UUID) error {
	return cs.orchestrator.CheckSession(ctx, clientId, sessionId)
}

func (cs *chatbotService) SendQuery(ctx context.Context, request *dto.QueryRequest, sink orchestrator.Sink) (*dto.TurnResponse, error) {
	hint := make([]entity.Modality, 0, len(request.ModalityHint))
	for _, m := range request.ModalityHint {
		hint = append(hint, entity.Modality(m))
	}

	result, err := cs.orchestrator.SubmitQuery(ctx, orchestrator.TurnRequest{
		SessionId:    request.SessionId,
		ClientId:     request.ClientId,
		Question:     request.Question,
		ModalityHint: hint,
		DocumentIds:  request.DocumentIds,
	}, sink)
	if err != nil {
		return nil, err
	}
	return toTurnResponse(result), nil
}

func (cs *chatbotService) SendFeedback(ctx context.Context, request *dto.FeedbackRequest) (*dto.FeedbackResponse, error) {
	fb, err := cs.orchestrator.SubmitFeedback(ctx, orchestrator.FeedbackRequest{
		MessageId: request.MessageId,
		Rating:    request.Rating,
		Label:     request.Label,
		Comment:   request.Comment,
	})
	if err != nil {
		return nil, err
	}
	return toFeedbackDTO(fb), nil
}

func (cs *chatbotService) GetFeedback(ctx context.Context, clientId string, messageId uuid.UUID) ([]*dto.FeedbackResponse, error) {
	feedback, err := cs.orchestrator.GetFeedback(ctx, clientId, messageId)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.FeedbackResponse, 0, len(feedback))
	for _, fb := range feedback {
		res = append(res, toFeedbackDTO(fb))
	}
	return res, nil
}

func toFeedbackDTO(fb *entity.MessageFeedback) *dto.FeedbackResponse {
	return &dto.FeedbackResponse{
		Id:        fb.Id,
		MessageId: fb.ChatMessageId,
		Rating:    fb.Rating,
		Label:     fb.Label,
		Comment:   fb.Comment,
		CreatedAt: fb.CreatedAt,
	}
}

func modalityNames(mods []entity.Modality) []string {
	out := make([]string, len(mods))
	for i, m := range mods {
		out[i] = m.String()
	}
	return out
}

func toMessageDTO(m *entity.ChatMessage) *dto.ChatMessageDTO {
	if m == nil {
		return nil
	}
	citations := make([]dto.CitationDTO, 0, len(m.Citations))
	for _, c := range m.Citations {
		citations = append(citations, dto.CitationDTO{
			Rank:       c.Rank,
			ChunkId:    c.ChunkId,
			Modality:   c.Modality.String(),
			Modalities: modalityNames(c.Modalities),
			Similarity: c.Similarity,
			FusedScore: c.FusedScore,
			DocumentId: c.DocumentId,
		})
	}
	return &dto.ChatMessageDTO{
		Id:         m.Id,
		SessionId:  m.ChatSessionId,
		Position:   m.Position,
		Role:       m.Role,
		Chat:       m.Chat,
		Citations:  citations,
		InputAt:    m.InputAt,
		OutputAt:   m.OutputAt,
		DurationMs: m.DurationMs,
		CreatedAt:  m.CreatedAt,
	}
}

func toTurnResponse(r *orchestrator.TurnResult) *dto.TurnResponse {
	evidence := make([]dto.EvidenceDTO, 0, len(r.Evidence))
	for _, e := range r.Evidence {
		evidence = append(evidence, dto.EvidenceDTO{
			ChunkId:    e.ChunkId,
			Modality:   e.Modality.String(),
			Modalities: modalityNames(e.Modalities),
			Similarity: e.Similarity,
			FusedScore: e.FusedScore,
			Content:    e.Content,
			Source: dto.SourceDTO{
				DocumentId: e.Source.DocumentId,
				Page:       e.Source.Page,
				Offset:     e.Source.Offset,
				Uri:        e.Source.Uri,
			},
		})
	}

	degraded := make([]dto.DegradedDTO, 0, len(r.Degraded))
	for _, d := range r.Degraded {
		degraded = append(degraded, dto.DegradedDTO{Modality: d.Modality.String(), Phase: d.Phase, Reason: d.Reason})
	}

	warnings := make([]dto.WarningDTO, 0, len(r.Warnings))
	for _, w := range r.Warnings {
		warnings = append(warnings, dto.WarningDTO{Kind: string(w.Kind), Message: w.Message})
	}

	states := make([]string, len(r.States))
	for i, s := range r.States {
		states[i] = string(s)
	}

	stages := make([]dto.StageTimingDTO, len(r.Timing.Stages))
	for i, s := range r.Timing.Stages {
		stages[i] = dto.StageTimingDTO{State: string(s.State), DurationMs: s.DurationMs}
	}

	return &dto.TurnResponse{
		SessionId:         r.SessionId,
		UserMessage:       toMessageDTO(r.UserMessage),
		AssistantMessage:  toMessageDTO(r.AssistantMessage),
		Evidence:          evidence,
		Degraded:          degraded,
		Warnings:          warnings,
		DefaultPromptUsed: r.DefaultPromptUsed,
		States:            states,
		Timing: dto.TimingDTO{
			InputAt:  r.Timing.InputAt,
			OutputAt: r.Timing.OutputAt,
			TotalMs:  r.Timing.TotalMs,
			Stages:   stages,
		},
		Tokens: dto.TokenUsageDTO{
			Total:           r.Tokens.Total,
			Used:            r.Tokens.Used,
			EvidenceUsed:    r.Tokens.EvidenceUsed,
			HistoryUsed:     r.Tokens.HistoryUsed,
			DroppedHistory:  r.DroppedHistory,
			DroppedEvidence: r.DroppedEvidence,
		},
	}
}

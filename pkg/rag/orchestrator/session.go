package orchestrator

import (
	"context"
	"strconv"
	"strings"

	"multimodal-rag-be/internal/constant"
	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/internal/metrics"
	"multimodal-rag-be/pkg/apperror"
	"multimodal-rag-be/pkg/events"
	"multimodal-rag-be/pkg/rag/prompt"
	"multimodal-rag-be/pkg/rag/session"

	"github.com/google/uuid"
)

func (o *Orchestrator) CreateSession(ctx context.Context, clientId, title string) (*entity.ChatSession, error) {
	const op = "orchestrator.CreateSession"

	if strings.TrimSpace(clientId) == "" {
		return nil, apperror.Validation(op, "client id is required")
	}
	return o.sessions.Create(ctx, clientId, session.DeriveTitle(o.redactor.Redact(title).Text))
}

func (o *Orchestrator) DeleteSession(ctx context.Context, clientId string, sessionId uuid.UUID) error {
	const op = "orchestrator.DeleteSession"

	if _, err := o.ownedSession(ctx, op, clientId, sessionId); err != nil {
		return err
	}
	if err := o.sessions.Delete(ctx, sessionId); err != nil {
		return err
	}

	o.logger.Info(module, "Session deleted", map[string]interface{}{
		"session_id": sessionId.String(),
		"client_id":  clientId,
	})
	return nil
}

// SubmitFeedback attaches a rating to an assistant message. Comments are redacted
// like every other stored text.
func (o *Orchestrator) SubmitFeedback(ctx context.Context, req FeedbackRequest) (*entity.MessageFeedback, error) {
	const op = "orchestrator.SubmitFeedback"

	if req.MessageId == uuid.Nil {
		return nil, apperror.Validation(op, "message id is required")
	}
	if req.Rating != 1 && req.Rating != -1 {
		return nil, apperror.Validation(op, "rating must be 1 or -1, got %d", req.Rating)
	}

	msg, err := o.sessions.Message(ctx, req.MessageId)
	if err != nil {
		return nil, err
	}
	if msg.Role != constant.ChatMessageRoleAssistant {
		return nil, apperror.Validation(op, "feedback can only be given on assistant messages")
	}

	feedback := &entity.MessageFeedback{
		ChatMessageId: req.MessageId,
		Rating:        req.Rating,
		Label:         strings.TrimSpace(req.Label),
	}
	if req.Comment != nil {
		redacted := o.redactor.Redact(*req.Comment)
		countRedactions("feedback", redacted.Spans)
		feedback.Comment = &redacted.Text
	}

	saved, err := o.sessions.AddFeedback(ctx, feedback)
	if err != nil {
		return nil, err
	}

	metrics.FeedbackTotal.WithLabelValues(strconv.Itoa(saved.Rating)).Inc()
	o.publish(ctx, events.New(constant.EventFeedbackReceived, map[string]interface{}{
		"message_id": saved.ChatMessageId.String(),
		"session_id": msg.ChatSessionId.String(),
		"rating":     saved.Rating,
		"state":      string(StateFeedbackReceived),
	}))
	return saved, nil
}

// GetFeedback lists the ratings of one message in a session owned by clientId.
func (o *Orchestrator) GetFeedback(ctx context.Context, clientId string, messageId uuid.UUID) ([]*entity.MessageFeedback, error) {
	const op = "orchestrator.GetFeedback"

	msg, err := o.sessions.Message(ctx, messageId)
	if err != nil {
		return nil, err
	}
	if _, err := o.ownedSession(ctx, op, clientId, msg.ChatSessionId); err != nil {
		return nil, apperror.NotFound(op, "message %s not found", messageId)
	}
	return o.sessions.Feedback(ctx, messageId)
}

// GetHistory returns the whole session, oldest message first.
func (o *Orchestrator) GetHistory(ctx context.Context, clientId string, sessionId uuid.UUID) ([]*entity.ChatMessage, error) {
	const op = "orchestrator.GetHistory"

	if _, err := o.ownedSession(ctx, op, clientId, sessionId); err != nil {
		return nil, err
	}
	return o.sessions.History(ctx, sessionId, 0)
}

// CheckSession reports NotFound unless the session exists and belongs to clientId.
func (o *Orchestrator) CheckSession(ctx context.Context, clientId string, sessionId uuid.UUID) error {
	_, err := o.ownedSession(ctx, "orchestrator.CheckSession", clientId, sessionId)
	return err
}

func (o *Orchestrator) GetPrompt(ctx context.Context, clientId string) (*prompt.Resolved, error) {
	if strings.TrimSpace(clientId) == "" {
		return nil, apperror.Validation("orchestrator.GetPrompt", "client id is required")
	}
	return o.resolver.Resolve(ctx, clientId)
}

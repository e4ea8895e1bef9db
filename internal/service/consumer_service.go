package service

import (
	"context"

	"multimodal-rag-be/internal/constant"
	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/internal/pkg/logger"
	"multimodal-rag-be/pkg/events"
	"multimodal-rag-be/pkg/rag/prompt"
	"multimodal-rag-be/pkg/rag/session"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
	// HandleEvent is also the NATS handler for events from other instances.
	HandleEvent(ctx context.Context, event events.Event) error
}

// consumerService turns lifecycle events into side effects: abandonment rows and
// prompt cache invalidation.
type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	sessions   session.Store
	resolver   prompt.IResolver
	logger     logger.ILogger
	auditLog   logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	sessions session.Store,
	resolver prompt.IResolver,
	log logger.ILogger,
	auditLog logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		sessions:   sessions,
		resolver:   resolver,
		logger:     log,
		auditLog:   auditLog,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	event, err := events.Decode(msg.Payload)
	if err != nil {
		cs.logger.Error("Consumer", "Failed to decode event", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	if err := cs.HandleEvent(ctx, event); err != nil {
		cs.logger.Error("Consumer", "Event handling failed", map[string]interface{}{
			"event": event.EventType(),
			"error": err.Error(),
		})
		msg.Nack()
		return
	}
	msg.Ack()
}

func (cs *consumerService) HandleEvent(ctx context.Context, event events.Event) error {
	switch event.EventType() {
	case constant.EventTurnAbandoned:
		return cs.recordAbandonment(ctx, event)
	case constant.EventPromptUpdated:
		if clientId := events.String(event, "client_id"); clientId != "" {
			cs.resolver.Invalidate(clientId)
		}
		return nil
	default:
		return nil
	}
}

func (cs *consumerService) recordAbandonment(ctx context.Context, event events.Event) error {
	sessionId, err := uuid.Parse(events.String(event, "session_id"))
	if err != nil {
		sessionId = uuid.Nil
	}

	abandonment := &entity.ChatTurnAbandonment{
		ChatSessionId: sessionId,
		ClientId:      events.String(event, "client_id"),
		State:         events.String(event, "state"),
		Reason:        events.String(event, "reason"),
		ErrorKind:     events.String(event, "error_kind"),
	}
	if err := cs.sessions.RecordAbandonment(ctx, abandonment); err != nil {
		return err
	}

	cs.auditLog.Info("Consumer", "Abandoned turn recorded", map[string]interface{}{
		"session_id": sessionId.String(),
		"client_id":  abandonment.ClientId,
		"state":      abandonment.State,
		"reason":     abandonment.Reason,
		"error_kind": abandonment.ErrorKind,
	})
	return nil
}

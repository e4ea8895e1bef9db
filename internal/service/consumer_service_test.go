package service

import (
	"context"
	"testing"
	"time"

	"multimodal-rag-be/internal/constant"
	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/internal/pkg/logger"
	"multimodal-rag-be/internal/repository/memory"
	"multimodal-rag-be/pkg/events"
	"multimodal-rag-be/pkg/rag/prompt"
	"multimodal-rag-be/pkg/rag/session"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsumerRecordsAbandonedTurns(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer bus.Close()

	store := session.NewMemoryStore(session.NewKeyedMutex())
	resolver, err := prompt.NewResolver(prompt.NewMemorySource(), memory.NewPromptCache(time.Hour), entity.ClientPrompt{
		Name: "default", Template: validTemplate,
	}, logger.NewNopLogger(), logger.NewNopLogger())
	require.NoError(t, err)

	consumer := NewConsumerService(bus, constant.TopicTurnEvents, store, resolver, logger.NewNopLogger(), logger.NewNopLogger())
	require.NoError(t, consumer.Consume(ctx))

	sessionId := uuid.New()
	publisher := events.NewBusPublisher(bus, constant.TopicTurnEvents)
	require.NoError(t, publisher.Publish(ctx, events.New(constant.EventTurnAbandoned, map[string]interface{}{
		"session_id": sessionId.String(),
		"client_id":  "acme",
		"state":      "STREAMING",
		"reason":     "disconnected",
		"error_kind": "internal",
	})))
	require.NoError(t, publisher.Publish(ctx, events.New(constant.EventTurnCompleted, map[string]interface{}{
		"session_id": sessionId.String(),
	})))

	require.Eventually(t, func() bool {
		return len(store.Abandonments()) == 1
	}, time.Second, 10*time.Millisecond)

	got := store.Abandonments()[0]
	assert.Equal(t, sessionId, got.ChatSessionId)
	assert.Equal(t, "acme", got.ClientId)
	assert.Equal(t, "STREAMING", got.State)
	assert.Equal(t, "disconnected", got.Reason)
}

func TestConsumerAbandonmentWithoutSession(t *testing.T) {
	store := session.NewMemoryStore(session.NewKeyedMutex())
	consumer := NewConsumerService(nil, "", store, nil, logger.NewNopLogger(), logger.NewNopLogger())

	err := consumer.HandleEvent(context.Background(), events.New(constant.EventTurnAbandoned, map[string]interface{}{
		"session_id": uuid.Nil.String(),
		"client_id":  "acme",
		"state":      "GENERATING",
		"reason":     "generation_failed",
	}))
	require.NoError(t, err)

	require.Len(t, store.Abandonments(), 1)
	assert.Equal(t, uuid.Nil, store.Abandonments()[0].ChatSessionId)
}

func TestConsumerInvalidatesPromptCache(t *testing.T) {
	source := prompt.NewMemorySource()
	resolver, err := prompt.NewResolver(source, memory.NewPromptCache(time.Hour), entity.ClientPrompt{
		Name: "default", Template: validTemplate,
	}, logger.NewNopLogger(), logger.NewNopLogger())
	require.NoError(t, err)
	ctx := context.Background()

	source.Put(&entity.ClientPrompt{ClientId: "acme", Name: "v1", Template: validTemplate, IsActive: true})
	first, err := resolver.Resolve(ctx, "acme")
	require.NoError(t, err)
	require.Equal(t, "v1", first.Name)

	// A write from another instance lands in the shared source without touching this cache.
	source.Put(&entity.ClientPrompt{ClientId: "acme", Name: "v2", Template: validTemplate, IsActive: true})
	stale, err := resolver.Resolve(ctx, "acme")
	require.NoError(t, err)
	require.Equal(t, "v1", stale.Name)

	consumer := NewConsumerService(nil, "", session.NewMemoryStore(session.NewKeyedMutex()), resolver, logger.NewNopLogger(), logger.NewNopLogger())
	require.NoError(t, consumer.HandleEvent(ctx, events.New(constant.EventPromptUpdated, map[string]interface{}{
		"client_id": "acme",
	})))

	fresh, err := resolver.Resolve(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "v2", fresh.Name)
}

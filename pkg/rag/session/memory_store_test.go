package session

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"multimodal-rag-be/internal/constant"
	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userMsg(text string) *entity.ChatMessage {
	return &entity.ChatMessage{Role: constant.ChatMessageRoleUser, Chat: text}
}

func assistantMsg(text string, chunkIds ...string) *entity.ChatMessage {
	m := &entity.ChatMessage{Role: constant.ChatMessageRoleAssistant, Chat: text}
	for _, id := range chunkIds {
		m.Citations = append(m.Citations, &entity.ChatCitation{ChunkId: id, Modality: entity.ModalityText})
	}
	return m
}

func TestAppendAssignsGapFreePositions(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(nil)
	sess, err := s.Create(ctx, "acme", "t")
	require.NoError(t, err)

	out, err := s.Append(ctx, sess.Id, userMsg("q1"), assistantMsg("a1", "chunk-1", "chunk-2"))
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, int64(1), out[0].Position)
	assert.Equal(t, int64(2), out[1].Position)
	assert.Equal(t, []string{"chunk-1", "chunk-2"}, out[1].CitedChunkIds())
	assert.Equal(t, 1, out[1].Citations[1].Rank)
	assert.Equal(t, out[1].Id, out[1].Citations[0].ChatMessageId)

	out, err = s.Append(ctx, sess.Id, userMsg("q2"))
	require.NoError(t, err)
	assert.Equal(t, int64(3), out[0].Position)
}

func TestConcurrentAppendsAreSerialized(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(nil)
	sess, err := s.Create(ctx, "acme", "t")
	require.NoError(t, err)

	const n = 50
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Append(ctx, sess.Id, userMsg(fmt.Sprintf("q%d", i)))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	history, err := s.History(ctx, sess.Id, 0)
	require.NoError(t, err)
	require.Len(t, history, n)
	for i, m := range history {
		assert.Equal(t, int64(i+1), m.Position)
	}
}

func TestHistoryKeepsWholeRecentTurns(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(nil)
	sess, err := s.Create(ctx, "acme", "t")
	require.NoError(t, err)

	for i := 1; i <= 4; i++ {
		_, err := s.Append(ctx, sess.Id, userMsg(fmt.Sprintf("q%d", i)), assistantMsg(fmt.Sprintf("a%d", i)))
		require.NoError(t, err)
	}

	tests := []struct {
		name     string
		maxTurns int
		want     []string
	}{
		{name: "all", maxTurns: 0, want: []string{"q1", "a1", "q2", "a2", "q3", "a3", "q4", "a4"}},
		{name: "last two turns", maxTurns: 2, want: []string{"q3", "a3", "q4", "a4"}},
		{name: "more than stored", maxTurns: 10, want: []string{"q1", "a1", "q2", "a2", "q3", "a3", "q4", "a4"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			history, err := s.History(ctx, sess.Id, tt.maxTurns)
			require.NoError(t, err)

			got := make([]string, len(history))
			for i, m := range history {
				got[i] = m.Chat
			}
			assert.Equal(t, tt.want, got)
			for i := 1; i < len(history); i++ {
				assert.Greater(t, history[i].Position, history[i-1].Position)
			}
		})
	}
}

func TestLastTurnsDropsOrphanAssistant(t *testing.T) {
	msgs := []*entity.ChatMessage{assistantMsg("a0"), userMsg("q1"), assistantMsg("a1")}
	got := lastTurns(msgs, 5)
	require.Len(t, got, 2)
	assert.Equal(t, "q1", got[0].Chat)
}

func TestAppendValidation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(nil)
	sess, err := s.Create(ctx, "acme", "t")
	require.NoError(t, err)

	_, err = s.Append(ctx, sess.Id)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	_, err = s.Append(ctx, sess.Id, &entity.ChatMessage{Role: constant.ChatMessageRoleSystem, Chat: "x"})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	_, err = s.Append(ctx, uuid.New(), userMsg("q"))
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestFeedbackIsAppendOnly(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(nil)
	sess, err := s.Create(ctx, "acme", "t")
	require.NoError(t, err)
	out, err := s.Append(ctx, sess.Id, userMsg("q"), assistantMsg("a"))
	require.NoError(t, err)
	answer := out[1]

	comment := "helpful"
	_, err = s.AddFeedback(ctx, &entity.MessageFeedback{ChatMessageId: answer.Id, Rating: 1, Comment: &comment})
	require.NoError(t, err)
	_, err = s.AddFeedback(ctx, &entity.MessageFeedback{ChatMessageId: answer.Id, Rating: -1})
	require.NoError(t, err)

	fb, err := s.Feedback(ctx, answer.Id)
	require.NoError(t, err)
	require.Len(t, fb, 2)
	assert.Equal(t, 1, fb[0].Rating)
	assert.Equal(t, -1, fb[1].Rating)

	_, err = s.AddFeedback(ctx, &entity.MessageFeedback{ChatMessageId: uuid.New(), Rating: 1})
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))

	_, err = s.Feedback(ctx, uuid.New())
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestStoredMessagesAreIsolatedFromCallers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(nil)
	sess, err := s.Create(ctx, "acme", "t")
	require.NoError(t, err)

	out, err := s.Append(ctx, sess.Id, userMsg("original"))
	require.NoError(t, err)
	out[0].Chat = "tampered"

	m, err := s.Message(ctx, out[0].Id)
	require.NoError(t, err)
	assert.Equal(t, "original", m.Chat)
}

func TestDeleteSession(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(nil)
	sess, err := s.Create(ctx, "acme", "t")
	require.NoError(t, err)
	out, err := s.Append(ctx, sess.Id, userMsg("q"))
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, sess.Id))

	_, err = s.Get(ctx, sess.Id)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
	_, err = s.Message(ctx, out[0].Id)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestDeriveTitle(t *testing.T) {
	long := "How do refunds work for orders that were shipped internationally and then returned late?"

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "What is the refund policy?", want: "What is the refund policy?"},
		{name: "first line only", in: "  Refunds\nmore detail", want: "Refunds"},
		{name: "blank", in: "   ", want: constant.ChatSessionDefaultTitle},
		{name: "truncated", in: long, want: "How do refunds work for orders that were shipped internat..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveTitle(tt.in)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len([]rune(got)), constant.ChatSessionTitleMaxLen)
		})
	}
}

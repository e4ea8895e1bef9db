package session

import (
	"context"
	"sync"
	"time"

	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/pkg/apperror"

	"github.com/google/uuid"
)

type memorySession struct {
	session  *entity.ChatSession
	messages []*entity.ChatMessage
}

// MemoryStore keeps sessions in process memory. Used in tests and when no
// database is configured.
type MemoryStore struct {
	mu           sync.RWMutex
	locker       Locker
	sessions     map[uuid.UUID]*memorySession
	messages     map[uuid.UUID]*entity.ChatMessage
	feedback     map[uuid.UUID][]*entity.MessageFeedback
	abandonments []*entity.ChatTurnAbandonment
	now          func() time.Time
}

func NewMemoryStore(locker Locker) *MemoryStore {
	if locker == nil {
		locker = NewKeyedMutex()
	}
	return &MemoryStore{
		locker:   locker,
		sessions: make(map[uuid.UUID]*memorySession),
		messages: make(map[uuid.UUID]*entity.ChatMessage),
		feedback: make(map[uuid.UUID][]*entity.MessageFeedback),
		now:      time.Now,
	}
}

func (s *MemoryStore) Create(ctx context.Context, clientId, title string) (*entity.ChatSession, error) {
	now := s.now()
	sess := &entity.ChatSession{
		Id:        uuid.New(),
		ClientId:  clientId,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: &now,
	}

	s.mu.Lock()
	s.sessions[sess.Id] = &memorySession{session: sess}
	s.mu.Unlock()

	c := *sess
	return &c, nil
}

func (s *MemoryStore) Get(ctx context.Context, sessionId uuid.UUID) (*entity.ChatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ms, ok := s.sessions[sessionId]
	if !ok {
		return nil, apperror.NotFound("session.Get", "session %s not found", sessionId)
	}
	c := *ms.session
	return &c, nil
}

func (s *MemoryStore) Append(ctx context.Context, sessionId uuid.UUID, msgs ...*entity.ChatMessage) ([]*entity.ChatMessage, error) {
	const op = "session.Append"

	if err := validateAppend(op, msgs); err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, sessionId.String())
	if err != nil {
		return nil, err
	}
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	ms, ok := s.sessions[sessionId]
	if !ok {
		return nil, apperror.NotFound(op, "session %s not found", sessionId)
	}

	var last int64
	if n := len(ms.messages); n > 0 {
		last = ms.messages[n-1].Position
	}

	now := s.now()
	stamp(sessionId, msgs, last, now)

	out := make([]*entity.ChatMessage, len(msgs))
	for i, m := range msgs {
		stored := cloneMessage(m)
		ms.messages = append(ms.messages, stored)
		s.messages[stored.Id] = stored
		out[i] = cloneMessage(stored)
	}
	ms.session.UpdatedAt = &now
	return out, nil
}

func (s *MemoryStore) History(ctx context.Context, sessionId uuid.UUID, maxTurns int) ([]*entity.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ms, ok := s.sessions[sessionId]
	if !ok {
		return nil, apperror.NotFound("session.History", "session %s not found", sessionId)
	}

	tail := lastTurns(ms.messages, maxTurns)
	out := make([]*entity.ChatMessage, len(tail))
	for i, m := range tail {
		out[i] = cloneMessage(m)
	}
	return out, nil
}

func (s *MemoryStore) Message(ctx context.Context, messageId uuid.UUID) (*entity.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.messages[messageId]
	if !ok {
		return nil, apperror.NotFound("session.Message", "message %s not found", messageId)
	}
	return cloneMessage(m), nil
}

func (s *MemoryStore) AddFeedback(ctx context.Context, feedback *entity.MessageFeedback) (*entity.MessageFeedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.messages[feedback.ChatMessageId]; !ok {
		return nil, apperror.NotFound("session.AddFeedback", "message %s not found", feedback.ChatMessageId)
	}

	c := *feedback
	c.Id = uuid.New()
	c.CreatedAt = s.now()
	s.feedback[c.ChatMessageId] = append(s.feedback[c.ChatMessageId], &c)

	out := c
	return &out, nil
}

func (s *MemoryStore) Feedback(ctx context.Context, messageId uuid.UUID) ([]*entity.MessageFeedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.messages[messageId]; !ok {
		return nil, apperror.NotFound("session.Feedback", "message %s not found", messageId)
	}
	out := make([]*entity.MessageFeedback, 0, len(s.feedback[messageId]))
	for _, f := range s.feedback[messageId] {
		c := *f
		out = append(out, &c)
	}
	return out, nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionId uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ms, ok := s.sessions[sessionId]
	if !ok {
		return apperror.NotFound("session.Delete", "session %s not found", sessionId)
	}
	for _, m := range ms.messages {
		delete(s.messages, m.Id)
		delete(s.feedback, m.Id)
	}
	delete(s.sessions, sessionId)
	return nil
}

func (s *MemoryStore) RecordAbandonment(ctx context.Context, abandonment *entity.ChatTurnAbandonment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *abandonment
	if c.Id == uuid.Nil {
		c.Id = uuid.New()
	}
	c.CreatedAt = s.now()
	s.abandonments = append(s.abandonments, &c)
	return nil
}

func (s *MemoryStore) Abandonments() []*entity.ChatTurnAbandonment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*entity.ChatTurnAbandonment(nil), s.abandonments...)
}

func cloneMessage(m *entity.ChatMessage) *entity.ChatMessage {
	c := *m
	c.Citations = make([]*entity.ChatCitation, len(m.Citations))
	for i, cit := range m.Citations {
		cc := *cit
		cc.Modalities = append([]entity.Modality(nil), cit.Modalities...)
		c.Citations[i] = &cc
	}
	return &c
}

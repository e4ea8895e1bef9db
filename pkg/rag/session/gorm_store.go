package session

import (
	"context"
	"errors"
	"time"

	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/internal/repository/specification"
	"multimodal-rag-be/internal/repository/unitofwork"
	"multimodal-rag-be/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// GormStore is the durable Store. Besides the Locker, appends row-lock the session
// and the (chat_session_id, position) unique index rejects any duplicate position.
type GormStore struct {
	uowFactory unitofwork.RepositoryFactory
	locker     Locker
	now        func() time.Time
}

func NewGormStore(uowFactory unitofwork.RepositoryFactory, locker Locker) *GormStore {
	if locker == nil {
		locker = NewKeyedMutex()
	}
	return &GormStore{
		uowFactory: uowFactory,
		locker:     locker,
		now:        time.Now,
	}
}

func (s *GormStore) Create(ctx context.Context, clientId, title string) (*entity.ChatSession, error) {
	now := s.now()
	sess := &entity.ChatSession{
		Id:        uuid.New(),
		ClientId:  clientId,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: &now,
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ChatSessionRepository().Create(ctx, sess); err != nil {
		return nil, apperror.Upstream("session.Create", err)
	}
	return sess, nil
}

func (s *GormStore) Get(ctx context.Context, sessionId uuid.UUID) (*entity.ChatSession, error) {
	const op = "session.Get"

	uow := s.uowFactory.NewUnitOfWork(ctx)
	sess, err := uow.ChatSessionRepository().FindOne(ctx, specification.ByID{ID: sessionId})
	if err != nil {
		return nil, apperror.Upstream(op, err)
	}
	if sess == nil {
		return nil, apperror.NotFound(op, "session %s not found", sessionId)
	}
	return sess, nil
}

func (s *GormStore) Append(ctx context.Context, sessionId uuid.UUID, msgs ...*entity.ChatMessage) (result []*entity.ChatMessage, err error) {
	const op = "session.Append"

	if err := validateAppend(op, msgs); err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, sessionId.String())
	if err != nil {
		return nil, err
	}
	defer unlock()

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, apperror.Upstream(op, err)
	}
	defer func() {
		if r := recover(); r != nil {
			uow.Rollback()
			panic(r)
		}
		if err != nil {
			uow.Rollback()
		}
	}()

	sess, err := uow.ChatSessionRepository().LockForUpdate(ctx, sessionId)
	if err != nil {
		return nil, apperror.Upstream(op, err)
	}
	if sess == nil {
		return nil, apperror.NotFound(op, "session %s not found", sessionId)
	}

	last, err := uow.ChatMessageRepository().MaxPosition(ctx, sessionId)
	if err != nil {
		return nil, apperror.Upstream(op, err)
	}

	now := s.now()
	stamp(sessionId, msgs, last, now)

	for _, m := range msgs {
		if err := uow.ChatMessageRepository().Create(ctx, m); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
				return nil, apperror.Upstream(op, errors.New("concurrent append on session "+sessionId.String()))
			}
			return nil, apperror.Upstream(op, err)
		}
	}

	if err := uow.ChatSessionRepository().Touch(ctx, sess.Id, now); err != nil {
		return nil, apperror.Upstream(op, err)
	}

	if err := uow.Commit(); err != nil {
		return nil, apperror.Upstream(op, err)
	}
	return msgs, nil
}

func (s *GormStore) History(ctx context.Context, sessionId uuid.UUID, maxTurns int) ([]*entity.ChatMessage, error) {
	const op = "session.History"

	if _, err := s.Get(ctx, sessionId); err != nil {
		return nil, err
	}

	specs := []specification.Specification{
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "position", Desc: true},
		specification.WithCitations{},
	}
	if maxTurns > 0 {
		specs = append(specs, specification.Pagination{Limit: maxTurns * 2})
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	newestFirst, err := uow.ChatMessageRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, apperror.Upstream(op, err)
	}

	ordered := make([]*entity.ChatMessage, len(newestFirst))
	for i, m := range newestFirst {
		ordered[len(newestFirst)-1-i] = m
	}
	return lastTurns(ordered, maxTurns), nil
}

func (s *GormStore) Message(ctx context.Context, messageId uuid.UUID) (*entity.ChatMessage, error) {
	const op = "session.Message"

	uow := s.uowFactory.NewUnitOfWork(ctx)
	m, err := uow.ChatMessageRepository().FindOne(ctx,
		specification.ByID{ID: messageId},
		specification.WithCitations{},
	)
	if err != nil {
		return nil, apperror.Upstream(op, err)
	}
	if m == nil {
		return nil, apperror.NotFound(op, "message %s not found", messageId)
	}
	return m, nil
}

func (s *GormStore) AddFeedback(ctx context.Context, feedback *entity.MessageFeedback) (*entity.MessageFeedback, error) {
	const op = "session.AddFeedback"

	if _, err := s.Message(ctx, feedback.ChatMessageId); err != nil {
		return nil, err
	}

	c := *feedback
	c.Id = uuid.New()
	c.CreatedAt = s.now()

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.MessageFeedbackRepository().Create(ctx, &c); err != nil {
		return nil, apperror.Upstream(op, err)
	}
	return &c, nil
}

func (s *GormStore) Feedback(ctx context.Context, messageId uuid.UUID) ([]*entity.MessageFeedback, error) {
	const op = "session.Feedback"

	if _, err := s.Message(ctx, messageId); err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	feedback, err := uow.MessageFeedbackRepository().FindAll(ctx,
		specification.ByChatMessageID{ChatMessageID: messageId},
		specification.OrderBy{Field: "created_at"},
	)
	if err != nil {
		return nil, apperror.Upstream(op, err)
	}
	return feedback, nil
}

func (s *GormStore) Delete(ctx context.Context, sessionId uuid.UUID) (err error) {
	const op = "session.Delete"

	if _, err := s.Get(ctx, sessionId); err != nil {
		return err
	}

	unlock, err := s.locker.Lock(ctx, sessionId.String())
	if err != nil {
		return err
	}
	defer unlock()

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return apperror.Upstream(op, err)
	}
	defer func() {
		if err != nil {
			uow.Rollback()
		}
	}()

	if err := uow.ChatCitationRepository().DeleteByChatSessionId(ctx, sessionId); err != nil {
		return apperror.Upstream(op, err)
	}
	if err := uow.ChatMessageRepository().DeleteByChatSessionId(ctx, sessionId); err != nil {
		return apperror.Upstream(op, err)
	}
	if err := uow.ChatSessionRepository().Delete(ctx, sessionId); err != nil {
		return apperror.Upstream(op, err)
	}
	if err := uow.Commit(); err != nil {
		return apperror.Upstream(op, err)
	}
	return nil
}

func (s *GormStore) RecordAbandonment(ctx context.Context, abandonment *entity.ChatTurnAbandonment) error {
	c := *abandonment
	if c.Id == uuid.Nil {
		c.Id = uuid.New()
	}
	c.CreatedAt = s.now()

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ChatTurnAbandonmentRepository().Create(ctx, &c); err != nil {
		return apperror.Upstream("session.RecordAbandonment", err)
	}
	return nil
}

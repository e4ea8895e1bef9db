package orchestrator

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"multimodal-rag-be/internal/constant"
	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/internal/metrics"
	"multimodal-rag-be/internal/pkg/logger"
	"multimodal-rag-be/pkg/apperror"
	"multimodal-rag-be/pkg/events"
	"multimodal-rag-be/pkg/llm"
	"multimodal-rag-be/pkg/pii"
	"multimodal-rag-be/pkg/rag/assembler"
	"multimodal-rag-be/pkg/rag/prompt"
	"multimodal-rag-be/pkg/rag/search"
	"multimodal-rag-be/pkg/rag/session"
	"multimodal-rag-be/pkg/utils"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const module = "Orchestrator"

type Config struct {
	HistoryTurns   int  // turns offered to the assembler; <= 0 offers all
	RedactEvidence bool // redact retrieved passages before prompt assembly
	EvidenceK      int  // 0 keeps the retriever's k
	// Retry bounds attempts to open the answer stream. Nothing is retried once a
	// chunk has been received.
	Retry utils.RetryPolicy
}

type Dependencies struct {
	Redactor  pii.IRedactor
	Retriever search.IEnsembleRetriever
	Resolver  prompt.IResolver
	Assembler assembler.IAssembler
	Sessions  session.Store
	Generator llm.LLMProvider
	Publisher events.Publisher
	Logger    logger.ILogger
}

type FeedbackRequest struct {
	MessageId uuid.UUID
	Rating    int // 1 or -1
	Label     string
	Comment   *string
}

type IOrchestrator interface {
	CreateSession(ctx context.Context, clientId, title string) (*entity.ChatSession, error)
	DeleteSession(ctx context.Context, clientId string, sessionId uuid.UUID) error
	SubmitQuery(ctx context.Context, req TurnRequest, sink Sink) (*TurnResult, error)
	SubmitFeedback(ctx context.Context, req FeedbackRequest) (*entity.MessageFeedback, error)
	GetFeedback(ctx context.Context, clientId string, messageId uuid.UUID) ([]*entity.MessageFeedback, error)
	GetHistory(ctx context.Context, clientId string, sessionId uuid.UUID) ([]*entity.ChatMessage, error)
	CheckSession(ctx context.Context, clientId string, sessionId uuid.UUID) error
	GetPrompt(ctx context.Context, clientId string) (*prompt.Resolved, error)
}

type Orchestrator struct {
	redactor  pii.IRedactor
	retriever search.IEnsembleRetriever
	resolver  prompt.IResolver
	assembler assembler.IAssembler
	sessions  session.Store
	generator llm.LLMProvider
	publisher events.Publisher
	config    Config
	logger    logger.ILogger
	tracer    trace.Tracer
	now       func() time.Time
}

func NewOrchestrator(deps Dependencies, config Config) *Orchestrator {
	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.FanOut{}
	}
	return &Orchestrator{
		redactor:  deps.Redactor,
		retriever: deps.Retriever,
		resolver:  deps.Resolver,
		assembler: deps.Assembler,
		sessions:  deps.Sessions,
		generator: deps.Generator,
		publisher: publisher,
		config:    config,
		logger:    deps.Logger,
		tracer:    otel.Tracer("multimodal-rag-be/orchestrator"),
		now:       time.Now,
	}
}

// turn accumulates what a single SubmitQuery call has been through.
type turn struct {
	req       TurnRequest
	sessionId uuid.UUID
	startedAt time.Time
	states    []State
	stages    []StageTiming
	warnings  []Warning
}

func (t *turn) warn(kind apperror.Kind, message string) {
	t.warnings = append(t.warnings, Warning{Kind: kind, Message: message})
}

// stage runs fn inside a span named after state and records the state on success.
func (o *Orchestrator) stage(ctx context.Context, t *turn, state State, fn func(ctx context.Context) error) error {
	ctx, span := o.tracer.Start(ctx, "turn."+strings.ToLower(string(state)))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	metrics.StageDuration.WithLabelValues(string(state)).Observe(elapsed.Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	t.states = append(t.states, state)
	t.stages = append(t.stages, StageTiming{State: state, DurationMs: elapsed.Milliseconds()})
	return nil
}

func (o *Orchestrator) SubmitQuery(ctx context.Context, req TurnRequest, sink Sink) (*TurnResult, error) {
	const op = "orchestrator.SubmitQuery"

	ctx, span := o.tracer.Start(ctx, "SubmitQuery", trace.WithAttributes(
		attribute.String("client_id", req.ClientId),
		attribute.String("session_id", req.SessionId.String()),
	))
	defer span.End()

	t := &turn{req: req, sessionId: req.SessionId, startedAt: o.now()}

	// RECEIVED
	var sess *entity.ChatSession
	err := o.stage(ctx, t, StateReceived, func(ctx context.Context) error {
		if strings.TrimSpace(req.ClientId) == "" {
			return apperror.Validation(op, "client id is required")
		}
		if strings.TrimSpace(req.Question) == "" {
			return apperror.Validation(op, "question must not be empty")
		}
		for _, m := range req.ModalityHint {
			if !m.Valid() {
				return apperror.Validation(op, "unknown modality %q", m)
			}
		}
		if req.SessionId == uuid.Nil {
			return nil
		}
		s, err := o.ownedSession(ctx, op, req.ClientId, req.SessionId)
		if err != nil {
			return err
		}
		sess = s
		return nil
	})
	if err != nil {
		return nil, o.fail(ctx, t, StateReceived, err)
	}

	// REDACTED
	var question pii.Result
	_ = o.stage(ctx, t, StateRedacted, func(ctx context.Context) error {
		question = o.redactor.Redact(req.Question)
		countRedactions("question", question.Spans)
		if question.Degraded {
			t.warn(apperror.KindPartialEvidence, "PII detector unavailable; question passed through unredacted")
		}
		return nil
	})

	query := search.Query{
		Text:        question.Text,
		ClientId:    req.ClientId,
		DocumentIds: req.DocumentIds,
		Modalities:  req.ModalityHint,
		K:           o.config.EvidenceK,
	}

	// EMBEDDED
	embedded := &search.Embedded{}
	err = o.stage(ctx, t, StateEmbedded, func(ctx context.Context) error {
		e, err := o.retriever.Embed(ctx, query)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			o.logger.Warn(module, "Embedding failed, continuing without evidence", map[string]interface{}{
				"client_id": req.ClientId,
				"error":     err.Error(),
			})
			t.warn(apperror.KindPartialEvidence, "query embedding failed: "+err.Error())
			return nil
		}
		embedded = e
		return nil
	})
	if err != nil {
		return nil, o.abandon(ctx, t, StateEmbedded, ReasonCanceled, err)
	}

	// RETRIEVED
	var retrieved *search.Result
	err = o.stage(ctx, t, StateRetrieved, func(ctx context.Context) error {
		r, err := o.retriever.Search(ctx, query, embedded)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			t.warn(apperror.KindPartialEvidence, "evidence search failed: "+err.Error())
			r = &search.Result{Degraded: embedded.Degraded}
		}
		for _, d := range r.Degraded {
			metrics.DegradedModalities.WithLabelValues(d.Modality.String(), d.Phase).Inc()
			t.warn(apperror.KindPartialEvidence, string(d.Modality)+" modality degraded at "+d.Phase+": "+d.Reason)
		}
		if o.config.RedactEvidence {
			r.Results = o.redactEvidence(r.Results)
		}
		retrieved = r
		return nil
	})
	if err != nil {
		return nil, o.abandon(ctx, t, StateRetrieved, ReasonCanceled, err)
	}

	// CONTEXT_BUILT
	var built *assembler.Context
	var resolved *prompt.Resolved
	err = o.stage(ctx, t, StateContextBuilt, func(ctx context.Context) error {
		var err error
		resolved, err = o.resolver.Resolve(ctx, req.ClientId)
		if err != nil {
			return err
		}
		if resolved.DefaultUsed {
			metrics.PromptDefaultFallbacks.Inc()
		}

		var history []*entity.ChatMessage
		if sess != nil {
			history, err = o.sessions.History(ctx, sess.Id, o.config.HistoryTurns)
			if err != nil {
				return err
			}
		}

		built, err = o.assembler.Assemble(assembler.Input{
			Prompt:   resolved,
			Question: question.Text,
			History:  history,
			Evidence: retrieved.Results,
		})
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, o.abandon(ctx, t, StateContextBuilt, ReasonCanceled, ctx.Err())
		}
		return nil, o.fail(ctx, t, StateContextBuilt, err)
	}

	// GENERATING
	var stream llm.ChunkStream
	err = o.stage(ctx, t, StateGenerating, func(ctx context.Context) error {
		var err error
		stream, err = o.openStream(ctx, llm.Request{
			SystemPrompt: built.SystemPrompt,
			Messages:     []llm.Message{{Role: constant.ChatMessageRoleUser, Content: built.UserPrompt}},
		})
		return err
	})
	if err != nil {
		return nil, o.abandon(ctx, t, StateGenerating, reasonFor(ctx, ReasonGenerationFailed), upstreamOr(ctx, op, err))
	}

	// STREAMING
	var answer strings.Builder
	reason := ReasonGenerationFailed
	err = o.stage(ctx, t, StateStreaming, func(ctx context.Context) error {
		defer stream.Close()
		for {
			if err := ctx.Err(); err != nil {
				reason = ReasonCanceled
				return err
			}
			chunk, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				reason = reasonFor(ctx, ReasonGenerationFailed)
				return upstreamOr(ctx, op, err)
			}
			answer.WriteString(chunk)
			if sink == nil {
				continue
			}
			if err := sink.Chunk(chunk); err != nil {
				reason = ReasonDisconnected
				return err
			}
		}
		if strings.TrimSpace(answer.String()) == "" {
			return apperror.New(apperror.KindUpstream, op, "generation returned an empty answer")
		}
		return nil
	})
	if err != nil {
		return nil, o.abandon(ctx, t, StateStreaming, reason, err)
	}

	// PERSISTED
	outputAt := o.now()
	answerText := o.redactor.Redact(answer.String())
	countRedactions("answer", answerText.Spans)

	var appended []*entity.ChatMessage
	err = o.stage(ctx, t, StatePersisted, func(ctx context.Context) error {
		if sess == nil {
			s, err := o.sessions.Create(ctx, req.ClientId, session.DeriveTitle(question.Text))
			if err != nil {
				return err
			}
			sess = s
			t.sessionId = s.Id
		}

		userMsg := &entity.ChatMessage{
			Role:     constant.ChatMessageRoleUser,
			Chat:     question.Text,
			InputAt:  t.startedAt,
			OutputAt: t.startedAt,
		}
		assistantMsg := &entity.ChatMessage{
			Role:       constant.ChatMessageRoleAssistant,
			Chat:       answerText.Text,
			Citations:  entity.CitationsFromResults(built.Evidence),
			InputAt:    t.startedAt,
			OutputAt:   outputAt,
			DurationMs: outputAt.Sub(t.startedAt).Milliseconds(),
		}

		var err error
		appended, err = o.sessions.Append(ctx, sess.Id, userMsg, assistantMsg)
		return err
	})
	if err != nil {
		return nil, o.abandon(ctx, t, StatePersisted, reasonFor(ctx, ReasonPersistFailed), err)
	}

	result := &TurnResult{
		SessionId:         sess.Id,
		UserMessage:       appended[0],
		AssistantMessage:  appended[1],
		Evidence:          built.Evidence,
		Citations:         appended[1].Citations,
		Degraded:          retrieved.Degraded,
		Warnings:          t.warnings,
		DefaultPromptUsed: resolved.DefaultUsed,
		States:            t.states,
		Timing: Timing{
			InputAt:  t.startedAt,
			OutputAt: outputAt,
			TotalMs:  outputAt.Sub(t.startedAt).Milliseconds(),
			Stages:   t.stages,
		},
		Tokens:          built.Tokens,
		DroppedHistory:  built.DroppedHistory,
		DroppedEvidence: built.DroppedEvidence,
	}

	metrics.TurnsTotal.WithLabelValues("persisted").Inc()
	span.SetAttributes(attribute.String("session_id", sess.Id.String()))
	o.logger.Info(module, "Turn persisted", map[string]interface{}{
		"session_id":   sess.Id.String(),
		"client_id":    req.ClientId,
		"evidence":     len(built.Evidence),
		"degraded":     len(retrieved.Degraded),
		"default_used": resolved.DefaultUsed,
		"total_ms":     result.Timing.TotalMs,
	})
	o.publish(ctx, events.New(constant.EventTurnCompleted, map[string]interface{}{
		"session_id":           sess.Id.String(),
		"client_id":            req.ClientId,
		"assistant_message_id": result.AssistantMessage.Id.String(),
		"evidence":             len(built.Evidence),
		"total_ms":             result.Timing.TotalMs,
	}))
	return result, nil
}

// fail rejects a turn that never reached generation.
func (o *Orchestrator) fail(ctx context.Context, t *turn, state State, err error) error {
	metrics.TurnsTotal.WithLabelValues("rejected").Inc()
	o.logger.Warn(module, "Turn rejected", map[string]interface{}{
		"client_id": t.req.ClientId,
		"state":     string(state),
		"kind":      string(apperror.KindOf(err)),
		"error":     err.Error(),
	})
	o.publish(ctx, events.New(constant.EventTurnFailed, map[string]interface{}{
		"session_id": t.sessionId.String(),
		"client_id":  t.req.ClientId,
		"state":      string(state),
		"error_kind": string(apperror.KindOf(err)),
	}))
	return err
}

// abandon stops a turn without persisting any of its messages. The abandonment itself
// is recorded by whoever consumes turn.abandoned.
func (o *Orchestrator) abandon(ctx context.Context, t *turn, state State, reason string, err error) error {
	metrics.TurnsTotal.WithLabelValues("abandoned").Inc()
	o.logger.Warn(module, "Turn abandoned", map[string]interface{}{
		"session_id": t.sessionId.String(),
		"client_id":  t.req.ClientId,
		"state":      string(state),
		"reason":     reason,
		"error":      err.Error(),
	})
	o.publish(ctx, events.New(constant.EventTurnAbandoned, map[string]interface{}{
		"session_id": t.sessionId.String(),
		"client_id":  t.req.ClientId,
		"state":      string(state),
		"reason":     reason,
		"error_kind": string(apperror.KindOf(err)),
	}))
	return &AbandonError{SessionId: t.sessionId, State: state, Reason: reason, Err: err}
}

// publish outlives the request context so a disconnect still gets recorded.
func (o *Orchestrator) publish(ctx context.Context, event events.Event) {
	if err := o.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		o.logger.Error(module, "Failed to publish event", map[string]interface{}{
			"event": event.EventType(),
			"error": err.Error(),
		})
	}
}

func (o *Orchestrator) redactEvidence(results []*entity.RetrievalResult) []*entity.RetrievalResult {
	out := make([]*entity.RetrievalResult, len(results))
	for i, r := range results {
		c := r.Clone()
		red := o.redactor.Redact(c.Content)
		countRedactions("evidence", red.Spans)
		c.Content = red.Text
		out[i] = c
	}
	return out
}

func (o *Orchestrator) ownedSession(ctx context.Context, op, clientId string, sessionId uuid.UUID) (*entity.ChatSession, error) {
	s, err := o.sessions.Get(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	// Another client's session is reported as missing.
	if clientId != "" && s.ClientId != clientId {
		return nil, apperror.NotFound(op, "session %s not found", sessionId)
	}
	return s, nil
}

func countRedactions(target string, spans []pii.Span) {
	for _, s := range spans {
		metrics.Redactions.WithLabelValues(string(s.Category), target).Inc()
	}
}

// openStream opens the generation stream and waits for its first chunk, retrying
// both steps under the configured policy. The returned stream replays that chunk.
func (o *Orchestrator) openStream(ctx context.Context, req llm.Request) (llm.ChunkStream, error) {
	attempt := 0
	return utils.Retry(ctx, o.config.Retry, func() (llm.ChunkStream, error) {
		attempt++
		stream, err := o.generator.Stream(ctx, req)
		if err == nil {
			var chunk string
			chunk, err = stream.Recv()
			if err == nil || errors.Is(err, io.EOF) {
				return &primedStream{ChunkStream: stream, first: chunk, firstErr: err}, nil
			}
			stream.Close()
		}

		if ctx.Err() != nil || !retryable(err) {
			return nil, utils.Permanent(err)
		}
		o.logger.Warn(module, "Generation failed before the first chunk, retrying", map[string]interface{}{
			"provider": o.generator.Name(),
			"attempt":  attempt,
			"error":    err.Error(),
		})
		return nil, err
	})
}

// retryable rejects errors another attempt cannot fix.
func retryable(err error) bool {
	switch apperror.KindOf(err) {
	case apperror.KindValidation, apperror.KindConfiguration, apperror.KindNotFound:
		return false
	}
	return true
}

// primedStream hands out a chunk that was read ahead before the rest of the stream.
type primedStream struct {
	llm.ChunkStream
	first    string
	firstErr error
	replayed bool
}

func (p *primedStream) Recv() (string, error) {
	if !p.replayed {
		p.replayed = true
		return p.first, p.firstErr
	}
	return p.ChunkStream.Recv()
}

func reasonFor(ctx context.Context, fallback string) string {
	if ctx.Err() != nil {
		return ReasonCanceled
	}
	return fallback
}

func upstreamOr(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if apperror.KindOf(err) != apperror.KindInternal {
		return err
	}
	return apperror.Upstream(op, err)
}

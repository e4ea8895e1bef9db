package orchestrator

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"multimodal-rag-be/internal/constant"
	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/internal/pkg/logger"
	"multimodal-rag-be/internal/repository/memory"
	"multimodal-rag-be/pkg/apperror"
	"multimodal-rag-be/pkg/events"
	"multimodal-rag-be/pkg/llm"
	"multimodal-rag-be/pkg/pii"
	"multimodal-rag-be/pkg/rag/assembler"
	"multimodal-rag-be/pkg/rag/prompt"
	"multimodal-rag-be/pkg/rag/search"
	"multimodal-rag-be/pkg/rag/session"
	"multimodal-rag-be/pkg/utils"
	"multimodal-rag-be/pkg/vectorstore"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct{}

func (fakeGateway) Embed(ctx context.Context, input string, modality entity.Modality) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (fakeGateway) Validate(ctx context.Context, expected map[entity.Modality]int) error {
	return nil
}

func (fakeGateway) Modalities() []entity.Modality {
	return []entity.Modality{entity.ModalityText, entity.ModalityImage}
}

type slowStore struct {
	vectorstore.IVectorStore
	slow  entity.Modality
	delay time.Duration
}

func (s *slowStore) Query(ctx context.Context, vector []float32, modality entity.Modality, k int, filter vectorstore.Filter) ([]*entity.RetrievalResult, error) {
	if modality == s.slow {
		time.Sleep(s.delay)
	}
	return s.IVectorStore.Query(ctx, vector, modality, k, filter)
}

// scriptedLLM answers every request with the same chunks and remembers what it saw.
// The first failures calls fail with err; failures == 0 with err set fails them all.
// recvErr makes a failing call open fine and break on its first Recv instead.
// midErr ends every stream with an error after its chunks.
type scriptedLLM struct {
	mu       sync.Mutex
	chunks   []string
	err      error
	failures int
	recvErr  bool
	midErr   error
	requests []llm.Request
}

func (s *scriptedLLM) Name() string { return "scripted" }

func (s *scriptedLLM) Stream(ctx context.Context, req llm.Request, opts ...llm.Option) (llm.ChunkStream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if s.err != nil && (s.failures == 0 || len(s.requests) <= s.failures) {
		if s.recvErr {
			return &brokenStream{err: s.err}, nil
		}
		return nil, s.err
	}
	if s.midErr != nil {
		return &brokenStream{chunks: s.chunks, err: s.midErr}, nil
	}
	return llm.NewSliceStream(s.chunks...), nil
}

func (s *scriptedLLM) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// brokenStream yields its chunks and then err.
type brokenStream struct {
	chunks []string
	err    error
}

func (b *brokenStream) Recv() (string, error) {
	if len(b.chunks) == 0 {
		return "", b.err
	}
	c := b.chunks[0]
	b.chunks = b.chunks[1:]
	return c, nil
}

func (b *brokenStream) Close() error { return nil }

func (s *scriptedLLM) last() llm.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

type harness struct {
	orch     *Orchestrator
	vectors  *vectorstore.MemoryStore
	sessions *session.MemoryStore
	events   *events.Recorder
	llm      *scriptedLLM
}

// vectorAt returns a unit vector whose cosine with {1, 0} is sim.
func vectorAt(sim float64) []float32 {
	return []float32{float32(sim), float32(math.Sqrt(1 - sim*sim))}
}

func newHarness(t *testing.T, imageDelay time.Duration) *harness {
	t.Helper()

	mem, err := vectorstore.NewMemoryStore(
		vectorstore.Space{Modality: entity.ModalityText, Dimension: 2, Metric: vectorstore.MetricCosine},
		vectorstore.Space{Modality: entity.ModalityImage, Dimension: 2, Metric: vectorstore.MetricCosine},
	)
	require.NoError(t, err)
	require.NoError(t, mem.Add(
		&entity.ChunkEmbedding{ChunkId: "refund-text", Modality: entity.ModalityText, ClientId: "acme", DocumentId: "policy.pdf", Page: 2, Content: "Refunds are issued within 30 days of purchase.", Vector: vectorAt(0.82)},
		&entity.ChunkEmbedding{ChunkId: "refund-chart", Modality: entity.ModalityImage, ClientId: "acme", DocumentId: "policy.pdf", Page: 3, Content: "Chart of refund volume by month", Vector: vectorAt(0.4)},
	))

	var store vectorstore.IVectorStore = mem
	cfg := search.DefaultConfig()
	if imageDelay > 0 {
		store = &slowStore{IVectorStore: mem, slow: entity.ModalityImage, delay: imageDelay}
		cfg.Timeouts[entity.ModalityImage] = 30 * time.Millisecond
	}

	log := logger.NewNopLogger()
	source := prompt.NewMemorySource()
	source.Put(&entity.ClientPrompt{
		ClientId:     "acme",
		Name:         "acme-support",
		SystemPrompt: "You are Acme's support assistant.",
		Template:     "Evidence:\n{{evidence}}\nHistory:\n{{history}}\nQuestion: {{question}}",
		IsActive:     true,
	})
	resolver, err := prompt.NewResolver(source, memory.NewPromptCache(time.Minute), entity.ClientPrompt{
		Name:         "default",
		SystemPrompt: "Answer from the evidence.",
		Template:     "{{evidence}}\n{{history}}\n{{question}}",
	}, log)
	require.NoError(t, err)

	asm, err := assembler.NewAssembler(assembler.Budget{TotalTokens: 4096, PromptReserveRatio: 0.25, EvidenceCapRatio: 0.45}, nil)
	require.NoError(t, err)

	h := &harness{
		vectors:  mem,
		sessions: session.NewMemoryStore(session.NewKeyedMutex()),
		events:   &events.Recorder{},
		llm:      &scriptedLLM{chunks: []string{"Refunds are issued ", "within 30 days [1]."}},
	}
	h.orch = NewOrchestrator(Dependencies{
		Redactor:  pii.NewRedactor(),
		Retriever: search.NewEnsembleRetriever(fakeGateway{}, store, cfg, log),
		Resolver:  resolver,
		Assembler: asm,
		Sessions:  h.sessions,
		Generator: h.llm,
		Publisher: h.events,
		Logger:    log,
	}, Config{
		HistoryTurns:   10,
		RedactEvidence: true,
		Retry:          utils.RetryPolicy{MaxTries: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond},
	})
	return h
}

type collectSink struct {
	chunks []string
	failAt int // 1-based chunk that fails; 0 never fails
}

func (s *collectSink) Chunk(text string) error {
	if s.failAt > 0 && len(s.chunks)+1 == s.failAt {
		return errors.New("client went away")
	}
	s.chunks = append(s.chunks, text)
	return nil
}

func TestSubmitQueryRefundPolicy(t *testing.T) {
	h := newHarness(t, 0)
	sink := &collectSink{}

	res, err := h.orch.SubmitQuery(context.Background(), TurnRequest{
		ClientId: "acme",
		Question: "What is the refund policy?",
	}, sink)
	require.NoError(t, err)

	require.Len(t, res.Evidence, 2)
	assert.Equal(t, "refund-text", res.Evidence[0].ChunkId)
	assert.Equal(t, "refund-chart", res.Evidence[1].ChunkId)
	assert.Empty(t, res.Degraded)
	assert.False(t, res.DefaultPromptUsed)

	assert.Equal(t, []string{"Refunds are issued ", "within 30 days [1]."}, sink.chunks)
	assert.Equal(t, "Refunds are issued within 30 days [1].", res.AssistantMessage.Chat)
	require.NotEmpty(t, res.Citations)
	assert.Equal(t, "refund-text", res.Citations[0].ChunkId)
	assert.Equal(t, 0, res.Citations[0].Rank)

	assert.Equal(t, []State{
		StateReceived, StateRedacted, StateEmbedded, StateRetrieved,
		StateContextBuilt, StateGenerating, StateStreaming, StatePersisted,
	}, res.States)
	assert.Len(t, res.Timing.Stages, len(res.States))
	assert.False(t, res.Timing.OutputAt.Before(res.Timing.InputAt))

	history, err := h.orch.GetHistory(context.Background(), "acme", res.SessionId)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, constant.ChatMessageRoleUser, history[0].Role)
	assert.Equal(t, "What is the refund policy?", history[0].Chat)
	assert.Equal(t, constant.ChatMessageRoleAssistant, history[1].Role)
	assert.Equal(t, []int64{1, 2}, []int64{history[0].Position, history[1].Position})

	req := h.llm.last()
	assert.Equal(t, "You are Acme's support assistant.", req.SystemPrompt)
	require.Len(t, req.Messages, 1)
	assert.Contains(t, req.Messages[0].Content, "Refunds are issued within 30 days of purchase.")
	assert.Contains(t, req.Messages[0].Content, "Question: What is the refund policy?")

	sess, err := h.sessions.Get(context.Background(), res.SessionId)
	require.NoError(t, err)
	assert.Equal(t, "What is the refund policy?", sess.Title)

	assert.Len(t, h.events.OfType(constant.EventTurnCompleted), 1)
}

func TestSubmitQueryCarriesHistoryIntoNextTurn(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()

	first, err := h.orch.SubmitQuery(ctx, TurnRequest{ClientId: "acme", Question: "What is the refund policy?"}, nil)
	require.NoError(t, err)

	second, err := h.orch.SubmitQuery(ctx, TurnRequest{SessionId: first.SessionId, ClientId: "acme", Question: "Does it cover sale items?"}, nil)
	require.NoError(t, err)
	assert.Equal(t, first.SessionId, second.SessionId)
	assert.Equal(t, int64(3), second.UserMessage.Position)

	prompt := h.llm.last().Messages[0].Content
	assert.Contains(t, prompt, "User: What is the refund policy?")
	assert.Contains(t, prompt, "Assistant: Refunds are issued within 30 days [1].")
}

func TestSubmitQueryRedactsBeforeEmbeddingAndStorage(t *testing.T) {
	h := newHarness(t, 0)
	h.llm.chunks = []string{"Call us on +1 415 555 0100."}

	res, err := h.orch.SubmitQuery(context.Background(), TurnRequest{
		ClientId: "acme",
		Question: "I am jane@example.com, what is the refund policy?",
	}, nil)
	require.NoError(t, err)

	assert.NotContains(t, res.UserMessage.Chat, "jane@example.com")
	assert.Contains(t, res.UserMessage.Chat, "[REDACTED_EMAIL]")
	assert.NotContains(t, h.llm.last().Messages[0].Content, "jane@example.com")
	assert.Equal(t, "Call us on [REDACTED_PHONE].", res.AssistantMessage.Chat)
}

func TestSubmitQueryDisconnectMidStream(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()

	prior, err := h.orch.SubmitQuery(ctx, TurnRequest{ClientId: "acme", Question: "What is the refund policy?"}, nil)
	require.NoError(t, err)

	h.llm.chunks = []string{"Sale items ", "are final ", "sale."}
	_, err = h.orch.SubmitQuery(ctx, TurnRequest{SessionId: prior.SessionId, ClientId: "acme", Question: "And sale items?"}, &collectSink{failAt: 2})
	require.Error(t, err)

	var abandoned *AbandonError
	require.ErrorAs(t, err, &abandoned)
	assert.Equal(t, StateStreaming, abandoned.State)
	assert.Equal(t, ReasonDisconnected, abandoned.Reason)

	history, err := h.orch.GetHistory(ctx, "acme", prior.SessionId)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, prior.AssistantMessage.Id, history[1].Id)

	got := h.events.OfType(constant.EventTurnAbandoned)
	require.Len(t, got, 1)
	assert.Equal(t, ReasonDisconnected, events.String(got[0], "reason"))
	assert.Equal(t, prior.SessionId.String(), events.String(got[0], "session_id"))
}

func TestSubmitQueryCanceledContext(t *testing.T) {
	h := newHarness(t, 0)
	ctx, cancel := context.WithCancel(context.Background())

	sink := SinkFunc(func(text string) error {
		cancel()
		return nil
	})
	h.llm.chunks = []string{"one ", "two ", "three"}

	_, err := h.orch.SubmitQuery(ctx, TurnRequest{ClientId: "acme", Question: "What is the refund policy?"}, sink)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	var abandoned *AbandonError
	require.ErrorAs(t, err, &abandoned)
	assert.Equal(t, ReasonCanceled, abandoned.Reason)
	assert.Empty(t, h.events.OfType(constant.EventTurnCompleted))
}

func TestSubmitQueryImageTimeoutDegrades(t *testing.T) {
	h := newHarness(t, 2*time.Second)

	start := time.Now()
	res, err := h.orch.SubmitQuery(context.Background(), TurnRequest{ClientId: "acme", Question: "What is the refund policy?"}, nil)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)

	require.Len(t, res.Evidence, 1)
	assert.Equal(t, "refund-text", res.Evidence[0].ChunkId)
	require.Len(t, res.Degraded, 1)
	assert.Equal(t, entity.ModalityImage, res.Degraded[0].Modality)
	assert.Equal(t, "timeout", res.Degraded[0].Reason)

	require.NotEmpty(t, res.Warnings)
	assert.Equal(t, apperror.KindPartialEvidence, res.Warnings[0].Kind)
	assert.Contains(t, res.States, StatePersisted)
}

func TestSubmitQueryGenerationFailureAbandons(t *testing.T) {
	h := newHarness(t, 0)
	h.llm.err = errors.New("connection refused")

	_, err := h.orch.SubmitQuery(context.Background(), TurnRequest{ClientId: "acme", Question: "What is the refund policy?"}, nil)
	require.Error(t, err)
	assert.Equal(t, apperror.KindUpstream, apperror.KindOf(err))

	var abandoned *AbandonError
	require.ErrorAs(t, err, &abandoned)
	assert.Equal(t, StateGenerating, abandoned.State)
	assert.Equal(t, uuid.Nil, abandoned.SessionId)
	assert.Len(t, h.events.OfType(constant.EventTurnAbandoned), 1)
	assert.Equal(t, 3, h.llm.calls())
}

func TestSubmitQueryRetriesGenerationBeforeFirstChunk(t *testing.T) {
	tests := []struct {
		name    string
		recvErr bool
	}{
		{name: "stream open fails once"},
		{name: "first chunk fails once", recvErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, 0)
			h.llm.err = apperror.Upstream("ollama.Stream", errors.New("503 service unavailable"))
			h.llm.failures = 1
			h.llm.recvErr = tt.recvErr
			sink := &collectSink{}

			res, err := h.orch.SubmitQuery(context.Background(), TurnRequest{ClientId: "acme", Question: "What is the refund policy?"}, sink)
			require.NoError(t, err)

			assert.Equal(t, 2, h.llm.calls())
			assert.Equal(t, []string{"Refunds are issued ", "within 30 days [1]."}, sink.chunks)
			assert.Equal(t, "Refunds are issued within 30 days [1].", res.AssistantMessage.Chat)
			assert.Empty(t, h.events.OfType(constant.EventTurnAbandoned))
		})
	}
}

func TestSubmitQueryDoesNotRetryAfterFirstChunk(t *testing.T) {
	h := newHarness(t, 0)
	h.llm.chunks = []string{"Refunds are "}
	h.llm.midErr = errors.New("stream reset")
	sink := &collectSink{}

	_, err := h.orch.SubmitQuery(context.Background(), TurnRequest{ClientId: "acme", Question: "What is the refund policy?"}, sink)
	require.Error(t, err)

	var abandoned *AbandonError
	require.ErrorAs(t, err, &abandoned)
	assert.Equal(t, StateStreaming, abandoned.State)
	assert.Equal(t, 1, h.llm.calls())
	assert.Equal(t, []string{"Refunds are "}, sink.chunks)
}

func TestSubmitQueryValidationFromGeneratorIsNotRetried(t *testing.T) {
	h := newHarness(t, 0)
	h.llm.err = apperror.Validation("openai.Stream", "prompt exceeds the model context")

	_, err := h.orch.SubmitQuery(context.Background(), TurnRequest{ClientId: "acme", Question: "What is the refund policy?"}, nil)
	require.Error(t, err)
	assert.Equal(t, 1, h.llm.calls())
}

func TestSubmitQueryWarnsWhenDetectorUnavailable(t *testing.T) {
	h := newHarness(t, 0)
	h.orch.redactor = pii.NewDisabledRedactor()

	res, err := h.orch.SubmitQuery(context.Background(), TurnRequest{ClientId: "acme", Question: "What is the refund policy?"}, nil)
	require.NoError(t, err)

	assert.Contains(t, res.States, StatePersisted)
	require.NotEmpty(t, res.Warnings)
	var found bool
	for _, w := range res.Warnings {
		if w.Kind == apperror.KindPartialEvidence && strings.Contains(w.Message, "PII detector unavailable") {
			found = true
		}
	}
	assert.True(t, found, "warnings: %+v", res.Warnings)

	history, err := h.orch.GetHistory(context.Background(), "acme", res.SessionId)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestSubmitQueryRedactsEvidenceBeforePrompt(t *testing.T) {
	h := newHarness(t, 0)
	require.NoError(t, h.vectors.Add(&entity.ChunkEmbedding{
		ChunkId:  "refund-contact",
		Modality: entity.ModalityText,
		ClientId: "acme",
		Content:  "Refund disputes go to claims@acme.example or +1 415 555 0199.",
		Vector:   vectorAt(0.9),
	}))

	res, err := h.orch.SubmitQuery(context.Background(), TurnRequest{ClientId: "acme", Question: "Who handles refund disputes?"}, nil)
	require.NoError(t, err)
	require.NotEmpty(t, res.Evidence)
	assert.Equal(t, "refund-contact", res.Evidence[0].ChunkId)

	prompt := h.llm.last().Messages[0].Content
	assert.NotContains(t, prompt, "claims@acme.example")
	assert.NotContains(t, prompt, "555 0199")
	assert.Contains(t, prompt, "Refund disputes go to [REDACTED_EMAIL] or [REDACTED_PHONE].")

	stored, err := h.vectors.Query(context.Background(), []float32{1, 0}, entity.ModalityText, 1, vectorstore.Filter{ClientId: "acme"})
	require.NoError(t, err)
	assert.Contains(t, stored[0].Content, "claims@acme.example")
}

func TestSubmitQueryEmptyAnswerAbandons(t *testing.T) {
	h := newHarness(t, 0)
	h.llm.chunks = []string{"  "}

	_, err := h.orch.SubmitQuery(context.Background(), TurnRequest{ClientId: "acme", Question: "What is the refund policy?"}, nil)
	require.Error(t, err)
	assert.Equal(t, apperror.KindUpstream, apperror.KindOf(err))
}

func TestSubmitQueryRejections(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()

	owned, err := h.orch.CreateSession(ctx, "globex", "")
	require.NoError(t, err)

	tests := []struct {
		name string
		req  TurnRequest
		kind apperror.Kind
	}{
		{name: "empty question", req: TurnRequest{ClientId: "acme", Question: "  "}, kind: apperror.KindValidation},
		{name: "missing client", req: TurnRequest{Question: "hi"}, kind: apperror.KindValidation},
		{name: "unknown modality", req: TurnRequest{ClientId: "acme", Question: "hi", ModalityHint: []entity.Modality{"audio"}}, kind: apperror.KindValidation},
		{name: "unknown session", req: TurnRequest{SessionId: uuid.New(), ClientId: "acme", Question: "hi"}, kind: apperror.KindNotFound},
		{name: "another client's session", req: TurnRequest{SessionId: owned.Id, ClientId: "acme", Question: "hi"}, kind: apperror.KindNotFound},
		{name: "question over budget", req: TurnRequest{ClientId: "acme", Question: strings.Repeat("refund ", 2000)}, kind: apperror.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.orch.SubmitQuery(ctx, tt.req, nil)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperror.KindOf(err))
		})
	}

	assert.Len(t, h.events.OfType(constant.EventTurnFailed), len(tests))
	assert.Empty(t, h.events.OfType(constant.EventTurnCompleted))
}

func TestSubmitQueryUnknownClientUsesDefaultPrompt(t *testing.T) {
	h := newHarness(t, 0)

	res, err := h.orch.SubmitQuery(context.Background(), TurnRequest{ClientId: "initech", Question: "What is the refund policy?"}, nil)
	require.NoError(t, err)

	assert.True(t, res.DefaultPromptUsed)
	assert.Empty(t, res.Evidence)
	assert.Equal(t, "Answer from the evidence.", h.llm.last().SystemPrompt)
}

func TestSubmitFeedback(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()

	res, err := h.orch.SubmitQuery(ctx, TurnRequest{ClientId: "acme", Question: "What is the refund policy?"}, nil)
	require.NoError(t, err)

	comment := "wrong, mail bob@example.com"
	fb, err := h.orch.SubmitFeedback(ctx, FeedbackRequest{MessageId: res.AssistantMessage.Id, Rating: -1, Label: "incorrect", Comment: &comment})
	require.NoError(t, err)
	assert.Equal(t, -1, fb.Rating)
	require.NotNil(t, fb.Comment)
	assert.Equal(t, "wrong, mail [REDACTED_EMAIL]", *fb.Comment)
	listed, err := h.orch.GetFeedback(ctx, "acme", res.AssistantMessage.Id)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "incorrect", listed[0].Label)
	assert.Len(t, h.events.OfType(constant.EventFeedbackReceived), 1)

	_, err = h.orch.GetFeedback(ctx, "globex", res.AssistantMessage.Id)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))

	tests := []struct {
		name string
		req  FeedbackRequest
		kind apperror.Kind
	}{
		{name: "rating out of range", req: FeedbackRequest{MessageId: res.AssistantMessage.Id, Rating: 5}, kind: apperror.KindValidation},
		{name: "user message", req: FeedbackRequest{MessageId: res.UserMessage.Id, Rating: 1}, kind: apperror.KindValidation},
		{name: "unknown message", req: FeedbackRequest{MessageId: uuid.New(), Rating: 1}, kind: apperror.KindNotFound},
		{name: "missing id", req: FeedbackRequest{Rating: 1}, kind: apperror.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.orch.SubmitFeedback(ctx, tt.req)
			assert.Equal(t, tt.kind, apperror.KindOf(err))
		})
	}
}

func TestDeleteSession(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()

	res, err := h.orch.SubmitQuery(ctx, TurnRequest{ClientId: "acme", Question: "What is the refund policy?"}, nil)
	require.NoError(t, err)

	err = h.orch.DeleteSession(ctx, "globex", res.SessionId)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))

	require.NoError(t, h.orch.DeleteSession(ctx, "acme", res.SessionId))
	_, err = h.orch.GetHistory(ctx, "acme", res.SessionId)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}

func TestCheckSession(t *testing.T) {
	h := newHarness(t, 0)
	ctx := context.Background()

	sess, err := h.orch.CreateSession(ctx, "acme", "Refunds")
	require.NoError(t, err)

	assert.NoError(t, h.orch.CheckSession(ctx, "acme", sess.Id))
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(h.orch.CheckSession(ctx, "globex", sess.Id)))
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(h.orch.CheckSession(ctx, "acme", uuid.New())))
}

func TestGetPrompt(t *testing.T) {
	h := newHarness(t, 0)

	resolved, err := h.orch.GetPrompt(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, "acme-support", resolved.Name)
	assert.False(t, resolved.DefaultUsed)

	_, err = h.orch.GetPrompt(context.Background(), "")
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

package search

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"multimodal-rag-be/internal/entity"
	"multimodal-rag-be/internal/pkg/logger"
	"multimodal-rag-be/pkg/apperror"
	"multimodal-rag-be/pkg/embedding"
	"multimodal-rag-be/pkg/utils"
	"multimodal-rag-be/pkg/vectorstore"

	"golang.org/x/sync/errgroup"
)

const (
	PhaseEmbed  = "embed"
	PhaseSearch = "search"
)

// Config encapsulates retrieval parameters
type Config struct {
	K            int // fused results kept
	PerModalityK int // candidates fetched from each modality before fusion
	Weights      map[entity.Modality]float64
	Timeouts     map[entity.Modality]time.Duration
	// Retry applies to each modality's store query. The modality timeout bounds
	// every attempt together.
	Retry utils.RetryPolicy
}

// DefaultConfig returns default retrieval configuration
func DefaultConfig() Config {
	return Config{
		K:            6,
		PerModalityK: 10,
		Weights: map[entity.Modality]float64{
			entity.ModalityText:  1.0,
			entity.ModalityImage: 1.0,
		},
		Timeouts: map[entity.Modality]time.Duration{
			entity.ModalityText:  3 * time.Second,
			entity.ModalityImage: 3 * time.Second,
		},
		Retry: utils.DefaultRetryPolicy(),
	}
}

type Query struct {
	Text        string
	ClientId    string
	DocumentIds []string
	Modalities  []entity.Modality // empty searches every configured modality
	K           int               // 0 uses Config.K
}

// Degradation records a modality that contributed nothing and why.
type Degradation struct {
	Modality entity.Modality `json:"modality"`
	Phase    string          `json:"phase"`
	Reason   string          `json:"reason"`
}

type Embedded struct {
	Vectors  map[entity.Modality][]float32
	Degraded []Degradation
}

type Result struct {
	Results  []*entity.RetrievalResult
	PerModal map[entity.Modality]int // raw hits per modality before fusion
	Degraded []Degradation
}

func (r *Result) DegradedModalities() []entity.Modality {
	out := make([]entity.Modality, 0, len(r.Degraded))
	for _, d := range r.Degraded {
		out = append(out, d.Modality)
	}
	return out
}

type IEnsembleRetriever interface {
	Embed(ctx context.Context, q Query) (*Embedded, error)
	Search(ctx context.Context, q Query, embedded *Embedded) (*Result, error)
	Retrieve(ctx context.Context, q Query) (*Result, error)
}

type EnsembleRetriever struct {
	gateway embedding.IGateway
	store   vectorstore.IVectorStore
	config  Config
	logger  logger.ILogger
}

func NewEnsembleRetriever(gateway embedding.IGateway, store vectorstore.IVectorStore, config Config, log logger.ILogger) *EnsembleRetriever {
	return &EnsembleRetriever{
		gateway: gateway,
		store:   store,
		config:  config,
		logger:  log,
	}
}

func (r *EnsembleRetriever) modalities(q Query) []entity.Modality {
	available := make(map[entity.Modality]struct{})
	for _, m := range r.gateway.Modalities() {
		available[m] = struct{}{}
	}

	var out []entity.Modality
	if len(q.Modalities) == 0 {
		for m := range available {
			out = append(out, m)
		}
	} else {
		for _, m := range q.Modalities {
			if _, ok := available[m]; ok {
				out = append(out, m)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Embed turns the query into one vector per modality concurrently. A modality that
// fails or exceeds its timeout is reported in Degraded and left out of Vectors.
// The only error is cancellation of ctx itself.
func (r *EnsembleRetriever) Embed(ctx context.Context, q Query) (*Embedded, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, apperror.Validation("search.Embed", "query text must not be empty")
	}

	out := &Embedded{Vectors: make(map[entity.Modality][]float32)}
	var mu sync.Mutex
	var g errgroup.Group

	for _, modality := range r.modalities(q) {
		g.Go(func() error {
			vector, err := withTimeout(ctx, r.config.Timeouts[modality], func(ctx context.Context) ([]float32, error) {
				return r.gateway.Embed(ctx, q.Text, modality)
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				out.Degraded = append(out.Degraded, r.degrade(modality, PhaseEmbed, err))
				return nil
			}
			out.Vectors[modality] = vector
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sortDegraded(out.Degraded)
	return out, nil
}

// Search queries each embedded modality concurrently and fuses what came back.
func (r *EnsembleRetriever) Search(ctx context.Context, q Query, embedded *Embedded) (*Result, error) {
	k := q.K
	if k <= 0 {
		k = r.config.K
	}
	filter := vectorstore.Filter{ClientId: q.ClientId, DocumentIds: q.DocumentIds}

	sets := make(map[entity.Modality][]*entity.RetrievalResult)
	result := &Result{
		PerModal: make(map[entity.Modality]int),
		Degraded: append([]Degradation(nil), embedded.Degraded...),
	}
	var mu sync.Mutex
	var g errgroup.Group

	for modality, vector := range embedded.Vectors {
		g.Go(func() error {
			hits, err := withTimeout(ctx, r.config.Timeouts[modality], func(ctx context.Context) ([]*entity.RetrievalResult, error) {
				return r.query(ctx, vector, modality, filter)
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Degraded = append(result.Degraded, r.degrade(modality, PhaseSearch, err))
				return nil
			}
			sets[modality] = hits
			result.PerModal[modality] = len(hits)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result.Results = Fuse(sets, r.config.Weights, k)
	sortDegraded(result.Degraded)

	r.logger.Debug("EnsembleRetriever", "Retrieval fused", map[string]interface{}{
		"client_id": q.ClientId,
		"per_modal": result.PerModal,
		"kept":      len(result.Results),
		"degraded":  len(result.Degraded),
	})
	return result, nil
}

func (r *EnsembleRetriever) query(ctx context.Context, vector []float32, modality entity.Modality, filter vectorstore.Filter) ([]*entity.RetrievalResult, error) {
	return utils.Retry(ctx, r.config.Retry, func() ([]*entity.RetrievalResult, error) {
		hits, err := r.store.Query(ctx, vector, modality, r.config.PerModalityK, filter)
		if err == nil {
			return hits, nil
		}
		// a wrong dimension or metric will not fix itself
		if ctx.Err() != nil || apperror.IsKind(err, apperror.KindConfiguration) || apperror.IsKind(err, apperror.KindValidation) {
			return nil, utils.Permanent(err)
		}
		return nil, err
	})
}

func (r *EnsembleRetriever) Retrieve(ctx context.Context, q Query) (*Result, error) {
	embedded, err := r.Embed(ctx, q)
	if err != nil {
		return nil, err
	}
	return r.Search(ctx, q, embedded)
}

func (r *EnsembleRetriever) degrade(modality entity.Modality, phase string, err error) Degradation {
	reason := err.Error()
	if errors.Is(err, context.DeadlineExceeded) {
		reason = "timeout"
	}
	r.logger.Warn("EnsembleRetriever", "Modality degraded", map[string]interface{}{
		"modality": modality.String(),
		"phase":    phase,
		"reason":   reason,
	})
	return Degradation{Modality: modality, Phase: phase, Reason: reason}
}

func sortDegraded(d []Degradation) {
	sort.Slice(d, func(i, j int) bool {
		if d[i].Modality != d[j].Modality {
			return d[i].Modality < d[j].Modality
		}
		return d[i].Phase < d[j].Phase
	})
}

// withTimeout returns as soon as the deadline passes even if fn ignores its context.
func withTimeout[T any](ctx context.Context, d time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if d <= 0 {
		return fn(ctx)
	}

	tctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := fn(tctx)
		done <- outcome{value: v, err: err}
	}()

	select {
	case o := <-done:
		return o.value, o.err
	case <-tctx.Done():
		var zero T
		return zero, tctx.Err()
	}
}

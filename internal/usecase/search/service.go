package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/footage/internal/domain"
	"github.com/kailas-cloud/footage/internal/domain/search/request"
	"github.com/kailas-cloud/footage/internal/domain/search/result"
	"github.com/kailas-cloud/footage/internal/logger"
)

// Search modes, used as metric labels.
const (
	ModeBlocking = "blocking"
	ModeStream   = "stream"
)

const streamBuffer = 16

// Config tunes the pipeline.
type Config struct {
	// Hybrid enables the raw-text retrieval pass when intent diverges from the query.
	Hybrid bool
	// InitialK is the candidate pool floor; PoolMultiplier scales the limit above it.
	InitialK       int
	PoolMultiplier int
	// FallbackMin is the filtered hit count below which filters are dropped.
	FallbackMin int
	RRFK        int
	// HighThreshold and LowThreshold band the raw rerank score.
	HighThreshold float64
	LowThreshold  float64
	// RerankMinScore drops reranked results below it. Zero disables the cut.
	RerankMinScore float64
	// CallTimeout bounds every external call. Zero disables it.
	CallTimeout time.Duration
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		Hybrid:         true,
		InitialK:       request.DefaultInitialK,
		PoolMultiplier: request.DefaultPoolMultiplier,
		FallbackMin:    DefaultFallbackMin,
		RRFK:           DefaultRRFK,
		HighThreshold:  DefaultHighThreshold,
		LowThreshold:   DefaultLowThreshold,
		CallTimeout:    15 * time.Second,
	}
}

// Dependencies are the pipeline collaborators. Understander and Reranker are optional.
type Dependencies struct {
	Understander Understander
	Embedder     Embedder
	Retriever    Retriever
	Reranker     Reranker
	Monitor      Monitor
	Logger       *zap.Logger
}

// Service runs the find-footage pipeline. Stateless across queries.
type Service struct {
	understander Understander
	embed        Embedder
	retriever    Retriever
	reranker     Reranker
	monitor      Monitor
	logger       *zap.Logger
	cfg          Config
	normalizer   Normalizer
}

// New creates a search service.
func New(deps Dependencies, cfg Config) *Service {
	if deps.Monitor == nil {
		deps.Monitor = nopMonitor{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Service{
		understander: deps.Understander,
		embed:        deps.Embedder,
		retriever:    deps.Retriever,
		reranker:     deps.Reranker,
		monitor:      deps.Monitor,
		logger:       deps.Logger,
		cfg:          cfg,
		normalizer:   Normalizer{High: cfg.HighThreshold, Low: cfg.LowThreshold},
	}
}

// Search runs the pipeline and returns the ranked results.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]result.Ranked, error) {
	out, err := s.run(ctx, query, limit, discard)
	s.monitor.SearchCompleted(ModeBlocking, outcome(err))
	return out, err
}

// Stream runs the pipeline, emitting loading/done events per stage and one terminal
// results or error event. The channel is closed after the terminal event, or as soon
// as ctx is done.
func (s *Service) Stream(ctx context.Context, query string, limit int) <-chan Event {
	ch := make(chan Event, streamBuffer)
	go func() {
		defer close(ch)
		emit := func(e Event) bool {
			select {
			case ch <- e:
				return true
			case <-ctx.Done():
				return false
			}
		}

		out, err := s.run(ctx, query, limit, emit)
		s.monitor.SearchCompleted(ModeStream, outcome(err))
		if err != nil {
			emit(Event{Kind: EventError, Message: err.Error(), Err: err})
			return
		}
		emit(Event{Kind: EventResults, Message: fmt.Sprintf("%d results", len(out)), Results: out})
	}()
	return ch
}

func (s *Service) run(ctx context.Context, raw string, limit int, emit sink) ([]result.Ranked, error) {
	req, err := request.New(raw, limit)
	if err != nil {
		return nil, err
	}

	p := &pipeline{
		Service:  s,
		req:      req,
		emit:     emit,
		initialK: req.InitialK(s.cfg.PoolMultiplier, s.cfg.InitialK),
		log: logger.From(ctx, s.logger).With(
			zap.String("query", truncate(req.Query(), 80)),
			zap.Int("limit", req.Limit()),
		),
	}
	return p.run(ctx)
}

// call runs fn under the per-call timeout and tags its error with kind.
// Deadline expiry additionally carries domain.ErrTimeout.
func (s *Service) call(ctx context.Context, kind error, fn func(context.Context) error) error {
	callCtx, cancel := ctx, context.CancelFunc(func() {})
	if s.cfg.CallTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, s.cfg.CallTimeout)
	}
	defer cancel()

	err := fn(callCtx)
	if err == nil {
		return nil
	}
	if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w: %w", kind, domain.ErrTimeout, err)
	}
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, domain.ErrTimeout):
		return "timeout"
	case errors.Is(err, domain.ErrEmbedding):
		return "embedding_error"
	case errors.Is(err, domain.ErrRetrieval):
		return "retrieval_error"
	default:
		return "error"
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

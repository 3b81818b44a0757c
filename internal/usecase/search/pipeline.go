package search

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/footage/internal/domain"
	"github.com/kailas-cloud/footage/internal/domain/search/filter"
	"github.com/kailas-cloud/footage/internal/domain/search/query"
	"github.com/kailas-cloud/footage/internal/domain/search/request"
	"github.com/kailas-cloud/footage/internal/domain/search/result"
	"github.com/kailas-cloud/footage/internal/domain/search/source"
)

// pipeline is the per-query state. Owned by a single request, never shared.
type pipeline struct {
	*Service
	req      request.Request
	emit     sink
	log      *zap.Logger
	initialK int

	parsed query.Parsed
	vector []float32
	pool   []result.Candidate
	raw    *rawPass
}

// rawPass is the hybrid retrieval over the caller's own text, run alongside the primary pass.
type rawPass struct {
	group  errgroup.Group
	cancel context.CancelFunc
	hits   []result.Candidate
}

func (r *rawPass) wait() ([]result.Candidate, error) {
	err := r.group.Wait()
	return r.hits, err
}

func (p *pipeline) run(ctx context.Context) ([]result.Ranked, error) {
	start := time.Now()
	defer func() {
		if p.raw != nil {
			p.raw.cancel()
			_ = p.raw.group.Wait()
		}
	}()

	steps := []func(context.Context) error{p.parse, p.embedIntent, p.retrieve, p.widen, p.merge}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			p.log.Warn("Search failed", zap.Duration("duration", time.Since(start)), zap.Error(err))
			return nil, err
		}
	}

	out, err := p.rank(ctx)
	if err != nil {
		p.log.Warn("Search failed", zap.Duration("duration", time.Since(start)), zap.Error(err))
		return nil, err
	}

	p.log.Info("Search completed",
		zap.String("intent", truncate(p.parsed.Intent, 80)),
		zap.Stringer("filters", p.parsed.Filters),
		zap.Int("initial_k", p.initialK),
		zap.Int("results", len(out)),
		zap.Duration("duration", time.Since(start)),
	)
	return out, nil
}

// enter checks for cancellation at the stage boundary and emits the loading event.
func (p *pipeline) enter(ctx context.Context, stage Stage, msg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !p.emit(loading(stage, msg)) {
		return ctx.Err()
	}
	return nil
}

// finish records the stage and emits its done event.
func (p *pipeline) finish(ctx context.Context, ev Event, started time.Time, stageOutcome string) error {
	d := time.Since(started)
	p.monitor.StageObserved(ev.Stage, stageOutcome, d)
	p.log.Debug("Stage completed",
		zap.String("stage", string(ev.Stage)),
		zap.String("outcome", stageOutcome),
		zap.Duration("duration", d),
	)
	if !p.emit(ev) {
		return ctx.Err()
	}
	return nil
}

func (p *pipeline) fail(stage Stage, started time.Time, err error) error {
	p.monitor.StageObserved(stage, outcome(err), time.Since(started))
	return err
}

func (p *pipeline) parse(ctx context.Context) error {
	started := time.Now()
	if err := p.enter(ctx, StageParsing, "Understanding query..."); err != nil {
		return err
	}

	stageOutcome := "ok"
	p.parsed = query.Fallback(p.req.Query())
	if p.understander == nil {
		stageOutcome = "skipped"
	} else {
		var parsed query.Parsed
		err := p.call(ctx, domain.ErrUnderstanding, func(c context.Context) error {
			var err error
			parsed, err = p.understander.Parse(c, p.req.Query())
			return err
		})
		switch {
		case err != nil && ctx.Err() != nil:
			return p.fail(StageParsing, started, ctx.Err())
		case err != nil:
			stageOutcome = "fallback"
			p.monitor.UnderstandingFallback()
			p.log.Warn("Query understanding failed; using raw query as intent", zap.Error(err))
		default:
			if parsed.Intent == "" {
				parsed.Intent = p.req.Query()
			}
			p.parsed = parsed
		}
	}

	parsed := p.parsed
	ev := done(StageParsing, "Intent: "+truncate(parsed.Intent, 80))
	ev.Parsed = &parsed
	return p.finish(ctx, ev, started, stageOutcome)
}

func (p *pipeline) embedIntent(ctx context.Context) error {
	started := time.Now()
	if err := p.enter(ctx, StageEmbedding, "Embedding query..."); err != nil {
		return err
	}

	vec, err := p.embedText(ctx, p.parsed.Intent)
	if err != nil {
		return p.fail(StageEmbedding, started, err)
	}
	p.vector = vec
	return p.finish(ctx, done(StageEmbedding, "Query embedded"), started, "ok")
}

func (p *pipeline) embedText(ctx context.Context, text string) ([]float32, error) {
	var res domain.EmbeddingResult
	err := p.call(ctx, domain.ErrEmbedding, func(c context.Context) error {
		var err error
		res, err = p.embed.Embed(c, text)
		return err
	})
	if err != nil {
		return nil, err
	}
	domain.UsageFromContext(ctx).AddTokens(res.TotalTokens)
	return res.Embedding, nil
}

func (p *pipeline) search(ctx context.Context, vec []float32, filters filter.Set, src source.Source) ([]result.Candidate, error) {
	var hits []result.Candidate
	err := p.call(ctx, domain.ErrRetrieval, func(c context.Context) error {
		var err error
		hits, err = p.retriever.Search(c, vec, p.initialK, filters)
		return err
	})
	if err != nil {
		return nil, err
	}
	for i := range hits {
		hits[i].Rank = i + 1
		hits[i].Source = src
	}
	return hits, nil
}

func (p *pipeline) retrieve(ctx context.Context) error {
	started := time.Now()
	if err := p.enter(ctx, StageVectorSearch, "Searching clips..."); err != nil {
		return err
	}

	if p.cfg.Hybrid && p.parsed.Diverges(p.req.Query()) {
		p.startRawPass(ctx)
	}

	hits, err := p.search(ctx, p.vector, p.parsed.Filters, source.Intent)
	if err != nil {
		return p.fail(StageVectorSearch, started, err)
	}
	p.pool = hits
	return p.finish(ctx, done(StageVectorSearch, fmt.Sprintf("Found %d candidates", len(hits))), started, "ok")
}

func (p *pipeline) startRawPass(ctx context.Context) {
	rctx, cancel := context.WithCancel(ctx)
	r := &rawPass{cancel: cancel}
	r.group.Go(func() error {
		vec, err := p.embedText(rctx, p.req.Query())
		if err != nil {
			return err
		}
		hits, err := p.search(rctx, vec, p.parsed.Filters, source.Raw)
		if err != nil {
			return err
		}
		r.hits = hits
		return nil
	})
	p.raw = r
}

func (p *pipeline) widen(ctx context.Context) error {
	fb := Fallback{Threshold: p.cfg.FallbackMin, Capacity: p.initialK}
	if !fb.NeedsWidening(p.parsed.Filters, p.pool) {
		return nil
	}

	started := time.Now()
	msg := fmt.Sprintf("Only %d filtered candidates; widening search...", len(p.pool))
	if err := p.enter(ctx, StageFallback, msg); err != nil {
		return err
	}
	p.monitor.FallbackTriggered()

	filtered := len(p.pool)
	widened, err := fb.Resolve(ctx, p.parsed.Filters, p.pool, func(c context.Context) ([]result.Candidate, error) {
		return p.search(c, p.vector, filter.Set{}, source.Fallback)
	})
	if err != nil {
		if ctx.Err() != nil {
			return p.fail(StageFallback, started, ctx.Err())
		}
		p.log.Warn("Fallback retrieval failed; keeping filtered candidates",
			zap.Int("filtered", filtered), zap.Error(err))
		return p.finish(ctx, done(StageFallback, fmt.Sprintf("Kept %d filtered candidates", filtered)), started, "skipped")
	}

	p.pool = widened
	p.log.Info("Filters widened",
		zap.Int("filtered", filtered),
		zap.Int("candidates", len(widened)),
		zap.Int("threshold", fb.threshold()),
	)
	msg = fmt.Sprintf("%d filtered + %d unfiltered candidates", filtered, len(widened)-filtered)
	return p.finish(ctx, done(StageFallback, msg), started, "ok")
}

func (p *pipeline) merge(ctx context.Context) error {
	if p.raw == nil {
		return nil
	}

	started := time.Now()
	if err := p.enter(ctx, StageHybridMerge, "Merging with raw query..."); err != nil {
		return err
	}

	rawHits, err := p.raw.wait()
	if err != nil {
		if ctx.Err() != nil {
			return p.fail(StageHybridMerge, started, ctx.Err())
		}
		p.monitor.HybridOutcome("skipped")
		p.log.Warn("Raw-text retrieval failed; skipping hybrid merge", zap.Error(err))
		return p.finish(ctx, done(StageHybridMerge, fmt.Sprintf("Kept %d candidates", len(p.pool))), started, "skipped")
	}

	byID := make(map[string]result.Candidate, len(p.pool)+len(rawHits))
	inPool := make(map[string]struct{}, len(p.pool))
	for _, c := range p.pool {
		byID[c.ClipID()] = c
		inPool[c.ClipID()] = struct{}{}
	}
	for _, c := range rawHits {
		if _, ok := byID[c.ClipID()]; ok {
			if _, both := inPool[c.ClipID()]; both {
				hit := byID[c.ClipID()]
				hit.Source = source.Fused
				byID[c.ClipID()] = hit
			}
			continue
		}
		byID[c.ClipID()] = c
	}

	ids := MergeRRF(result.IDs(p.pool), result.IDs(rawHits), p.cfg.RRFK)
	if len(ids) > p.initialK {
		ids = ids[:p.initialK]
	}
	merged := make([]result.Candidate, len(ids))
	for i, id := range ids {
		c := byID[id]
		c.Rank = i + 1
		merged[i] = c
	}
	p.pool = merged

	p.monitor.HybridOutcome("merged")
	return p.finish(ctx, done(StageHybridMerge, fmt.Sprintf("Merged to %d candidates", len(merged))), started, "ok")
}

func (p *pipeline) rank(ctx context.Context) ([]result.Ranked, error) {
	started := time.Now()
	if err := p.enter(ctx, StageReranking, fmt.Sprintf("Reranking %d candidates...", len(p.pool))); err != nil {
		return nil, err
	}

	limit := p.req.Limit()
	pool := p.pool
	stageOutcome := "ok"
	degraded := false

	var scored []Scored
	switch {
	case len(pool) == 0:
		stageOutcome = "empty"
	case p.reranker == nil:
		if len(pool) > limit {
			pool = pool[:limit]
		}
		scored = sentinelScores(len(pool))
		stageOutcome, degraded = "skipped", true
	default:
		docs := make([]string, len(pool))
		for i, c := range pool {
			docs[i] = c.Clip.RerankDocument()
		}
		var got []RerankScore
		err := p.call(ctx, domain.ErrRerankDegraded, func(c context.Context) error {
			var err error
			got, err = p.reranker.Rerank(c, p.parsed.Intent, docs)
			return err
		})
		switch {
		case err != nil && ctx.Err() != nil:
			return nil, p.fail(StageReranking, started, ctx.Err())
		case err != nil:
			p.monitor.RerankDegraded()
			p.log.Warn("Rerank degraded; keeping retrieval order", zap.Error(err))
			scored = sentinelScores(len(pool))
			stageOutcome, degraded = "degraded", true
		default:
			scored = collectScores(got, len(pool))
		}
	}

	sortScored(scored)

	if !degraded && p.cfg.RerankMinScore > 0 {
		kept := scored[:0]
		for _, s := range scored {
			if s.Raw >= p.cfg.RerankMinScore {
				kept = append(kept, s)
			}
		}
		scored = kept
	}
	if len(scored) > limit {
		scored = scored[:limit]
	}
	p.normalizer.Normalize(scored)

	out := make([]result.Ranked, len(scored))
	for i, s := range scored {
		out[i] = result.NewRanked(pool[s.Index].Clip, s.Raw, s.Match, s.Confidence)
	}

	if err := p.finish(ctx, done(StageReranking, fmt.Sprintf("Ranked top %d", len(out))), started, stageOutcome); err != nil {
		return nil, err
	}
	return out, nil
}

func sentinelScores(n int) []Scored {
	out := make([]Scored, n)
	for i := range out {
		out[i] = Scored{Index: i, Raw: result.SentinelScore}
	}
	return out
}

// collectScores maps reranker output onto candidate order.
// Unknown or duplicate indexes are ignored; unscored candidates keep the sentinel.
func collectScores(got []RerankScore, n int) []Scored {
	out := sentinelScores(n)
	seen := make(map[int]struct{}, len(got))
	for _, g := range got {
		if g.Index < 0 || g.Index >= n {
			continue
		}
		if _, dup := seen[g.Index]; dup {
			continue
		}
		seen[g.Index] = struct{}{}
		out[g.Index].Raw = g.Score
		out[g.Index].Reranked = true
	}
	return out
}

// sortScored orders reranked candidates by score, then unscored ones in pool order.
// Stable: equal scores keep retrieval order.
func sortScored(scored []Scored) {
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Reranked != scored[j].Reranked {
			return scored[i].Reranked
		}
		return scored[i].Raw > scored[j].Raw
	})
}

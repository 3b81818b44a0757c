package search

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/footage/internal/domain"
	"github.com/kailas-cloud/footage/internal/domain/clip"
	"github.com/kailas-cloud/footage/internal/domain/search/filter"
	"github.com/kailas-cloud/footage/internal/domain/search/query"
	"github.com/kailas-cloud/footage/internal/domain/search/result"
)

// --- Mocks ---

type mockUnderstander struct {
	parsed query.Parsed
	err    error
	hook   func()
	called bool
}

func (m *mockUnderstander) Parse(_ context.Context, _ string) (query.Parsed, error) {
	m.called = true
	if m.hook != nil {
		m.hook()
	}
	return m.parsed, m.err
}

// mockEmbedder returns rawVec for rawText and intentVec for anything else.
type mockEmbedder struct {
	mu      sync.Mutex
	rawText string
	err     error
	block   bool
	texts   []string
}

var (
	intentVec = []float32{1}
	rawVec    = []float32{2}
)

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	m.mu.Lock()
	m.texts = append(m.texts, text)
	m.mu.Unlock()

	if m.block {
		<-ctx.Done()
		return domain.EmbeddingResult{}, ctx.Err()
	}
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	if text == m.rawText {
		return domain.EmbeddingResult{Embedding: rawVec, TotalTokens: 3}, nil
	}
	return domain.EmbeddingResult{Embedding: intentVec, TotalTokens: 5}, nil
}

func (m *mockEmbedder) calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.texts...)
}

type searchCall struct {
	k       int
	filters filter.Set
	raw     bool
}

// mockRetriever walks the corpus in a fixed order and applies the filter predicate.
type mockRetriever struct {
	mu       sync.Mutex
	corpus   map[string]clip.Clip
	order    []string
	rawOrder []string
	fail     func(c searchCall) error
	searches []searchCall
}

func (m *mockRetriever) Search(_ context.Context, vec []float32, k int, filters filter.Set) ([]result.Candidate, error) {
	call := searchCall{k: k, filters: filters, raw: len(vec) > 0 && vec[0] == rawVec[0]}
	m.mu.Lock()
	m.searches = append(m.searches, call)
	m.mu.Unlock()

	if m.fail != nil {
		if err := m.fail(call); err != nil {
			return nil, err
		}
	}

	order := m.order
	if call.raw && m.rawOrder != nil {
		order = m.rawOrder
	}
	var out []result.Candidate
	for i, id := range order {
		if len(out) == k {
			break
		}
		c := m.corpus[id]
		if filters.Matches(c) {
			out = append(out, result.Candidate{Clip: c, Similarity: 1 - float64(i)/100})
		}
	}
	return out, nil
}

func (m *mockRetriever) calls() []searchCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]searchCall(nil), m.searches...)
}

// mockReranker scores documents by clip id ("doc-<id>").
type mockReranker struct {
	scores map[string]float64
	err    error
	query  string
	docs   []string
}

func (m *mockReranker) Rerank(_ context.Context, q string, docs []string) ([]RerankScore, error) {
	m.query, m.docs = q, docs
	if m.err != nil {
		return nil, m.err
	}
	var out []RerankScore
	for i := len(docs) - 1; i >= 0; i-- {
		if s, ok := m.scores[docs[i]]; ok {
			out = append(out, RerankScore{Index: i, Score: s})
		}
	}
	return out, nil
}

type mockMonitor struct {
	mu            sync.Mutex
	understanding int
	fallbacks     int
	hybrid        []string
	degraded      int
	completed     []string
}

func (m *mockMonitor) StageObserved(Stage, string, time.Duration) {}
func (m *mockMonitor) SearchCompleted(mode, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed = append(m.completed, mode+":"+outcome)
}
func (m *mockMonitor) UnderstandingFallback() { m.mu.Lock(); m.understanding++; m.mu.Unlock() }
func (m *mockMonitor) FallbackTriggered()     { m.mu.Lock(); m.fallbacks++; m.mu.Unlock() }
func (m *mockMonitor) HybridOutcome(o string) { m.mu.Lock(); m.hybrid = append(m.hybrid, o); m.mu.Unlock() }
func (m *mockMonitor) RerankDegraded()        { m.mu.Lock(); m.degraded++; m.mu.Unlock() }

// --- Fixtures ---

func testCorpus() (map[string]clip.Clip, []string) {
	fixtures := []struct {
		id       string
		location string
		actors   []string
	}{
		{"c1", "DON'S OFFICE", []string{"DON CORLEONE", "KAY"}},
		{"c2", "GARDEN", []string{"SONNY"}},
		{"c3", "GARDEN", []string{"MICHAEL"}},
		{"c4", "MALL", []string{"DON CORLEONE", "SONNY"}},
		{"c5", "GARDEN", []string{"KAY"}},
		{"c6", "DON'S OFFICE", []string{"TOM"}},
		{"c7", "MALL", []string{"SONNY", "MICHAEL"}},
		{"c8", "HOSPITAL", []string{"FREDO"}},
		{"c9", "GARDEN", []string{"SONNY"}},
		{"c10", "HOSPITAL", []string{"DON CORLEONE"}},
	}
	corpus := make(map[string]clip.Clip, len(fixtures))
	order := make([]string, len(fixtures))
	for i, s := range fixtures {
		corpus[s.id] = clip.Clip{
			ID:          s.id,
			SceneID:     "1",
			Start:       float64(i * 10),
			End:         float64(i*10 + 5),
			Location:    s.location,
			TimeOfDay:   "DAY",
			IntExt:      "INT",
			Actors:      s.actors,
			Description: []string{"clip " + s.id},
			Transcript:  "doc-" + s.id,
		}
		order[i] = s.id
	}
	return corpus, order
}

type fixture struct {
	understander *mockUnderstander
	embedder     *mockEmbedder
	retriever    *mockRetriever
	reranker     *mockReranker
	monitor      *mockMonitor
	cfg          Config
}

func newFixture(raw string) *fixture {
	corpus, order := testCorpus()
	return &fixture{
		understander: &mockUnderstander{parsed: query.Parsed{Intent: raw}},
		embedder:     &mockEmbedder{rawText: raw},
		retriever:    &mockRetriever{corpus: corpus, order: order},
		monitor:      &mockMonitor{},
		cfg:          DefaultConfig(),
	}
}

func (f *fixture) service() *Service {
	deps := Dependencies{
		Understander: f.understander,
		Embedder:     f.embedder,
		Retriever:    f.retriever,
		Monitor:      f.monitor,
	}
	if f.reranker != nil {
		deps.Reranker = f.reranker
	}
	return New(deps, f.cfg)
}

func ids(rs []result.Ranked) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ClipID
	}
	return out
}

func collect(ch <-chan Event) []Event {
	var evs []Event
	for e := range ch {
		evs = append(evs, e)
	}
	return evs
}

func trace(evs []Event) []string {
	out := make([]string, len(evs))
	for i, e := range evs {
		if e.Kind == EventStatus {
			out[i] = fmt.Sprintf("%s:%s", e.Stage, e.Status)
		} else {
			out[i] = string(e.Kind)
		}
	}
	return out
}

// --- Tests ---

func TestSearch_InvalidInputRejectedBeforeCalls(t *testing.T) {
	f := newFixture("")
	_, err := f.service().Search(context.Background(), "   ", 5)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if f.understander.called || len(f.embedder.calls()) > 0 || len(f.retriever.calls()) > 0 {
		t.Error("no external call may happen for invalid input")
	}
}

func TestSearch_ShouldActorsReturnsOnlyMatchingClips(t *testing.T) {
	q := "Don Corleone or Sonny"
	f := newFixture(q)
	f.understander.parsed = query.Parsed{
		Intent:  q,
		Filters: filter.Set{Should: filter.Clause{filter.FieldActors: {"DON CORLEONE", "SONNY"}}},
	}
	f.reranker = &mockReranker{scores: map[string]float64{
		"doc-c4": 0.9, "doc-c9": 0.8, "doc-c1": 0.6, "doc-c2": 0.3, "doc-c7": 0.2, "doc-c10": 0.1,
	}}

	got, err := f.service().Search(context.Background(), q, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"c4", "c9", "c1"}; !slices.Equal(ids(got), want) {
		t.Fatalf("got %v, want %v", ids(got), want)
	}
	for _, r := range got {
		actors, _ := r.Metadata["actors"].([]string)
		if !slices.Contains(actors, "DON CORLEONE") && !slices.Contains(actors, "SONNY") {
			t.Errorf("%s has neither actor: %v", r.ClipID, actors)
		}
	}
	if got[0].MatchScore != 1.0 || got[2].MatchScore != 0.0 {
		t.Errorf("match scores = %v, %v", got[0].MatchScore, got[2].MatchScore)
	}
	if got[0].Confidence != result.High {
		t.Errorf("confidence = %v", got[0].Confidence)
	}
	if f.monitor.fallbacks != 0 {
		t.Error("six filtered hits must not trigger fallback")
	}
	if f.reranker.query != q {
		t.Errorf("rerank query = %q", f.reranker.query)
	}
	if len(f.reranker.docs) != 6 {
		t.Errorf("full pool must be reranked, got %d docs", len(f.reranker.docs))
	}
}

func TestSearch_FallbackKeepsFilteredHitsFirst(t *testing.T) {
	q := "wedding scenes at the mall with Don and Sonny"
	f := newFixture(q)
	f.cfg.Hybrid = false
	f.understander.parsed = query.Parsed{
		Intent:  "wedding at the mall",
		Filters: filter.Set{Must: filter.Clause{filter.FieldLocation: {"MALL"}}},
	}

	got, err := f.service().Search(context.Background(), q, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) < f.cfg.FallbackMin {
		t.Fatalf("got %d results, want >= %d", len(got), f.cfg.FallbackMin)
	}
	if got[0].ClipID != "c4" || got[1].ClipID != "c7" {
		t.Errorf("filtered hits must lead, got %v", ids(got))
	}
	for _, r := range got[2:] {
		if r.ClipID == "c4" || r.ClipID == "c7" {
			t.Errorf("duplicate %s after fallback", r.ClipID)
		}
	}
	if f.monitor.fallbacks != 1 {
		t.Errorf("fallbacks = %d", f.monitor.fallbacks)
	}

	calls := f.retriever.calls()
	if len(calls) != 2 || !calls[1].filters.IsEmpty() {
		t.Errorf("second retrieval must drop filters entirely: %+v", calls)
	}
}

func TestSearch_DegradedRerankKeepsRetrievalOrder(t *testing.T) {
	f := newFixture("q")
	f.reranker = &mockReranker{err: fmt.Errorf("%w: 503", domain.ErrRerankDegraded)}

	got, err := f.service().Search(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"c1", "c2", "c3", "c4", "c5"}; !slices.Equal(ids(got), want) {
		t.Errorf("got %v, want %v", ids(got), want)
	}
	for _, r := range got {
		if r.Score != result.SentinelScore || r.MatchScore != 0.5 || r.Confidence != result.Low {
			t.Errorf("%s: score=%v match=%v conf=%v", r.ClipID, r.Score, r.MatchScore, r.Confidence)
		}
	}
	if f.monitor.degraded != 1 {
		t.Errorf("degraded = %d", f.monitor.degraded)
	}
}

func TestSearch_DegradedSingleResult(t *testing.T) {
	f := newFixture("q")
	f.reranker = &mockReranker{err: domain.ErrRerankDegraded}

	got, err := f.service().Search(context.Background(), "q", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].MatchScore != 1.0 {
		t.Errorf("single degraded result must have match 1.0, got %+v", got)
	}
}

func TestSearch_NoRerankerTruncatesBeforeScoring(t *testing.T) {
	f := newFixture("q")
	got, err := f.service().Search(context.Background(), "q", 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"c1", "c2", "c3", "c4"}; !slices.Equal(ids(got), want) {
		t.Errorf("got %v, want %v", ids(got), want)
	}
}

func TestSearch_UnscoredCandidatesGetSentinel(t *testing.T) {
	f := newFixture("q")
	f.reranker = &mockReranker{scores: map[string]float64{"doc-c3": 0.9}}

	got, err := f.service().Search(context.Background(), "q", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"c3", "c1", "c2"}; !slices.Equal(ids(got), want) {
		t.Errorf("got %v, want %v", ids(got), want)
	}
}

func TestSearch_UnscoredCandidatesRankAfterNegativeScores(t *testing.T) {
	f := newFixture("q")
	f.reranker = &mockReranker{scores: map[string]float64{"doc-c1": -1.2, "doc-c2": -3.4}}

	got, err := f.service().Search(context.Background(), "q", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"c1", "c2", "c3"}; !slices.Equal(ids(got), want) {
		t.Errorf("got %v, want %v", ids(got), want)
	}
	if got[0].Score != -1.2 || got[2].Score != result.SentinelScore {
		t.Errorf("scores = %v, %v", got[0].Score, got[2].Score)
	}
}

func TestSearch_RerankMinScore(t *testing.T) {
	f := newFixture("q")
	f.cfg.RerankMinScore = 0.5
	f.reranker = &mockReranker{scores: map[string]float64{"doc-c1": 0.9, "doc-c2": 0.6, "doc-c3": 0.2}}

	got, err := f.service().Search(context.Background(), "q", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"c1", "c2"}; !slices.Equal(ids(got), want) {
		t.Errorf("got %v, want %v", ids(got), want)
	}
}

func TestSearch_UnderstandingFailureFallsBackToRawQuery(t *testing.T) {
	f := newFixture("sonny fights")
	f.understander.err = fmt.Errorf("%w: bad json", domain.ErrUnderstanding)
	f.understander.parsed = query.Parsed{
		Intent:  "ignored",
		Filters: filter.Set{Must: filter.Clause{filter.FieldActors: {"SONNY"}}},
	}

	got, err := f.service().Search(context.Background(), "sonny fights", 5)
	if err != nil {
		t.Fatalf("understanding failure must not fail the request: %v", err)
	}
	if len(got) != 5 {
		t.Errorf("got %d results", len(got))
	}
	if texts := f.embedder.calls(); len(texts) != 1 || texts[0] != "sonny fights" {
		t.Errorf("embedded %v, want raw query once", texts)
	}
	if calls := f.retriever.calls(); !calls[0].filters.IsEmpty() {
		t.Error("fallback parse must carry no filters")
	}
	if f.monitor.understanding != 1 {
		t.Errorf("understanding fallbacks = %d", f.monitor.understanding)
	}
}

func TestSearch_NoUnderstanderUsesRawQuery(t *testing.T) {
	f := newFixture("q")
	svc := New(Dependencies{Embedder: f.embedder, Retriever: f.retriever}, f.cfg)
	if _, err := svc.Search(context.Background(), "q", 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if texts := f.embedder.calls(); len(texts) != 1 || texts[0] != "q" {
		t.Errorf("embedded %v", texts)
	}
}

func TestSearch_EmbeddingErrorIsFatal(t *testing.T) {
	f := newFixture("q")
	f.embedder.err = errors.New("provider 500")

	_, err := f.service().Search(context.Background(), "q", 5)
	if !errors.Is(err, domain.ErrEmbedding) {
		t.Fatalf("expected ErrEmbedding, got %v", err)
	}
	if len(f.retriever.calls()) != 0 {
		t.Error("retrieval must not run after embedding failure")
	}
}

func TestSearch_PrimaryRetrievalErrorIsFatal(t *testing.T) {
	f := newFixture("q")
	f.retriever.fail = func(searchCall) error { return errors.New("FT.SEARCH failed") }

	_, err := f.service().Search(context.Background(), "q", 5)
	if !errors.Is(err, domain.ErrRetrieval) {
		t.Fatalf("expected ErrRetrieval, got %v", err)
	}
}

func TestSearch_CallTimeout(t *testing.T) {
	f := newFixture("q")
	f.cfg.CallTimeout = 20 * time.Millisecond
	f.embedder.block = true

	_, err := f.service().Search(context.Background(), "q", 5)
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if !errors.Is(err, domain.ErrEmbedding) {
		t.Errorf("timeout must keep the stage kind, got %v", err)
	}
}

func TestSearch_FallbackErrorIsRecovered(t *testing.T) {
	f := newFixture("q")
	f.cfg.Hybrid = false
	f.understander.parsed = query.Parsed{
		Intent:  "q",
		Filters: filter.Set{Must: filter.Clause{filter.FieldLocation: {"MALL"}}},
	}
	f.retriever.fail = func(c searchCall) error {
		if c.filters.IsEmpty() {
			return errors.New("unfiltered failed")
		}
		return nil
	}

	got, err := f.service().Search(context.Background(), "q", 10)
	if err != nil {
		t.Fatalf("fallback failure must be recovered: %v", err)
	}
	if want := []string{"c4", "c7"}; !slices.Equal(ids(got), want) {
		t.Errorf("got %v, want %v", ids(got), want)
	}
}

func TestSearch_HybridMergesIntentAndRawPasses(t *testing.T) {
	raw := "Sonny loses his temper"
	f := newFixture(raw)
	f.understander.parsed = query.Parsed{Intent: "a heated family argument"}
	f.retriever.rawOrder = []string{"c7", "c2", "c9", "c1", "c5", "c3", "c4", "c6", "c8", "c10"}

	got, err := f.service().Search(context.Background(), raw, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := MergeRRF(f.retriever.order, f.retriever.rawOrder, DefaultRRFK)
	if !slices.Equal(ids(got), want) {
		t.Errorf("got %v, want %v", ids(got), want)
	}

	texts := f.embedder.calls()
	if !slices.Contains(texts, raw) || !slices.Contains(texts, "a heated family argument") {
		t.Errorf("expected both texts embedded, got %v", texts)
	}
	if !slices.Equal(f.monitor.hybrid, []string{"merged"}) {
		t.Errorf("hybrid outcomes = %v", f.monitor.hybrid)
	}
}

func TestSearch_HybridRawPassUsesSameFiltersAndPoolSize(t *testing.T) {
	raw := "Sonny at the garden"
	f := newFixture(raw)
	filters := filter.Set{Must: filter.Clause{filter.FieldLocation: {"GARDEN"}}}
	f.understander.parsed = query.Parsed{Intent: "garden conversation", Filters: filters}

	if _, err := f.service().Search(context.Background(), raw, 8); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, c := range f.retriever.calls() {
		if c.k != 24 {
			t.Errorf("k = %d, want 24", c.k)
		}
		if c.raw && c.filters.String() != filters.String() {
			t.Errorf("raw pass filters = %s", c.filters)
		}
	}
}

func TestSearch_HybridRawFailureIsSkipped(t *testing.T) {
	raw := "Sonny loses his temper"
	f := newFixture(raw)
	f.understander.parsed = query.Parsed{Intent: "a heated family argument"}
	f.retriever.fail = func(c searchCall) error {
		if c.raw {
			return errors.New("raw failed")
		}
		return nil
	}

	got, err := f.service().Search(context.Background(), raw, 3)
	if err != nil {
		t.Fatalf("hybrid failure must be recovered: %v", err)
	}
	if want := []string{"c1", "c2", "c3"}; !slices.Equal(ids(got), want) {
		t.Errorf("got %v, want %v", ids(got), want)
	}
	if !slices.Equal(f.monitor.hybrid, []string{"skipped"}) {
		t.Errorf("hybrid outcomes = %v", f.monitor.hybrid)
	}
}

func TestSearch_HybridSkippedWhenIntentMatchesRaw(t *testing.T) {
	f := newFixture("Sonny fights")
	f.understander.parsed = query.Parsed{Intent: "  sonny   FIGHTS "}

	if _, err := f.service().Search(context.Background(), "Sonny fights", 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := len(f.embedder.calls()); n != 1 {
		t.Errorf("embed calls = %d, want 1", n)
	}
}

func TestSearch_LimitClampedAndPoolSized(t *testing.T) {
	f := newFixture("q")
	got, err := f.service().Search(context.Background(), "q", 500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 10 {
		t.Errorf("got %d results (corpus 10)", len(got))
	}
	if c := f.retriever.calls()[0]; c.k != 60 {
		t.Errorf("initial_k = %d, want 60", c.k)
	}
}

func TestSearch_RecordsEmbeddingUsage(t *testing.T) {
	raw := "Sonny loses his temper"
	f := newFixture(raw)
	f.understander.parsed = query.Parsed{Intent: "a heated family argument"}

	ctx, usage := domain.NewContextWithUsage(context.Background())
	if _, err := f.service().Search(ctx, raw, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if usage.TotalTokens() != 8 {
		t.Errorf("tokens = %d, want 8 (intent + raw)", usage.TotalTokens())
	}
}

// --- Stream ---

func TestStream_EventOrderWithFallback(t *testing.T) {
	f := newFixture("q")
	f.cfg.Hybrid = false
	f.understander.parsed = query.Parsed{
		Intent:  "q",
		Filters: filter.Set{Must: filter.Clause{filter.FieldLocation: {"MALL"}}},
	}

	evs := collect(f.service().Stream(context.Background(), "q", 5))
	want := []string{
		"parsing:loading", "parsing:done",
		"embedding:loading", "embedding:done",
		"vector_search:loading", "vector_search:done",
		"fallback:loading", "fallback:done",
		"reranking:loading", "reranking:done",
		"results",
	}
	if !slices.Equal(trace(evs), want) {
		t.Fatalf("events = %v\nwant %v", trace(evs), want)
	}
	if evs[1].Parsed == nil || evs[1].Parsed.Filters.IsEmpty() {
		t.Error("parsing done event must carry the parsed query")
	}
	if last := evs[len(evs)-1]; !last.Terminal() || len(last.Results) != 5 {
		t.Errorf("terminal = %+v", last)
	}
}

func TestStream_EventOrderWithHybrid(t *testing.T) {
	raw := "Sonny loses his temper"
	f := newFixture(raw)
	f.understander.parsed = query.Parsed{Intent: "a heated family argument"}

	evs := collect(f.service().Stream(context.Background(), raw, 5))
	want := []string{
		"parsing:loading", "parsing:done",
		"embedding:loading", "embedding:done",
		"vector_search:loading", "vector_search:done",
		"hybrid_merge:loading", "hybrid_merge:done",
		"reranking:loading", "reranking:done",
		"results",
	}
	if !slices.Equal(trace(evs), want) {
		t.Fatalf("events = %v\nwant %v", trace(evs), want)
	}
}

func TestStream_ErrorIsTerminal(t *testing.T) {
	f := newFixture("q")
	f.embedder.err = errors.New("provider down")

	evs := collect(f.service().Stream(context.Background(), "q", 5))
	want := []string{"parsing:loading", "parsing:done", "embedding:loading", "error"}
	if !slices.Equal(trace(evs), want) {
		t.Fatalf("events = %v\nwant %v", trace(evs), want)
	}
	if !errors.Is(evs[len(evs)-1].Err, domain.ErrEmbedding) {
		t.Errorf("error event = %v", evs[len(evs)-1].Err)
	}
	if f.monitor.completed[0] != "stream:embedding_error" {
		t.Errorf("completed = %v", f.monitor.completed)
	}
}

func TestStream_InvalidInputSingleErrorEvent(t *testing.T) {
	f := newFixture("")
	evs := collect(f.service().Stream(context.Background(), "", 5))
	if len(evs) != 1 || evs[0].Kind != EventError {
		t.Fatalf("events = %v", trace(evs))
	}
	if !errors.Is(evs[0].Err, domain.ErrInvalidInput) {
		t.Errorf("err = %v", evs[0].Err)
	}
}

func TestStream_CancellationStopsAtStageBoundary(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newFixture("q")
	f.understander.hook = cancel

	evs := collect(f.service().Stream(ctx, "q", 5))
	for _, e := range evs {
		if e.Kind == EventResults {
			t.Fatal("no results after cancellation")
		}
	}
	if n := len(f.embedder.calls()); n != 0 {
		t.Errorf("embed calls after cancel = %d", n)
	}
}

package search

import (
	"context"
	"time"

	"github.com/kailas-cloud/footage/internal/domain"
	"github.com/kailas-cloud/footage/internal/domain/search/filter"
	"github.com/kailas-cloud/footage/internal/domain/search/query"
	"github.com/kailas-cloud/footage/internal/domain/search/result"
)

// Understander turns a raw query into intent, keywords and filters.
// Failures wrap domain.ErrUnderstanding.
type Understander interface {
	Parse(ctx context.Context, raw string) (query.Parsed, error)
}

// Embedder vectorizes text into embeddings. Failures wrap domain.ErrEmbedding.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Retriever runs a nearest-neighbor search, ordered by descending similarity.
// An empty filter set searches the whole corpus. Failures wrap domain.ErrRetrieval.
type Retriever interface {
	Search(ctx context.Context, vector []float32, k int, filters filter.Set) ([]result.Candidate, error)
}

// RerankScore is a raw relevance score for the document at Index.
type RerankScore struct {
	Index int
	Score float64
}

// Reranker scores documents against a query. Order of the returned scores is not significant.
// Failures wrap domain.ErrRerankDegraded.
type Reranker interface {
	Rerank(ctx context.Context, query string, documents []string) ([]RerankScore, error)
}

// Monitor receives pipeline observations.
type Monitor interface {
	StageObserved(stage Stage, outcome string, d time.Duration)
	SearchCompleted(mode, outcome string)
	UnderstandingFallback()
	FallbackTriggered()
	HybridOutcome(outcome string)
	RerankDegraded()
}

type nopMonitor struct{}

func (nopMonitor) StageObserved(Stage, string, time.Duration) {}
func (nopMonitor) SearchCompleted(string, string)             {}
func (nopMonitor) UnderstandingFallback()                     {}
func (nopMonitor) FallbackTriggered()                         {}
func (nopMonitor) HybridOutcome(string)                       {}
func (nopMonitor) RerankDegraded()                            {}

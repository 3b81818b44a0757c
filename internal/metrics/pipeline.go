package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/footage/internal/usecase/search"
)

// Search pipeline Prometheus metrics.
var (
	SearchStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_stage_duration_seconds",
			Help:      "Search pipeline stage duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"stage", "outcome"},
	)

	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Total search requests by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	SearchUnderstandingFallbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_understanding_fallback_total",
			Help:      "Queries whose understanding failed and fell back to the raw text",
		},
	)

	SearchFallbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_fallback_total",
			Help:      "Filtered retrievals widened to the unfiltered corpus",
		},
	)

	SearchHybridTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_hybrid_total",
			Help:      "Hybrid raw-text passes by outcome",
		},
		[]string{"outcome"}, // "merged" / "skipped"
	)

	SearchRerankDegradedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_rerank_degraded_total",
			Help:      "Searches ranked without reranker scores",
		},
	)
)

// SearchMonitor feeds pipeline observations into Prometheus.
type SearchMonitor struct{}

var _ search.Monitor = SearchMonitor{}

// StageObserved records a stage duration.
func (SearchMonitor) StageObserved(stage search.Stage, outcome string, d time.Duration) {
	SearchStageDuration.WithLabelValues(string(stage), outcome).Observe(d.Seconds())
}

// SearchCompleted counts a finished search.
func (SearchMonitor) SearchCompleted(mode, outcome string) {
	SearchRequestsTotal.WithLabelValues(mode, outcome).Inc()
}

// UnderstandingFallback counts a raw-text fallback parse.
func (SearchMonitor) UnderstandingFallback() { SearchUnderstandingFallbackTotal.Inc() }

// FallbackTriggered counts a widened retrieval.
func (SearchMonitor) FallbackTriggered() { SearchFallbackTotal.Inc() }

// HybridOutcome counts a hybrid pass result.
func (SearchMonitor) HybridOutcome(outcome string) { SearchHybridTotal.WithLabelValues(outcome).Inc() }

// RerankDegraded counts a degraded rerank.
func (SearchMonitor) RerankDegraded() { SearchRerankDegradedTotal.Inc() }

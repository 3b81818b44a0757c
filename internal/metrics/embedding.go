package metrics

import "github.com/prometheus/client_golang/prometheus"

const embeddingSubsystem = "embedding"

// providerLabels identify the upstream embedding API and model.
var providerLabels = []string{"provider", "model"}

func withLabels(extra ...string) []string {
	return append(append([]string{}, providerLabels...), extra...)
}

// Provider traffic, recorded by the OpenAI-compatible transport.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: embeddingSubsystem,
		Name:      "requests_total",
		Help:      "Embedding API calls by outcome (ok, error).",
	}, withLabels("status"))

	EmbeddingRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: embeddingSubsystem,
		Name:      "request_duration_seconds",
		Help:      "Latency of a single embedding API call.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, providerLabels)

	EmbeddingTokensTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: embeddingSubsystem,
		Name:      "tokens_total",
		Help:      "Tokens billed by the provider, split by type (prompt, total).",
	}, withLabels("type"))

	EmbeddingErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: embeddingSubsystem,
		Name:      "errors_total",
		Help:      "Failed embedding calls by cause (rate_limit, timeout, upstream, invalid).",
	}, withLabels("error_type"))

	EmbeddingBatchInputs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: embeddingSubsystem,
		Name:      "batch_inputs",
		Help:      "Texts sent per embedding API call.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 9),
	}, providerLabels)
)

// EmbeddingCacheTotal counts vector cache lookups. Label result is "hit" or "miss".
var EmbeddingCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: embeddingSubsystem,
	Name:      "cache_lookups_total",
	Help:      "Query vector cache lookups by result.",
}, []string{"result"})

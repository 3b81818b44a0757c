// Package metrics holds the Prometheus collectors for the HTTP surface,
// the embedding provider and the search pipeline.
package metrics

import (
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "footage"

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		httpRequestDuration, httpRequestsTotal, httpInflight, httpStreamEvents,
		EmbeddingRequestsTotal, EmbeddingRequestDuration, EmbeddingTokensTotal,
		EmbeddingErrorsTotal, EmbeddingCacheTotal, EmbeddingBatchInputs,
		SearchStageDuration, SearchRequestsTotal, SearchUnderstandingFallbackTotal,
		SearchFallbackTotal, SearchHybridTotal, SearchRerankDegradedTotal,
	}
}

var (
	registerOnce sync.Once
	registerErr  error
)

// Register adds every collector to reg. Later calls return the first result,
// and collectors already present in reg are accepted.
func Register(reg prometheus.Registerer) error {
	registerOnce.Do(func() {
		for _, c := range collectors() {
			if err := reg.Register(c); err != nil {
				var are prometheus.AlreadyRegisteredError
				if errors.As(err, &are) {
					continue
				}
				registerErr = fmt.Errorf("register metrics: %w", err)
				return
			}
		}
	})
	return registerErr
}

// MustRegister registers with the default registerer and panics on conflict.
func MustRegister() {
	if err := Register(prometheus.DefaultRegisterer); err != nil {
		panic(err)
	}
}

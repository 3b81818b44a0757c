package client

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Call outcomes recorded by the client metrics.
const (
	outcomeOK        = "ok"
	outcomeAPI       = "api_error"
	outcomeStream    = "stream_error"
	outcomeTransport = "transport_error"
)

func outcome(err error) string {
	var apiErr *APIError
	var streamErr *StreamError
	switch {
	case err == nil:
		return outcomeOK
	case errors.As(err, &apiErr):
		return outcomeAPI
	case errors.As(err, &streamErr):
		return outcomeStream
	default:
		return outcomeTransport
	}
}

type clientMetrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	frames   *prometheus.CounterVec
}

func newClientMetrics(reg prometheus.Registerer) (*clientMetrics, error) {
	opts := func(name, help string) prometheus.Opts {
		return prometheus.Opts{Namespace: "footage", Subsystem: "client", Name: name, Help: help}
	}
	m := &clientMetrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts(
			opts("calls_total", "Client calls by operation and outcome.")),
			[]string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "footage",
			Subsystem: "client",
			Name:      "call_duration_seconds",
			Help:      "Client call latency. Streams are timed until the last frame.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
		}, []string{"operation"}),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts(
			opts("stream_frames_total", "Stream frames received by type.")),
			[]string{"type"}),
	}
	if err := adopt(reg, &m.calls); err != nil {
		return nil, err
	}
	if err := adopt(reg, &m.duration); err != nil {
		return nil, err
	}
	if err := adopt(reg, &m.frames); err != nil {
		return nil, err
	}
	return m, nil
}

// adopt registers *c, or swaps in the collector a previous client already registered.
func adopt[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	err := reg.Register(*c)
	var are prometheus.AlreadyRegisteredError
	switch {
	case err == nil:
		return nil
	case !errors.As(err, &are):
		return fmt.Errorf("footage client: register metric: %w", err)
	}
	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return fmt.Errorf("footage client: metric registered with type %T", are.ExistingCollector)
	}
	*c = existing
	return nil
}

// observer records metrics and logs for every call. Both sinks are optional.
type observer struct {
	logger  *slog.Logger
	metrics *clientMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	o := &observer{logger: logger}
	if reg == nil {
		return o, nil
	}
	m, err := newClientMetrics(reg)
	if err != nil {
		return nil, err
	}
	o.metrics = m
	return o, nil
}

// start begins timing op. The returned func is called once with the call's result.
func (o *observer) start(op string) func(error) {
	begin := time.Now()
	return func(err error) {
		elapsed := time.Since(begin)
		if o.metrics != nil {
			o.metrics.calls.WithLabelValues(op, outcome(err)).Inc()
			o.metrics.duration.WithLabelValues(op).Observe(elapsed.Seconds())
		}
		if o.logger == nil {
			return
		}
		if err != nil {
			o.logger.Warn("footage call failed", "op", op, "duration", elapsed, "error", err)
			return
		}
		o.logger.Debug("footage call completed", "op", op, "duration", elapsed)
	}
}

func (o *observer) frame(typ string) {
	if o.metrics != nil {
		o.metrics.frames.WithLabelValues(typ).Inc()
	}
}

// Package embcache memoizes embedding vectors in the key-value store so
// repeated queries and re-indexing skip the provider.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/footage/internal/db"
	"github.com/kailas-cloud/footage/internal/domain"
)

type kv interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Options configure key layout and expiry.
type Options struct {
	// KeyPrefix namespaces cache keys, e.g. "footage:".
	KeyPrefix string
	// Model is folded into the key so switching models never serves stale vectors.
	Model string
	// Dimensions rejects cached vectors of another size. Zero accepts any size.
	Dimensions int
	// TTL of zero keeps entries forever.
	TTL time.Duration
}

// Embedder is a caching decorator over an embedding provider.
type Embedder struct {
	inner   domain.Embedder
	store   kv
	opts    Options
	lookups *prometheus.CounterVec
	logger  *zap.Logger
	flight  singleflight.Group
}

var _ domain.Vectorizer = (*Embedder)(nil)

// New wraps inner. lookups counts cache results under the "result" label (hit, miss) and may be nil.
func New(inner domain.Embedder, store kv, opts Options, lookups *prometheus.CounterVec, logger *zap.Logger) *Embedder {
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = domain.DefaultKeyPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Embedder{inner: inner, store: store, opts: opts, lookups: lookups, logger: logger}
}

// Embed serves a cached vector with zero token usage, or embeds and stores it.
// Concurrent misses for the same text share one provider call.
func (c *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.key(text)
	if vec, ok := c.load(ctx, key); ok {
		return domain.EmbeddingResult{Embedding: vec}, nil
	}

	var leader bool
	v, err, _ := c.flight.Do(key, func() (any, error) {
		leader = true
		res, err := c.inner.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		c.save(ctx, key, res.Embedding)
		return res, nil
	})
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}
	res := v.(domain.EmbeddingResult)
	if !leader {
		// usage belongs to the caller that reached the provider
		res.PromptTokens, res.TotalTokens = 0, 0
	}
	return res, nil
}

// BatchEmbed serves hits from the cache and sends each distinct miss to the
// provider once, in a single batch when the provider supports it.
func (c *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	out := make([][]float32, len(texts))
	first := make(map[string]int, len(texts))
	pending := make(map[string][]int)
	var missKeys, missTexts []string

	for i, t := range texts {
		key := c.key(t)
		if j, dup := first[key]; dup {
			if out[j] != nil {
				out[i] = out[j]
			} else {
				pending[key] = append(pending[key], i)
			}
			continue
		}
		first[key] = i
		if vec, ok := c.load(ctx, key); ok {
			out[i] = vec
			continue
		}
		pending[key] = []int{i}
		missKeys = append(missKeys, key)
		missTexts = append(missTexts, t)
	}
	if len(missTexts) == 0 {
		return domain.BatchEmbeddingResult{Embeddings: out}, nil
	}

	res, err := domain.EmbedAll(ctx, c.inner, missTexts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("embed batch: %w", err)
	}
	for j, key := range missKeys {
		for _, i := range pending[key] {
			out[i] = res.Embeddings[j]
		}
		c.save(ctx, key, res.Embeddings[j])
	}

	return domain.BatchEmbeddingResult{
		Embeddings:   out,
		PromptTokens: res.PromptTokens,
		TotalTokens:  res.TotalTokens,
	}, nil
}

// HealthCheck delegates to the wrapped provider when it supports health checks.
func (c *Embedder) HealthCheck(ctx context.Context) error {
	if hc, ok := c.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (c *Embedder) key(text string) string {
	h := sha256.Sum256([]byte(c.opts.Model + "\x00" + text))
	return c.opts.KeyPrefix + "emb_cache:" + hex.EncodeToString(h[:])
}

func (c *Embedder) load(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.store.Get(ctx, key)
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
	case err != nil:
		c.logger.Warn("Embedding cache read failed", zap.String("key", key), zap.Error(err))
	default:
		vec := db.DecodeVector(string(data))
		if len(vec) > 0 && (c.opts.Dimensions == 0 || len(vec) == c.opts.Dimensions) {
			c.count("hit")
			return vec, true
		}
		c.logger.Warn("Discarding malformed cached embedding",
			zap.String("key", key), zap.Int("bytes", len(data)), zap.Int("want_dim", c.opts.Dimensions))
	}
	c.count("miss")
	return nil, false
}

func (c *Embedder) save(ctx context.Context, key string, vec []float32) {
	if err := c.store.SetWithTTL(ctx, key, []byte(db.EncodeVector(vec)), c.opts.TTL); err != nil {
		c.logger.Warn("Embedding cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *Embedder) count(result string) {
	if c.lookups != nil {
		c.lookups.WithLabelValues(result).Inc()
	}
}

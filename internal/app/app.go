// Package app is the composition root shared by the footage binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/footage/internal/config"
	"github.com/kailas-cloud/footage/internal/db"
	dbRedis "github.com/kailas-cloud/footage/internal/db/redis"
	"github.com/kailas-cloud/footage/internal/domain"
	domclip "github.com/kailas-cloud/footage/internal/domain/clip"
	"github.com/kailas-cloud/footage/internal/domain/search/filter"
	"github.com/kailas-cloud/footage/internal/domain/search/result"
	"github.com/kailas-cloud/footage/internal/metrics"
	cliprepo "github.com/kailas-cloud/footage/internal/repository/clip"
	"github.com/kailas-cloud/footage/internal/repository/clipmem"
	"github.com/kailas-cloud/footage/internal/repository/embcache"
	"github.com/kailas-cloud/footage/internal/repository/scenefile"
	openaiTransport "github.com/kailas-cloud/footage/internal/transport/openai"
	"github.com/kailas-cloud/footage/internal/transport/rerank"
	embeddinguc "github.com/kailas-cloud/footage/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/footage/internal/usecase/health"
	indexuc "github.com/kailas-cloud/footage/internal/usecase/index"
	searchuc "github.com/kailas-cloud/footage/internal/usecase/search"
)

// ClipStore is implemented by both the Redis repository and the in-memory store.
type ClipStore interface {
	EnsureIndex(ctx context.Context) error
	Drop(ctx context.Context) error
	Upsert(ctx context.Context, items []domclip.Embedded) error
	Get(ctx context.Context, id string) (domclip.Clip, error)
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, vector []float32, k int, filters filter.Set) ([]result.Candidate, error)
	Count(ctx context.Context) (int, error)
}

var (
	_ ClipStore = (*cliprepo.Repo)(nil)
	_ ClipStore = (*clipmem.Store)(nil)
)

// App holds the wired services.
type App struct {
	Config config.Config
	Logger *zap.Logger

	Clips        ClipStore
	Search       *searchuc.Service
	Indexer      *indexuc.Service
	Health       *healthuc.Service
	Understander *openaiTransport.Understander
	Reranker     *rerank.Client

	// Scenes is the corpus loaded at startup; empty when no corpus is configured.
	Scenes []domclip.Scene

	closers []func()
}

// Close releases database connections.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// New connects storage and builds every service from cfg.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return nil, err
	}

	pinger, kv, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	scenes, err := loadCorpus(cfg.Corpus)
	if err != nil {
		a.Close()
		return nil, err
	}
	if len(scenes) == 0 {
		logger.Warn("No corpus loaded, query understanding uses the default vocabulary",
			zap.String("scenes_path", cfg.Corpus.ScenesPath))
	}
	a.Scenes = scenes

	base, queryEmbedder, docEmbedder := buildEmbedders(cfg.Embedding, cfg.Storage.KeyPrefix, kv, logger)

	a.Indexer = indexuc.New(a.Clips, docEmbedder, indexuc.Config{
		BatchSize: cfg.Embedding.BatchSize,
		Workers:   cfg.Embedding.Workers,
	}, logger.Named("index"))

	deps := searchuc.Dependencies{
		Embedder:  queryEmbedder,
		Retriever: a.Clips,
		Monitor:   metrics.SearchMonitor{},
		Logger:    logger.Named("search"),
	}
	if cfg.Understanding.Enabled {
		a.Understander = buildUnderstander(cfg, scenes, logger)
		deps.Understander = a.Understander
	}
	if cfg.Rerank.Enabled {
		a.Reranker, err = rerank.New(rerank.Config{
			URL:     cfg.Rerank.URL,
			APIKey:  cfg.Rerank.APIKey,
			Model:   cfg.Rerank.Model,
			Timeout: time.Duration(cfg.Rerank.TimeoutSec) * time.Second,
			Logger:  logger.Named("rerank"),
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("rerank client: %w", err)
		}
		deps.Reranker = a.Reranker
	}
	a.Search = searchuc.New(deps, SearchConfig(cfg.Search))

	a.Health = healthuc.New(pinger).With("embedding", base)
	if a.Reranker != nil {
		a.Health.With("rerank", a.Reranker)
	}

	logger.Info("Services wired",
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Bool("understanding", deps.Understander != nil),
		zap.Bool("rerank", deps.Reranker != nil),
		zap.Int("scenes", len(scenes)),
	)
	return a, nil
}

// openStore sets a.Clips and returns the health pinger and the optional embedding cache store.
func (a *App) openStore(ctx context.Context) (healthuc.Pinger, db.KVStore, error) {
	cfg := a.Config
	switch cfg.Database.Driver {
	case config.DriverMemory:
		mem := clipmem.New(cfg.Embedding.Dimensions)
		a.Clips = mem
		return mem, nil, nil
	case config.DriverRedis:
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create redis store: %w", err)
		}
		a.closers = append(a.closers, store.Close)

		if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			return nil, nil, fmt.Errorf("database not ready: %w", err)
		}
		a.Logger.Info("Connected to database", zap.Strings("addrs", cfg.Database.Addrs))

		a.Clips = cliprepo.New(store, cfg.Storage.KeyPrefix, db.VectorParams{
			Algorithm:   db.VectorHNSW,
			Dim:         cfg.Embedding.Dimensions,
			Distance:    db.DistanceCosine,
			M:           cfg.Index.HNSWM,
			EFConstruct: cfg.Index.HNSWEFConstruct,
		})
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

// SearchConfig maps the search config section onto pipeline settings.
func SearchConfig(c config.SearchConfig) searchuc.Config {
	return searchuc.Config{
		Hybrid:         c.HybridEnabled(),
		InitialK:       c.InitialK,
		PoolMultiplier: c.InitialKMultiplier,
		FallbackMin:    c.FallbackMin,
		RRFK:           c.RRFK,
		HighThreshold:  c.ConfidenceHigh,
		LowThreshold:   c.ConfidenceLow,
		RerankMinScore: c.RerankMinScore,
		CallTimeout:    c.CallTimeout(),
	}
}

func loadCorpus(c config.CorpusConfig) ([]domclip.Scene, error) {
	if c.ScenesPath == "" && c.TranscriptPath == "" {
		return nil, nil
	}
	scenes, err := scenefile.LoadAll(c.ScenesPath, c.TranscriptPath, c.LinesPerClip)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	return scenes, nil
}

// buildEmbedders assembles the decorator chain OpenAI -> Cached -> Instrumented -> Instruction.
// base is the instrumented embedder without any instruction prefix.
func buildEmbedders(
	cfg config.EmbeddingConfig, keyPrefix string, kv db.KVStore, logger *zap.Logger,
) (base *embeddinguc.InstrumentedEmbedder, query, doc domain.Vectorizer) {
	provider := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Provider:   cfg.Provider,
		Logger:     logger,
	})

	var embedder domain.Embedder = provider
	if kv != nil && cfg.CacheEnabled() {
		embedder = embcache.New(provider, kv, embcache.Options{
			KeyPrefix:  keyPrefix,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			TTL:        cfg.CacheTTL(),
		}, metrics.EmbeddingCacheTotal, logger)
	}

	base = embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Provider, cfg.Model, logger)
	return base, domain.WithInstruction(base, cfg.QueryInstruction), domain.WithInstruction(base, cfg.DocumentInstruction)
}

func buildUnderstander(cfg config.Config, scenes []domclip.Scene, logger *zap.Logger) *openaiTransport.Understander {
	var vocab domclip.Vocabulary
	if len(scenes) > 0 {
		vocab = domclip.BuildVocabulary(scenes)
	}
	u := cfg.Understanding
	return openaiTransport.NewUnderstander(&openaiTransport.UnderstanderConfig{
		Config: openaiTransport.Config{
			APIKey:   u.APIKey,
			BaseURL:  u.BaseURL,
			Model:    u.Model,
			Provider: cfg.Embedding.Provider,
			Logger:   logger.Named("understanding"),
		},
		Title:       u.Title,
		Temperature: u.Temperature,
		MaxTokens:   u.MaxTokens,
		JSONMode:    u.JSONMode,
	}, vocab)
}

// IndexCorpusIfEmpty indexes the loaded corpus when the store holds no clips.
// The memory driver relies on it since nothing survives a restart.
func (a *App) IndexCorpusIfEmpty(ctx context.Context) error {
	n, err := a.Clips.Count(ctx)
	if err != nil {
		return fmt.Errorf("count clips: %w", err)
	}
	if n > 0 || len(a.Scenes) == 0 {
		return nil
	}
	a.Logger.Info("Clip store is empty, indexing corpus", zap.Int("scenes", len(a.Scenes)))
	if _, err := a.Indexer.Index(ctx, a.Scenes, indexuc.Options{}); err != nil {
		return fmt.Errorf("index corpus: %w", err)
	}
	return nil
}

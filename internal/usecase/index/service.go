// Package index turns corpus scenes into embedded, searchable clips.
package index

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/footage/internal/domain"
	domclip "github.com/kailas-cloud/footage/internal/domain/clip"
)

// Defaults for Config.
const (
	DefaultBatchSize = 32
	DefaultWorkers   = 4
)

// Config sizes the embedding work.
type Config struct {
	BatchSize int
	Workers   int
}

// Progress reports indexed clips so far.
type Progress struct {
	Done  int
	Total int
}

// Options controls one indexing run.
type Options struct {
	// Recreate drops the index and every stored clip first.
	Recreate bool
	// OnProgress is called after each stored batch. Calls are serialized.
	OnProgress func(Progress)
}

// Stats summarizes an indexing run.
type Stats struct {
	Scenes   int
	Clips    int
	Batches  int
	Tokens   int
	Duration time.Duration
}

// Service indexes scenes.
type Service struct {
	store    Store
	embedder Embedder
	cfg      Config
	logger   *zap.Logger
}

// New creates an indexing service.
func New(store Store, embedder Embedder, cfg Config, logger *zap.Logger) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, embedder: embedder, cfg: cfg, logger: logger}
}

// Clips derives the indexable clips of scenes. Duplicate clip ids keep the first occurrence.
func Clips(scenes []domclip.Scene) (clips []domclip.Clip, duplicates []string) {
	seen := make(map[string]struct{})
	for _, s := range scenes {
		for _, c := range s.Derive() {
			if _, ok := seen[c.ID]; ok {
				duplicates = append(duplicates, c.ID)
				continue
			}
			seen[c.ID] = struct{}{}
			clips = append(clips, c)
		}
	}
	return clips, duplicates
}

// Index embeds and stores every clip of scenes. The first failed batch cancels the rest.
func (s *Service) Index(ctx context.Context, scenes []domclip.Scene, opts Options) (Stats, error) {
	start := time.Now()

	clips, dups := Clips(scenes)
	if len(dups) > 0 {
		s.logger.Warn("Duplicate clip ids skipped", zap.Strings("clip_ids", dups))
	}

	if opts.Recreate {
		if err := s.store.Drop(ctx); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return Stats{}, fmt.Errorf("drop index: %w", err)
		}
		s.logger.Info("Index dropped for recreate")
	}
	if err := s.store.EnsureIndex(ctx); err != nil {
		return Stats{}, fmt.Errorf("ensure index: %w", err)
	}

	batches := chunk(clips, s.cfg.BatchSize)
	tokens, err := s.run(ctx, batches, len(clips), opts.OnProgress)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{
		Scenes:   len(scenes),
		Clips:    len(clips),
		Batches:  len(batches),
		Tokens:   tokens,
		Duration: time.Since(start),
	}
	s.logger.Info("Indexing completed",
		zap.Int("scenes", stats.Scenes),
		zap.Int("clips", stats.Clips),
		zap.Int("batches", stats.Batches),
		zap.Int("tokens", stats.Tokens),
		zap.Duration("duration", stats.Duration),
	)
	return stats, nil
}

func (s *Service) run(ctx context.Context, batches [][]domclip.Clip, total int, onProgress func(Progress)) (int, error) {
	if len(batches) == 0 {
		return 0, nil
	}

	pool, err := ants.NewPool(min(s.cfg.Workers, len(batches)))
	if err != nil {
		return 0, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		done   int
		tokens int
	)
	for i, batch := range batches {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			n, err := s.indexBatch(ctx, batch)
			if err != nil {
				cancel(fmt.Errorf("batch %d: %w", i, err))
				return
			}

			mu.Lock()
			defer mu.Unlock()
			done += len(batch)
			tokens += n
			if onProgress != nil {
				onProgress(Progress{Done: done, Total: total})
			}
		})
		if err != nil {
			wg.Done()
			cancel(fmt.Errorf("submit batch %d: %w", i, err))
			break
		}
	}
	wg.Wait()

	if err := context.Cause(ctx); err != nil {
		return 0, fmt.Errorf("index clips: %w", err)
	}
	return tokens, nil
}

func (s *Service) indexBatch(ctx context.Context, batch []domclip.Clip) (int, error) {
	texts := make([]string, len(batch))
	for i, c := range batch {
		texts[i] = c.RerankDocument()
	}

	res, err := s.embedder.BatchEmbed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed: %w", err)
	}
	if len(res.Embeddings) != len(batch) {
		return 0, fmt.Errorf("%w: got %d embeddings for %d clips", domain.ErrEmbedding, len(res.Embeddings), len(batch))
	}

	items := make([]domclip.Embedded, len(batch))
	for i, c := range batch {
		items[i] = domclip.Embedded{Clip: c, Vector: res.Embeddings[i]}
	}
	if err := s.store.Upsert(ctx, items); err != nil {
		return 0, fmt.Errorf("store: %w", err)
	}

	s.logger.Debug("Batch indexed", zap.Int("clips", len(batch)), zap.Int("tokens", res.TotalTokens))
	return res.TotalTokens, nil
}

func chunk(clips []domclip.Clip, size int) [][]domclip.Clip {
	var out [][]domclip.Clip
	for i := 0; i < len(clips); i += size {
		out = append(out, clips[i:min(i+size, len(clips))])
	}
	return out
}

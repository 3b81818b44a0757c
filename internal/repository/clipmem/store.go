// Package clipmem is an in-process clip store with exact cosine KNN.
// It backs the "memory" database driver for local runs and tests.
package clipmem

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/kailas-cloud/footage/internal/domain"
	domclip "github.com/kailas-cloud/footage/internal/domain/clip"
	"github.com/kailas-cloud/footage/internal/domain/search/filter"
	"github.com/kailas-cloud/footage/internal/domain/search/result"
)

// Store keeps embedded clips in memory.
type Store struct {
	mu    sync.RWMutex
	dim   int
	clips map[string]domclip.Embedded
}

// New creates an empty store for vectors of the given dimension.
func New(dim int) *Store {
	return &Store{dim: dim, clips: make(map[string]domclip.Embedded)}
}

// EnsureIndex is a no-op; the map is always ready.
func (s *Store) EnsureIndex(context.Context) error { return nil }

// Upsert stores clips, replacing existing ids.
func (s *Store) Upsert(_ context.Context, items []domclip.Embedded) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range items {
		if len(it.Vector) != s.dim {
			return fmt.Errorf("clip %s: vector dim %d, index expects %d", it.Clip.ID, len(it.Vector), s.dim)
		}
		vec := make([]float32, len(it.Vector))
		copy(vec, it.Vector)
		s.clips[it.Clip.ID] = domclip.Embedded{Clip: it.Clip, Vector: vec}
	}
	return nil
}

// Get returns one clip.
func (s *Store) Get(_ context.Context, id string) (domclip.Clip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.clips[id]
	if !ok {
		return domclip.Clip{}, fmt.Errorf("clip %s: %w", id, domain.ErrNotFound)
	}
	return e.Clip, nil
}

// Delete removes one clip.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clips[id]; !ok {
		return fmt.Errorf("clip %s: %w", id, domain.ErrNotFound)
	}
	delete(s.clips, id)
	return nil
}

// Search scores every clip that satisfies filters and returns the k most similar.
// Equal similarities order by clip id.
func (s *Store) Search(
	ctx context.Context, vector []float32, k int, filters filter.Set,
) ([]result.Candidate, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}
	if len(vector) != s.dim {
		return nil, fmt.Errorf("query vector dim %d, index expects %d", len(vector), s.dim)
	}

	s.mu.RLock()
	out := make([]result.Candidate, 0, len(s.clips))
	for _, e := range s.clips {
		if !filters.Matches(e.Clip) {
			continue
		}
		out = append(out, result.Candidate{Clip: e.Clip, Similarity: cosine(vector, e.Vector)})
	}
	s.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].ClipID() < out[j].ClipID()
	})
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

// Count returns the number of stored clips.
func (s *Store) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clips), nil
}

// Drop removes every clip.
func (s *Store) Drop(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clips = make(map[string]domclip.Embedded)
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

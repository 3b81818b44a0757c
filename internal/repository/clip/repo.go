package clip

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/footage/internal/db"
	"github.com/kailas-cloud/footage/internal/domain"
	domclip "github.com/kailas-cloud/footage/internal/domain/clip"
	"github.com/kailas-cloud/footage/internal/domain/search/filter"
	"github.com/kailas-cloud/footage/internal/domain/search/result"
)

// store is the consumer interface for clip storage (ISP).
//
//nolint:interfacebloat // clip repo needs hash, index and search operations
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
	CreateIndex(ctx context.Context, schema *db.Schema) error
	DropIndex(ctx context.Context, name string, deleteDocs bool) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// Repo stores clips as Redis hashes under one FT index and serves KNN retrieval.
type Repo struct {
	store  store
	prefix string
	vector db.VectorParams
}

// New creates a clip repository. prefix namespaces every key (e.g. "footage:").
func New(s store, prefix string, vector db.VectorParams) *Repo {
	if prefix == "" {
		prefix = domain.DefaultKeyPrefix
	}
	if vector.Distance == "" {
		vector.Distance = db.DistanceCosine
	}
	return &Repo{store: s, prefix: prefix, vector: vector}
}

// IndexName returns the FT index holding clips.
func (r *Repo) IndexName() string { return r.prefix + "clips:idx" }

func (r *Repo) keyPrefix() string { return r.prefix + "clip:" }

func (r *Repo) key(id string) string { return r.keyPrefix() + id }

// EnsureIndex creates the clip index when absent. Safe to call repeatedly.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, r.IndexName())
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	if exists {
		return nil
	}

	schema, err := buildSchema(r.IndexName(), r.keyPrefix(), r.vector)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	if err := r.store.CreateIndex(ctx, schema); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// Upsert writes clips with their vectors in one pipelined round-trip.
func (r *Repo) Upsert(ctx context.Context, items []domclip.Embedded) error {
	if len(items) == 0 {
		return nil
	}
	batch := make([]db.HashSetItem, 0, len(items))
	for _, it := range items {
		if len(it.Vector) != r.vector.Dim {
			return fmt.Errorf("clip %s: vector dim %d, index expects %d", it.Clip.ID, len(it.Vector), r.vector.Dim)
		}
		fields, err := toHash(it.Clip, it.Vector)
		if err != nil {
			return fmt.Errorf("clip %s: %w", it.Clip.ID, err)
		}
		batch = append(batch, db.HashSetItem{Key: r.key(it.Clip.ID), Fields: fields})
	}
	if err := r.store.HSetMulti(ctx, batch); err != nil {
		return fmt.Errorf("upsert clips: %w", err)
	}
	return nil
}

// Get loads one clip by id.
func (r *Repo) Get(ctx context.Context, id string) (domclip.Clip, error) {
	m, err := r.store.HGetAll(ctx, r.key(id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domclip.Clip{}, fmt.Errorf("clip %s: %w", id, domain.ErrNotFound)
		}
		return domclip.Clip{}, fmt.Errorf("get clip %s: %w", id, err)
	}
	return fromHash(m)
}

// Delete removes one clip.
func (r *Repo) Delete(ctx context.Context, id string) error {
	if err := r.store.Del(ctx, r.key(id)); err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return fmt.Errorf("clip %s: %w", id, domain.ErrNotFound)
		}
		return fmt.Errorf("delete clip %s: %w", id, err)
	}
	return nil
}

// Search returns up to k clips nearest to vector that satisfy filters, best first.
// Rank and Source are left for the caller to assign.
func (r *Repo) Search(
	ctx context.Context, vector []float32, k int, filters filter.Set,
) ([]result.Candidate, error) {
	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.IndexName(),
		Filters:      filters,
		Vector:       vector,
		K:            k,
		ReturnFields: []string{fieldPayload},
	})
	if err != nil {
		return nil, fmt.Errorf("search clips: %w", err)
	}
	if sr == nil || len(sr.Entries) == 0 {
		return nil, nil
	}

	out := make([]result.Candidate, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		c, err := fromHash(e.Fields)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", e.Key, err)
		}
		if c.ID == "" {
			c.ID = strings.TrimPrefix(e.Key, r.keyPrefix())
		}
		out = append(out, result.Candidate{Clip: c, Similarity: e.Score})
	}
	return out, nil
}

// Count returns the number of indexed clips.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, r.IndexName(), "*")
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("count clips: %w", err)
	}
	return n, nil
}

// Drop removes the index together with every indexed clip.
func (r *Repo) Drop(ctx context.Context) error {
	if err := r.store.DropIndex(ctx, r.IndexName(), true); err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return fmt.Errorf("index %s: %w", r.IndexName(), domain.ErrNotFound)
		}
		return fmt.Errorf("drop index: %w", err)
	}
	return nil
}

package clip

import (
	"context"
	"testing"

	"github.com/kailas-cloud/footage/internal/db"
	domclip "github.com/kailas-cloud/footage/internal/domain/clip"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hashes map[string]map[string]string
	index  *db.Schema

	indexExistsFn func(ctx context.Context, name string) (bool, error)
	searchKNNFn   func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	searchCountFn func(ctx context.Context, index, query string) (int, error)
	dropIndexFn   func(ctx context.Context, name string, deleteDocs bool) error
	createCalls   int
}

func (m *mockStore) HSetMulti(_ context.Context, items []db.HashSetItem) error {
	for _, it := range items {
		m.hashes[it.Key] = it.Fields
	}
	return nil
}

func (m *mockStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	h, ok := m.hashes[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return h, nil
}

func (m *mockStore) Del(_ context.Context, key string) error {
	if _, ok := m.hashes[key]; !ok {
		return db.ErrKeyNotFound
	}
	delete(m.hashes, key)
	return nil
}

func (m *mockStore) CreateIndex(_ context.Context, schema *db.Schema) error {
	m.createCalls++
	m.index = schema
	return nil
}

func (m *mockStore) DropIndex(ctx context.Context, name string, deleteDocs bool) error {
	if m.dropIndexFn != nil {
		return m.dropIndexFn(ctx, name, deleteDocs)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return m.index != nil, nil
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchCount(ctx context.Context, index, query string) (int, error) {
	if m.searchCountFn != nil {
		return m.searchCountFn(ctx, index, query)
	}
	return len(m.hashes), nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{hashes: map[string]map[string]string{}}
	repo := New(ms, "footage:", db.VectorParams{Algorithm: db.VectorHNSW, Dim: 3, M: 16, EFConstruct: 200})
	return repo, ms
}

func sampleClip() domclip.Clip {
	return domclip.Clip{
		ID:         "12-3",
		SceneID:    "12",
		Start:      61.5,
		End:        70,
		Location:   "CORLEONE HOUSE",
		TimeOfDay:  "NIGHT",
		IntExt:     "INT",
		Actors:     []string{"MICHAEL", "TOM HAGEN"},
		Snippet:    "We'll need a clean gun.",
		Transcript: "MICHAEL: We'll need a clean gun.",
	}
}

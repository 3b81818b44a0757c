// Package db declares the storage contracts the clip repository and the
// embedding cache are written against, plus the FT schema and vector codec
// shared by implementations.
package db

import (
	"context"
	"time"
)

// Store is everything the Redis-backed deployment needs from one connection.
type Store interface {
	Ping(ctx context.Context) error
	WaitForReady(ctx context.Context, timeout time.Duration) error
	Close()

	Hashes
	KVStore
	Indexes
	Searcher
}

// HashSetItem is one key and its fields for a pipelined HSET.
type HashSetItem struct {
	Key    string
	Fields map[string]string
}

// Hashes stores clips as flat hashes.
type Hashes interface {
	HSetMulti(ctx context.Context, items []HashSetItem) error
	// HGetAll returns ErrKeyNotFound for a missing key.
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	// Del returns ErrKeyNotFound when nothing was deleted.
	Del(ctx context.Context, key string) error
}

// KVStore holds opaque values such as cached embeddings.
type KVStore interface {
	// Get returns ErrKeyNotFound for a missing key.
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Indexes manages FT index lifecycle.
type Indexes interface {
	// CreateIndex returns ErrIndexExists when the name is taken.
	CreateIndex(ctx context.Context, schema *Schema) error
	// DropIndex returns ErrIndexNotFound when absent. With deleteDocs the indexed hashes go too.
	DropIndex(ctx context.Context, name string, deleteDocs bool) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Searcher runs FT.SEARCH queries.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

package index

import (
	"context"

	"github.com/kailas-cloud/footage/internal/domain"
	domclip "github.com/kailas-cloud/footage/internal/domain/clip"
)

// Store persists embedded clips.
type Store interface {
	EnsureIndex(ctx context.Context) error
	Drop(ctx context.Context) error
	Upsert(ctx context.Context, items []domclip.Embedded) error
	Count(ctx context.Context) (int, error)
}

// Embedder embeds clip transcripts in batches.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}

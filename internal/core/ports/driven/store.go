package driven

import (
	"context"

	"github.com/custodia-labs/ragsample/internal/core/domain"
)

// EmbeddingStore stores embeddings alongside the segments they were computed
// from and answers similarity queries.
//
// Implementations must be safe for concurrent use.
type EmbeddingStore interface {
	// Add stores one embedding with its segment and returns the record id.
	Add(ctx context.Context, embedding []float32, segment domain.TextSegment) (string, error)

	// AddAll stores a batch. embeddings and segments must have the same length,
	// otherwise domain.ErrInvalidInput is returned before anything is written.
	// Ids are returned in input order.
	AddAll(ctx context.Context, embeddings [][]float32, segments []domain.TextSegment) ([]string, error)

	// AddWithID stores an embedding under a caller-chosen id.
	// Stores that derive ids themselves return domain.ErrUnsupported.
	AddWithID(ctx context.Context, id string, embedding []float32) error

	// Search returns the stored segments most similar to req.Embedding,
	// most relevant first.
	Search(ctx context.Context, req domain.SearchRequest) ([]domain.SearchMatch, error)

	// Close releases connections and files held by the store.
	Close() error
}

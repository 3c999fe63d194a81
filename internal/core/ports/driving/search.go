package driving

import (
	"context"

	"github.com/custodia-labs/ragsample/internal/core/domain"
)

// SearchOptions tunes a retrieval. A zero MaxResults or a nil MinScore falls
// back to the configured default. MinScore 0 keeps every match.
type SearchOptions struct {
	MaxResults int
	MinScore   *float64
}

// RetrievalService finds stored segments relevant to a text query.
type RetrievalService interface {
	Retrieve(ctx context.Context, query string, opts SearchOptions) ([]domain.SearchMatch, error)
}

package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/ragsample/internal/core/domain"
	"github.com/custodia-labs/ragsample/internal/core/ports/driven"
	"github.com/custodia-labs/ragsample/internal/core/ports/driving"
	"github.com/custodia-labs/ragsample/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// RetrievalService embeds a query and looks it up in the embedding store.
type RetrievalService struct {
	embedder   driven.EmbeddingService
	store      driven.EmbeddingStore
	maxResults int
	minScore   float64
}

// NewRetrievalService creates a retrieval service. maxResults and minScore
// are used when a request leaves them unset.
func NewRetrievalService(
	embedder driven.EmbeddingService,
	store driven.EmbeddingStore,
	maxResults int,
	minScore float64,
) *RetrievalService {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &RetrievalService{
		embedder:   embedder,
		store:      store,
		maxResults: maxResults,
		minScore:   minScore,
	}
}

// Retrieve returns the stored segments most relevant to query.
func (s *RetrievalService) Retrieve(
	ctx context.Context, query string, opts driving.SearchOptions,
) ([]domain.SearchMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	if opts.MinScore != nil && (*opts.MinScore < 0 || *opts.MinScore > 1) {
		return nil, fmt.Errorf("%w: minScore must be in [0, 1], got %v", domain.ErrInvalidInput, *opts.MinScore)
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if s.store == nil {
		return nil, domain.ErrStoreUnavailable
	}

	req := domain.SearchRequest{MaxResults: opts.MaxResults, MinScore: s.minScore}
	if req.MaxResults <= 0 {
		req.MaxResults = s.maxResults
	}
	if opts.MinScore != nil {
		req.MinScore = *opts.MinScore
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	req.Embedding = embedding

	matches, err := s.store.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	logger.Debug("Retrieved %d segments (max %d, min score %.2f)", len(matches), req.MaxResults, req.MinScore)
	return matches, nil
}

// Package memory provides an in-process embedding store. Everything is lost
// when the process exits, so it suits single-command runs and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/custodia-labs/ragsample/internal/adapters/driven/storage/vecmath"
	"github.com/custodia-labs/ragsample/internal/core/domain"
	"github.com/custodia-labs/ragsample/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.EmbeddingStore = (*Store)(nil)

type entry struct {
	id        string
	embedding []float32
	segment   *domain.TextSegment
}

// Store is an in-memory implementation of driven.EmbeddingStore.
// Search is an exhaustive cosine scan.
type Store struct {
	mu      sync.RWMutex
	entries []entry
	index   map[string]int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{index: make(map[string]int)}
}

// Add stores an embedding under a random id.
func (s *Store) Add(_ context.Context, embedding []float32, segment domain.TextSegment) (string, error) {
	id := uuid.NewString()
	s.put(id, embedding, &segment)
	return id, nil
}

// AddAll stores a batch under random ids.
func (s *Store) AddAll(ctx context.Context, embeddings [][]float32, segments []domain.TextSegment) ([]string, error) {
	if len(embeddings) != len(segments) {
		return nil, fmt.Errorf("%w: %d embeddings but %d segments",
			domain.ErrInvalidInput, len(embeddings), len(segments))
	}
	ids := make([]string, len(embeddings))
	for i := range embeddings {
		id, err := s.Add(ctx, embeddings[i], segments[i])
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

// AddWithID stores an embedding without a segment, replacing any entry with the same id.
func (s *Store) AddWithID(_ context.Context, id string, embedding []float32) error {
	if id == "" {
		return fmt.Errorf("%w: empty id", domain.ErrInvalidInput)
	}
	s.put(id, embedding, nil)
	return nil
}

func (s *Store) put(id string, embedding []float32, segment *domain.TextSegment) {
	e := entry{id: id, embedding: append([]float32(nil), embedding...), segment: segment}

	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.index[id]; ok {
		s.entries[i] = e
		return
	}
	s.index[id] = len(s.entries)
	s.entries = append(s.entries, e)
}

// Search scores every entry against the query.
func (s *Store) Search(_ context.Context, req domain.SearchRequest) ([]domain.SearchMatch, error) {
	if req.MaxResults <= 0 {
		return nil, fmt.Errorf("%w: maxResults must be positive, got %d", domain.ErrInvalidInput, req.MaxResults)
	}

	s.mu.RLock()
	matches := make([]domain.SearchMatch, 0, len(s.entries))
	for _, e := range s.entries {
		m := domain.SearchMatch{
			Score:     vecmath.Relevance(vecmath.Cosine(req.Embedding, e.embedding)),
			ID:        e.id,
			Embedding: e.embedding,
		}
		if e.segment != nil {
			m.Segment = *e.segment
		}
		matches = append(matches, m)
	}
	s.mu.RUnlock()

	return vecmath.Rank(matches, req.MaxResults, req.MinScore), nil
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

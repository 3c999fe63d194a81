package vespa

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/custodia-labs/ragsample/internal/core/domain"
	"github.com/custodia-labs/ragsample/internal/core/ports/driven"
	"github.com/custodia-labs/ragsample/internal/logger"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("vespa: store closed")

// Store is a driven.EmbeddingStore backed by Vespa. It holds no state besides
// its connection pool and is safe for concurrent use.
type Store struct {
	cfg     Config
	handler DocumentHandler
	feed    *FeedClient
	search  *SearchClient
	client  *http.Client

	mu       sync.RWMutex
	closed   bool
	inflight sync.WaitGroup
}

var _ driven.EmbeddingStore = (*Store)(nil)

// New creates a store from cfg. Unset fields take their defaults.
func New(cfg Config) (*Store, error) {
	cfg = cfg.normalise()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	handler, err := NewHandler(cfg.Handler, QueryOptions{
		RankProfile:      cfg.RankProfile,
		RankingInputName: cfg.RankingInputName,
		TargetHits:       cfg.TargetHits,
	})
	if err != nil {
		return nil, err
	}

	client, err := newHTTPClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vespa http client: %w", err)
	}

	logger.Debug("vespa: search %s, feed %s, schema %s:%s", cfg.URL, cfg.FeedURL, handler.Namespace(), handler.DocType())

	return &Store{
		cfg:     cfg,
		handler: handler,
		feed:    NewFeedClient(client, cfg, handler),
		search:  NewSearchClient(client, cfg, handler),
		client:  client,
	}, nil
}

// Handler returns the active document handler.
func (s *Store) Handler() DocumentHandler {
	return s.handler
}

// DocumentID derives the id a segment is stored under.
func (s *Store) DocumentID(segment domain.TextSegment) DocumentID {
	return DocumentID{
		Namespace: s.handler.Namespace(),
		DocType:   s.handler.DocType(),
		UserKey:   userKey(segment, s.cfg.AvoidDups),
	}
}

// Add implements driven.EmbeddingStore.
func (s *Store) Add(ctx context.Context, embedding []float32, segment domain.TextSegment) (string, error) {
	ids, err := s.AddAll(ctx, [][]float32{embedding}, []domain.TextSegment{segment})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// AddAll implements driven.EmbeddingStore. The batch fails as a whole: when
// any record is rejected no ids are returned.
func (s *Store) AddAll(ctx context.Context, embeddings [][]float32, segments []domain.TextSegment) ([]string, error) {
	if len(embeddings) != len(segments) {
		return nil, fmt.Errorf("%w: %d embeddings but %d segments",
			domain.ErrInvalidInput, len(embeddings), len(segments))
	}
	if len(embeddings) == 0 {
		return nil, nil
	}

	done, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer done()

	records := make([]InsertRecord, len(segments))
	for i, seg := range segments {
		records[i] = s.handler.Record(s.DocumentID(seg), embeddings[i], seg)
	}
	if s.cfg.LogRequests && logger.IsVerbose() {
		var buf bytes.Buffer
		if err := EncodeFeed(&buf, records); err == nil {
			logger.Debug("vespa feed batch:\n%s", buf.String())
		}
	}

	defer logger.Timed(fmt.Sprintf("vespa feed of %d records", len(records)))()
	results, err := s.feed.Feed(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("vespa add: %w", err)
	}

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	return ids, nil
}

// AddWithID implements driven.EmbeddingStore. Ids are always derived from
// the segment, so explicit ids are not supported.
func (s *Store) AddWithID(_ context.Context, id string, _ []float32) error {
	return fmt.Errorf("vespa add %q: %w", id, domain.ErrUnsupported)
}

// Search implements driven.EmbeddingStore.
func (s *Store) Search(ctx context.Context, req domain.SearchRequest) ([]domain.SearchMatch, error) {
	done, err := s.begin()
	if err != nil {
		return nil, err
	}
	defer done()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	matches, err := s.search.Search(ctx, req.Embedding, req.MaxResults, req.MinScore)
	if err != nil {
		return nil, fmt.Errorf("vespa search: %w", err)
	}
	return matches, nil
}

// Close waits for in-flight requests to finish and then releases idle
// connections. Further calls fail with ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.inflight.Wait()
	s.client.CloseIdleConnections()
	return nil
}

func (s *Store) begin() (func(), error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	s.inflight.Add(1)
	return s.inflight.Done, nil
}

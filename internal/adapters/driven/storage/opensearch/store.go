// Package opensearch implements driven.EmbeddingStore on an OpenSearch
// k-NN index.
//
// The index is created on first write with a knn_vector field sized from
// the first embedding. Documents hold the vector, the segment text and the
// segment metadata. Queries use the k-NN plugin's knn_score script with the
// cosinesimil space, whose score is 1+cosine; it is halved so relevance is
// in [0,1] like the other stores.
package opensearch

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/opensearch-project/opensearch-go/v4"
	"github.com/opensearch-project/opensearch-go/v4/opensearchapi"

	"github.com/custodia-labs/ragsample/internal/adapters/driven/storage/vecmath"
	"github.com/custodia-labs/ragsample/internal/core/domain"
	"github.com/custodia-labs/ragsample/internal/core/ports/driven"
	"github.com/custodia-labs/ragsample/internal/logger"
)

// Config holds OpenSearch connection settings.
type Config struct {
	URL       string
	Username  string
	Password  string
	IndexName string
	Timeout   time.Duration

	// InsecureSkipVerify accepts self-signed certificates, as used by the
	// OpenSearch demo configuration.
	InsecureSkipVerify bool
}

// Defaults.
const (
	DefaultURL       = "http://localhost:9200"
	DefaultIndexName = "rag-sample"
	DefaultTimeout   = 10 * time.Second
)

// Ensure Store implements the interface.
var _ driven.EmbeddingStore = (*Store)(nil)

// Store is an OpenSearch-backed embedding store.
type Store struct {
	cfg       Config
	client    *opensearchapi.Client
	transport *http.Transport

	mu         sync.Mutex
	indexReady bool
}

// New creates a store. No request is made until the first write or search.
func New(cfg Config) (*Store, error) {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	if cfg.IndexName == "" {
		cfg.IndexName = DefaultIndexName
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for demo clusters
	}

	client, err := opensearchapi.NewClient(opensearchapi.Config{
		Client: opensearch.Config{
			Addresses: []string{cfg.URL},
			Username:  cfg.Username,
			Password:  cfg.Password,
			Transport: transport,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: opensearch client: %w", domain.ErrInvalidInput, err)
	}

	return &Store{cfg: cfg, client: client, transport: transport}, nil
}

type document struct {
	Vector   []float32       `json:"vector"`
	Text     *string         `json:"text,omitempty"`
	Metadata domain.Metadata `json:"metadata"`
}

// Add stores one embedding under a random id.
func (s *Store) Add(ctx context.Context, embedding []float32, segment domain.TextSegment) (string, error) {
	ids, err := s.AddAll(ctx, [][]float32{embedding}, []domain.TextSegment{segment})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// AddAll stores a batch with a single _bulk request.
func (s *Store) AddAll(ctx context.Context, embeddings [][]float32, segments []domain.TextSegment) ([]string, error) {
	if len(embeddings) != len(segments) {
		return nil, fmt.Errorf("%w: %d embeddings but %d segments",
			domain.ErrInvalidInput, len(embeddings), len(segments))
	}
	if len(embeddings) == 0 {
		return nil, nil
	}

	ids := make([]string, len(embeddings))
	docs := make([]document, len(embeddings))
	for i := range embeddings {
		ids[i] = uuid.NewString()
		text := segments[i].Text
		docs[i] = document{Vector: embeddings[i], Text: &text, Metadata: segments[i].Metadata}
	}

	if err := s.bulk(ctx, ids, docs); err != nil {
		return nil, err
	}
	return ids, nil
}

// AddWithID stores an embedding without text under id.
func (s *Store) AddWithID(ctx context.Context, id string, embedding []float32) error {
	if id == "" {
		return fmt.Errorf("%w: empty id", domain.ErrInvalidInput)
	}
	return s.bulk(ctx, []string{id}, []document{{Vector: embedding}})
}

func (s *Store) bulk(ctx context.Context, ids []string, docs []document) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	if err := s.ensureIndex(ctx, len(docs[0].Vector)); err != nil {
		return err
	}

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for i, doc := range docs {
		action := map[string]any{"index": map[string]string{"_index": s.cfg.IndexName, "_id": ids[i]}}
		if err := enc.Encode(action); err != nil {
			return fmt.Errorf("encode bulk action: %w", err)
		}
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode document %s: %w", ids[i], err)
		}
	}

	resp, err := s.client.Bulk(ctx, opensearchapi.BulkReq{
		Body:   &body,
		Params: opensearchapi.BulkParams{Refresh: "true"},
	})
	if err != nil {
		var raw *opensearch.Response
		if resp != nil {
			raw = resp.Inspect().Response
		}
		return fmt.Errorf("opensearch bulk: %w", classify(raw, err))
	}
	if !resp.Errors {
		return nil
	}

	var failed int
	var reason string
	for _, item := range resp.Items {
		for _, r := range item {
			if r.Error != nil {
				failed++
				if reason == "" {
					reason = fmt.Sprintf("%s: %s: %s", r.ID, r.Error.Type, r.Error.Reason)
				}
			}
		}
	}
	return fmt.Errorf("opensearch bulk: %w: %d of %d documents rejected: %s", domain.ErrFeed, failed, len(ids), reason)
}

// ensureIndex creates the index with a k-NN mapping unless it exists.
func (s *Store) ensureIndex(ctx context.Context, dims int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexReady {
		return nil
	}

	exists, err := s.indexExists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		mapping := map[string]any{
			"settings": map[string]any{"index": map[string]any{"knn": true}},
			"mappings": map[string]any{
				"properties": map[string]any{
					"vector":   map[string]any{"type": "knn_vector", "dimension": dims},
					"text":     map[string]any{"type": "text"},
					"metadata": map[string]any{"type": "object"},
				},
			},
		}
		body, err := json.Marshal(mapping)
		if err != nil {
			return fmt.Errorf("encode mapping: %w", err)
		}
		resp, err := s.client.Indices.Create(ctx, opensearchapi.IndicesCreateReq{
			Index: s.cfg.IndexName,
			Body:  bytes.NewReader(body),
		})
		if err != nil {
			var raw *opensearch.Response
			if resp != nil {
				raw = resp.Inspect().Response
			}
			return fmt.Errorf("create index %s: %w", s.cfg.IndexName, classify(raw, err))
		}
		logger.Info("opensearch: created index %s (%d dimensions)", s.cfg.IndexName, dims)
	}

	s.indexReady = true
	return nil
}

func (s *Store) indexExists(ctx context.Context) (bool, error) {
	resp, err := s.client.Indices.Exists(ctx, opensearchapi.IndicesExistsReq{
		Indices: []string{s.cfg.IndexName},
	})
	if resp != nil {
		switch resp.StatusCode {
		case http.StatusOK:
			return true, nil
		case http.StatusNotFound:
			return false, nil
		}
	}
	if err == nil {
		err = errors.New("unexpected response")
	}
	return false, fmt.Errorf("check index %s: %w", s.cfg.IndexName, classify(resp, err))
}

// Search runs a knn_score script query.
func (s *Store) Search(ctx context.Context, req domain.SearchRequest) ([]domain.SearchMatch, error) {
	if req.MaxResults <= 0 {
		return nil, fmt.Errorf("%w: maxResults must be positive, got %d", domain.ErrInvalidInput, req.MaxResults)
	}

	query := map[string]any{
		"size": req.MaxResults,
		"query": map[string]any{
			"script_score": map[string]any{
				"query": map[string]any{"match_all": map[string]any{}},
				"script": map[string]any{
					"source": "knn_score",
					"lang":   "knn",
					"params": map[string]any{
						"field":       "vector",
						"query_value": req.Embedding,
						"space_type":  "cosinesimil",
					},
				},
			},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	resp, err := s.client.Search(ctx, &opensearchapi.SearchReq{
		Indices: []string{s.cfg.IndexName},
		Body:    bytes.NewReader(body),
	})
	if err != nil {
		var raw *opensearch.Response
		if resp != nil {
			raw = resp.Inspect().Response
		}
		if isIndexMissing(raw, err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opensearch search: %w", classify(raw, err))
	}

	matches := make([]domain.SearchMatch, 0, len(resp.Hits.Hits))
	for _, h := range resp.Hits.Hits {
		var src document
		if err := json.Unmarshal(h.Source, &src); err != nil {
			return nil, fmt.Errorf("opensearch search: %w: hit %s: %w", domain.ErrParse, h.ID, err)
		}
		var text string
		if src.Text != nil {
			text = *src.Text
		}
		matches = append(matches, domain.SearchMatch{
			Score:     float64(h.Score) / 2,
			ID:        h.ID,
			Embedding: src.Vector,
			Segment:   domain.TextSegment{Text: text, Metadata: src.Metadata},
		})
	}
	return vecmath.Rank(matches, req.MaxResults, req.MinScore), nil
}

// Close releases idle connections.
func (s *Store) Close() error {
	s.transport.CloseIdleConnections()
	return nil
}

// classify maps a client error onto the domain errors: no response is a
// transport failure, an error status is a backend failure.
func classify(resp *opensearch.Response, err error) error {
	if resp == nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %w", domain.ErrTransport, err)
	}
	return fmt.Errorf("%w: opensearch status %d: %w", domain.ErrBackend, resp.StatusCode, err)
}

func isIndexMissing(resp *opensearch.Response, err error) bool {
	var se *opensearch.StructError
	if errors.As(err, &se) {
		return se.Status == http.StatusNotFound && se.Err.Type == "index_not_found_exception"
	}
	return resp != nil && resp.StatusCode == http.StatusNotFound && strings.Contains(err.Error(), "index_not_found")
}

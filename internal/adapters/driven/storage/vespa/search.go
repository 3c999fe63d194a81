package vespa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/custodia-labs/ragsample/internal/core/domain"
)

// SearchClient runs nearest-neighbour queries against /search/.
type SearchClient struct {
	t        *transport
	endpoint string
	handler  DocumentHandler
}

// NewSearchClient returns a search client for the handler's schema.
func NewSearchClient(client *http.Client, cfg Config, handler DocumentHandler) *SearchClient {
	cfg = cfg.normalise()
	return &SearchClient{
		t:        &transport{client: client, logRequests: cfg.LogRequests},
		endpoint: cfg.URL + "/search/",
		handler:  handler,
	}
}

// searchResult is the part of a Vespa result tree the client reads.
type searchResult struct {
	Root *struct {
		Errors   json.RawMessage `json:"errors"`
		Children []searchHit     `json:"children"`
	} `json:"root"`
}

type searchHit struct {
	ID        *string  `json:"id"`
	Relevance *float64 `json:"relevance"`
	Fields    Fields   `json:"fields"`
}

// Search returns the hits for embedding in the order Vespa ranked them.
// minScore is passed to the rank profile as query(threshold); it is not
// applied locally.
func (c *SearchClient) Search(ctx context.Context, embedding []float32, maxResults int, minScore float64) ([]domain.SearchMatch, error) {
	if maxResults <= 0 {
		return nil, fmt.Errorf("%w: maxResults must be positive, got %d", domain.ErrInvalidInput, maxResults)
	}
	if minScore < 0 || minScore > 1 {
		return nil, fmt.Errorf("%w: minScore must be in [0,1], got %g", domain.ErrInvalidInput, minScore)
	}
	if len(embedding) == 0 {
		return nil, fmt.Errorf("%w: empty query embedding", domain.ErrInvalidInput)
	}

	query := c.handler.Query(embedding, maxResults, minScore)
	status, body, err := c.t.do(ctx, http.MethodPost, c.endpoint, query)
	if err != nil {
		return nil, err
	}

	var result searchResult
	if err := json.Unmarshal(body, &result); err != nil || result.Root == nil {
		if !isSuccess(status) {
			return nil, fmt.Errorf("%w: status %d: %s", domain.ErrBackend, status, strings.TrimSpace(string(body)))
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrParse, err)
		}
		return nil, fmt.Errorf("%w: response has no root", domain.ErrParse)
	}

	if errs := result.Root.Errors; hasErrors(errs) {
		return nil, fmt.Errorf("%w: %s", domain.ErrBackend, compact(errs))
	}
	if !isSuccess(status) {
		return nil, fmt.Errorf("%w: status %d", domain.ErrBackend, status)
	}

	matches := make([]domain.SearchMatch, 0, len(result.Root.Children))
	for i, hit := range result.Root.Children {
		m, err := c.toMatch(hit)
		if err != nil {
			return nil, fmt.Errorf("hit %d: %w", i, err)
		}
		matches = append(matches, m)
	}
	return matches, nil
}

func (c *SearchClient) toMatch(hit searchHit) (domain.SearchMatch, error) {
	if hit.ID == nil {
		return domain.SearchMatch{}, fmt.Errorf("%w: hit has no id", domain.ErrParse)
	}
	if hit.Relevance == nil {
		return domain.SearchMatch{}, fmt.Errorf("%w: hit %s has no relevance", domain.ErrParse, *hit.ID)
	}
	if hit.Fields == nil {
		return domain.SearchMatch{}, fmt.Errorf("%w: hit %s has no fields", domain.ErrParse, *hit.ID)
	}

	content, err := c.handler.Content(hit.Fields)
	if err != nil {
		return domain.SearchMatch{}, err
	}
	embedding, err := c.handler.Embedding(hit.Fields)
	if err != nil {
		return domain.SearchMatch{}, err
	}
	md, err := c.handler.Metadata(hit.Fields)
	if err != nil {
		return domain.SearchMatch{}, err
	}

	return domain.SearchMatch{
		Score:     *hit.Relevance,
		ID:        *hit.ID,
		Embedding: embedding,
		Segment:   domain.TextSegment{Text: content, Metadata: md},
	}, nil
}

func hasErrors(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s != "" && s != "null" && s != "[]"
}

func compact(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

package vespa

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/ragsample/internal/core/domain"
)

// FeedResult is the outcome of feeding one record.
type FeedResult struct {
	ID  string
	Err error
}

// FeedClient writes records through the /document/v1 API, one request per
// record with at most Concurrency requests in flight.
type FeedClient struct {
	t           *transport
	endpoint    string
	namespace   string
	docType     string
	concurrency int
}

// NewFeedClient returns a feed client for documents of the handler's type.
func NewFeedClient(client *http.Client, cfg Config, handler DocumentHandler) *FeedClient {
	cfg = cfg.normalise()
	return &FeedClient{
		t:           &transport{client: client, logRequests: cfg.LogRequests},
		endpoint:    cfg.FeedURL,
		namespace:   handler.Namespace(),
		docType:     handler.DocType(),
		concurrency: cfg.FeedConcurrency,
	}
}

// Feed writes every record and returns one result per record, in input order.
// If any record fails, the error wraps domain.ErrFeed and the first failure;
// the results are still returned so callers can tell which records failed.
func (c *FeedClient) Feed(ctx context.Context, records []InsertRecord) ([]FeedResult, error) {
	results := make([]FeedResult, len(records))

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, rec := range records {
		g.Go(func() error {
			results[i] = FeedResult{ID: rec.ID, Err: c.put(ctx, rec)}
			return nil
		})
	}
	_ = g.Wait()

	var failed int
	var first error
	for _, r := range results {
		if r.Err != nil {
			failed++
			if first == nil {
				first = fmt.Errorf("%s: %w", r.ID, r.Err)
			}
		}
	}
	if failed > 0 {
		return results, fmt.Errorf("%w: %d of %d records rejected: %w", domain.ErrFeed, failed, len(records), first)
	}
	return results, nil
}

func (c *FeedClient) put(ctx context.Context, rec InsertRecord) error {
	id, err := ParseDocumentID(rec.ID)
	if err != nil {
		return err
	}
	if id.Namespace != c.namespace || id.DocType != c.docType {
		return fmt.Errorf("%w: %s is not a %s:%s document", domain.ErrInvalidInput, rec.ID, c.namespace, c.docType)
	}

	path := fmt.Sprintf("%s/document/v1/%s/%s/docid/%s",
		c.endpoint, url.PathEscape(id.Namespace), url.PathEscape(id.DocType), url.PathEscape(id.UserKey))

	status, body, err := c.t.do(ctx, http.MethodPost, path, map[string]any{"fields": rec.Fields})
	if err != nil {
		return err
	}
	if !isSuccess(status) {
		return fmt.Errorf("%w: status %d: %s", domain.ErrBackend, status, feedMessage(body))
	}
	return nil
}

// feedMessage extracts the "message" of a document/v1 error response.
func feedMessage(body []byte) string {
	var resp struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &resp); err == nil && resp.Message != "" {
		return resp.Message
	}
	return strings.TrimSpace(string(body))
}

// EncodeFeed writes records as a JSON array in the format accepted by
// `vespa feed`, one record per line.
func EncodeFeed(w io.Writer, records []InsertRecord) error {
	if _, err := io.WriteString(w, "[\n"); err != nil {
		return err
	}
	for i, rec := range records {
		data, err := json.Marshal(struct {
			Put    string         `json:"put"`
			Fields map[string]any `json:"fields"`
		}{rec.ID, rec.Fields})
		if err != nil {
			return fmt.Errorf("encode %s: %w", rec.ID, err)
		}
		if i < len(records)-1 {
			data = append(data, ',')
		}
		data = append(data, '\n')
		if _, err := w.Write(data); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "]\n")
	return err
}

// Package rss reads news articles linked from RSS and Atom feeds.
package rss

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/ragsample/internal/adapters/driven/reader/extract"
	"github.com/custodia-labs/ragsample/internal/core/domain"
	"github.com/custodia-labs/ragsample/internal/core/ports/driven"
	"github.com/custodia-labs/ragsample/internal/logger"
	"github.com/custodia-labs/ragsample/internal/telemetry"
)

// Ensure Reader implements the interface.
var _ driven.DocumentsReader = (*Reader)(nil)

// UserAgent is sent with every request; some news sites reject unknown clients.
const UserAgent = "Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:122.0) Gecko/20100101 Firefox/122.0"

// Defaults.
const (
	DefaultTimeout           = 30 * time.Second
	DefaultRequestsPerSecond = 2
	maxBodyBytes             = 16 << 20
)

// Config configures the feed reader.
type Config struct {
	Feeds             []string
	RequestsPerSecond float64
	Timeout           time.Duration
}

// Reader fetches each feed, then each article it links to.
type Reader struct {
	client  *http.Client
	limiter *rate.Limiter
	parser  *gofeed.Parser
	metrics *telemetry.Metrics

	mu       sync.Mutex
	feeds    []string
	articles []string
}

// NewReader creates a reader over the configured feeds. metrics may be nil.
func NewReader(cfg Config, metrics *telemetry.Metrics) *Reader {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	r := &Reader{
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		parser:  gofeed.NewParser(),
		metrics: metrics,
		feeds:   append([]string(nil), cfg.Feeds...),
	}
	r.updateGauges()
	return r
}

// Next returns the next article. Articles that cannot be fetched are logged
// and skipped; a feed that cannot be fetched is returned as an error.
func (r *Reader) Next(ctx context.Context) (*domain.Document, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		url, ok, err := r.nextArticle(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, io.EOF
		}

		doc, err := r.fetchArticle(ctx, url)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("rss: skipping article %s: %v", url, err)
			continue
		}
		return doc, nil
	}
}

// Pending returns the number of feeds and articles not yet read.
func (r *Reader) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.feeds) + len(r.articles)
}

// Close releases idle connections.
func (r *Reader) Close() error {
	r.client.CloseIdleConnections()
	return nil
}

// nextArticle pops the next article url, loading the next feed when needed.
func (r *Reader) nextArticle(ctx context.Context) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer r.updateGaugesLocked()

	for len(r.articles) == 0 {
		if len(r.feeds) == 0 {
			return "", false, nil
		}
		feed := r.feeds[0]
		r.feeds = r.feeds[1:]

		logger.Info("Reading RSS source: %s", feed)
		links, err := r.fetchFeed(ctx, feed)
		if err != nil {
			return "", false, fmt.Errorf("rss feed %s: %w", feed, err)
		}
		logger.Debug("rss: %d articles in %s", len(links), feed)
		r.articles = links
	}

	url := r.articles[0]
	r.articles = r.articles[1:]
	return url, true, nil
}

func (r *Reader) updateGauges() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateGaugesLocked()
}

func (r *Reader) updateGaugesLocked() {
	r.metrics.SetGauge(telemetry.RSSSourcesPending, len(r.feeds))
	r.metrics.SetGauge(telemetry.RSSArticlesPending, len(r.articles))
}

// fetchFeed returns the article links of an RSS 0.9x/1.0/2.0 or Atom feed.
// Items without a link fall back to their guid or id. Called with r.mu held.
func (r *Reader) fetchFeed(ctx context.Context, url string) ([]string, error) {
	defer r.metrics.Time(telemetry.RSSSourceMS)()

	body, err := r.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	feed, err := r.parser.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("%w: decode feed: %w", domain.ErrParse, err)
	}

	links := make([]string, 0, len(feed.Items))
	for _, item := range feed.Items {
		link := strings.TrimSpace(item.Link)
		if link == "" {
			link = strings.TrimSpace(item.GUID)
		}
		if link != "" {
			links = append(links, link)
		}
	}
	return links, nil
}

func (r *Reader) fetchArticle(ctx context.Context, url string) (*domain.Document, error) {
	defer r.metrics.Time(telemetry.RSSArticleMS)()

	body, err := r.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	page, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("%w: parse article: %w", domain.ErrParse, err)
	}
	return ArticleDocument(url, page), nil
}

// ArticleDocument builds the document for an article page.
func ArticleDocument(url string, page *goquery.Document) *domain.Document {
	newsID := extract.SourceID(url)
	meta := domain.NewMetadata(
		domain.MetadataURL, url,
		domain.MetadataTitle, Title(page),
		domain.MetadataNewsID, newsID,
		domain.MetadataSourceID, newsID,
		domain.MetadataTimestamp, Timestamp(page),
	)
	return &domain.Document{Text: extract.HTMLText(page), Metadata: meta}
}

// Title returns og:title, twitter:title or dc:title, else the <title> text.
func Title(page *goquery.Document) string {
	if title := extract.MetaContent(page, "og:title", "twitter:title", "dc:title", "dc.title"); title != "" {
		return title
	}
	return strings.TrimSpace(page.Find("title").First().Text())
}

// legacyLayout matches "Wed Mar 13 2024 11:51:14 GMT+0000".
const legacyLayout = "Mon Jan 2 2006 15:04:05 GMT-0700"

// Timestamp returns the article modification (else publication) time in
// epoch milliseconds, or "0" when it is missing or unparseable.
func Timestamp(page *goquery.Document) string {
	if ts := extract.MetaContent(page, "article:modified_time", "article:published_time"); ts != "" {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			return strconv.FormatInt(t.UnixMilli(), 10)
		}
		logger.Debug("rss: unparseable timestamp %q", ts)
		return "0"
	}

	ts := extract.MetaContent(page, "article:modified", "article:published")
	if ts == "" {
		return "0"
	}
	ts = strings.TrimSpace(strings.TrimSuffix(ts, "(UTC)"))
	t, err := time.Parse(legacyLayout, ts)
	if err != nil {
		logger.Debug("rss: unparseable timestamp %q", ts)
		return "0"
	}
	return strconv.FormatInt(t.UnixMilli(), 10)
}

// get performs a rate-limited GET and returns the body of a 2xx response.
func (r *Reader) get(ctx context.Context, url string) (io.ReadCloser, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrTransport, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: GET %s returned status %d", domain.ErrBackend, url, resp.StatusCode)
	}

	return struct {
		io.Reader
		io.Closer
	}{io.LimitReader(resp.Body, maxBodyBytes), resp.Body}, nil
}

package vespa

import (
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/ragsample/internal/core/domain"
)

// Config holds the connection and query settings for a Vespa store.
type Config struct {
	// URL is the container endpoint used for /search/.
	URL string

	// FeedURL is the endpoint used for /document/v1. Defaults to URL.
	FeedURL string

	// Timeout bounds every feed and search request.
	Timeout time.Duration

	// RankProfile is the rank profile named in queries.
	RankProfile string

	// RankingInputName is the query tensor referenced by nearestNeighbor.
	RankingInputName string

	// AvoidDups derives ids from segment text when no src-id is present.
	AvoidDups bool

	// TargetHits is the minimum targetHits passed to nearestNeighbor.
	TargetHits int

	// Handler selects the document schema.
	Handler domain.HandlerKind

	// FeedConcurrency caps concurrent document/v1 requests per batch.
	FeedConcurrency int

	EnableTLS      bool
	CACertPath     string
	ClientCertPath string
	ClientKeyPath  string

	// LogRequests dumps request and response bodies at debug level.
	LogRequests bool
}

// Defaults.
const (
	DefaultURL              = "http://localhost:8080"
	DefaultTimeout          = 5 * time.Second
	DefaultRankProfile      = "recommendation"
	DefaultRankingInputName = "q_embedding"
	DefaultTargetHits       = 5
	DefaultFeedConcurrency  = 4
)

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		URL:              DefaultURL,
		FeedURL:          DefaultURL,
		Timeout:          DefaultTimeout,
		RankProfile:      DefaultRankProfile,
		RankingInputName: DefaultRankingInputName,
		AvoidDups:        true,
		TargetHits:       DefaultTargetHits,
		Handler:          domain.HandlerBooks,
		FeedConcurrency:  DefaultFeedConcurrency,
	}
}

// normalise fills unset fields and trims trailing slashes from endpoints.
func (c Config) normalise() Config {
	if c.URL == "" {
		c.URL = DefaultURL
	}
	if c.FeedURL == "" {
		c.FeedURL = c.URL
	}
	c.URL = strings.TrimRight(c.URL, "/")
	c.FeedURL = strings.TrimRight(c.FeedURL, "/")
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RankProfile == "" {
		c.RankProfile = DefaultRankProfile
	}
	if c.RankingInputName == "" {
		c.RankingInputName = DefaultRankingInputName
	}
	if c.TargetHits <= 0 {
		c.TargetHits = DefaultTargetHits
	}
	if c.Handler == "" {
		c.Handler = domain.HandlerBooks
	}
	if c.FeedConcurrency <= 0 {
		c.FeedConcurrency = DefaultFeedConcurrency
	}
	return c
}

func (c Config) validate() error {
	if !c.Handler.IsValid() {
		return fmt.Errorf("%w: vespa handler %q", domain.ErrUnsupportedType, c.Handler)
	}
	if c.EnableTLS && (c.ClientCertPath == "") != (c.ClientKeyPath == "") {
		return fmt.Errorf("%w: client certificate and key must be set together", domain.ErrInvalidInput)
	}
	return nil
}

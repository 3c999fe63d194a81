// Package reader selects and constructs the configured documents reader.
package reader

import (
	"fmt"

	"github.com/custodia-labs/ragsample/internal/adapters/driven/reader/epub"
	"github.com/custodia-labs/ragsample/internal/adapters/driven/reader/extract"
	"github.com/custodia-labs/ragsample/internal/adapters/driven/reader/pdf"
	"github.com/custodia-labs/ragsample/internal/adapters/driven/reader/rss"
	"github.com/custodia-labs/ragsample/internal/config"
	"github.com/custodia-labs/ragsample/internal/core/domain"
	"github.com/custodia-labs/ragsample/internal/core/ports/driven"
	"github.com/custodia-labs/ragsample/internal/telemetry"
)

// New creates the reader named by cfg.Embeddings.Reader. metrics may be nil.
func New(cfg *config.Config, metrics *telemetry.Metrics) (driven.DocumentsReader, error) {
	switch cfg.Embeddings.Reader {
	case domain.ReaderEPUB:
		r, err := epub.NewReader(cfg.EpubDir, metrics)
		if err != nil {
			return nil, fmt.Errorf("epub reader: %w", err)
		}
		return r, nil

	case domain.ReaderPDF:
		r, err := pdf.NewReader(cfg.PDFDir, metrics)
		if err != nil {
			return nil, fmt.Errorf("pdf reader: %w", err)
		}
		return r, nil

	case domain.ReaderRSS:
		if len(cfg.RSS.Feeds) == 0 {
			return nil, fmt.Errorf("%w: rss reader needs at least one feed (rss.feeds or %s)",
				domain.ErrInvalidInput, config.EnvRSSFeeds)
		}
		return rss.NewReader(rss.Config{
			Feeds:             cfg.RSS.Feeds,
			RequestsPerSecond: cfg.RSS.RequestsPerSecond,
		}, metrics), nil

	default:
		return nil, fmt.Errorf("%w: reader %q", domain.ErrUnsupportedType, cfg.Embeddings.Reader)
	}
}

// WatchDir returns the directory a file reader lists, and false for readers
// that are not backed by a directory.
func WatchDir(cfg *config.Config) (string, bool) {
	switch cfg.Embeddings.Reader {
	case domain.ReaderEPUB:
		return cfg.EpubDir, true
	case domain.ReaderPDF:
		return cfg.PDFDir, true
	default:
		return "", false
	}
}

// Accepts reports whether path is a file the reader kind would ingest.
func Accepts(kind domain.ReaderKind, path string) bool {
	switch kind {
	case domain.ReaderEPUB:
		return extract.Matches(epub.Pattern, path)
	case domain.ReaderPDF:
		return extract.Matches(pdf.Pattern, path)
	default:
		return false
	}
}

// ParseFile reads a single file with the parser of the given reader kind.
func ParseFile(kind domain.ReaderKind, path string) (*domain.Document, error) {
	switch kind {
	case domain.ReaderEPUB:
		return epub.ParseFile(path)
	case domain.ReaderPDF:
		return pdf.ParseFile(path)
	default:
		return nil, fmt.Errorf("%w: %s reader does not read single files", domain.ErrUnsupportedType, kind)
	}
}

package driving

import (
	"context"

	"github.com/custodia-labs/ragsample/internal/core/domain"
)

// ProgressFunc receives ingestion progress after every batch.
type ProgressFunc func(domain.IngestProgress)

// IngestService reads, splits, embeds and stores documents.
type IngestService interface {
	// Ingest drains the reader. Failed batches are logged and counted in the
	// report; only context cancellation stops the run early.
	Ingest(ctx context.Context, reader IngestSource, progress ProgressFunc) (*domain.IngestReport, error)

	// IngestDocument splits and stores a single document.
	IngestDocument(ctx context.Context, doc *domain.Document) (*domain.IngestReport, error)
}

// IngestSource is the subset of a documents reader the ingest service needs.
type IngestSource interface {
	Next(ctx context.Context) (*domain.Document, error)
	Pending() int
}

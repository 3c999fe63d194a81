package driven

import (
	"context"

	"github.com/custodia-labs/ragsample/internal/core/domain"
)

// DocumentsReader produces the documents to ingest, one at a time.
type DocumentsReader interface {
	// Next returns the next document. It returns io.EOF when there are none left.
	// A non-EOF error concerns a single source; the reader stays usable.
	Next(ctx context.Context) (*domain.Document, error)

	// Pending returns the number of sources not yet read.
	Pending() int

	// Close releases resources.
	Close() error
}

// DocumentSplitter splits a document into segments small enough to embed.
// Each segment carries the document metadata plus its position under
// domain.MetadataSegmentIndex.
type DocumentSplitter interface {
	Split(doc *domain.Document) []domain.TextSegment
}

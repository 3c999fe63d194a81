package domain

const unknownDescription = "Unknown"

// StoreKind selects the embedding store backend.
type StoreKind string

// Available embedding stores.
const (
	// StoreMemory keeps embeddings in process memory for the life of the command.
	StoreMemory StoreKind = "memory"

	// StoreSQLite persists embeddings in a local SQLite file.
	StoreSQLite StoreKind = "sqlite"

	// StoreOpenSearch uses an OpenSearch k-NN index.
	StoreOpenSearch StoreKind = "opensearch"

	// StoreVespa uses a Vespa application over its document and search APIs.
	StoreVespa StoreKind = "vespa"
)

// IsValid returns true if the store kind is recognised.
func (k StoreKind) IsValid() bool {
	switch k {
	case StoreMemory, StoreSQLite, StoreOpenSearch, StoreVespa:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (k StoreKind) String() string {
	return string(k)
}

// Description returns a human-readable description of the store.
func (k StoreKind) Description() string {
	switch k {
	case StoreMemory:
		return "In-memory (lost on exit)"
	case StoreSQLite:
		return "SQLite (local file)"
	case StoreOpenSearch:
		return "OpenSearch (k-NN index)"
	case StoreVespa:
		return "Vespa (nearest neighbour search)"
	default:
		return unknownDescription
	}
}

// ReaderKind selects where ingested documents come from.
type ReaderKind string

// Available document readers.
const (
	ReaderEPUB ReaderKind = "epub"
	ReaderPDF  ReaderKind = "pdf"
	ReaderRSS  ReaderKind = "rss"
)

// IsValid returns true if the reader kind is recognised.
func (k ReaderKind) IsValid() bool {
	switch k {
	case ReaderEPUB, ReaderPDF, ReaderRSS:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (k ReaderKind) String() string {
	return string(k)
}

// Description returns a human-readable description of the reader.
func (k ReaderKind) Description() string {
	switch k {
	case ReaderEPUB:
		return "EPUB books from a directory"
	case ReaderPDF:
		return "PDF files from a directory"
	case ReaderRSS:
		return "Articles linked from RSS feeds"
	default:
		return unknownDescription
	}
}

// HandlerKind selects the Vespa document schema.
type HandlerKind string

// Available Vespa document handlers.
const (
	// HandlerBooks maps segments to the "books" schema fed from EPUB files.
	HandlerBooks HandlerKind = "books"

	// HandlerNews maps segments to the "news" schema fed from RSS articles.
	HandlerNews HandlerKind = "news"
)

// IsValid returns true if the handler kind is recognised.
func (k HandlerKind) IsValid() bool {
	return k == HandlerBooks || k == HandlerNews
}

// String returns the string representation.
func (k HandlerKind) String() string {
	return string(k)
}

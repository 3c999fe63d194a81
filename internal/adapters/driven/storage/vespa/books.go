package vespa

import (
	"fmt"

	"github.com/custodia-labs/ragsample/internal/core/domain"
)

// BooksHandler maps EPUB segments to the "books" schema
// (content, embedding, title, segment_index).
type BooksHandler struct {
	opts QueryOptions
}

var _ DocumentHandler = (*BooksHandler)(nil)

// Namespace implements DocumentHandler.
func (h *BooksHandler) Namespace() string { return Namespace }

// DocType implements DocumentHandler.
func (h *BooksHandler) DocType() string { return "books" }

// Record implements DocumentHandler.
func (h *BooksHandler) Record(id DocumentID, embedding []float32, segment domain.TextSegment) InsertRecord {
	fields := baseFields(embedding, segment)
	putString(fields, fieldTitle, segment.Metadata, domain.MetadataTitle)
	putInt(fields, fieldSegmentIndex, segment.Metadata, domain.MetadataSegmentIndex)
	return InsertRecord{ID: id.String(), Fields: fields}
}

// Content implements DocumentHandler.
func (h *BooksHandler) Content(fields Fields) (string, error) {
	return fields.Text(fieldContent)
}

// Embedding implements DocumentHandler.
func (h *BooksHandler) Embedding(fields Fields) ([]float32, error) {
	return fields.Tensor(fieldEmbedding)
}

// Metadata implements DocumentHandler. Title and segment index are required.
func (h *BooksHandler) Metadata(fields Fields) (domain.Metadata, error) {
	title, err := fields.Text(fieldTitle)
	if err != nil {
		return domain.Metadata{}, err
	}
	index, err := fields.Scalar(fieldSegmentIndex)
	if err != nil {
		return domain.Metadata{}, err
	}
	return domain.NewMetadata(
		domain.MetadataTitle, title,
		domain.MetadataSegmentIndex, index,
	), nil
}

// Query implements DocumentHandler.
func (h *BooksHandler) Query(embedding []float32, maxResults int, minScore float64) QueryRequest {
	yql := fmt.Sprintf(
		"select documentid, embedding, title, content, segment_index from books"+
			" where {targetHits:%d}nearestNeighbor(embedding,%s)",
		targetHits(h.opts, maxResults), h.opts.RankingInputName)
	return QueryRequest{
		YQL:     yql,
		Input:   queryInput(h.opts, embedding, minScore),
		Ranking: h.opts.RankProfile,
		Hits:    maxResults,
	}
}

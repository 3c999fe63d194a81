package vespa

import (
	"fmt"

	"github.com/custodia-labs/ragsample/internal/core/domain"
)

// News schema fields.
const (
	fieldNewsID = "news_id"
	fieldURL    = "url"
	fieldTS     = "ts"
)

// NewsHandler maps RSS article segments to the "news" schema
// (content, embedding, news_id, url, title, segment_index, ts).
// Queries return the newest articles first.
type NewsHandler struct {
	opts QueryOptions
}

var _ DocumentHandler = (*NewsHandler)(nil)

// Namespace implements DocumentHandler.
func (h *NewsHandler) Namespace() string { return Namespace }

// DocType implements DocumentHandler.
func (h *NewsHandler) DocType() string { return "news" }

// Record implements DocumentHandler. news_id falls back to the document's
// user key when the segment has no news_id metadata.
func (h *NewsHandler) Record(id DocumentID, embedding []float32, segment domain.TextSegment) InsertRecord {
	md := segment.Metadata
	fields := baseFields(embedding, segment)
	if newsID := md.Value(domain.MetadataNewsID); newsID != "" {
		fields[fieldNewsID] = newsID
	} else {
		fields[fieldNewsID] = id.UserKey
	}
	putString(fields, fieldURL, md, domain.MetadataURL)
	putString(fields, fieldTitle, md, domain.MetadataTitle)
	putInt(fields, fieldSegmentIndex, md, domain.MetadataSegmentIndex)
	putInt(fields, fieldTS, md, domain.MetadataTimestamp)
	return InsertRecord{ID: id.String(), Fields: fields}
}

// Content implements DocumentHandler.
func (h *NewsHandler) Content(fields Fields) (string, error) {
	return fields.Text(fieldContent)
}

// Embedding implements DocumentHandler.
func (h *NewsHandler) Embedding(fields Fields) ([]float32, error) {
	return fields.Tensor(fieldEmbedding)
}

// Metadata implements DocumentHandler. URL and segment index are required;
// title, news_id and ts are copied when present.
func (h *NewsHandler) Metadata(fields Fields) (domain.Metadata, error) {
	url, err := fields.Text(fieldURL)
	if err != nil {
		return domain.Metadata{}, err
	}
	index, err := fields.Scalar(fieldSegmentIndex)
	if err != nil {
		return domain.Metadata{}, err
	}
	md := domain.NewMetadata(
		domain.MetadataURL, url,
		domain.MetadataSegmentIndex, index,
	)
	optional := [][2]string{
		{fieldTitle, domain.MetadataTitle},
		{fieldNewsID, domain.MetadataNewsID},
		{fieldTS, domain.MetadataTimestamp},
	}
	for _, o := range optional {
		if !fields.Has(o[0]) {
			continue
		}
		v, err := fields.Scalar(o[0])
		if err != nil {
			return domain.Metadata{}, err
		}
		md.Set(o[1], v)
	}
	return md, nil
}

// Query implements DocumentHandler.
func (h *NewsHandler) Query(embedding []float32, maxResults int, minScore float64) QueryRequest {
	yql := fmt.Sprintf(
		"select documentid, embedding, title, content, news_id, url, segment_index, ts from news"+
			" where {targetHits:%d}nearestNeighbor(embedding,%s) order by ts desc",
		targetHits(h.opts, maxResults), h.opts.RankingInputName)
	return QueryRequest{
		YQL:     yql,
		Input:   queryInput(h.opts, embedding, minScore),
		Ranking: h.opts.RankProfile,
		Hits:    maxResults,
	}
}

package vespa

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/custodia-labs/ragsample/internal/core/domain"
	"github.com/custodia-labs/ragsample/internal/logger"
)

// Namespace is the document namespace shared by all handlers.
const Namespace = "embeddings"

// Field names common to both schemas.
const (
	fieldContent      = "content"
	fieldEmbedding    = "embedding"
	fieldTitle        = "title"
	fieldSegmentIndex = "segment_index"
)

// DocumentHandler maps segments to a Vespa schema and search hits back to segments.
type DocumentHandler interface {
	// Namespace returns the document namespace.
	Namespace() string

	// DocType returns the document type (schema name).
	DocType() string

	// Record builds the feed record for a segment.
	// Metadata the schema has no field for, or that is absent, is left out.
	Record(id DocumentID, embedding []float32, segment domain.TextSegment) InsertRecord

	// Content extracts the segment text from a hit. Missing content is a domain.ErrParse.
	Content(fields Fields) (string, error)

	// Embedding extracts the stored vector from a hit.
	Embedding(fields Fields) ([]float32, error)

	// Metadata extracts segment metadata from a hit. Missing required fields are a domain.ErrParse.
	Metadata(fields Fields) (domain.Metadata, error)

	// Query builds a nearest-neighbour query.
	Query(embedding []float32, maxResults int, minScore float64) QueryRequest
}

// QueryOptions are the query settings shared by all handlers.
type QueryOptions struct {
	RankProfile      string
	RankingInputName string
	TargetHits       int
}

// NewHandler returns the handler for kind.
func NewHandler(kind domain.HandlerKind, opts QueryOptions) (DocumentHandler, error) {
	switch kind {
	case domain.HandlerBooks:
		return &BooksHandler{opts: opts}, nil
	case domain.HandlerNews:
		return &NewsHandler{opts: opts}, nil
	default:
		return nil, fmt.Errorf("%w: vespa handler %q", domain.ErrUnsupportedType, kind)
	}
}

// Tensor is the JSON form of an indexed tensor field.
type Tensor struct {
	Values []float32 `json:"values"`
}

// InsertRecord is one document in a feed.
type InsertRecord struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// Fields is the raw field tree of a search hit.
type Fields map[string]json.RawMessage

func (f Fields) raw(name string) (json.RawMessage, error) {
	v, ok := f[name]
	if !ok || len(v) == 0 || string(v) == "null" {
		return nil, fmt.Errorf("%w: hit has no %q field", domain.ErrParse, name)
	}
	return v, nil
}

// Text returns a string field.
func (f Fields) Text(name string) (string, error) {
	v, err := f.raw(name)
	if err != nil {
		return "", err
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", fmt.Errorf("%w: field %q is not a string", domain.ErrParse, name)
	}
	return s, nil
}

// Scalar returns a string or number field in its text form.
func (f Fields) Scalar(name string) (string, error) {
	v, err := f.raw(name)
	if err != nil {
		return "", err
	}
	dec := json.NewDecoder(bytes.NewReader(v))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return "", fmt.Errorf("%w: field %q: %w", domain.ErrParse, name, err)
	}
	switch x := out.(type) {
	case string:
		return x, nil
	case json.Number:
		return x.String(), nil
	default:
		return "", fmt.Errorf("%w: field %q is not a scalar", domain.ErrParse, name)
	}
}

// Has reports whether the hit carries a non-null field.
func (f Fields) Has(name string) bool {
	v, ok := f[name]
	return ok && len(v) > 0 && string(v) != "null"
}

// Tensor returns an indexed tensor field. Both the short form
// {"values":[...]} and the cell form {"cells":[{"address":...,"value":v}]}
// are accepted; cells are taken in response order.
func (f Fields) Tensor(name string) ([]float32, error) {
	v, err := f.raw(name)
	if err != nil {
		return nil, err
	}
	var t struct {
		Values []float32 `json:"values"`
		Cells  []struct {
			Value float32 `json:"value"`
		} `json:"cells"`
	}
	if err := json.Unmarshal(v, &t); err != nil {
		var plain []float32
		if err2 := json.Unmarshal(v, &plain); err2 == nil {
			return plain, nil
		}
		return nil, fmt.Errorf("%w: field %q is not a tensor", domain.ErrParse, name)
	}
	if t.Values != nil {
		return t.Values, nil
	}
	if t.Cells != nil {
		out := make([]float32, len(t.Cells))
		for i, c := range t.Cells {
			out[i] = c.Value
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: field %q has no tensor values", domain.ErrParse, name)
}

// baseFields returns the fields every schema has.
func baseFields(embedding []float32, segment domain.TextSegment) map[string]any {
	return map[string]any{
		fieldContent:   segment.Text,
		fieldEmbedding: Tensor{Values: embedding},
	}
}

// putInt copies an integer metadata value into fields. Values that do not
// parse are dropped.
func putInt(fields map[string]any, field string, md domain.Metadata, key string) {
	v, ok := md.Get(key)
	if !ok {
		return
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		logger.Debug("vespa: dropping %s=%q: not an integer", key, v)
		return
	}
	fields[field] = n
}

// putString copies a string metadata value into fields.
func putString(fields map[string]any, field string, md domain.Metadata, key string) {
	if v, ok := md.Get(key); ok {
		fields[field] = v
	}
}

func targetHits(opts QueryOptions, maxResults int) int {
	return max(opts.TargetHits, maxResults)
}

func queryInput(opts QueryOptions, embedding []float32, minScore float64) map[string]any {
	vector := "query(" + opts.RankingInputName + ")"
	return map[string]any{
		"query(threshold)": minScore,
		vector:             embedding,
	}
}

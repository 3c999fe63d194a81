package domain

// SearchRequest describes a similarity query against an embedding store.
type SearchRequest struct {
	// Embedding is the query vector. Its length must match the stored vectors.
	Embedding []float32

	// MaxResults caps the number of matches. Must be greater than zero.
	MaxResults int

	// MinScore is a relevance floor in [0,1].
	MinScore float64
}

// SearchMatch is one stored segment returned by a similarity query.
type SearchMatch struct {
	// Score is the relevance reported for the match, higher is better.
	Score float64 `json:"score"`

	// ID is the store's identifier for the record.
	ID string `json:"id"`

	// Embedding is not serialised; API output carries text and metadata only.
	Embedding []float32   `json:"-"`
	Segment   TextSegment `json:"segment"`
}

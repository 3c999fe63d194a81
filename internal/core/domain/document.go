package domain

// Document is the full text of a source as produced by a reader, before
// it is split into segments.
type Document struct {
	Text     string
	Metadata Metadata
}

// TextSegment is a chunk of a document. It is the unit that gets embedded
// and stored.
type TextSegment struct {
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}

// NewTextSegment returns a segment holding its own copy of md.
func NewTextSegment(text string, md Metadata) TextSegment {
	return TextSegment{Text: text, Metadata: md.Clone()}
}

// Package splitter cuts documents into segments small enough to embed.
package splitter

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/ragsample/internal/core/domain"
	"github.com/custodia-labs/ragsample/internal/core/ports/driven"
)

// Ensure Splitter implements the interface.
var _ driven.DocumentSplitter = (*Splitter)(nil)

// DefaultMaxSegmentSize is the default number of characters per segment.
const DefaultMaxSegmentSize = 1000

// DefaultMaxOverlapSize is the default number of characters repeated from the
// previous segment.
const DefaultMaxOverlapSize = 100

// Splitter splits text recursively: by paragraph, then line, sentence, word
// and finally character, until every piece fits.
// Sizes are counted in runes.
type Splitter struct {
	maxSize int
	overlap int
}

// Option configures the splitter.
type Option func(*Splitter)

// WithMaxSegmentSize sets the maximum segment size in characters.
func WithMaxSegmentSize(size int) Option {
	return func(s *Splitter) {
		if size > 0 {
			s.maxSize = size
		}
	}
}

// WithMaxOverlapSize sets the maximum overlap between segments in characters.
func WithMaxOverlapSize(overlap int) Option {
	return func(s *Splitter) {
		if overlap >= 0 {
			s.overlap = overlap
		}
	}
}

// New creates a splitter with the given options.
func New(opts ...Option) *Splitter {
	s := &Splitter{
		maxSize: DefaultMaxSegmentSize,
		overlap: DefaultMaxOverlapSize,
	}

	for _, opt := range opts {
		opt(s)
	}

	// Ensure overlap leaves room for new text
	if s.overlap >= s.maxSize {
		s.overlap = s.maxSize / 4
	}

	return s
}

// Split returns the segments of doc. Each segment carries a copy of the
// document metadata plus its position under domain.MetadataSegmentIndex.
func (s *Splitter) Split(doc *domain.Document) []domain.TextSegment {
	if doc == nil {
		return nil
	}
	text := strings.TrimSpace(doc.Text)
	if text == "" {
		return nil
	}

	pieces := s.SplitText(text)
	segments := make([]domain.TextSegment, 0, len(pieces))
	for i, piece := range pieces {
		md := doc.Metadata.Clone()
		md.Set(domain.MetadataSegmentIndex, strconv.Itoa(i))
		segments = append(segments, domain.TextSegment{Text: piece, Metadata: md})
	}
	return segments
}

// SplitText splits text into pieces of at most the maximum segment size,
// each but the first starting with the tail of its predecessor.
func (s *Splitter) SplitText(text string) []string {
	budget := s.maxSize
	if s.overlap > 0 {
		budget -= s.overlap
	}

	pieces := splitRecursive(text, 0, budget)
	if s.overlap <= 1 || len(pieces) < 2 {
		return pieces
	}

	out := make([]string, len(pieces))
	out[0] = pieces[0]
	for i := 1; i < len(pieces); i++ {
		// One rune of the overlap budget goes to the joining space.
		if tail := overlapTail(pieces[i-1], s.overlap-1); tail != "" {
			out[i] = tail + " " + pieces[i]
		} else {
			out[i] = pieces[i]
		}
	}
	return out
}

// level splits text into parts and names the separator used to rejoin them.
type level func(text string) (parts []string, sep string)

var paragraphBreak = regexp.MustCompile(`\n[ \t]*\n`)

var levels = []level{
	func(text string) ([]string, string) { return paragraphBreak.Split(text, -1), "\n\n" },
	func(text string) ([]string, string) { return strings.Split(text, "\n"), "\n" },
	func(text string) ([]string, string) { return sentences(text), " " },
	func(text string) ([]string, string) { return strings.Fields(text), " " },
}

func splitRecursive(text string, depth, budget int) []string {
	if utf8.RuneCountInString(text) <= budget {
		return []string{text}
	}
	if depth == len(levels) {
		return chunkRunes(text, budget)
	}

	raw, sep := levels[depth](text)
	parts := raw[:0]
	for _, p := range raw {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) <= 1 {
		return splitRecursive(text, depth+1, budget)
	}

	var out []string
	cur := ""
	flush := func() {
		if cur != "" {
			out = append(out, cur)
			cur = ""
		}
	}
	sepLen := utf8.RuneCountInString(sep)
	for _, p := range parts {
		n := utf8.RuneCountInString(p)
		switch {
		case n > budget:
			flush()
			out = append(out, splitRecursive(p, depth+1, budget)...)
		case cur == "":
			cur = p
		case utf8.RuneCountInString(cur)+sepLen+n <= budget:
			cur += sep + p
		default:
			flush()
			cur = p
		}
	}
	flush()
	return out
}

// sentences splits after '.', '!' or '?' followed by whitespace.
func sentences(text string) []string {
	var out []string
	runes := []rune(text)
	start := 0
	for i := 0; i < len(runes)-1; i++ {
		switch runes[i] {
		case '.', '!', '?':
			if unicode.IsSpace(runes[i+1]) {
				out = append(out, string(runes[start:i+1]))
				start = i + 1
			}
		}
	}
	return append(out, string(runes[start:]))
}

func chunkRunes(text string, size int) []string {
	runes := []rune(text)
	out := make([]string, 0, len(runes)/size+1)
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			out = append(out, chunk)
		}
	}
	return out
}

// overlapTail returns at most n trailing runes of text, without a leading
// partial word when a word boundary is available.
func overlapTail(text string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= n {
		return strings.TrimSpace(text)
	}

	cut := len(runes) - n
	tail := runes[cut:]
	if !unicode.IsSpace(runes[cut-1]) {
		for i, r := range tail {
			if unicode.IsSpace(r) {
				tail = tail[i:]
				break
			}
		}
	}
	return strings.TrimSpace(string(tail))
}

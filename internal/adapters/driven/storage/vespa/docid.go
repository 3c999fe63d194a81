package vespa

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/ragsample/internal/core/domain"
)

// contentNamespace seeds name-based UUIDs derived from segment text.
var contentNamespace = uuid.MustParse("6f3c5e2a-8d4b-4a7e-9c1f-2b5d8e7a4c90")

// DocumentID is a Vespa document id.
type DocumentID struct {
	Namespace string
	DocType   string
	UserKey   string
}

// String renders the id as id:<namespace>:<docType>::<userKey>.
func (d DocumentID) String() string {
	return fmt.Sprintf("id:%s:%s::%s", d.Namespace, d.DocType, d.UserKey)
}

// ParseDocumentID parses an id without key/value modifiers, as produced by String.
func ParseDocumentID(s string) (DocumentID, error) {
	rest, ok := strings.CutPrefix(s, "id:")
	if !ok {
		return DocumentID{}, fmt.Errorf("%w: document id %q", domain.ErrInvalidInput, s)
	}
	ns, rest, ok := strings.Cut(rest, ":")
	if !ok || ns == "" {
		return DocumentID{}, fmt.Errorf("%w: document id %q has no namespace", domain.ErrInvalidInput, s)
	}
	docType, rest, ok := strings.Cut(rest, ":")
	if !ok || docType == "" {
		return DocumentID{}, fmt.Errorf("%w: document id %q has no document type", domain.ErrInvalidInput, s)
	}
	key, ok := strings.CutPrefix(rest, ":")
	if !ok || key == "" {
		return DocumentID{}, fmt.Errorf("%w: document id %q has no user key", domain.ErrInvalidInput, s)
	}
	return DocumentID{Namespace: ns, DocType: docType, UserKey: key}, nil
}

// ContentKey returns the name-based UUID used as user key for text without a src-id.
func ContentKey(text string) string {
	return uuid.NewSHA1(contentNamespace, []byte(text)).String()
}

// userKey derives the user key for a segment. A src-id wins, then the
// content key when avoidDups is set, then a random UUID. The segment index
// is appended when present.
func userKey(segment domain.TextSegment, avoidDups bool) string {
	var key string
	switch src := segment.Metadata.Value(domain.MetadataSourceID); {
	case src != "":
		key = src
	case avoidDups:
		key = ContentKey(segment.Text)
	default:
		key = uuid.NewString()
	}
	if idx, ok := segment.Metadata.Get(domain.MetadataSegmentIndex); ok && idx != "" {
		key += "-" + idx
	}
	return key
}

package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragsample/internal/core/domain"
)

// writePDF writes a single-page PDF showing text, with an optional Info title.
func writePDF(t *testing.T, path, text, title string) {
	t.Helper()

	content := fmt.Sprintf("BT /F1 24 Tf 72 700 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] " +
			"/Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}
	trailer := "<< /Size %d /Root 1 0 R >>"
	if title != "" {
		objects = append(objects, fmt.Sprintf("<< /Title (%s) >>", title))
		trailer = "<< /Size %d /Root 1 0 R /Info 6 0 R >>"
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n"+trailer+"\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.pdf")
	writePDF(t, path, "Hello PDF", "Quarterly Report")

	doc, err := ParseFile(path)

	require.NoError(t, err)
	assert.Contains(t, doc.Text, "Hello PDF")
	assert.Equal(t, "Quarterly Report", doc.Metadata.Value(domain.MetadataTitle))
	assert.Equal(t, "report.pdf", doc.Metadata.Value(domain.MetadataFileName))
	assert.Equal(t, "7265706F72742E706466", doc.Metadata.Value(domain.MetadataSourceID))
}

func TestParseFile_TitleFallsBackToFileName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "annual_report.pdf")
	writePDF(t, path, "Body", "")

	doc, err := ParseFile(path)

	require.NoError(t, err)
	assert.Equal(t, "annual report", doc.Metadata.Value(domain.MetadataTitle))
}

func TestParseFile_NotAPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.pdf")
	require.NoError(t, os.WriteFile(path, []byte("plain text"), 0o600))

	_, err := ParseFile(path)

	assert.ErrorIs(t, err, domain.ErrParse)
}

func TestReader(t *testing.T) {
	dir := t.TempDir()
	writePDF(t, filepath.Join(dir, "a.pdf"), "First", "A")
	writePDF(t, filepath.Join(dir, "b.pdf"), "Second", "B")

	r, err := NewReader(dir, nil)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, 2, r.Pending())

	var titles []string
	for {
		doc, err := r.Next(context.Background())
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		titles = append(titles, doc.Metadata.Value(domain.MetadataTitle))
	}

	assert.Equal(t, []string{"A", "B"}, titles)
	assert.Equal(t, 0, r.Pending())
}

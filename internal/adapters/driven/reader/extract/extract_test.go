package extract

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestSourceID(t *testing.T) {
	assert.Equal(t, "612E65707562", SourceID("a.epub"))
	assert.Equal(t, "", SourceID(""))
}

func TestTitleFromFileName(t *testing.T) {
	assert.Equal(t, "my book v2", TitleFromFileName("/x/my_book-v2.epub"))
}

func TestFindFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.epub", "a.epub", "notes.txt", "sub/c.epub"} {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	}

	files, err := FindFiles(dir, "**/*.epub")

	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.epub"),
		filepath.Join(dir, "b.epub"),
		filepath.Join(dir, "sub", "c.epub"),
	}, files)
}

func TestFindFiles_MissingDir(t *testing.T) {
	_, err := FindFiles(filepath.Join(t.TempDir(), "nope"), "*.epub")
	assert.Error(t, err)
}

func TestMatches(t *testing.T) {
	assert.True(t, Matches("*.pdf", "/a/b/report.pdf"))
	assert.False(t, Matches("*.pdf", "/a/b/report.epub"))
}

func TestFileQueue(t *testing.T) {
	q := NewFileQueue([]string{"a", "b"})
	assert.Equal(t, 2, q.Len())

	p, ok := q.Pop()
	assert.True(t, ok)
	assert.Equal(t, "a", p)

	p, ok = q.Pop()
	assert.True(t, ok)
	assert.Equal(t, "b", p)

	_, ok = q.Pop()
	assert.False(t, ok)
	assert.Equal(t, 0, q.Len())
}

func TestHTMLText(t *testing.T) {
	doc := parse(t, `<html><head><title>T</title><style>p{}</style></head>
<body><h1>Chapter&nbsp;One</h1><p>First   paragraph.</p><script>var x;</script>
<div>Second<br/>line</div></body></html>`)

	assert.Equal(t, "ChapterOne\nFirst paragraph.\nSecond\nline", HTMLText(doc))
}

func TestMetaContent(t *testing.T) {
	doc := parse(t, `<html><head>
<meta name="twitter:title" content="Twitter title">
<meta property="og:title" content=" OG title ">
<meta property="article:published_time" content="2024-03-10T15:37:27Z">
</head><body></body></html>`)

	assert.Equal(t, "OG title", MetaContent(doc, "og:title", "twitter:title"))
	assert.Equal(t, "Twitter title", MetaContent(doc, "dc:title", "twitter:title"))
	assert.Equal(t, "2024-03-10T15:37:27Z", MetaContent(doc, "article:modified_time", "article:published_time"))
	assert.Equal(t, "", MetaContent(doc, "missing"))
}

// Package extract holds helpers shared by the document readers: source file
// discovery, HTML to text conversion and source ids.
package extract

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/bmatcuk/doublestar/v4"
)

// SourceID returns the upper-case hex encoding of s.
func SourceID(s string) string {
	return strings.ToUpper(hex.EncodeToString([]byte(s)))
}

// TitleFromFileName turns "my_book-v2.epub" into "my book v2".
func TitleFromFileName(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.ReplaceAll(name, "_", " ")
	name = strings.ReplaceAll(name, "-", " ")
	return name
}

// FindFiles returns the files under dir matching the doublestar pattern,
// sorted by path.
func FindFiles(dir, pattern string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("open directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	matches, err := doublestar.Glob(os.DirFS(dir), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}

	paths := make([]string, 0, len(matches))
	for _, m := range matches {
		paths = append(paths, filepath.Join(dir, filepath.FromSlash(m)))
	}
	sort.Strings(paths)
	return paths, nil
}

// Matches reports whether the base name or relative path of file matches pattern.
func Matches(pattern, file string) bool {
	if ok, _ := doublestar.Match(pattern, filepath.ToSlash(file)); ok {
		return true
	}
	ok, _ := doublestar.Match(pattern, filepath.Base(file))
	return ok
}

// FileQueue hands out source files one at a time.
type FileQueue struct {
	mu    sync.Mutex
	paths []string
}

// NewFileQueue creates a queue over the given paths, read in order.
func NewFileQueue(paths []string) *FileQueue {
	return &FileQueue{paths: append([]string(nil), paths...)}
}

// Pop removes and returns the next path.
func (q *FileQueue) Pop() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.paths) == 0 {
		return "", false
	}
	p := q.paths[0]
	q.paths = q.paths[1:]
	return p, true
}

// Len returns the number of paths left.
func (q *FileQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.paths)
}

var (
	multiSpaces   = regexp.MustCompile(`[ \t\r\f\v]+`)
	blockSelector = "p, div, br, hr, h1, h2, h3, h4, h5, h6, li, tr, blockquote, pre, section, article, header, footer"
)

// HTMLText returns the readable text of the document body. Block elements
// become line breaks and non-breaking spaces are removed.
func HTMLText(doc *goquery.Document) string {
	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	body = body.Clone()
	body.Find("script, style, noscript, svg, template, nav").Remove()
	body.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	return normaliseText(body.Text())
}

// normaliseText trims lines, drops empty ones and strips NBSP.
func normaliseText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", "")
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(multiSpaces.ReplaceAllString(line, " "))
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// MetaContent returns the content of the first <meta> whose property or name
// equals one of keys, tried in order.
func MetaContent(doc *goquery.Document, keys ...string) string {
	for _, key := range keys {
		var found string
		doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			prop, _ := s.Attr("property")
			name, _ := s.Attr("name")
			if strings.EqualFold(prop, key) || strings.EqualFold(name, key) {
				if content, ok := s.Attr("content"); ok && strings.TrimSpace(content) != "" {
					found = strings.TrimSpace(content)
					return false
				}
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	return ""
}

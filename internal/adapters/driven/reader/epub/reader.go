// Package epub reads EPUB books from a directory as documents.
package epub

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/custodia-labs/ragsample/internal/adapters/driven/reader/extract"
	"github.com/custodia-labs/ragsample/internal/core/domain"
	"github.com/custodia-labs/ragsample/internal/core/ports/driven"
	"github.com/custodia-labs/ragsample/internal/logger"
	"github.com/custodia-labs/ragsample/internal/telemetry"
)

// Ensure Reader implements the interface.
var _ driven.DocumentsReader = (*Reader)(nil)

// Pattern selects the files read from the directory.
const Pattern = "**/*.epub"

// skippedIDs are spine items that carry no book text.
var skippedIDs = map[string]bool{"titlepage": true, "id": true}

// Reader yields one document per EPUB file.
type Reader struct {
	files   *extract.FileQueue
	metrics *telemetry.Metrics
}

// NewReader lists the EPUB files under dir. metrics may be nil.
func NewReader(dir string, metrics *telemetry.Metrics) (*Reader, error) {
	files, err := extract.FindFiles(dir, Pattern)
	if err != nil {
		return nil, err
	}
	logger.Debug("epub: %d books in %s", len(files), dir)

	r := &Reader{files: extract.NewFileQueue(files), metrics: metrics}
	r.metrics.SetGauge(telemetry.EpubBooksPending, r.files.Len())
	return r, nil
}

// Next parses the next book. A broken book is reported and skipped.
func (r *Reader) Next(ctx context.Context) (*domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, ok := r.files.Pop()
	if !ok {
		return nil, io.EOF
	}
	r.metrics.SetGauge(telemetry.EpubBooksPending, r.files.Len())

	defer r.metrics.Time(telemetry.ParseEpubMS)()
	return ParseFile(file)
}

// Pending returns the number of books not yet read.
func (r *Reader) Pending() int {
	return r.files.Len()
}

// Close releases resources.
func (r *Reader) Close() error {
	return nil
}

// ParseFile reads a single EPUB file.
func ParseFile(file string) (*domain.Document, error) {
	zr, err := zip.OpenReader(file)
	if err != nil {
		return nil, fmt.Errorf("%w: open epub %s: %w", domain.ErrParse, file, err)
	}
	defer zr.Close()

	book, err := parseBook(&zr.Reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrParse, filepath.Base(file), err)
	}

	name := filepath.Base(file)
	title := book.title
	if title == "" {
		title = extract.TitleFromFileName(name)
	}

	meta := domain.NewMetadata(
		domain.MetadataFileName, name,
		domain.MetadataSourceID, extract.SourceID(name),
		domain.MetadataTitle, title,
	)
	return &domain.Document{Text: book.text, Metadata: meta}, nil
}

type book struct {
	title string
	text  string
}

// container is META-INF/container.xml.
type container struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

// packageDoc is the OPF package document.
type packageDoc struct {
	Titles   []string `xml:"metadata>title"`
	Manifest []struct {
		ID        string `xml:"id,attr"`
		Href      string `xml:"href,attr"`
		MediaType string `xml:"media-type,attr"`
	} `xml:"manifest>item"`
	Spine []struct {
		IDRef string `xml:"idref,attr"`
	} `xml:"spine>itemref"`
}

func parseBook(zr *zip.Reader) (*book, error) {
	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	var c container
	if err := readXML(files, "META-INF/container.xml", &c); err != nil {
		return nil, err
	}
	if len(c.Rootfiles) == 0 || c.Rootfiles[0].FullPath == "" {
		return nil, fmt.Errorf("container.xml names no package document")
	}
	opfPath := c.Rootfiles[0].FullPath

	var pkg packageDoc
	if err := readXML(files, opfPath, &pkg); err != nil {
		return nil, err
	}

	hrefs := make(map[string]string, len(pkg.Manifest))
	for _, item := range pkg.Manifest {
		hrefs[item.ID] = item.Href
	}

	base := path.Dir(opfPath)
	var parts []string
	for _, ref := range pkg.Spine {
		if skippedIDs[ref.IDRef] {
			continue
		}
		href, ok := hrefs[ref.IDRef]
		if !ok {
			continue
		}
		if unescaped, err := url.PathUnescape(href); err == nil {
			href = unescaped
		}
		name := path.Clean(path.Join(base, href))

		data, err := readFile(files, name)
		if err != nil {
			logger.Warn("epub: skipping %s: %v", name, err)
			continue
		}
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
		if err != nil {
			logger.Warn("epub: skipping %s: %v", name, err)
			continue
		}
		if text := extract.HTMLText(doc); text != "" {
			parts = append(parts, text)
		}
	}

	b := &book{text: strings.Join(parts, "\n")}
	for _, t := range pkg.Titles {
		if t = strings.TrimSpace(t); t != "" {
			b.title = t
			break
		}
	}
	return b, nil
}

func readFile(files map[string]*zip.File, name string) ([]byte, error) {
	f, ok := files[name]
	if !ok {
		return nil, fmt.Errorf("missing %s", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func readXML(files map[string]*zip.File, name string, v any) error {
	data, err := readFile(files, name)
	if err != nil {
		return err
	}
	if err := xml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

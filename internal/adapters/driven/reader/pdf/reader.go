// Package pdf reads PDF files from a directory as documents.
package pdf

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/ragsample/internal/adapters/driven/reader/extract"
	"github.com/custodia-labs/ragsample/internal/core/domain"
	"github.com/custodia-labs/ragsample/internal/core/ports/driven"
	"github.com/custodia-labs/ragsample/internal/logger"
	"github.com/custodia-labs/ragsample/internal/telemetry"
)

// Ensure Reader implements the interface.
var _ driven.DocumentsReader = (*Reader)(nil)

// Pattern selects the files read from the directory.
const Pattern = "**/*.pdf"

// Reader yields one document per PDF file.
type Reader struct {
	files   *extract.FileQueue
	metrics *telemetry.Metrics
}

// NewReader lists the PDF files under dir. metrics may be nil.
func NewReader(dir string, metrics *telemetry.Metrics) (*Reader, error) {
	files, err := extract.FindFiles(dir, Pattern)
	if err != nil {
		return nil, err
	}
	logger.Debug("pdf: %d files in %s", len(files), dir)

	r := &Reader{files: extract.NewFileQueue(files), metrics: metrics}
	r.metrics.SetGauge(telemetry.PDFFilesPending, r.files.Len())
	return r, nil
}

// Next extracts the next file. A broken file is reported and skipped.
func (r *Reader) Next(ctx context.Context) (*domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, ok := r.files.Pop()
	if !ok {
		return nil, io.EOF
	}
	r.metrics.SetGauge(telemetry.PDFFilesPending, r.files.Len())

	defer r.metrics.Time(telemetry.ParsePDFMS)()
	return ParseFile(file)
}

// Pending returns the number of files not yet read.
func (r *Reader) Pending() int {
	return r.files.Len()
}

// Close releases resources.
func (r *Reader) Close() error {
	return nil
}

// ParseFile extracts the plain text and title of a single PDF.
func ParseFile(file string) (doc *domain.Document, err error) {
	// The PDF library panics on some malformed input.
	defer func() {
		if p := recover(); p != nil {
			doc = nil
			err = fmt.Errorf("%w: %s: malformed pdf: %v", domain.ErrParse, filepath.Base(file), p)
		}
	}()

	f, reader, err := pdf.Open(file)
	if err != nil {
		return nil, fmt.Errorf("%w: open pdf %s: %w", domain.ErrParse, file, err)
	}
	defer f.Close()

	text := extractText(reader, file)

	name := filepath.Base(file)
	title := strings.TrimSpace(reader.Trailer().Key("Info").Key("Title").Text())
	if title == "" {
		title = extract.TitleFromFileName(name)
	}

	meta := domain.NewMetadata(
		domain.MetadataFileName, name,
		domain.MetadataSourceID, extract.SourceID(name),
		domain.MetadataTitle, title,
	)
	return &domain.Document{Text: text, Metadata: meta}, nil
}

func extractText(reader *pdf.Reader, file string) string {
	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		// A nil font map makes the page resolve its own fonts.
		text, err := page.GetPlainText(nil)
		if err != nil {
			logger.Warn("pdf: %s page %d: %v", filepath.Base(file), i, err)
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}
	return strings.Join(pages, "\n")
}

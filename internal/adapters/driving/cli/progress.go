package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/custodia-labs/ragsample/internal/core/domain"
)

// ingestProgress shows stored segments on a spinner bar. The zero value is
// a no-op.
type ingestProgress struct {
	bar *progressbar.ProgressBar
}

func newIngestProgress(w io.Writer, enabled bool) *ingestProgress {
	if !enabled {
		return &ingestProgress{}
	}
	return &ingestProgress{bar: progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("ingesting"),
		progressbar.OptionSetWidth(32),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)}
}

// Update is the ingest service progress callback.
func (p *ingestProgress) Update(pr domain.IngestProgress) {
	if p.bar == nil {
		return
	}
	p.bar.Describe(fmt.Sprintf("documents %d, pending %d, stored", pr.Documents, pr.Pending))
	_ = p.bar.Set(pr.Stored)
}

func (p *ingestProgress) Finish() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

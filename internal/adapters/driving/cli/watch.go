package cli

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/ragsample/internal/adapters/driven/reader"
	"github.com/custodia-labs/ragsample/internal/core/domain"
	"github.com/custodia-labs/ragsample/internal/core/ports/driving"
	"github.com/custodia-labs/ragsample/internal/logger"
)

const watchDebounce = 500 * time.Millisecond

// fileWatcher ingests reader files that are created or rewritten under dir.
// Writes to a file are coalesced until it has been quiet for debounce.
type fileWatcher struct {
	kind     domain.ReaderKind
	dir      string
	ingest   driving.IngestService
	out      io.Writer
	parse    func(domain.ReaderKind, string) (*domain.Document, error)
	debounce time.Duration

	// started is closed once the directories are watched.
	started chan struct{}
}

func newFileWatcher(kind domain.ReaderKind, dir string, ingest driving.IngestService, out io.Writer) *fileWatcher {
	return &fileWatcher{
		kind:     kind,
		dir:      dir,
		ingest:   ingest,
		out:      out,
		parse:    reader.ParseFile,
		debounce: watchDebounce,
		started:  make(chan struct{}),
	}
}

// Run watches until ctx is cancelled.
func (w *fileWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := w.addTree(watcher, w.dir); err != nil {
		return err
	}
	close(w.started)

	pending := make(map[string]*time.Timer)
	ready := make(chan string)
	defer func() {
		for _, t := range pending {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) && isDir(event.Name) && !isHidden(event.Name) {
				if err := w.addTree(watcher, event.Name); err != nil {
					logger.Warn("watch: %v", err)
				}
				continue
			}
			path, ok := w.handleFsEvent(event)
			if !ok {
				continue
			}
			if t, ok := pending[path]; ok {
				t.Reset(w.debounce)
				continue
			}
			pending[path] = time.AfterFunc(w.debounce, func() {
				select {
				case ready <- path:
				case <-ctx.Done():
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch: %v", err)

		case path := <-ready:
			delete(pending, path)
			w.ingestFile(ctx, path)
		}
	}
}

// handleFsEvent returns the file to ingest for an event. Removals, renames,
// permission changes, directories and hidden files are ignored.
func (w *fileWatcher) handleFsEvent(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return "", false
	}
	if isHidden(event.Name) || isDir(event.Name) {
		return "", false
	}
	if !reader.Accepts(w.kind, event.Name) {
		return "", false
	}
	return event.Name, true
}

func (w *fileWatcher) ingestFile(ctx context.Context, path string) {
	doc, err := w.parse(w.kind, path)
	if err != nil {
		logger.Warn("watch: skipping %s: %v", path, err)
		return
	}
	report, err := w.ingest.IngestDocument(ctx, doc)
	if err != nil {
		logger.Error("watch: ingest %s: %v", path, err)
		return
	}
	fmt.Fprintf(w.out, "Ingested %s: %d segments stored\n", filepath.Base(path), report.Stored)
}

func (w *fileWatcher) addTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && isHidden(path) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragsample/internal/adapters/driven/reader"
	"github.com/custodia-labs/ragsample/internal/config"
	"github.com/custodia-labs/ragsample/internal/core/domain"
	"github.com/custodia-labs/ragsample/internal/telemetry"
)

var (
	ingestReader string
	ingestStore  string
	ingestFeeds  []string
	ingestWatch  bool
)

// newReader is swapped in tests.
var newReader = reader.New

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load documents into the embedding store",
	Long: `Reads every document from the configured reader (EPUB books, PDF files
or RSS feeds), splits it into segments, embeds them in batches and stores them.

A failed batch is logged and counted; ingestion continues with the next one.
With --watch, new or rewritten files in the reader directory are ingested as
they appear until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestReader, "reader", "", "documents reader: epub, pdf or rss")
	ingestCmd.Flags().StringVar(&ingestStore, "store", "", "embedding store: memory, sqlite, opensearch or vespa")
	ingestCmd.Flags().StringSliceVar(&ingestFeeds, "feeds", nil, "RSS feed urls (replaces rss.feeds)")
	ingestCmd.Flags().BoolVarP(&ingestWatch, "watch", "w", false, "keep ingesting files added to the reader directory")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyIngestFlags(cfg); err != nil {
		return err
	}
	svc, err := loadServices(cmd.Context())
	if err != nil {
		return err
	}
	if svc.Ingest == nil {
		return errors.New("ingest service not configured")
	}

	ctx := cmd.Context()
	rd, err := newReader(cfg, svc.Metrics)
	if err != nil {
		return err
	}
	defer rd.Close()

	cmd.Printf("Ingesting %s into %s (%d pending)\n", cfg.Embeddings.Reader, cfg.Embeddings.Store, rd.Pending())

	interactive := isTerminal(cmd.ErrOrStderr())
	progress := newIngestProgress(cmd.ErrOrStderr(), interactive)
	stopReporter := startReporter(ctx, svc.Metrics, cmd, cfg.MetricsInterval, !interactive)

	report, err := svc.Ingest.Ingest(ctx, rd, progress.Update)
	progress.Finish()
	stopReporter()
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	printReport(cmd, report)

	if !ingestWatch {
		return nil
	}
	dir, ok := reader.WatchDir(cfg)
	if !ok {
		return fmt.Errorf("%w: --watch needs a file reader, not %s", domain.ErrInvalidInput, cfg.Embeddings.Reader)
	}
	cmd.Printf("Watching %s for new %s files (ctrl+c to stop)\n", dir, cfg.Embeddings.Reader)
	w := newFileWatcher(cfg.Embeddings.Reader, dir, svc.Ingest, cmd.OutOrStdout())
	return w.Run(ctx)
}

// applyIngestFlags overrides the configuration with the command flags.
func applyIngestFlags(cfg *config.Config) error {
	if ingestReader != "" {
		cfg.Embeddings.Reader = domain.ReaderKind(ingestReader)
	}
	if ingestStore != "" {
		cfg.Embeddings.Store = domain.StoreKind(ingestStore)
	}
	if len(ingestFeeds) > 0 {
		cfg.RSS.Feeds = ingestFeeds
	}
	return cfg.Validate()
}

// startReporter prints the metrics table periodically when enabled, and
// once when the returned function is called.
func startReporter(
	ctx context.Context, metrics *telemetry.Metrics, cmd *cobra.Command, interval time.Duration, periodic bool,
) func() {
	if metrics == nil {
		return func() {}
	}
	reporter := telemetry.NewReporter(metrics, cmd.ErrOrStderr(), interval)
	if !periodic || interval <= 0 {
		return func() { _ = reporter.Report(ctx) }
	}

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		reporter.Run(ctx)
	}()
	return func() {
		cancel()
		wg.Wait()
	}
}

func printReport(cmd *cobra.Command, r *domain.IngestReport) {
	cmd.Printf("Ingested %d documents into %d segments (%d stored) in %v\n",
		r.Documents, r.Segments, r.Stored, r.Duration.Round(time.Millisecond))
	if r.FailedBatches > 0 || r.ReadErrors > 0 {
		cmd.Printf("  %d failed batches, %d unreadable documents\n", r.FailedBatches, r.ReadErrors)
	}
}

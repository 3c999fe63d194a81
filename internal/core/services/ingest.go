package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/custodia-labs/ragsample/internal/core/domain"
	"github.com/custodia-labs/ragsample/internal/core/ports/driven"
	"github.com/custodia-labs/ragsample/internal/core/ports/driving"
	"github.com/custodia-labs/ragsample/internal/logger"
	"github.com/custodia-labs/ragsample/internal/telemetry"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// DefaultBatchSize is the number of segments embedded and stored together.
const DefaultBatchSize = 32

// IngestService reads documents, splits them into segments and stores the
// segment embeddings in batches.
type IngestService struct {
	splitter  driven.DocumentSplitter
	embedder  driven.EmbeddingService
	store     driven.EmbeddingStore
	metrics   *telemetry.Metrics
	batchSize int
}

// NewIngestService creates a new ingest service. metrics may be nil.
func NewIngestService(
	splitter driven.DocumentSplitter,
	embedder driven.EmbeddingService,
	store driven.EmbeddingStore,
	batchSize int,
	metrics *telemetry.Metrics,
) *IngestService {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &IngestService{
		splitter:  splitter,
		embedder:  embedder,
		store:     store,
		metrics:   metrics,
		batchSize: batchSize,
	}
}

// ingestRun carries the state of one ingestion.
type ingestRun struct {
	report   domain.IngestReport
	pending  []domain.TextSegment
	source   driving.IngestSource
	progress driving.ProgressFunc
}

// Ingest drains source. Read errors and failed batches are logged, counted
// and skipped; only context cancellation ends the run early.
func (s *IngestService) Ingest(
	ctx context.Context, source driving.IngestSource, progress driving.ProgressFunc,
) (*domain.IngestReport, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	logger.Section("Ingestion")
	start := time.Now()
	run := &ingestRun{source: source, progress: progress}

	for {
		doc, err := source.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return run.finish(start), ctxErr
			}
			run.report.ReadErrors++
			logger.Warn("Skipping document: %v", err)
			continue
		}

		if err := s.add(ctx, run, doc); err != nil {
			return run.finish(start), err
		}
	}

	if err := s.flush(ctx, run); err != nil {
		return run.finish(start), err
	}

	report := run.finish(start)
	logger.Info("Ingested %d documents: %d of %d segments stored, %d batches failed (%s)",
		report.Documents, report.Stored, report.Segments, report.FailedBatches, report.Duration.Round(time.Millisecond))
	return report, nil
}

// IngestDocument splits and stores a single document, as done for files that
// appear while watching a directory.
func (s *IngestService) IngestDocument(ctx context.Context, doc *domain.Document) (*domain.IngestReport, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", domain.ErrInvalidInput)
	}

	start := time.Now()
	run := &ingestRun{}
	if err := s.add(ctx, run, doc); err != nil {
		return run.finish(start), err
	}
	if err := s.flush(ctx, run); err != nil {
		return run.finish(start), err
	}
	return run.finish(start), nil
}

func (s *IngestService) ready() error {
	if s.store == nil {
		return domain.ErrStoreUnavailable
	}
	if s.embedder == nil {
		return domain.ErrEmbeddingUnavailable
	}
	return nil
}

// add splits doc and stores every full batch.
func (s *IngestService) add(ctx context.Context, run *ingestRun, doc *domain.Document) error {
	segments := s.splitter.Split(doc)
	run.report.Documents++
	run.report.Segments += len(segments)
	logger.Debug("Document %q: %d segments", doc.Metadata.Value(domain.MetadataTitle), len(segments))

	run.pending = append(run.pending, segments...)
	s.metrics.SetGauge(telemetry.SegmentsPending, len(run.pending))

	for len(run.pending) >= s.batchSize {
		batch := run.pending[:s.batchSize]
		run.pending = run.pending[s.batchSize:]
		if err := s.storeBatch(ctx, run, batch); err != nil {
			return err
		}
	}
	return nil
}

// flush stores the last partial batch.
func (s *IngestService) flush(ctx context.Context, run *ingestRun) error {
	if len(run.pending) == 0 {
		return nil
	}
	batch := run.pending
	run.pending = nil
	return s.storeBatch(ctx, run, batch)
}

// storeBatch embeds and stores one batch. A failed batch is logged and
// counted; an error is only returned when ctx is done.
func (s *IngestService) storeBatch(ctx context.Context, run *ingestRun, batch []domain.TextSegment) error {
	defer func() {
		s.metrics.SetGauge(telemetry.SegmentsPending, len(run.pending))
		if run.progress != nil {
			run.progress(domain.IngestProgress{
				Documents: run.report.Documents,
				Segments:  run.report.Segments,
				Stored:    run.report.Stored,
				Pending:   run.sourcePending(),
			})
		}
	}()

	texts := make([]string, len(batch))
	for i, seg := range batch {
		texts[i] = seg.Text
	}

	stopGen := s.metrics.Time(telemetry.VectorGenMS)
	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	stopGen()
	if err != nil {
		return s.batchFailed(ctx, run, "embed", len(batch), err)
	}

	stopSave := s.metrics.Time(telemetry.VectorSaveMS)
	ids, err := s.store.AddAll(ctx, embeddings, batch)
	stopSave()
	if err != nil {
		return s.batchFailed(ctx, run, "store", len(batch), err)
	}

	run.report.Stored += len(ids)
	s.metrics.Add(telemetry.SegmentsStored, int64(len(ids)))
	logger.Debug("Stored batch of %d segments", len(ids))
	return nil
}

func (s *IngestService) batchFailed(ctx context.Context, run *ingestRun, step string, size int, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	run.report.FailedBatches++
	s.metrics.Add(telemetry.BatchesFailed, 1)
	logger.Error("Failed to %s batch of %d segments: %v", step, size, err)
	return nil
}

func (r *ingestRun) sourcePending() int {
	if r.source == nil {
		return 0
	}
	return r.source.Pending()
}

func (r *ingestRun) finish(start time.Time) *domain.IngestReport {
	r.report.Duration = time.Since(start)
	report := r.report
	return &report
}

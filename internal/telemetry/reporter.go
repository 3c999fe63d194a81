package telemetry

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Reporter periodically prints a metrics table.
type Reporter struct {
	metrics  *Metrics
	out      io.Writer
	interval time.Duration
}

// NewReporter creates a reporter writing to out every interval.
func NewReporter(metrics *Metrics, out io.Writer, interval time.Duration) *Reporter {
	return &Reporter{metrics: metrics, out: out, interval: interval}
}

// Run reports until ctx is done, then reports once more.
// It returns immediately when the interval is not positive.
func (r *Reporter) Run(ctx context.Context) {
	if r.interval <= 0 || r.metrics == nil {
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = r.Report(context.Background())
			return
		case <-ticker.C:
			_ = r.Report(ctx)
		}
	}
}

// Report writes one table of the current metrics.
func (r *Reporter) Report(ctx context.Context) error {
	stats, err := r.metrics.Snapshot(ctx)
	if err != nil {
		return err
	}
	if len(stats) == 0 {
		return nil
	}

	_, err = fmt.Fprintln(r.out, Render(stats))
	return err
}

// Render formats stats as a table.
func Render(stats []Stat) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("METRIC", "COUNT", "MEAN ms", "MIN ms", "MAX ms", "VALUE")

	for _, s := range stats {
		if s.Kind == KindHistogram {
			t.Row(s.Name,
				strconv.FormatUint(s.Count, 10),
				strconv.FormatFloat(s.Mean(), 'f', 1, 64),
				strconv.FormatFloat(s.Min, 'f', 1, 64),
				strconv.FormatFloat(s.Max, 'f', 1, 64),
				"")
			continue
		}
		t.Row(s.Name, "", "", "", "", strconv.FormatInt(s.Value, 10))
	}
	return t.String()
}

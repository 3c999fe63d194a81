// Package telemetry collects ingestion timings and queue sizes with the
// OpenTelemetry metrics SDK and prints them to the console.
package telemetry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// Metric names.
const (
	VectorGenMS  = "vector.gen.ms"
	VectorSaveMS = "vector.save.ms"
	ParseEpubMS  = "parse.epub.ms"
	ParsePDFMS   = "parse.pdf.ms"
	RSSSourceMS  = "rss.source.ms"
	RSSArticleMS = "rss.article.ms"

	EpubBooksPending   = "epub.books.pending"
	PDFFilesPending    = "pdf.files.pending"
	RSSSourcesPending  = "rss.src.pending"
	RSSArticlesPending = "rss.articles.pending"
	SegmentsPending    = "segments.pending"

	SegmentsStored = "segments.stored"
	BatchesFailed  = "batches.failed"
)

const meterName = "github.com/custodia-labs/ragsample"

// Metrics records histograms in milliseconds, gauges and counters.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	reader   *sdkmetric.ManualReader
	provider *sdkmetric.MeterProvider
	meter    metric.Meter

	mu         sync.Mutex
	histograms map[string]metric.Float64Histogram
	counters   map[string]metric.Int64Counter
	gauges     map[string]*atomic.Int64
}

// New creates a Metrics backed by a manual reader.
func New() *Metrics {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	return &Metrics{
		reader:     reader,
		provider:   provider,
		meter:      provider.Meter(meterName),
		histograms: make(map[string]metric.Float64Histogram),
		counters:   make(map[string]metric.Int64Counter),
		gauges:     make(map[string]*atomic.Int64),
	}
}

// Record adds a duration sample to the named histogram.
func (m *Metrics) Record(name string, d time.Duration) {
	if m == nil {
		return
	}
	h, err := m.histogram(name)
	if err != nil {
		return
	}
	h.Record(context.Background(), float64(d)/float64(time.Millisecond))
}

// Time starts a timer; calling the returned func records the elapsed time.
func (m *Metrics) Time(name string) func() {
	start := time.Now()
	return func() {
		m.Record(name, time.Since(start))
	}
}

// Add increments the named counter.
func (m *Metrics) Add(name string, n int64) {
	if m == nil {
		return
	}
	c, err := m.counter(name)
	if err != nil {
		return
	}
	c.Add(context.Background(), n)
}

// SetGauge sets the current value of the named gauge.
func (m *Metrics) SetGauge(name string, value int) {
	if m == nil {
		return
	}
	g, err := m.gauge(name)
	if err != nil {
		return
	}
	g.Store(int64(value))
}

// Shutdown stops the meter provider.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m == nil {
		return nil
	}
	return m.provider.Shutdown(ctx)
}

func (m *Metrics) histogram(name string) (metric.Float64Histogram, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if h, ok := m.histograms[name]; ok {
		return h, nil
	}
	h, err := m.meter.Float64Histogram(name, metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}
	m.histograms[name] = h
	return h, nil
}

func (m *Metrics) counter(name string) (metric.Int64Counter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.counters[name]; ok {
		return c, nil
	}
	c, err := m.meter.Int64Counter(name)
	if err != nil {
		return nil, err
	}
	m.counters[name] = c
	return c, nil
}

func (m *Metrics) gauge(name string) (*atomic.Int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if g, ok := m.gauges[name]; ok {
		return g, nil
	}
	value := new(atomic.Int64)
	_, err := m.meter.Int64ObservableGauge(name,
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(value.Load())
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}
	m.gauges[name] = value
	return value, nil
}

// Kind distinguishes snapshot rows.
type Kind string

// Snapshot row kinds.
const (
	KindHistogram Kind = "histogram"
	KindGauge     Kind = "gauge"
	KindCounter   Kind = "counter"
)

// Stat is one metric in a snapshot.
type Stat struct {
	Name  string
	Kind  Kind
	Count uint64
	Sum   float64
	Min   float64
	Max   float64
	Value int64
}

// Mean returns the average histogram sample.
func (s Stat) Mean() float64 {
	if s.Count == 0 {
		return 0
	}
	return s.Sum / float64(s.Count)
}

// Snapshot collects the current values, sorted by name.
func (m *Metrics) Snapshot(ctx context.Context) ([]Stat, error) {
	if m == nil {
		return nil, nil
	}

	var rm metricdata.ResourceMetrics
	if err := m.reader.Collect(ctx, &rm); err != nil {
		return nil, fmt.Errorf("collect metrics: %w", err)
	}

	var stats []Stat
	for _, scope := range rm.ScopeMetrics {
		for _, md := range scope.Metrics {
			switch data := md.Data.(type) {
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					s := Stat{Name: md.Name, Kind: KindHistogram, Count: dp.Count, Sum: dp.Sum}
					if v, ok := dp.Min.Value(); ok {
						s.Min = v
					}
					if v, ok := dp.Max.Value(); ok {
						s.Max = v
					}
					stats = append(stats, s)
				}
			case metricdata.Gauge[int64]:
				for _, dp := range data.DataPoints {
					stats = append(stats, Stat{Name: md.Name, Kind: KindGauge, Value: dp.Value})
				}
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					stats = append(stats, Stat{Name: md.Name, Kind: KindCounter, Value: dp.Value})
				}
			}
		}
	}

	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats, nil
}

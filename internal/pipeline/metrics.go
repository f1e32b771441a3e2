package pipeline

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/maltedev/amazon-pdp-exporter/internal/models"
)

// Metrics bundles Prometheus collectors for a run.
type Metrics struct {
	Registry      *prometheus.Registry
	RecordsTotal  *prometheus.CounterVec
	ImagesTotal   prometheus.Counter
	RetriesTotal  prometheus.Counter
	FetchDuration prometheus.Histogram
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	records := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pdp_records_total",
			Help: "Product records produced, labeled by extraction status.",
		},
		[]string{"status"},
	)
	images := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pdp_images_total",
			Help: "Total gallery images collected across all records.",
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pdp_retries_total",
			Help: "Total per-ASIN retry attempts.",
		},
	)
	fetchDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pdp_fetch_duration_seconds",
			Help:    "Page fetch plus extraction latency per ASIN.",
			Buckets: prometheus.DefBuckets,
		},
	)

	registry.MustRegister(records, images, retries, fetchDuration)

	return &Metrics{
		Registry:      registry,
		RecordsTotal:  records,
		ImagesTotal:   images,
		RetriesTotal:  retries,
		FetchDuration: fetchDuration,
	}
}

// IncRecord counts one finished record by status.
func (m *Metrics) IncRecord(status string) {
	if m == nil {
		return
	}
	m.RecordsTotal.WithLabelValues(status).Inc()
}

// AddImages counts collected gallery images.
func (m *Metrics) AddImages(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ImagesTotal.Add(float64(n))
}

// IncRetries counts one retry attempt.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// ObserveFetch records how long one ASIN took end to end.
func (m *Metrics) ObserveFetch(d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(d.Seconds())
}

// Extractor is the single-call extraction surface used by the HTTP API.
type Extractor interface {
	Extract(ctx context.Context, asin string) (*models.ProductRecord, error)
}

// InstrumentExtractor wraps an extractor so on-demand extractions land in the
// same collectors a batch run feeds.
func InstrumentExtractor(inner Extractor, m *Metrics) Extractor {
	return &instrumentedExtractor{inner: inner, metrics: m}
}

type instrumentedExtractor struct {
	inner   Extractor
	metrics *Metrics
}

func (e *instrumentedExtractor) Extract(ctx context.Context, asin string) (*models.ProductRecord, error) {
	start := time.Now()
	record, err := e.inner.Extract(ctx, asin)
	e.metrics.ObserveFetch(time.Since(start))
	if err != nil {
		e.metrics.IncRecord(models.StatusError)
		return nil, err
	}
	e.metrics.IncRecord(record.Status)
	e.metrics.AddImages(record.ImageCount)
	return record, nil
}

// Package pipeline runs the sequential fetch → extract → aggregate loop.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/maltedev/amazon-pdp-exporter/internal/models"
	"github.com/maltedev/amazon-pdp-exporter/internal/parser"
	"github.com/maltedev/amazon-pdp-exporter/internal/ratelimit"
	"github.com/maltedev/amazon-pdp-exporter/internal/scraper"
)

// Sink receives every successfully extracted record. Sink failures are
// logged and never affect the run or the output table.
type Sink interface {
	Name() string
	Consume(ctx context.Context, record *models.ProductRecord) error
}

type Options struct {
	Limiter ratelimit.RateLimiter
	Sinks   []Sink
	Metrics *Metrics
	// MaxRetries is the number of additional attempts per ASIN when a fetch
	// or extraction fails, or when the first attempt yields zero images.
	MaxRetries int
}

// Runner aggregates one record per ASIN, in input order. One ASIN is fully
// processed before the next begins; the output slice is the only state that
// crosses ASIN boundaries.
type Runner struct {
	fetcher    scraper.Fetcher
	parser     parser.Parser
	limiter    ratelimit.RateLimiter
	sinks      []Sink
	metrics    *Metrics
	maxRetries int
	logger     *slog.Logger
}

func NewRunner(fetcher scraper.Fetcher, p parser.Parser, opts Options) *Runner {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &Runner{
		fetcher:    fetcher,
		parser:     p,
		limiter:    opts.Limiter,
		sinks:      opts.Sinks,
		metrics:    opts.Metrics,
		maxRetries: opts.MaxRetries,
		logger:     slog.Default().With("component", "pipeline"),
	}
}

// Run processes every ASIN and returns exactly one record per input ASIN, in
// input order. Per-ASIN failures become error rows; only cancellation stops
// the run early, returning the rows finished so far.
func (r *Runner) Run(ctx context.Context, asins []string) ([]*models.ProductRecord, error) {
	records := make([]*models.ProductRecord, 0, len(asins))

	for i, asin := range asins {
		select {
		case <-ctx.Done():
			return records, ctx.Err()
		default:
		}

		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return records, err
			}
		}

		r.logger.Info("processing", "asin", asin, "position", i+1, "total", len(asins))

		start := time.Now()
		record := r.processASIN(ctx, asin)
		r.metrics.ObserveFetch(time.Since(start))

		r.metrics.IncRecord(record.Status)
		r.metrics.AddImages(record.ImageCount)

		if record.Failed() {
			r.logger.Warn("extraction failed", "asin", asin, "error", record.ErrorMessage)
		} else {
			r.logger.Info("extracted", "asin", asin, "images", record.ImageCount)
			r.dispatch(ctx, record)
		}

		records = append(records, record)
	}

	return records, nil
}

// processASIN runs up to 1+maxRetries attempts for one ASIN and always
// returns a record; a fully failed ASIN yields an error row.
func (r *Runner) processASIN(ctx context.Context, asin string) *models.ProductRecord {
	var lastErr error
	var zeroImages *models.ProductRecord

	attempts := 1 + r.maxRetries
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			r.logger.Info("retrying", "asin", asin, "attempt", attempt)
			r.metrics.IncRetries()
		}

		html, err := r.fetcher.FetchProductPage(ctx, asin)
		if err != nil {
			lastErr = err
			continue
		}

		record, err := r.parser.ParseProductPage(html, asin)
		if err != nil {
			lastErr = err
			continue
		}

		// A page that renders before its gallery settles parses fine but
		// carries no images; give it one more pass.
		if record.ImageCount == 0 && attempt < attempts {
			zeroImages = record
			continue
		}

		return record
	}

	if zeroImages != nil {
		return zeroImages
	}

	return models.NewErrorRecord(asin, lastErr)
}

func (r *Runner) dispatch(ctx context.Context, record *models.ProductRecord) {
	for _, sink := range r.sinks {
		if err := sink.Consume(ctx, record); err != nil {
			r.logger.Error("sink failed", "sink", sink.Name(), "asin", record.ASIN, "error", err)
		}
	}
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/amazon-pdp-exporter/internal/models"
)

type fakeFetcher struct {
	pages map[string]string
	errs  map[string]error
	calls []string
}

func (f *fakeFetcher) FetchProductPage(_ context.Context, asin string) (string, error) {
	f.calls = append(f.calls, asin)
	if err, ok := f.errs[asin]; ok {
		return "", err
	}
	return f.pages[asin], nil
}

type fakeParser struct {
	records map[string]*models.ProductRecord
	errs    map[string]error
}

func (p *fakeParser) ParseProductPage(_ string, asin string) (*models.ProductRecord, error) {
	if err, ok := p.errs[asin]; ok {
		return nil, err
	}
	if record, ok := p.records[asin]; ok {
		return record, nil
	}
	record := models.NewRecord(asin)
	record.ImageURLs = []string{"https://m.media-amazon.com/images/I/" + asin + "._SL1500_.jpg"}
	record.ImageCount = 1
	return record, nil
}

type captureSink struct {
	name     string
	consumed []string
	err      error
}

func (s *captureSink) Name() string { return s.name }

func (s *captureSink) Consume(_ context.Context, record *models.ProductRecord) error {
	s.consumed = append(s.consumed, record.ASIN)
	return s.err
}

func TestRun_OneRecordPerASINInOrder(t *testing.T) {
	asins := []string{"B0AAAAAAA1", "B0AAAAAAA2", "B0AAAAAAA3"}
	runner := NewRunner(&fakeFetcher{}, &fakeParser{}, Options{})

	records, err := runner.Run(context.Background(), asins)
	require.NoError(t, err)

	require.Len(t, records, len(asins))
	for i, asin := range asins {
		assert.Equal(t, asin, records[i].ASIN)
		assert.Equal(t, models.StatusSuccess, records[i].Status)
	}
}

func TestRun_FailedASINBecomesErrorRowAndRunContinues(t *testing.T) {
	fetchErr := errors.New("navigation timeout")
	fetcher := &fakeFetcher{errs: map[string]error{"B0AAAAAAA2": fetchErr}}
	runner := NewRunner(fetcher, &fakeParser{}, Options{})

	records, err := runner.Run(context.Background(), []string{"B0AAAAAAA1", "B0AAAAAAA2", "B0AAAAAAA3"})
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, models.StatusSuccess, records[0].Status)
	assert.True(t, records[1].Failed())
	assert.Equal(t, "navigation timeout", records[1].ErrorMessage)
	assert.Equal(t, models.StatusSuccess, records[2].Status, "failure must not leak into the next ASIN")
}

func TestRun_RetriesFailedFetch(t *testing.T) {
	fetcher := &fakeFetcher{errs: map[string]error{"B0AAAAAAA1": errors.New("blocked")}}
	runner := NewRunner(fetcher, &fakeParser{}, Options{MaxRetries: 1})

	records, err := runner.Run(context.Background(), []string{"B0AAAAAAA1"})
	require.NoError(t, err)

	assert.Len(t, fetcher.calls, 2, "one retry after the failed attempt")
	require.Len(t, records, 1)
	assert.True(t, records[0].Failed())
}

func TestRun_RetriesZeroImageResult(t *testing.T) {
	noImages := models.NewRecord("B0AAAAAAA1")
	fetcher := &fakeFetcher{}
	p := &fakeParser{records: map[string]*models.ProductRecord{"B0AAAAAAA1": noImages}}
	runner := NewRunner(fetcher, p, Options{MaxRetries: 1})

	records, err := runner.Run(context.Background(), []string{"B0AAAAAAA1"})
	require.NoError(t, err)

	assert.Len(t, fetcher.calls, 2)
	require.Len(t, records, 1)
	// The retry also came back empty; the parsed record still wins over an
	// error row.
	assert.Equal(t, models.StatusSuccess, records[0].Status)
	assert.Zero(t, records[0].ImageCount)
}

func TestRun_CancellationReturnsPartialResults(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	fetcher := &cancellingFetcher{cancel: cancel, after: 2}
	runner := NewRunner(fetcher, &fakeParser{}, Options{})

	records, err := runner.Run(ctx, []string{"B0AAAAAAA1", "B0AAAAAAA2", "B0AAAAAAA3", "B0AAAAAAA4"})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, records, 2)
}

type cancellingFetcher struct {
	cancel context.CancelFunc
	after  int
	calls  int
}

func (f *cancellingFetcher) FetchProductPage(_ context.Context, asin string) (string, error) {
	f.calls++
	if f.calls == f.after {
		f.cancel()
	}
	return "", nil
}

func TestRun_SinksReceiveOnlySuccessfulRecords(t *testing.T) {
	fetcher := &fakeFetcher{errs: map[string]error{"B0AAAAAAA2": errors.New("boom")}}
	sink := &captureSink{name: "capture"}
	runner := NewRunner(fetcher, &fakeParser{}, Options{Sinks: []Sink{sink}})

	_, err := runner.Run(context.Background(), []string{"B0AAAAAAA1", "B0AAAAAAA2", "B0AAAAAAA3"})
	require.NoError(t, err)

	assert.Equal(t, []string{"B0AAAAAAA1", "B0AAAAAAA3"}, sink.consumed)
}

func TestRun_SinkFailureDoesNotAffectRun(t *testing.T) {
	failing := &captureSink{name: "failing", err: fmt.Errorf("sink unavailable")}
	healthy := &captureSink{name: "healthy"}
	runner := NewRunner(&fakeFetcher{}, &fakeParser{}, Options{Sinks: []Sink{failing, healthy}})

	records, err := runner.Run(context.Background(), []string{"B0AAAAAAA1"})
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, models.StatusSuccess, records[0].Status)
	assert.Equal(t, []string{"B0AAAAAAA1"}, healthy.consumed, "later sinks still run")
}

func TestRun_MetricsCount(t *testing.T) {
	metrics := NewMetrics()
	fetcher := &fakeFetcher{errs: map[string]error{"B0AAAAAAA2": errors.New("boom")}}
	runner := NewRunner(fetcher, &fakeParser{}, Options{Metrics: metrics})

	_, err := runner.Run(context.Background(), []string{"B0AAAAAAA1", "B0AAAAAAA2"})
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RecordsTotal.WithLabelValues(models.StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RecordsTotal.WithLabelValues(models.StatusError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ImagesTotal))

	// The registry is what /metrics serves; the run's collectors must all be
	// gatherable from it.
	families, err := metrics.Registry.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, family := range families {
		names = append(names, family.GetName())
	}
	assert.Contains(t, names, "pdp_records_total")
	assert.Contains(t, names, "pdp_images_total")
	assert.Contains(t, names, "pdp_fetch_duration_seconds")
}

type fakeExtractor struct {
	record *models.ProductRecord
	err    error
}

func (f *fakeExtractor) Extract(_ context.Context, asin string) (*models.ProductRecord, error) {
	return f.record, f.err
}

func TestInstrumentExtractor_CountsSuccess(t *testing.T) {
	metrics := NewMetrics()
	record := models.NewRecord("B0METRIC01")
	record.ImageCount = 3

	wrapped := InstrumentExtractor(&fakeExtractor{record: record}, metrics)

	got, err := wrapped.Extract(context.Background(), "B0METRIC01")
	require.NoError(t, err)
	assert.Same(t, record, got)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RecordsTotal.WithLabelValues(models.StatusSuccess)))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.ImagesTotal))
}

func TestInstrumentExtractor_CountsFailure(t *testing.T) {
	metrics := NewMetrics()
	wrapped := InstrumentExtractor(&fakeExtractor{err: errors.New("boom")}, metrics)

	_, err := wrapped.Extract(context.Background(), "B0METRIC01")
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RecordsTotal.WithLabelValues(models.StatusError)))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.ImagesTotal))
}

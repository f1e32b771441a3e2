package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/maltedev/amazon-pdp-exporter/internal/archive"
	"github.com/maltedev/amazon-pdp-exporter/internal/browser"
	"github.com/maltedev/amazon-pdp-exporter/internal/config"
	"github.com/maltedev/amazon-pdp-exporter/internal/events"
	"github.com/maltedev/amazon-pdp-exporter/internal/images"
	"github.com/maltedev/amazon-pdp-exporter/internal/parser"
	"github.com/maltedev/amazon-pdp-exporter/internal/pipeline"
	"github.com/maltedev/amazon-pdp-exporter/internal/ratelimit"
	"github.com/maltedev/amazon-pdp-exporter/internal/scraper"
	"github.com/maltedev/amazon-pdp-exporter/internal/sheet"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		inputPath  = flag.String("input", "asins.xlsx", "Input spreadsheet with an ASIN column")
		outputPath = flag.String("output", "amazon_product_data.xlsx", "Output spreadsheet (.xlsx or .csv)")
		headless   = flag.Bool("headless", true, "Run browser in headless mode")
		imageSize  = flag.Int("sl", 0, "Resolution token for image URLs (default from IMAGE_SIZE, 1500)")
		saveImages = flag.Bool("save-images", false, "Download images to disk for QC")
		imagesDir  = flag.String("images-dir", "", "Directory for -save-images (default from IMAGES_DIR)")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		return 1
	}

	logLevel := slog.LevelInfo
	if cfg.Logging.Level == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received shutdown signal")
		cancel()
	}()

	asins, err := sheet.ReadASINs(*inputPath)
	if err != nil {
		logger.Error("failed to read input", "path", *inputPath, "error", err)
		return 1
	}
	logger.Info("loaded ASIN list", "path", *inputPath, "count", len(asins))

	browserOpts := browser.DefaultOptions()
	browserOpts.Headless = *headless && cfg.Browser.Headless
	browserOpts.Timeout = cfg.Browser.Timeout
	browserOpts.ViewportWidth = cfg.Browser.ViewportWidth
	browserOpts.ViewportHeight = cfg.Browser.ViewportHeight
	browserOpts.AcceptLanguage = cfg.Browser.AcceptLanguage
	browserOpts.TimezoneID = cfg.Browser.TimezoneID
	browserOpts.Locale = cfg.Browser.Locale
	browserOpts.ProxyServer = cfg.Browser.ProxyServer

	b, err := browser.New(browserOpts)
	if err != nil {
		logger.Error("failed to create browser", "error", err)
		return 1
	}
	defer b.Close()

	size := cfg.Marketplace.ImageSize
	if *imageSize > 0 {
		size = *imageSize
	}

	fetcher := scraper.NewPageFetcher(b, cfg.Marketplace.BaseURL, 3)
	extractor := parser.NewAmazonParser(size)

	sinks, cleanup, err := buildSinks(ctx, cfg, *saveImages, *imagesDir, logger)
	if err != nil {
		return 1
	}
	defer cleanup()

	metrics := pipeline.NewMetrics()
	if cfg.Metrics.Addr != "" {
		metricsServer := &http.Server{
			Addr:    cfg.Metrics.Addr,
			Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer metricsServer.Close()
		logger.Info("metrics server enabled", "addr", cfg.Metrics.Addr)
	}

	runner := pipeline.NewRunner(fetcher, extractor, pipeline.Options{
		Limiter:    ratelimit.NewSimpleRateLimiter(cfg.Scraper.RateLimitMin, cfg.Scraper.RateLimitMax),
		Sinks:      sinks,
		Metrics:    metrics,
		MaxRetries: cfg.Scraper.MaxRetries,
	})

	records, err := runner.Run(ctx, asins)
	if err != nil {
		logger.Error("run aborted", "error", err, "finished", len(records), "total", len(asins))
		return 1
	}

	if err := sheet.WriteRecords(*outputPath, records); err != nil {
		logger.Error("failed to write output", "path", *outputPath, "error", err)
		return 1
	}

	succeeded, failed := 0, 0
	for _, record := range records {
		if record.Failed() {
			failed++
		} else {
			succeeded++
		}
	}
	logger.Info("run completed",
		"output", *outputPath,
		"rows", len(records),
		"succeeded", succeeded,
		"failed", failed)

	return 0
}

// buildSinks wires the optional record sinks from config and flags. The
// returned cleanup closes whatever was opened.
func buildSinks(ctx context.Context, cfg *config.Config, saveImages bool, imagesDir string, logger *slog.Logger) ([]pipeline.Sink, func(), error) {
	var sinks []pipeline.Sink
	var closers []func()

	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}

	if cfg.Archive.DatabaseURL != "" {
		store, err := archive.New(ctx, cfg.Archive.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to archive database", "error", err)
			cleanup()
			return nil, func() {}, err
		}
		logger.Info("archive enabled")
		sinks = append(sinks, store)
		closers = append(closers, store.Close)
	}

	if cfg.Events.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Events.RedisAddr,
			Password: cfg.Events.RedisPassword,
			DB:       cfg.Events.RedisDB,
		})
		logger.Info("event publishing enabled", "stream", cfg.Events.Stream)
		sinks = append(sinks, events.NewPublisher(client, cfg.Events.Stream))
		closers = append(closers, func() { client.Close() })
	}

	if saveImages || cfg.Output.SaveImages {
		dir := imagesDir
		if dir == "" {
			dir = cfg.Output.ImagesDir
		}
		logger.Info("image download enabled", "dir", dir)
		sinks = append(sinks, images.NewDownloader(dir))
	}

	return sinks, cleanup, nil
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/maltedev/amazon-pdp-exporter/internal/api"
	"github.com/maltedev/amazon-pdp-exporter/internal/archive"
	"github.com/maltedev/amazon-pdp-exporter/internal/browser"
	"github.com/maltedev/amazon-pdp-exporter/internal/config"
	"github.com/maltedev/amazon-pdp-exporter/internal/parser"
	"github.com/maltedev/amazon-pdp-exporter/internal/pipeline"
	"github.com/maltedev/amazon-pdp-exporter/internal/scraper"
)

func main() {
	os.Exit(run())
}

func run() int {
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
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	browserOpts := browser.DefaultOptions()
	browserOpts.Headless = cfg.Browser.Headless
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

	fetcher := scraper.NewPageFetcher(b, cfg.Marketplace.BaseURL, 3)
	extractor := parser.NewAmazonParser(cfg.Marketplace.ImageSize)
	metrics := pipeline.NewMetrics()
	service := pipeline.InstrumentExtractor(scraper.NewService(fetcher, extractor), metrics)

	var store api.RecordStore
	if cfg.Archive.DatabaseURL != "" {
		arc, err := archive.New(ctx, cfg.Archive.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to archive database", "error", err)
			return 1
		}
		defer arc.Close()
		store = arc
		logger.Info("archive enabled")
	}

	handlers := api.NewHandlers(service, store, logger.With("component", "api"))

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	handlers.RegisterRoutes(r)
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		logger.Error("server failed", "error", err)
		return 1
	case sig := <-sigChan:
		logger.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		return 1
	}

	logger.Info("server stopped")
	return 0
}

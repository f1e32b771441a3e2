// Package images optionally saves the collected gallery images to disk for
// quality checks.
package images

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/maltedev/amazon-pdp-exporter/internal/models"
)

// Downloader fetches the normalized image URLs of a record into
// <root>/<asin>/image_N.jpg. Individual image failures are tolerated.
type Downloader struct {
	client *resty.Client
	root   string
	logger *slog.Logger
}

func NewDownloader(root string) *Downloader {
	client := resty.New().
		SetTimeout(25 * time.Second).
		SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36").
		SetHeader("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")

	return &Downloader{
		client: client,
		root:   root,
		logger: slog.Default().With("component", "image_downloader"),
	}
}

// Client exposes the underlying HTTP client, mainly for tests.
func (d *Downloader) Client() *resty.Client {
	return d.client
}

func (d *Downloader) Name() string { return "image_downloader" }

// Consume downloads every image of the record. Failed images are skipped;
// an error is returned only when the target directory cannot be created.
func (d *Downloader) Consume(ctx context.Context, record *models.ProductRecord) error {
	if len(record.ImageURLs) == 0 {
		return nil
	}

	dir := filepath.Join(d.root, record.ASIN)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create image directory: %w", err)
	}

	saved := 0
	for i, url := range record.ImageURLs {
		path := filepath.Join(dir, fmt.Sprintf("image_%d.jpg", i+1))
		if err := d.downloadOne(ctx, url, path); err != nil {
			d.logger.Warn("image download failed", "asin", record.ASIN, "url", url, "error", err)
			continue
		}
		saved++
	}

	d.logger.Info("images saved", "asin", record.ASIN, "saved", saved, "total", len(record.ImageURLs))
	return nil
}

func (d *Downloader) downloadOne(ctx context.Context, url, path string) error {
	resp, err := d.client.R().
		SetContext(ctx).
		SetOutput(path).
		Get(url)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("unexpected status %s", resp.Status())
	}
	return nil
}

package scraper

import (
	"context"
	"log/slog"

	"github.com/maltedev/amazon-pdp-exporter/internal/models"
	"github.com/maltedev/amazon-pdp-exporter/internal/parser"
)

// Service bundles a fetcher and the field extractor into a single-call
// extraction, used by the HTTP API.
type Service struct {
	fetcher Fetcher
	parser  parser.Parser
	logger  *slog.Logger
}

func NewService(fetcher Fetcher, p parser.Parser) *Service {
	return &Service{
		fetcher: fetcher,
		parser:  p,
		logger:  slog.Default().With("component", "scraper_service"),
	}
}

// Extract fetches and parses one product page.
func (s *Service) Extract(ctx context.Context, asin string) (*models.ProductRecord, error) {
	html, err := s.fetcher.FetchProductPage(ctx, asin)
	if err != nil {
		return nil, err
	}

	record, err := s.parser.ParseProductPage(html, asin)
	if err != nil {
		return nil, err
	}

	s.logger.Info("extracted record", "asin", asin, "images", record.ImageCount)
	return record, nil
}

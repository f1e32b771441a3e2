package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/maltedev/amazon-pdp-exporter/internal/models"
	"github.com/maltedev/amazon-pdp-exporter/internal/parser"
	"github.com/maltedev/amazon-pdp-exporter/internal/scraper"
)

// Extractor runs one on-demand extraction.
type Extractor interface {
	Extract(ctx context.Context, asin string) (*models.ProductRecord, error)
}

// RecordStore lists previously archived records.
type RecordStore interface {
	RecentRecords(ctx context.Context, limit int) ([]*models.ProductRecord, error)
}

type Handlers struct {
	extractor Extractor
	store     RecordStore
	logger    *slog.Logger
}

// NewHandlers builds the handler set. store may be nil when no archive is
// configured.
func NewHandlers(extractor Extractor, store RecordStore, logger *slog.Logger) *Handlers {
	return &Handlers{
		extractor: extractor,
		store:     store,
		logger:    logger,
	}
}

// RegisterRoutes mounts all API routes on the router.
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Post("/api/v1/extract", h.ExtractProduct)
	r.Get("/api/v1/records", h.RecentRecords)
	r.Get("/api/v1/health", h.Health)
}

// ExtractRequest is the body of POST /api/v1/extract.
type ExtractRequest struct {
	ASIN string `json:"asin"`
}

// ExtractResponse wraps the extraction result.
type ExtractResponse struct {
	Record *models.ProductRecord `json:"record,omitempty"`
	Error  string                `json:"error,omitempty"`
}

func (h *Handlers) ExtractProduct(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ASIN == "" {
		h.respondError(w, http.StatusBadRequest, "asin is required")
		return
	}

	record, err := h.extractor.Extract(r.Context(), req.ASIN)
	if err != nil {
		h.logger.Error("extraction failed", "asin", req.ASIN, "error", err)

		status := http.StatusBadGateway
		switch {
		case errors.Is(err, scraper.ErrInvalidASIN):
			status = http.StatusBadRequest
		case errors.Is(err, parser.ErrNotProductPage):
			status = http.StatusUnprocessableEntity
		}

		h.respondJSON(w, status, ExtractResponse{Error: err.Error()})
		return
	}

	h.respondJSON(w, http.StatusOK, ExtractResponse{Record: record})
}

func (h *Handlers) RecentRecords(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.respondError(w, http.StatusNotFound, "archive not configured")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	records, err := h.store.RecentRecords(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list records", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list records")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"records": records,
		"count":   len(records),
	})
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

package handler

import (
	"log/slog"
	"net/http"

	"github.com/quantfeed/costsim/internal/domain"
)

// SummaryService defines what the book handler requires from the pipeline.
type SummaryService interface {
	Summary() domain.BookSummary
}

// BookHandler serves orderbook summary endpoints.
type BookHandler struct {
	pipeline SummaryService
	logger   *slog.Logger
}

// NewBookHandler creates a BookHandler with the given service and logger.
func NewBookHandler(pipeline SummaryService, logger *slog.Logger) *BookHandler {
	return &BookHandler{pipeline: pipeline, logger: logger}
}

// Summary returns the rounded metrics of the latest orderbook snapshot.
// GET /api/summary
func (h *BookHandler) Summary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.pipeline.Summary())
}

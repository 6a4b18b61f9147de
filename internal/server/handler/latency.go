package handler

import (
	"log/slog"
	"net/http"

	"github.com/quantfeed/costsim/internal/latency"
)

// LatencyService defines what the latency handler requires from the pipeline.
type LatencyService interface {
	LatencyStats() map[string]latency.Stats
}

// LatencyHandler serves the per-operation latency statistics endpoint.
type LatencyHandler struct {
	pipeline LatencyService
	logger   *slog.Logger
}

// NewLatencyHandler creates a LatencyHandler with the given service and
// logger.
func NewLatencyHandler(pipeline LatencyService, logger *slog.Logger) *LatencyHandler {
	return &LatencyHandler{pipeline: pipeline, logger: logger}
}

// Stats returns min/max/mean/median/p95/p99 per tracked operation.
// GET /api/latency
func (h *LatencyHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.pipeline.LatencyStats())
}

package handler

import (
	"log/slog"
	"net/http"

	"github.com/quantfeed/costsim/internal/domain"
)

// EstimatesHandler serves the persisted estimate history. It is only
// registered when a store is configured.
type EstimatesHandler struct {
	store  domain.EstimateStore
	logger *slog.Logger
}

// NewEstimatesHandler creates an EstimatesHandler with the given store and
// logger.
func NewEstimatesHandler(store domain.EstimateStore, logger *slog.Logger) *EstimatesHandler {
	return &EstimatesHandler{store: store, logger: logger}
}

// listEstimatesResponse wraps the list estimates response.
type listEstimatesResponse struct {
	Estimates []domain.TradeEstimate `json:"estimates"`
}

// ListRecent returns the most recently persisted estimates, newest first.
// GET /api/estimates?limit=50
func (h *EstimatesHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 50, 500)

	ests, err := h.store.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list estimates failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list estimates")
		return
	}

	if ests == nil {
		ests = []domain.TradeEstimate{}
	}

	writeJSON(w, http.StatusOK, listEstimatesResponse{Estimates: ests})
}

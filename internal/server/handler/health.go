package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// FeedStatus reports whether the orderbook stream currently holds a live
// connection.
type FeedStatus interface {
	Active() bool
}

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	feed   FeedStatus
	logger *slog.Logger
}

// NewHealthHandler creates a HealthHandler with the provided feed status
// source and logger.
func NewHealthHandler(feed FeedStatus, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{feed: feed, logger: logger}
}

// HealthCheck responds with the server status and the feed connection state.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"feed_connected": h.feed.Active(),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}

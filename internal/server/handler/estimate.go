package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/quantfeed/costsim/internal/domain"
	"github.com/quantfeed/costsim/internal/pricing"
)

// EstimateService defines what the estimate handler requires from the
// pipeline.
type EstimateService interface {
	Estimate(ctx context.Context, req domain.TradeRequest) domain.TradeEstimate
}

// EstimateHandler serves the trade cost estimation endpoint.
type EstimateHandler struct {
	pipeline     EstimateService
	defaultAsset string
	logger       *slog.Logger
}

// NewEstimateHandler creates an EstimateHandler. defaultAsset fills the asset
// field for requests that omit it.
func NewEstimateHandler(pipeline EstimateService, defaultAsset string, logger *slog.Logger) *EstimateHandler {
	return &EstimateHandler{
		pipeline:     pipeline,
		defaultAsset: defaultAsset,
		logger:       logger,
	}
}

// estimateRequest is the wire form of a trade estimation request. Side is kept
// raw so it can be normalised before domain validation.
type estimateRequest struct {
	Asset                string  `json:"asset"`
	OrderType            string  `json:"order_type"`
	Side                 string  `json:"side"`
	Quantity             float64 `json:"quantity"`
	FeeTier              string  `json:"fee_tier"`
	SlippageTolerancePct float64 `json:"slippage_tolerance_pct"`
	Volatility           float64 `json:"volatility"`
}

// validationResponse reports per-field validation failures.
type validationResponse struct {
	Error  string              `json:"error"`
	Fields []domain.FieldError `json:"fields"`
}

// Estimate runs the cost estimation pipeline for a hypothetical trade.
// POST /api/estimate
func (h *EstimateHandler) Estimate(w http.ResponseWriter, r *http.Request) {
	var raw estimateRequest
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	req := h.buildRequest(raw)
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, validationResponse{
			Error:  "validation failed",
			Fields: errs,
		})
		return
	}

	est := h.pipeline.Estimate(r.Context(), req)
	if !est.Success {
		// A typed failure (empty book) is a service condition, not a client
		// error.
		writeJSON(w, http.StatusServiceUnavailable, est)
		return
	}

	writeJSON(w, http.StatusOK, est)
}

// buildRequest normalises the raw request and fills defaults for omitted
// fields.
func (h *EstimateHandler) buildRequest(raw estimateRequest) domain.TradeRequest {
	req := domain.TradeRequest{
		Asset:                raw.Asset,
		OrderType:            domain.OrderType(raw.OrderType),
		Quantity:             raw.Quantity,
		FeeTier:              raw.FeeTier,
		SlippageTolerancePct: raw.SlippageTolerancePct,
		Volatility:           raw.Volatility,
	}
	if req.Asset == "" {
		req.Asset = h.defaultAsset
	}
	if req.OrderType == "" {
		req.OrderType = domain.OrderMarket
	}
	if req.FeeTier == "" {
		req.FeeTier = pricing.DefaultFeeTier
	}
	if side, ok := domain.ParseSide(raw.Side); ok {
		req.Side = side
	} else {
		req.Side = domain.Side(raw.Side)
	}
	return req
}

package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfeed/costsim/internal/domain"
	"github.com/quantfeed/costsim/internal/pricing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubPipeline records the request it received and returns a canned estimate.
type stubPipeline struct {
	got domain.TradeRequest
	est domain.TradeEstimate
}

func (s *stubPipeline) Estimate(ctx context.Context, req domain.TradeRequest) domain.TradeEstimate {
	s.got = req
	return s.est
}

func postEstimate(t *testing.T, h *EstimateHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/estimate", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Estimate(rec, req)
	return rec
}

func TestEstimateHandlerSuccess(t *testing.T) {
	pipe := &stubPipeline{est: domain.TradeEstimate{ID: uuid.New(), Success: true}}
	h := NewEstimateHandler(pipe, "BTC-USDT-SWAP", testLogger())

	rec := postEstimate(t, h, `{
		"side": "buy",
		"quantity": 1.5,
		"order_type": "Market",
		"fee_tier": "Tier 2 (0.08%)",
		"slippage_tolerance_pct": 0.5,
		"volatility": 0.02
	}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.SideBuy, pipe.got.Side)
	assert.Equal(t, 1.5, pipe.got.Quantity)
	assert.Equal(t, "Tier 2 (0.08%)", pipe.got.FeeTier)

	var est domain.TradeEstimate
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &est))
	assert.True(t, est.Success)
}

func TestEstimateHandlerFillsDefaults(t *testing.T) {
	pipe := &stubPipeline{est: domain.TradeEstimate{Success: true}}
	h := NewEstimateHandler(pipe, "BTC-USDT-SWAP", testLogger())

	rec := postEstimate(t, h, `{"side": "SELL", "quantity": 2}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "BTC-USDT-SWAP", pipe.got.Asset)
	assert.Equal(t, domain.OrderMarket, pipe.got.OrderType)
	assert.Equal(t, pricing.DefaultFeeTier, pipe.got.FeeTier)
	assert.Equal(t, domain.SideSell, pipe.got.Side)
}

func TestEstimateHandlerValidationFailure(t *testing.T) {
	pipe := &stubPipeline{}
	h := NewEstimateHandler(pipe, "BTC-USDT-SWAP", testLogger())

	rec := postEstimate(t, h, `{"side": "long", "quantity": -1}`)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp validationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	fields := make([]string, 0, len(resp.Fields))
	for _, f := range resp.Fields {
		fields = append(fields, f.Field)
	}
	assert.Contains(t, fields, "quantity")
	assert.Contains(t, fields, "side")
	// The pipeline must not run on invalid input.
	assert.Equal(t, domain.TradeRequest{}, pipe.got)
}

func TestEstimateHandlerMalformedBody(t *testing.T) {
	h := NewEstimateHandler(&stubPipeline{}, "BTC-USDT-SWAP", testLogger())

	rec := postEstimate(t, h, `{broken`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEstimateHandlerEmptyBook(t *testing.T) {
	pipe := &stubPipeline{est: domain.TradeEstimate{Success: false, Reason: "empty orderbook"}}
	h := NewEstimateHandler(pipe, "BTC-USDT-SWAP", testLogger())

	rec := postEstimate(t, h, `{"side": "buy", "quantity": 1}`)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "empty orderbook")
}

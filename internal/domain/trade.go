package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OrderType enumerates the supported hypothetical order types.
type OrderType string

const (
	OrderMarket     OrderType = "Market"
	OrderLimit      OrderType = "Limit"
	OrderStopLimit  OrderType = "Stop-Limit"
	OrderTakeProfit OrderType = "Take-Profit"
)

// Side is the direction of the hypothetical trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// ParseSide normalizes a raw side string. ok is false for anything that is
// not "buy" or "sell" (case-insensitive).
func ParseSide(raw string) (Side, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "buy":
		return SideBuy, true
	case "sell":
		return SideSell, true
	}
	return "", false
}

// TradeRequest describes one hypothetical trade to estimate. It is built once
// per caller action and consumed once by the pipeline.
type TradeRequest struct {
	Asset                string    `json:"asset"`
	OrderType            OrderType `json:"order_type"`
	Side                 Side      `json:"side"`
	Quantity             float64   `json:"quantity"`
	FeeTier              string    `json:"fee_tier"`
	SlippageTolerancePct float64   `json:"slippage_tolerance_pct"`
	Volatility           float64   `json:"volatility"`
}

// Validate checks the domain constraints on the request and returns one
// display-ready message per offending field.
func (r TradeRequest) Validate() []FieldError {
	var errs []FieldError
	if r.Quantity <= 0 {
		errs = append(errs, FieldError{Field: "quantity", Message: "quantity must be greater than zero"})
	}
	if r.SlippageTolerancePct < 0 {
		errs = append(errs, FieldError{Field: "slippage_tolerance_pct", Message: "slippage tolerance must not be negative"})
	}
	if r.Volatility < 0 {
		errs = append(errs, FieldError{Field: "volatility", Message: "volatility must not be negative"})
	}
	if r.Side != SideBuy && r.Side != SideSell {
		errs = append(errs, FieldError{Field: "side", Message: `side must be "buy" or "sell"`})
	}
	switch r.OrderType {
	case OrderMarket, OrderLimit, OrderStopLimit, OrderTakeProfit:
	default:
		errs = append(errs, FieldError{Field: "order_type", Message: fmt.Sprintf("unknown order type %q", string(r.OrderType))})
	}
	return errs
}

// FieldError is a per-field validation failure suitable for direct display.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FeeBreakdown is the output of the fee model.
type FeeBreakdown struct {
	MakerRate   float64 `json:"maker_rate"`
	TakerRate   float64 `json:"taker_rate"`
	MakerAmount float64 `json:"maker_amount"`
	TakerAmount float64 `json:"taker_amount"`
	Total       float64 `json:"total"`
	Pct         float64 `json:"pct"`
}

// SlippageEstimate is the output of the slippage model. EstimatedPct is the
// uncapped walk-the-book figure; CappedPct is the same value bounded by the
// caller's tolerance for presentation.
type SlippageEstimate struct {
	EstimatedPct      float64 `json:"estimated_pct"`
	CappedPct         float64 `json:"capped_pct"`
	TolerancePct      float64 `json:"tolerance_pct"`
	AvgExecutionPrice float64 `json:"avg_execution_price"`
}

// ImpactEstimate is the output of the market impact model.
type ImpactEstimate struct {
	Temporary float64 `json:"temporary"`
	Permanent float64 `json:"permanent"`
	Total     float64 `json:"total"`
	Bps       float64 `json:"bps"`
}

// ExecutionEstimate carries the derived execution price and total cost.
type ExecutionEstimate struct {
	Price        float64 `json:"price"`
	Cost         float64 `json:"cost"`
	TotalCost    float64 `json:"total_cost"`
	TotalCostPct float64 `json:"total_cost_pct"`
}

// StageLatencies records how long each pipeline stage took, in milliseconds.
type StageLatencies struct {
	TotalMs      float64 `json:"total_ms"`
	MakerTakerMs float64 `json:"maker_taker_ms"`
	FeeMs        float64 `json:"fee_ms"`
	SlippageMs   float64 `json:"slippage_ms"`
	ImpactMs     float64 `json:"impact_ms"`
}

// TradeEstimate is the aggregate result of one pipeline run. When Success is
// false only Reason is meaningful; callers must check the flag rather than
// rely on an error return.
type TradeEstimate struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Success   bool      `json:"success"`
	Reason    string    `json:"reason,omitempty"`

	Asset     string    `json:"asset"`
	OrderType OrderType `json:"order_type"`
	Side      Side      `json:"side"`
	Quantity  float64   `json:"quantity"`
	FeeTier   string    `json:"fee_tier"`

	ReferencePrice float64           `json:"reference_price"`
	MakerRatio     float64           `json:"maker_ratio"`
	Fees           FeeBreakdown      `json:"fees"`
	Slippage       SlippageEstimate  `json:"slippage"`
	Impact         ImpactEstimate    `json:"market_impact"`
	Execution      ExecutionEstimate `json:"execution"`
	Latencies      StageLatencies    `json:"latencies"`
}

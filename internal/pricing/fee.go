// Package pricing implements the cost-component models: exchange fees,
// maker/taker split, slippage from walking the book, and market impact. All
// estimators are pure functions of a snapshot plus trade parameters and never
// fail for valid, non-empty books.
package pricing

import (
	"log/slog"

	"github.com/quantfeed/costsim/internal/domain"
)

// DefaultFeeTier is used when the caller names a tier the model does not know.
const DefaultFeeTier = "Tier 1 (0.1%)"

// tierRates maps a fee-tier identifier to its maker/taker rates.
type tierRates struct {
	maker float64
	taker float64
}

// feeTiers mirrors the OKX VIP fee schedule.
var feeTiers = map[string]tierRates{
	"Tier 1 (0.1%)":  {maker: 0.0008, taker: 0.001},
	"Tier 2 (0.08%)": {maker: 0.0006, taker: 0.0008},
	"Tier 3 (0.05%)": {maker: 0.0004, taker: 0.0005},
	"Custom":         {maker: 0.0002, taker: 0.0003},
}

// FeeModel computes trading fees from a fixed tier table.
type FeeModel struct {
	logger *slog.Logger
}

// NewFeeModel creates a FeeModel.
func NewFeeModel(logger *slog.Logger) *FeeModel {
	return &FeeModel{logger: logger.With(slog.String("component", "fee_model"))}
}

// Calculate splits notional by makerRatio and applies the tier's maker and
// taker rates to the respective portions. An unknown tier falls back to
// DefaultFeeTier with a warning; the call never fails.
func (m *FeeModel) Calculate(notional, makerRatio float64, tier string) domain.FeeBreakdown {
	rates, ok := feeTiers[tier]
	if !ok {
		m.logger.Warn("unknown fee tier, using default",
			slog.String("tier", tier),
			slog.String("default", DefaultFeeTier),
		)
		rates = feeTiers[DefaultFeeTier]
	}

	makerNotional := notional * makerRatio
	takerNotional := notional * (1 - makerRatio)

	makerAmount := makerNotional * rates.maker
	takerAmount := takerNotional * rates.taker
	total := makerAmount + takerAmount

	pct := 0.0
	if notional > 0 {
		pct = total / notional * 100
	}

	return domain.FeeBreakdown{
		MakerRate:   rates.maker,
		TakerRate:   rates.taker,
		MakerAmount: makerAmount,
		TakerAmount: takerAmount,
		Total:       total,
		Pct:         pct,
	}
}

// KnownTiers returns the recognized fee-tier identifiers.
func KnownTiers() []string {
	return []string{"Tier 1 (0.1%)", "Tier 2 (0.08%)", "Tier 3 (0.05%)", "Custom"}
}

package pricing

import (
	"log/slog"

	"github.com/quantfeed/costsim/internal/domain"
)

// SlippageEstimator estimates the cost of walking the visible book.
type SlippageEstimator struct {
	logger *slog.Logger
}

// NewSlippageEstimator creates a SlippageEstimator.
func NewSlippageEstimator(logger *slog.Logger) *SlippageEstimator {
	return &SlippageEstimator{logger: logger.With(slog.String("component", "slippage_model"))}
}

// Estimate walks the relevant book side (asks for a buy, bids for a sell)
// from the best price, consuming level sizes until quantity is filled. When
// visible depth runs out, the remainder is charged at the worst quoted level,
// treating the book as infinitely deep at that price. That is a
// simplification, not an exchange guarantee. A positive EstimatedPct always
// means adverse cost regardless of side. An empty side yields zero slippage
// with a warning.
func (e *SlippageEstimator) Estimate(snap *domain.Snapshot, quantity float64, side domain.Side, tolerancePct float64) domain.SlippageEstimate {
	bookSide := snap.Asks
	if side == domain.SideSell {
		bookSide = snap.Bids
	}

	if len(bookSide) == 0 {
		e.logger.Warn("empty orderbook side, cannot estimate slippage",
			slog.String("side", string(side)),
		)
		return domain.SlippageEstimate{TolerancePct: tolerancePct}
	}

	referencePrice := bookSide[0].Price

	remaining := quantity
	var notional float64
	for _, lvl := range bookSide {
		if remaining <= lvl.Size {
			notional += remaining * lvl.Price
			remaining = 0
			break
		}
		notional += lvl.Size * lvl.Price
		remaining -= lvl.Size
	}
	if remaining > 0 {
		// Book exhausted: charge the remainder at the worst visible level.
		notional += remaining * bookSide[len(bookSide)-1].Price
	}

	avgPrice := notional / quantity

	var pct float64
	if side == domain.SideBuy {
		pct = (avgPrice - referencePrice) / referencePrice * 100
	} else {
		pct = (referencePrice - avgPrice) / referencePrice * 100
	}

	return domain.SlippageEstimate{
		EstimatedPct:      pct,
		CappedPct:         min(pct, tolerancePct),
		TolerancePct:      tolerancePct,
		AvgExecutionPrice: avgPrice,
	}
}

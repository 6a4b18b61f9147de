package pricing

import (
	"github.com/quantfeed/costsim/internal/domain"
)

// MakerTakerEstimator predicts what fraction of a trade fills passively.
type MakerTakerEstimator struct{}

// NewMakerTakerEstimator creates a MakerTakerEstimator.
func NewMakerTakerEstimator() *MakerTakerEstimator {
	return &MakerTakerEstimator{}
}

// Estimate returns the predicted maker ratio in [0,1]. Non-market types use
// fixed ratios; market orders use a spread/size heuristic capped at 0.2:
// tighter spreads and trades small relative to top-of-book size raise the
// chance some portion rests before filling.
func (e *MakerTakerEstimator) Estimate(snap *domain.Snapshot, quantity float64, orderType domain.OrderType) float64 {
	switch orderType {
	case domain.OrderLimit:
		return 0.8
	case domain.OrderStopLimit, domain.OrderTakeProfit:
		return 0.5
	case domain.OrderMarket:
	default:
		return 0.0
	}

	if snap.Empty() {
		return 0.0
	}

	bestAsk, _ := snap.Asks.Best()
	bestBid, _ := snap.Bids.Best()

	spreadPct := 0.0
	if bestBid.Price > 0 {
		spreadPct = (bestAsk.Price - bestBid.Price) / bestBid.Price
	}

	volRatio := 1.0
	if bestAsk.Size > 0 {
		volRatio = min(quantity/bestAsk.Size, 1.0)
	}

	if spreadPct <= 0 {
		spreadPct = 0.0001
	}
	spreadFactor := min(0.0001/spreadPct, 0.2)

	ratio := 0.05 + spreadFactor - volRatio*0.1
	if ratio < 0 {
		ratio = 0
	}
	return min(ratio, 0.2)
}

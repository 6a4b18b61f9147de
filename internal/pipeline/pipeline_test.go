package pipeline

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfeed/costsim/internal/domain"
	"github.com/quantfeed/costsim/internal/latency"
	"github.com/quantfeed/costsim/internal/pricing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubSource serves a fixed snapshot.
type stubSource struct {
	snap *domain.Snapshot
}

func (s *stubSource) Snapshot() *domain.Snapshot { return s.snap }

func fixtureSnapshot() *domain.Snapshot {
	return &domain.Snapshot{
		Asks: domain.BookSide{
			{Price: 29880, Size: 1.5},
			{Price: 29881.5, Size: 0.75},
			{Price: 29883, Size: 2.1},
		},
		Bids: domain.BookSide{
			{Price: 29875, Size: 1.2},
			{Price: 29873.5, Size: 0.85},
		},
	}
}

func newTestPipeline(snap *domain.Snapshot) *Pipeline {
	logger := testLogger()
	return New(
		&stubSource{snap: snap},
		pricing.NewFeeModel(logger),
		pricing.NewMakerTakerEstimator(),
		pricing.NewSlippageEstimator(logger),
		pricing.NewMarketImpactEstimator(pricing.DefaultImpactConfig(), logger),
		latency.New(1000, logger),
		logger,
	)
}

func marketBuyRequest() domain.TradeRequest {
	return domain.TradeRequest{
		Asset:                "BTC-USDT-SWAP",
		OrderType:            domain.OrderMarket,
		Side:                 domain.SideBuy,
		Quantity:             1.0,
		FeeTier:              "Tier 1 (0.1%)",
		SlippageTolerancePct: 0.5,
		Volatility:           0.02,
	}
}

func TestEstimateMarketBuy(t *testing.T) {
	p := newTestPipeline(fixtureSnapshot())

	est := p.Estimate(context.Background(), marketBuyRequest())

	require.True(t, est.Success)
	assert.NotEqual(t, "", est.ID.String())
	assert.Equal(t, "BTC-USDT-SWAP", est.Asset)
	assert.Equal(t, 29880.0, est.ReferencePrice)

	// Slippage and impact are adverse on a buy, so the execution price cannot
	// improve on the reference.
	assert.GreaterOrEqual(t, est.Execution.Price, 29880.0)
	assert.Greater(t, est.Fees.Total, 0.0)
	assert.Greater(t, est.Impact.Total, 0.0)
	assert.GreaterOrEqual(t, est.Execution.TotalCost, est.Execution.Cost)
	assert.GreaterOrEqual(t, est.MakerRatio, 0.0)
	assert.LessOrEqual(t, est.MakerRatio, 0.2)
	assert.GreaterOrEqual(t, est.Latencies.TotalMs, 0.0)
}

func TestEstimateMarketSell(t *testing.T) {
	p := newTestPipeline(fixtureSnapshot())

	req := marketBuyRequest()
	req.Side = domain.SideSell
	est := p.Estimate(context.Background(), req)

	require.True(t, est.Success)
	assert.Equal(t, 29875.0, est.ReferencePrice)
	assert.LessOrEqual(t, est.Execution.Price, 29875.0)
	// Selling nets the proceeds minus fees.
	assert.LessOrEqual(t, est.Execution.TotalCost, est.Execution.Cost)
	assert.GreaterOrEqual(t, est.Execution.TotalCostPct, 0.0)
}

func TestEstimateEmptyBook(t *testing.T) {
	p := newTestPipeline(nil)

	est := p.Estimate(context.Background(), marketBuyRequest())

	require.False(t, est.Success)
	assert.Equal(t, "empty orderbook", est.Reason)
	assert.Equal(t, domain.FeeBreakdown{}, est.Fees)
}

func TestEstimateLimitOrderMakerRatio(t *testing.T) {
	p := newTestPipeline(fixtureSnapshot())

	req := marketBuyRequest()
	req.OrderType = domain.OrderLimit
	est := p.Estimate(context.Background(), req)

	require.True(t, est.Success)
	assert.Equal(t, 0.8, est.MakerRatio)
	// A mostly-maker fill is cheaper than a pure taker one.
	taker := p.Estimate(context.Background(), marketBuyRequest())
	assert.Less(t, est.Fees.Total, taker.Fees.Total)
}

func TestEstimateRecordsLatencies(t *testing.T) {
	p := newTestPipeline(fixtureSnapshot())

	p.Estimate(context.Background(), marketBuyRequest())
	p.Estimate(context.Background(), marketBuyRequest())

	stats := p.LatencyStats()
	for _, op := range []string{opEstimate, opMakerTaker, opFee, opSlippage, opImpact} {
		require.Contains(t, stats, op)
		assert.Equal(t, 2, stats[op].Count, "operation %s", op)
	}
}

func TestEstimateNotifiesSinks(t *testing.T) {
	p := newTestPipeline(fixtureSnapshot())

	var seen []domain.TradeEstimate
	p.AddSink(func(ctx context.Context, est domain.TradeEstimate) {
		seen = append(seen, est)
	})

	est := p.Estimate(context.Background(), marketBuyRequest())

	require.Len(t, seen, 1)
	assert.Equal(t, est.ID, seen[0].ID)
}

func TestSummaryActiveBook(t *testing.T) {
	p := newTestPipeline(fixtureSnapshot())

	sum := p.Summary()

	assert.Equal(t, "active", sum.Status)
	assert.Equal(t, 29880.0, sum.BestAsk)
	assert.Equal(t, 29875.0, sum.BestBid)
	assert.Equal(t, 29877.5, sum.MidPrice)
	assert.Equal(t, 5.0, sum.Spread)
	assert.InDelta(t, 5.0/29875*100, sum.SpreadPct, 1e-4)
	assert.InDelta(t, 4.35, sum.AskDepth, 1e-9)
	assert.InDelta(t, 2.05, sum.BidDepth, 1e-9)
	// More asks than bids resting pulls the imbalance negative.
	assert.Less(t, sum.BookImbalance, 0.0)
}

func TestSummaryNoData(t *testing.T) {
	p := newTestPipeline(nil)

	assert.Equal(t, domain.BookSummary{Status: "no data"}, p.Summary())
}

// Package pipeline orchestrates the cost estimators against one orderbook
// snapshot pull and assembles the combined trade estimate.
package pipeline

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/quantfeed/costsim/internal/domain"
	"github.com/quantfeed/costsim/internal/latency"
	"github.com/quantfeed/costsim/internal/pricing"
)

// Operation names recorded on the latency instrument.
const (
	opEstimate   = "trade_estimate"
	opMakerTaker = "maker_taker"
	opFee        = "fee_calculation"
	opSlippage   = "slippage_estimation"
	opImpact     = "impact_estimation"
)

// SnapshotSource supplies the latest published book snapshot.
type SnapshotSource interface {
	Snapshot() *domain.Snapshot
}

// EstimateSink observes every completed estimate (persistence, publication).
// Sink failures are absorbed, never surfaced to the caller.
type EstimateSink func(ctx context.Context, est domain.TradeEstimate)

// Pipeline turns one snapshot plus one TradeRequest into a TradeEstimate.
// Concurrent Estimate calls are independent: they share only the read-only
// snapshot and the latency instrument.
type Pipeline struct {
	source     SnapshotSource
	makerTaker *pricing.MakerTakerEstimator
	fees       *pricing.FeeModel
	slippage   *pricing.SlippageEstimator
	impact     *pricing.MarketImpactEstimator
	instrument *latency.Instrument
	logger     *slog.Logger
	sinks      []EstimateSink
}

// New creates a Pipeline reading snapshots from source.
func New(
	source SnapshotSource,
	fees *pricing.FeeModel,
	makerTaker *pricing.MakerTakerEstimator,
	slippage *pricing.SlippageEstimator,
	impact *pricing.MarketImpactEstimator,
	instrument *latency.Instrument,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		source:     source,
		makerTaker: makerTaker,
		fees:       fees,
		slippage:   slippage,
		impact:     impact,
		instrument: instrument,
		logger:     logger.With(slog.String("component", "pipeline")),
	}
}

// AddSink registers an estimate observer. Not safe to call concurrently with
// Estimate; register sinks during wiring.
func (p *Pipeline) AddSink(sink EstimateSink) {
	p.sinks = append(p.sinks, sink)
}

// Estimate runs the full cost estimation for req against the current
// snapshot. The only failure mode is an empty (or absent) orderbook, reported
// as a typed result with Success=false; estimator stages are total functions
// and never fail for valid snapshots.
func (p *Pipeline) Estimate(ctx context.Context, req domain.TradeRequest) domain.TradeEstimate {
	started := time.Now()

	est := domain.TradeEstimate{
		ID:        uuid.New(),
		CreatedAt: started,
		Asset:     req.Asset,
		OrderType: req.OrderType,
		Side:      req.Side,
		Quantity:  req.Quantity,
		FeeTier:   req.FeeTier,
	}

	snap := p.source.Snapshot()
	if snap.Empty() {
		p.logger.Warn("cannot estimate trade: empty orderbook")
		est.Reason = "empty orderbook"
		return est
	}

	midPrice := snap.MidPrice()
	notional := req.Quantity * midPrice

	// Fan out the estimators. Each is pure and total, so the group exists for
	// concurrency, not error collection. Stage timings are measured locally
	// and folded into the shared instrument afterwards so concurrent Estimate
	// calls cannot interleave each other's start/stop pairs.
	var (
		makerRatio float64
		slip       domain.SlippageEstimate
		impact     domain.ImpactEstimate
	)

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		t := time.Now()
		makerRatio = p.makerTaker.Estimate(snap, req.Quantity, req.OrderType)
		est.Latencies.MakerTakerMs = elapsedMs(t)
		return nil
	})
	g.Go(func() error {
		t := time.Now()
		slip = p.slippage.Estimate(snap, req.Quantity, req.Side, req.SlippageTolerancePct)
		est.Latencies.SlippageMs = elapsedMs(t)
		return nil
	})
	g.Go(func() error {
		t := time.Now()
		impact = p.impact.Estimate(snap, req.Quantity, req.Side, req.Volatility)
		est.Latencies.ImpactMs = elapsedMs(t)
		return nil
	})
	_ = g.Wait()

	// Fees depend on the maker ratio, so they run after the fan-out.
	t := time.Now()
	fees := p.fees.Calculate(notional, makerRatio, req.FeeTier)
	est.Latencies.FeeMs = elapsedMs(t)

	// Execution price: reference price adjusted by slippage and impact, both
	// adverse: added on a buy, subtracted on a sell.
	referencePrice := snap.BestAsk()
	if req.Side == domain.SideSell {
		referencePrice = snap.BestBid()
	}
	slippageAmount := slip.EstimatedPct / 100 * referencePrice

	var executionPrice float64
	if req.Side == domain.SideBuy {
		executionPrice = referencePrice + slippageAmount + impact.Total
	} else {
		executionPrice = referencePrice - slippageAmount - impact.Total
	}

	executionCost := req.Quantity * executionPrice
	var totalCost, totalCostPct float64
	if req.Side == domain.SideBuy {
		totalCost = executionCost + fees.Total
		if notional > 0 {
			totalCostPct = (totalCost/notional - 1) * 100
		}
	} else {
		totalCost = executionCost - fees.Total
		if notional > 0 {
			totalCostPct = (1 - totalCost/notional) * 100
		}
	}

	est.Success = true
	est.ReferencePrice = referencePrice
	est.MakerRatio = makerRatio
	est.Fees = fees
	est.Slippage = slip
	est.Impact = impact
	est.Execution = domain.ExecutionEstimate{
		Price:        executionPrice,
		Cost:         executionCost,
		TotalCost:    totalCost,
		TotalCostPct: totalCostPct,
	}
	est.Latencies.TotalMs = elapsedMs(started)

	p.recordLatencies(est.Latencies)

	for _, sink := range p.sinks {
		sink(ctx, est)
	}

	return est
}

// Summary derives the human-oriented rounded book metrics from the current
// snapshot. An empty book yields a "no data" status rather than an error.
func (p *Pipeline) Summary() domain.BookSummary {
	snap := p.source.Snapshot()
	if snap.Empty() {
		return domain.BookSummary{Status: "no data"}
	}

	bestAsk := snap.BestAsk()
	bestBid := snap.BestBid()
	spread := bestAsk - bestBid

	spreadPct := 0.0
	if bestBid > 0 {
		spreadPct = spread / bestBid * 100
	}

	askDepth := snap.Asks.TotalSize()
	bidDepth := snap.Bids.TotalSize()
	imbalance := 0.0
	if askDepth+bidDepth > 0 {
		imbalance = (bidDepth - askDepth) / (bidDepth + askDepth)
	}

	return domain.BookSummary{
		Status:        "active",
		BestAsk:       round(bestAsk, 2),
		BestBid:       round(bestBid, 2),
		MidPrice:      round((bestAsk+bestBid)/2, 2),
		Spread:        round(spread, 2),
		SpreadPct:     round(spreadPct, 4),
		AskDepth:      round(askDepth, 2),
		BidDepth:      round(bidDepth, 2),
		BookImbalance: round(imbalance, 4),
		LastLatencyMs: round(snap.ProcessingMs, 2),
	}
}

// LatencyStats exposes the instrument's per-operation statistics.
func (p *Pipeline) LatencyStats() map[string]latency.Stats {
	return p.instrument.AllStats()
}

func (p *Pipeline) recordLatencies(l domain.StageLatencies) {
	p.instrument.Record(opEstimate, l.TotalMs)
	p.instrument.Record(opMakerTaker, l.MakerTakerMs)
	p.instrument.Record(opFee, l.FeeMs)
	p.instrument.Record(opSlippage, l.SlippageMs)
	p.instrument.Record(opImpact, l.ImpactMs)
}

func elapsedMs(since time.Time) float64 {
	return float64(time.Since(since)) / float64(time.Millisecond)
}

func round(v float64, places int) float64 {
	scale := math.Pow10(places)
	return math.Round(v*scale) / scale
}

package pricing

import (
	"log/slog"
	"math"

	"github.com/quantfeed/costsim/internal/domain"
)

// ImpactConfig holds the Almgren-Chriss style model coefficients.
type ImpactConfig struct {
	PermanentFactor   float64
	TemporaryFactor   float64
	VolatilityScaling bool
	// ExecutionTimeframe is the assumed time to work the order, in seconds.
	ExecutionTimeframe float64
}

// DefaultImpactConfig returns the model's stock coefficients.
func DefaultImpactConfig() ImpactConfig {
	return ImpactConfig{
		PermanentFactor:    2.5e-6,
		TemporaryFactor:    1.5e-5,
		VolatilityScaling:  true,
		ExecutionTimeframe: 1.0,
	}
}

// MarketImpactEstimator estimates permanent and temporary price impact.
type MarketImpactEstimator struct {
	cfg    ImpactConfig
	logger *slog.Logger
}

// NewMarketImpactEstimator creates a MarketImpactEstimator. Zero-valued
// coefficients in cfg are replaced by the defaults.
func NewMarketImpactEstimator(cfg ImpactConfig, logger *slog.Logger) *MarketImpactEstimator {
	def := DefaultImpactConfig()
	if cfg.PermanentFactor <= 0 {
		cfg.PermanentFactor = def.PermanentFactor
	}
	if cfg.TemporaryFactor <= 0 {
		cfg.TemporaryFactor = def.TemporaryFactor
	}
	if cfg.ExecutionTimeframe <= 0 {
		cfg.ExecutionTimeframe = def.ExecutionTimeframe
	}
	return &MarketImpactEstimator{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "impact_model")),
	}
}

// Estimate computes the market impact of trading quantity against the
// snapshot. Both impact factors are scaled by the volatility over the
// execution timeframe (when enabled) and by the book depth relative to the
// trade notional: thinner books amplify impact. Temporary impact shrinks with
// the square root of the execution timeframe. An empty book yields the zero
// estimate with a warning, never a failure.
func (e *MarketImpactEstimator) Estimate(snap *domain.Snapshot, quantity float64, side domain.Side, volatility float64) domain.ImpactEstimate {
	if snap.Empty() {
		e.logger.Warn("empty orderbook, cannot estimate market impact")
		return domain.ImpactEstimate{}
	}

	midPrice := snap.MidPrice()
	notional := quantity * midPrice

	// Resting liquidity within 1% of mid, both sides combined.
	marketDepth := snap.DepthNotionalWithin(0.01)

	permanentFactor := e.cfg.PermanentFactor
	temporaryFactor := e.cfg.TemporaryFactor

	if e.cfg.VolatilityScaling {
		timeframeVol := volatility * math.Sqrt(e.cfg.ExecutionTimeframe/86400)
		volScale := clamp(timeframeVol/0.01, 0.5, 2.0)
		permanentFactor *= volScale
		temporaryFactor *= volScale
	}

	if marketDepth > 0 && notional > 0 {
		depthScale := clamp(1.0/(marketDepth/notional), 0.5, 3.0)
		permanentFactor *= depthScale
		temporaryFactor *= depthScale
	}

	permanent := permanentFactor * notional
	temporary := temporaryFactor * notional * math.Sqrt(1.0/e.cfg.ExecutionTimeframe)
	total := permanent + temporary

	bps := 0.0
	if midPrice > 0 {
		bps = total / midPrice * 10000
	}

	return domain.ImpactEstimate{
		Temporary: temporary,
		Permanent: permanent,
		Total:     total,
		Bps:       bps,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

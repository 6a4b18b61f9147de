package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfeed/costsim/internal/domain"
)

func TestImpactEmptyBook(t *testing.T) {
	e := NewMarketImpactEstimator(DefaultImpactConfig(), testLogger())

	assert.Equal(t, domain.ImpactEstimate{}, e.Estimate(&domain.Snapshot{}, 1.0, domain.SideBuy, 0.02))
	assert.Equal(t, domain.ImpactEstimate{}, e.Estimate(nil, 1.0, domain.SideBuy, 0.02))
}

func TestImpactComponentsAddUp(t *testing.T) {
	e := NewMarketImpactEstimator(DefaultImpactConfig(), testLogger())

	impact := e.Estimate(fixtureSnapshot(), 1.0, domain.SideBuy, 0.02)

	require.Greater(t, impact.Permanent, 0.0)
	require.Greater(t, impact.Temporary, 0.0)
	assert.InDelta(t, impact.Permanent+impact.Temporary, impact.Total, 1e-9)
	assert.Greater(t, impact.Bps, 0.0)
}

func TestImpactGrowsWithQuantity(t *testing.T) {
	e := NewMarketImpactEstimator(DefaultImpactConfig(), testLogger())
	snap := fixtureSnapshot()

	small := e.Estimate(snap, 0.5, domain.SideBuy, 0.02)
	large := e.Estimate(snap, 2.0, domain.SideBuy, 0.02)

	assert.Greater(t, large.Total, small.Total)
}

func TestImpactShrinksWithDepth(t *testing.T) {
	e := NewMarketImpactEstimator(DefaultImpactConfig(), testLogger())

	thin := &domain.Snapshot{
		Asks: domain.BookSide{{Price: 100.0, Size: 1.0}},
		Bids: domain.BookSide{{Price: 99.9, Size: 1.0}},
	}
	// Same top of book with extra resting liquidity inside the depth band.
	deep := &domain.Snapshot{
		Asks: domain.BookSide{{Price: 100.0, Size: 1.0}, {Price: 100.2, Size: 1.0}},
		Bids: domain.BookSide{{Price: 99.9, Size: 1.0}, {Price: 99.7, Size: 1.0}},
	}

	onThin := e.Estimate(thin, 4.0, domain.SideBuy, 0.02)
	onDeep := e.Estimate(deep, 4.0, domain.SideBuy, 0.02)

	assert.Less(t, onDeep.Total, onThin.Total)
}

func TestImpactVolatilityScaling(t *testing.T) {
	e := NewMarketImpactEstimator(DefaultImpactConfig(), testLogger())
	snap := fixtureSnapshot()

	calm := e.Estimate(snap, 1.0, domain.SideBuy, 0.0)
	stormy := e.Estimate(snap, 1.0, domain.SideBuy, 10.0)

	require.Greater(t, stormy.Total, calm.Total)
	// The volatility scale is clamped to [0.5, 2.0], so the spread between the
	// extremes is at most 4x.
	assert.LessOrEqual(t, stormy.Total, calm.Total*4+1e-9)
}

func TestImpactVolatilityScalingDisabled(t *testing.T) {
	cfg := DefaultImpactConfig()
	cfg.VolatilityScaling = false
	e := NewMarketImpactEstimator(cfg, testLogger())
	snap := fixtureSnapshot()

	calm := e.Estimate(snap, 1.0, domain.SideBuy, 0.0)
	stormy := e.Estimate(snap, 1.0, domain.SideBuy, 10.0)

	assert.Equal(t, calm, stormy)
}

func TestImpactConfigDefaultsApplied(t *testing.T) {
	e := NewMarketImpactEstimator(ImpactConfig{}, testLogger())

	assert.Equal(t, DefaultImpactConfig().PermanentFactor, e.cfg.PermanentFactor)
	assert.Equal(t, DefaultImpactConfig().TemporaryFactor, e.cfg.TemporaryFactor)
	assert.Equal(t, DefaultImpactConfig().ExecutionTimeframe, e.cfg.ExecutionTimeframe)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.5, clamp(0.1, 0.5, 2.0))
	assert.Equal(t, 2.0, clamp(5.0, 0.5, 2.0))
	assert.Equal(t, 1.3, clamp(1.3, 0.5, 2.0))
}

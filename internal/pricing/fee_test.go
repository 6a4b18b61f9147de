package pricing

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quantfeed/costsim/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFeeAllTaker(t *testing.T) {
	m := NewFeeModel(testLogger())

	fees := m.Calculate(10000, 0.0, "Tier 1 (0.1%)")

	assert.Equal(t, 0.0, fees.MakerAmount)
	assert.InDelta(t, 10.0, fees.TakerAmount, 1e-9)
	assert.InDelta(t, 10.0, fees.Total, 1e-9)
	assert.InDelta(t, 0.1, fees.Pct, 1e-9)
}

func TestFeeAllMaker(t *testing.T) {
	m := NewFeeModel(testLogger())

	fees := m.Calculate(10000, 1.0, "Tier 1 (0.1%)")

	assert.InDelta(t, 8.0, fees.MakerAmount, 1e-9)
	assert.Equal(t, 0.0, fees.TakerAmount)
	assert.InDelta(t, 8.0, fees.Total, 1e-9)
}

func TestFeeMixedRatio(t *testing.T) {
	m := NewFeeModel(testLogger())

	fees := m.Calculate(10000, 0.5, "Tier 2 (0.08%)")

	assert.InDelta(t, 3.0, fees.MakerAmount, 1e-9) // 5000 * 0.0006
	assert.InDelta(t, 4.0, fees.TakerAmount, 1e-9) // 5000 * 0.0008
	assert.InDelta(t, 7.0, fees.Total, 1e-9)
}

func TestFeeUnknownTierFallsBack(t *testing.T) {
	m := NewFeeModel(testLogger())

	fees := m.Calculate(10000, 0.0, "VIP 9")
	expected := m.Calculate(10000, 0.0, DefaultFeeTier)

	assert.Equal(t, expected, fees)
}

func TestFeeZeroNotional(t *testing.T) {
	m := NewFeeModel(testLogger())

	fees := m.Calculate(0, 0.5, "Tier 1 (0.1%)")

	assert.Equal(t, domain.FeeBreakdown{MakerRate: 0.0008, TakerRate: 0.001}, fees)
}

func TestKnownTiersCoverTable(t *testing.T) {
	for _, tier := range KnownTiers() {
		_, ok := feeTiers[tier]
		assert.True(t, ok, "tier %q missing from table", tier)
	}
}

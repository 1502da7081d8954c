package valuation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xphantasia/equilibrium/internal/domain"
)

func testPosition() domain.Position {
	return domain.Position{
		ID:            "pos-1",
		Owner:         "user-1",
		AssetID:       "ethereum",
		EntryPrice:    entry,
		RangeLow:      low,
		RangeHigh:     high,
		Capital:       capital,
		EstimatedAPR:  50,
		ShortLeverage: 3,
		StartTime:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestComputeReferenceScenario(t *testing.T) {
	snap, err := Compute(testPosition(), 2600, 24, false)
	require.NoError(t, err)

	assert.Equal(t, "pos-1", snap.PositionID)
	assert.Equal(t, "ethereum", snap.AssetID)
	assert.Equal(t, 2600.0, snap.CurrentPrice)
	assert.False(t, snap.IsOutOfRange)

	// Liquidity calibrated so entry valuation equals capital.
	assert.InDelta(t, capital, ValueAt(snap.LiquidityConstant, low, high, entry), 1e-9)
	assert.InDelta(t, capital, snap.TokenAmount*entry+snap.StableAmount, 1e-9)

	// Component identities.
	assert.InDelta(t, snap.LPValue+snap.ShortPnL, snap.EquityValue, 1e-9)
	assert.InDelta(t, (snap.LPValue-capital)+snap.ShortPnL+snap.AccruedFees, snap.TotalPnL, 1e-9)
	assert.InDelta(t, snap.ShortSize*2600, snap.ShortValue, 1e-9)
	assert.InDelta(t, 1000*0.5/365, snap.AccruedFees, 1e-9)

	// Both boundary losses are finite, below par, and equal by calibration.
	assert.Less(t, snap.MaxLossAtLow, 0.0)
	assert.Less(t, snap.MaxLossAtHigh, 0.0)
	assert.InDelta(t, snap.MaxLossAtLow, snap.MaxLossAtHigh, 1e-9)

	assert.InDelta(t, 2500*(1+1.0/3), snap.LiquidationPrice, 1e-9)
}

func TestComputeBelowRange(t *testing.T) {
	snap, err := Compute(testPosition(), 1900, 0, true)
	require.NoError(t, err)

	assert.True(t, snap.IsOutOfRange)

	// Below the range the provision is pure risk asset.
	l := snap.LiquidityConstant
	assert.InDelta(t, ValueAt(l, low, high, 1900), snap.LPValue, 1e-9)
	assert.Greater(t, snap.ShortPnL, 0.0) // short gains on the way down
}

func TestComputeSkipFees(t *testing.T) {
	snap, err := Compute(testPosition(), 2600, 500, true)
	require.NoError(t, err)

	assert.Zero(t, snap.AccruedFees)
	assert.InDelta(t, (snap.LPValue-capital)+snap.ShortPnL, snap.TotalPnL, 1e-9)
}

func TestComputeDeterministic(t *testing.T) {
	a, err := Compute(testPosition(), 2700, 12, false)
	require.NoError(t, err)
	b, err := Compute(testPosition(), 2700, 12, false)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestComputeRejectsInvalidRange(t *testing.T) {
	pos := testPosition()
	pos.RangeLow, pos.RangeHigh = pos.RangeHigh, pos.RangeLow

	_, err := Compute(pos, 2600, 0, true)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidRange)
}

func TestComputeBreakEvenAccounting(t *testing.T) {
	// Price at entry: no price PnL, nothing to recover.
	snap, err := Compute(testPosition(), entry, 0, true)
	require.NoError(t, err)
	assert.InDelta(t, 0, snap.FeesToBreakEven, 1e-9)

	// Price at a boundary: the boundary loss is exactly what fees must cover.
	snap, err = Compute(testPosition(), low, 0, true)
	require.NoError(t, err)
	assert.InDelta(t, -snap.MaxLossAtLow, snap.FeesToBreakEven, 1e-9)
}

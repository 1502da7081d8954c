package valuation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xphantasia/equilibrium/internal/domain"
)

// Reference scenario used throughout: ETH-style entry at 2500 with a
// [2000, 3000] range and $1000 of capital.
const (
	entry   = 2500.0
	low     = 2000.0
	high    = 3000.0
	capital = 1000.0
)

func TestLiquidityValuesEntryAtCapital(t *testing.T) {
	l, err := Liquidity(entry, low, high, capital)
	require.NoError(t, err)
	require.Greater(t, l, 0.0)

	// Conservation: the provision is worth exactly the invested capital at
	// the entry price.
	assert.InDelta(t, capital, ValueAt(l, low, high, entry), 1e-9)
}

func TestAmountsSplitConservesCapital(t *testing.T) {
	l, err := Liquidity(entry, low, high, capital)
	require.NoError(t, err)

	token, stable := Amounts(l, entry, low, high)
	assert.Greater(t, token, 0.0)
	assert.Greater(t, stable, 0.0)
	assert.InDelta(t, capital, token*entry+stable, 1e-9)
}

func TestValueAtContinuousAtBoundaries(t *testing.T) {
	l, err := Liquidity(entry, low, high, capital)
	require.NoError(t, err)

	const eps = 1e-6
	assert.InDelta(t, ValueAt(l, low, high, low), ValueAt(l, low, high, low+eps), 1e-3)
	assert.InDelta(t, ValueAt(l, low, high, low), ValueAt(l, low, high, low-eps), 1e-3)
	assert.InDelta(t, ValueAt(l, low, high, high), ValueAt(l, low, high, high+eps), 1e-3)
	assert.InDelta(t, ValueAt(l, low, high, high), ValueAt(l, low, high, high-eps), 1e-3)
}

func TestValueAtBelowRangeIsLinearInPrice(t *testing.T) {
	l, err := Liquidity(entry, low, high, capital)
	require.NoError(t, err)

	// Below the range the provision is pure risk asset, so value is linear
	// in the target price.
	v1900 := ValueAt(l, low, high, 1900)
	v950 := ValueAt(l, low, high, 950)
	assert.InDelta(t, v1900/2, v950, 1e-9)
	assert.Less(t, v1900, capital)
}

func TestValueAtAboveRangeIsConstant(t *testing.T) {
	l, err := Liquidity(entry, low, high, capital)
	require.NoError(t, err)

	assert.Equal(t, ValueAt(l, low, high, high), ValueAt(l, low, high, 5000))
	assert.Equal(t, ValueAt(l, low, high, high), ValueAt(l, low, high, 100000))
}

func TestValidateRangeRejectsDegenerateInput(t *testing.T) {
	cases := []struct {
		name                     string
		entry, low, high, invest float64
	}{
		{"inverted range", 2500, 3000, 2000, 1000},
		{"collapsed range", 2500, 2500, 2500, 1000},
		{"zero low bound", 2500, 0, 3000, 1000},
		{"negative entry", -1, 2000, 3000, 1000},
		{"zero capital", 2500, 2000, 3000, 0},
		{"entry far below range", 1, 2000, 3000, 1000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Liquidity(tc.entry, tc.low, tc.high, tc.invest)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidRange)
		})
	}
}

func TestValidateRangeAllowsEntryAtBound(t *testing.T) {
	// Entry equal to the lower bound is legal: the provision is then fully
	// the risk asset.
	l, err := Liquidity(low, low, high, capital)
	require.NoError(t, err)
	assert.InDelta(t, capital, ValueAt(l, low, high, low), 1e-9)
}

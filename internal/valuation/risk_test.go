package valuation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLiquidationPrice(t *testing.T) {
	assert.InDelta(t, 2500*(1+1.0/3), LiquidationPrice(2500, 3), 1e-9)
	assert.InDelta(t, 2500*1.5, LiquidationPrice(2500, 2), 1e-9)

	// Missing or bogus leverage falls back to 3x.
	assert.Equal(t, LiquidationPrice(2500, DefaultLeverage), LiquidationPrice(2500, 0))
	assert.Equal(t, LiquidationPrice(2500, DefaultLeverage), LiquidationPrice(2500, -5))
}

func TestDistanceToLiquidationPct(t *testing.T) {
	liq := LiquidationPrice(2500, 3) // 3333.33

	assert.InDelta(t, (liq-2500)/2500*100, DistanceToLiquidationPct(liq, 2500), 1e-9)

	// At the liquidation price the distance is zero; above it, negative.
	assert.InDelta(t, 0, DistanceToLiquidationPct(liq, liq), 1e-9)
	assert.Less(t, DistanceToLiquidationPct(liq, liq+100), 0.0)
}

func TestFeesToBreakEven(t *testing.T) {
	// Underwater: the shortfall is the fee income still required.
	assert.InDelta(t, 30, FeesToBreakEven(-50, 20), 1e-9)

	// At or above break-even: nothing required.
	assert.Zero(t, FeesToBreakEven(-20, 20))
	assert.Zero(t, FeesToBreakEven(10, 5))
}

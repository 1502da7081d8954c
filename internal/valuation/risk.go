package valuation

// DefaultLeverage is assumed for the liquidation estimate when the position
// does not carry a usable leverage multiple.
const DefaultLeverage = 3.0

// LiquidationPrice estimates where the short's margin is exhausted, using the
// linear approximation entry*(1 + 1/leverage). Non-positive leverage falls
// back to DefaultLeverage.
func LiquidationPrice(entryPrice, leverage float64) float64 {
	if leverage <= 0 {
		leverage = DefaultLeverage
	}
	return entryPrice * (1 + 1/leverage)
}

// DistanceToLiquidationPct is how far the current price sits below the
// liquidation price, as a percentage of the current price.
func DistanceToLiquidationPct(liquidationPrice, currentPrice float64) float64 {
	return (liquidationPrice - currentPrice) / currentPrice * 100
}

// MaxLossAt returns the total price PnL (provision value change plus hedge
// PnL, fees excluded) if the price exits the range at the given boundary and
// the position is not rebalanced.
func MaxLossAt(l, rangeLow, rangeHigh, entryPrice, capital, hedgeSize, boundary float64) float64 {
	lpPnL := ValueAt(l, rangeLow, rangeHigh, boundary) - capital
	return lpPnL + HedgePnL(hedgeSize, entryPrice, boundary)
}

// FeesToBreakEven is the fee income still required to lift the current price
// PnL back to zero; zero when the position is already at or above break-even.
func FeesToBreakEven(lpPnL, hedgePnL float64) float64 {
	raw := lpPnL + hedgePnL
	if raw >= 0 {
		return 0
	}
	return -raw
}

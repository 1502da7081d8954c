package valuation

// HedgeSize returns the short size that makes the combined position worth the
// same at both range boundaries, eliminating first-order price sensitivity
// across the range: the provision's value drop from rangeLow to rangeHigh
// divided by the price move.
func HedgeSize(l, rangeLow, rangeHigh float64) float64 {
	return (ValueAt(l, rangeLow, rangeHigh, rangeLow) - ValueAt(l, rangeLow, rangeHigh, rangeHigh)) /
		(rangeLow - rangeHigh)
}

// HedgePnL returns the short's PnL for a move from entryPrice to
// currentPrice. Positive when price falls.
func HedgePnL(size, entryPrice, currentPrice float64) float64 {
	return (entryPrice - currentPrice) * size
}

// Package valuation implements the pure mathematical model of a hedged
// concentrated-liquidity position: liquidity derivation under the
// square-root-price invariant, valuation at arbitrary prices, delta-neutral
// hedge calibration, fee accrual, and the risk metrics derived from them.
//
// Everything in this package is stateless and side-effect free, so it is safe
// to call concurrently for many positions per polling cycle.
package valuation

import (
	"fmt"
	"math"

	"github.com/0xphantasia/equilibrium/internal/domain"
)

// ValidateRange rejects inputs for which the liquidity constant is undefined:
// non-positive prices or capital, an inverted or collapsed range, or an entry
// price so far outside the range that the capital-to-liquidity conversion is
// non-positive.
func ValidateRange(entryPrice, rangeLow, rangeHigh, capital float64) error {
	switch {
	case rangeLow <= 0 || rangeHigh <= 0 || entryPrice <= 0:
		return fmt.Errorf("valuation: prices must be positive (entry=%g low=%g high=%g): %w",
			entryPrice, rangeLow, rangeHigh, domain.ErrInvalidRange)
	case rangeLow >= rangeHigh:
		return fmt.Errorf("valuation: rangeLow %g >= rangeHigh %g: %w",
			rangeLow, rangeHigh, domain.ErrInvalidRange)
	case capital <= 0:
		return fmt.Errorf("valuation: capital %g must be positive: %w",
			capital, domain.ErrInvalidRange)
	}
	if rangeConst(entryPrice, rangeLow, rangeHigh) <= 0 {
		return fmt.Errorf("valuation: entry price %g incompatible with range [%g, %g]: %w",
			entryPrice, rangeLow, rangeHigh, domain.ErrInvalidRange)
	}
	return nil
}

// rangeConst is the capital-to-liquidity conversion constant
// (sqrtP - sqrtPL) + P*(1/sqrtP - 1/sqrtPH). It can collapse to zero or go
// negative only when the entry price sits far outside the range, which
// ValidateRange rejects.
func rangeConst(entryPrice, rangeLow, rangeHigh float64) float64 {
	sqrtP := math.Sqrt(entryPrice)
	sqrtPL := math.Sqrt(rangeLow)
	sqrtPH := math.Sqrt(rangeHigh)
	return (sqrtP - sqrtPL) + entryPrice*(1/sqrtP-1/sqrtPH)
}

// Liquidity derives the invariant liquidity constant L such that the
// provision is worth exactly capital at the entry price.
func Liquidity(entryPrice, rangeLow, rangeHigh, capital float64) (float64, error) {
	if err := ValidateRange(entryPrice, rangeLow, rangeHigh, capital); err != nil {
		return 0, err
	}
	return capital / rangeConst(entryPrice, rangeLow, rangeHigh), nil
}

// ValueAt returns the provision's value at the target price. Below the range
// the provision is entirely the risk asset; above it, entirely the stable
// asset; in between, the two-sided square-root-price curve. The three
// branches agree at both boundaries, so the function is continuous.
func ValueAt(l, rangeLow, rangeHigh, target float64) float64 {
	sqrtPL := math.Sqrt(rangeLow)
	sqrtPH := math.Sqrt(rangeHigh)
	switch {
	case target <= rangeLow:
		return l * (1/sqrtPL - 1/sqrtPH) * target
	case target >= rangeHigh:
		return l * (sqrtPH - sqrtPL)
	default:
		sqrtT := math.Sqrt(target)
		return l*(sqrtT-sqrtPL) + l*(1/sqrtT-1/sqrtPH)*target
	}
}

// Amounts returns the entry-time two-asset decomposition of the provision.
// tokenAmount*entryPrice + stableAmount equals the invested capital.
func Amounts(l, entryPrice, rangeLow, rangeHigh float64) (tokenAmount, stableAmount float64) {
	sqrtP := math.Sqrt(entryPrice)
	tokenAmount = l * (1/sqrtP - 1/math.Sqrt(rangeHigh))
	stableAmount = l * (sqrtP - math.Sqrt(rangeLow))
	return tokenAmount, stableAmount
}

package valuation

import (
	"github.com/0xphantasia/equilibrium/internal/domain"
)

// Compute assembles the full Snapshot for a position at the given price and
// elapsed-time assumption. With skipFees set, accrued fees are forced to zero
// regardless of elapsedHours; live as-of-now views use this so they carry no
// elapsed-time assumption.
//
// The result is a pure function of its inputs: no shared state is read or
// written, and two calls with equal arguments produce equal valuation fields.
// Callers stamp Snapshot.ComputedAt themselves.
func Compute(pos domain.Position, currentPrice, elapsedHours float64, skipFees bool) (domain.Snapshot, error) {
	l, err := Liquidity(pos.EntryPrice, pos.RangeLow, pos.RangeHigh, pos.Capital)
	if err != nil {
		return domain.Snapshot{}, err
	}

	tokenAmount, stableAmount := Amounts(l, pos.EntryPrice, pos.RangeLow, pos.RangeHigh)

	lpValue := ValueAt(l, pos.RangeLow, pos.RangeHigh, currentPrice)
	lpPnL := lpValue - pos.Capital

	hedgeSize := HedgeSize(l, pos.RangeLow, pos.RangeHigh)
	hedgePnL := HedgePnL(hedgeSize, pos.EntryPrice, currentPrice)

	var fees float64
	if !skipFees {
		fees = AccruedFees(pos.Capital, pos.EstimatedAPR, elapsedHours)
	}

	liqPrice := LiquidationPrice(pos.EntryPrice, pos.ShortLeverage)

	return domain.Snapshot{
		PositionID:   pos.ID,
		AssetID:      pos.AssetID,
		CurrentPrice: currentPrice,

		LiquidityConstant: l,
		TokenAmount:       tokenAmount,
		StableAmount:      stableAmount,

		LPValue:     lpValue,
		ShortSize:   hedgeSize,
		ShortValue:  hedgeSize * currentPrice,
		ShortPnL:    hedgePnL,
		AccruedFees: fees,
		TotalPnL:    lpPnL + hedgePnL + fees,
		EquityValue: lpValue + hedgePnL,

		LiquidationPrice:         liqPrice,
		DistanceToLiquidationPct: DistanceToLiquidationPct(liqPrice, currentPrice),
		MaxLossAtLow:             MaxLossAt(l, pos.RangeLow, pos.RangeHigh, pos.EntryPrice, pos.Capital, hedgeSize, pos.RangeLow),
		MaxLossAtHigh:            MaxLossAt(l, pos.RangeLow, pos.RangeHigh, pos.EntryPrice, pos.Capital, hedgeSize, pos.RangeHigh),
		FeesToBreakEven:          FeesToBreakEven(lpPnL, hedgePnL),
		IsOutOfRange:             currentPrice < pos.RangeLow || currentPrice > pos.RangeHigh,
	}, nil
}

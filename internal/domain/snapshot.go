package domain

import "time"

// Snapshot is the full risk/PnL picture of a position at one price and one
// elapsed-time assumption. It is derived, never persisted, and recomputed on
// demand from (Position, currentPrice, elapsedHours) with no hidden state.
type Snapshot struct {
	PositionID   string
	AssetID      string
	CurrentPrice float64
	ComputedAt   time.Time

	// Liquidity decomposition.
	LiquidityConstant float64 // invariant L scaling capital to the value curve
	TokenAmount       float64 // risk-asset leg at entry
	StableAmount      float64 // stable leg at entry

	// Valuation.
	LPValue     float64 // provision value at the current price
	ShortSize   float64 // delta-neutral hedge size, in tokens
	ShortValue  float64 // hedge notional at the current price
	ShortPnL    float64
	AccruedFees float64
	TotalPnL    float64 // (LPValue - Capital) + ShortPnL + AccruedFees
	EquityValue float64 // LPValue + ShortPnL

	// Risk.
	LiquidationPrice         float64
	DistanceToLiquidationPct float64
	MaxLossAtLow             float64 // total price PnL if the range is exited downward
	MaxLossAtHigh            float64 // total price PnL if the range is exited upward
	FeesToBreakEven          float64
	IsOutOfRange             bool
}

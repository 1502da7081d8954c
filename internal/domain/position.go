// Package domain holds the core types and interfaces shared by every layer:
// positions, valuation snapshots, store and cache contracts, and the error
// taxonomy.
package domain

import "time"

// Position is a hedged concentrated-liquidity position as entered by the
// user: a price-bounded liquidity provision plus a short sized against it.
// A position is immutable once created; deletion is the only mutation.
type Position struct {
	ID            string
	Owner         string
	AssetID       string  // price feed identifier, canonical lowercase
	EntryPrice    float64 // token price at entry, USD
	RangeLow      float64
	RangeHigh     float64
	Capital       float64 // total invested value at entry, USD
	EstimatedAPR  float64 // annualized yield assumption, percent
	ShortLeverage float64 // leverage multiple of the hedge, for liquidation estimate
	StartTime     time.Time
}

// ElapsedHours returns the position's age in hours at the given instant.
func (p Position) ElapsedHours(now time.Time) float64 {
	return now.Sub(p.StartTime).Hours()
}

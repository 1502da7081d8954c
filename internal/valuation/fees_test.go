package valuation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccruedFeesLinear(t *testing.T) {
	// 50% APR on $1000 over 24h accrues one day of yield: 1000*0.5/365.
	assert.InDelta(t, 1000*0.5/365, AccruedFees(1000, 50, 24), 1e-9)

	// Linear in time.
	assert.InDelta(t, 2*AccruedFees(1000, 50, 24), AccruedFees(1000, 50, 48), 1e-9)

	assert.Zero(t, AccruedFees(1000, 0, 24))
	assert.Zero(t, AccruedFees(1000, 50, 0))
}

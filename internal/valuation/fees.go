package valuation

// hoursPerYear converts the annualized yield assumption to an hourly rate.
const hoursPerYear = 365 * 24

// AccruedFees converts an annualized yield estimate (percent) into fee income
// accrued linearly over the elapsed hours.
func AccruedFees(capital, aprPct, hours float64) float64 {
	return capital * (aprPct / 100 / hoursPerYear) * hours
}

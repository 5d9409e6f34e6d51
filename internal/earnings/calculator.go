// Package earnings turns hours into money. It holds the daily calculator
// with its overtime tier and the resolver every aggregate goes through.
package earnings

import (
	"github.com/shopspring/decimal"

	"workday/internal/core"
)

// Result is the breakdown of one day's pay.
type Result struct {
	Earnings      float64 `json:"earnings"`
	BaseHours     float64 `json:"baseHours"`
	OvertimeHours float64 `json:"overtimeHours"`
}

// OvertimeApplies reports whether ot splits a day of totalHours into a base
// and an overtime part. Invalid settings never apply.
func OvertimeApplies(totalHours float64, ot *core.OvertimeSettings) bool {
	if ot == nil || !ot.Enabled {
		return false
	}
	if ot.Threshold <= 0 || ot.Rate < 0 {
		return false
	}
	return totalHours > ot.Threshold
}

// CalculateDailyEarnings prices totalHours at baseRate, switching to the
// overtime rate for the hours past the threshold.
func CalculateDailyEarnings(totalHours, baseRate float64, ot *core.OvertimeSettings) Result {
	hours := decimal.NewFromFloat(totalHours)
	rate := decimal.NewFromFloat(baseRate)

	if !OvertimeApplies(totalHours, ot) {
		return Result{
			Earnings:      hours.Mul(rate).InexactFloat64(),
			BaseHours:     totalHours,
			OvertimeHours: 0,
		}
	}

	base := decimal.Min(hours, decimal.NewFromFloat(ot.Threshold))
	over := hours.Sub(base)
	pay := base.Mul(rate).Add(over.Mul(decimal.NewFromFloat(ot.Rate)))

	return Result{
		Earnings:      pay.InexactFloat64(),
		BaseHours:     base.InexactFloat64(),
		OvertimeHours: over.InexactFloat64(),
	}
}

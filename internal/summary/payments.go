package summary

import (
	"time"

	"workday/internal/calendar"
	"workday/internal/core"
	"workday/internal/earnings"
)

type PendingPayment struct {
	DateKey  string  `json:"dateKey"`
	Earnings float64 `json:"earnings"`
}

// PendingPayments lists the days flagged as unpaid in date order, with the
// amount still owed.
func PendingPayments(sessions core.WorkSessionsMap, earn earnings.Func) ([]PendingPayment, float64) {
	out := []PendingPayment{}
	var total sum
	for _, e := range entries(sessions) {
		if !e.day.IsPaymentPending() {
			continue
		}
		v := earn(e.day)
		total.add(v)
		out = append(out, PendingPayment{DateKey: e.key, Earnings: v})
	}
	return out, total.value()
}

// OverduePayments returns the pending days at least reminderDays old on
// today. A non-positive reminderDays disables reminders.
func OverduePayments(sessions core.WorkSessionsMap, today time.Time, reminderDays int, earn earnings.Func) []PendingPayment {
	if reminderDays <= 0 {
		return nil
	}
	cutoff := calendar.AddDays(calendar.Midnight(today), -reminderDays)
	pending, _ := PendingPayments(sessions, earn)

	var out []PendingPayment
	for _, p := range pending {
		date, err := calendar.ParseDateISO(p.DateKey)
		if err != nil || date.After(cutoff) {
			continue
		}
		out = append(out, p)
	}
	return out
}

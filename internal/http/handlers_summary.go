package http

import (
	"net/http"
	"time"

	"workday/internal/calendar"
	"workday/internal/earnings"
	"workday/internal/summary"
)

type monthSummaryResponse struct {
	Month         string                 `json:"month"`
	Label         string                 `json:"label"`
	Total         float64                `json:"totalEarnings"`
	Weekly        []summary.WeekEarnings `json:"weeklyEarnings"`
	Overtime      summary.OvertimeStats  `json:"overtime"`
	Averages      averagesView           `json:"weeklyAverages"`
	CurrentPeriod summary.PeriodSummary  `json:"currentPeriod"`
	Daily         []summary.DailyPoint   `json:"dailyEarnings"`
}

type averagesView struct {
	summary.WeeklyAverage
	BusiestDayName string `json:"busiestDayName"`
}

type pendingResponse struct {
	Payments []summary.PendingPayment `json:"payments"`
	Total    float64                  `json:"total"`
}

// handleMonthSummary aggregates one month. The current period is measured
// from today when today falls in the month, otherwise from its last day.
func (s *Server) handleMonthSummary(w http.ResponseWriter, r *http.Request) {
	mp, err := ParseMonthParams(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	store := s.readyStore(w, r)
	if store == nil {
		return
	}
	monthDate := mp.Date()
	// Weeks at the month edges reach into the neighbouring months.
	sessions, err := s.monthSessions(r, store, monthDate.AddDate(0, -1, 0), monthDate.AddDate(0, 1, 0))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	profile := s.profileOf(w, r, store)
	if profile == nil {
		return
	}
	earn := earnings.NewResolver(profile).Func()

	ref := s.today()
	if !calendar.SameMonth(ref, monthDate) {
		ref = calendar.EndOfMonth(monthDate)
	}
	avg := summary.WeeklyAverages(sessions, monthDate)

	NewJSONResponse().Body(monthSummaryResponse{
		Month:         calendar.MonthKey(mp.Year, mp.Month),
		Label:         calendar.MonthLabel(mp.Year, mp.Month),
		Total:         summary.MonthlyTotal(sessions, mp.Year, mp.Month, earn),
		Weekly:        summary.Weekly(sessions, monthDate, earn),
		Overtime:      summary.Overtime(sessions, monthDate, profile.OvertimeSettings),
		Averages:      averagesView{WeeklyAverage: avg, BusiestDayName: avg.BusiestDayName()},
		CurrentPeriod: summary.CurrentPeriod(sessions, ref, earn),
		Daily:         summary.DailySeries(sessions, monthDate, earn),
	}).Write(w)
}

// handleMonthlySummary aggregates every month loaded so far.
func (s *Server) handleMonthlySummary(w http.ResponseWriter, r *http.Request) {
	store := s.readyStore(w, r)
	if store == nil {
		return
	}
	profile := s.profileOf(w, r, store)
	if profile == nil {
		return
	}
	months := summary.Monthly(store.Sessions(), profile.IdealDailyEarnings, earnings.NewResolver(profile).Func())
	NewJSONResponse().Body(months).Write(w)
}

func (s *Server) handleAnnualSummary(w http.ResponseWriter, r *http.Request) {
	year, err := ParseYearParam(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	store := s.readyStore(w, r)
	if store == nil {
		return
	}
	sessions, err := s.monthSessions(r, store, calendar.Date(year, time.January, 1), calendar.Date(year, time.December, 1))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	profile := s.profileOf(w, r, store)
	if profile == nil {
		return
	}
	report := summary.Annual(sessions, year, profile.IdealMonthlyEarnings, earnings.NewResolver(profile).Func())
	NewJSONResponse().Body(report).Write(w)
}

// handlePendingPayments lists unpaid days among the loaded months.
func (s *Server) handlePendingPayments(w http.ResponseWriter, r *http.Request) {
	store := s.readyStore(w, r)
	if store == nil {
		return
	}
	profile := s.profileOf(w, r, store)
	if profile == nil {
		return
	}
	payments, total := summary.PendingPayments(store.Sessions(), earnings.NewResolver(profile).Func())
	NewJSONResponse().Body(pendingResponse{Payments: payments, Total: total}).Write(w)
}

package core

import (
	"errors"
	"strings"
)

const (
	RoleWorker Role = "worker"
	// RolePayer is a legacy role left over from an older data model.
	RolePayer Role = "payer"
)

type (
	Role string

	// WorkShift is a single start/end interval within a day. Times are
	// zero-padded "HH:MM" strings; an empty string means unset.
	WorkShift struct {
		Start string `json:"start" firestore:"start"`
		End   string `json:"end" firestore:"end"`
	}

	OvertimeSettings struct {
		Enabled   bool    `json:"enabled" firestore:"enabled"`
		Threshold float64 `json:"threshold" firestore:"threshold"`
		Rate      float64 `json:"rate" firestore:"rate"`
	}

	// WorkDay is the record for one calendar date. The Recorded* fields are
	// a snapshot taken when the day was saved and are never recomputed.
	WorkDay struct {
		Shift1                   WorkShift         `json:"shift1" firestore:"shift1"`
		Shift2                   WorkShift         `json:"shift2" firestore:"shift2"`
		PaymentPending           *bool             `json:"paymentPending,omitempty" firestore:"paymentPending,omitempty"`
		RecordedEarnings         *float64          `json:"recordedEarnings,omitempty" firestore:"recordedEarnings,omitempty"`
		RecordedHourlyRate       *float64          `json:"recordedHourlyRate,omitempty" firestore:"recordedHourlyRate,omitempty"`
		RecordedOvertimeSettings *OvertimeSettings `json:"recordedOvertimeSettings,omitempty" firestore:"recordedOvertimeSettings,omitempty"`
	}

	// WorkSessionsMap maps an ISO date key (YYYY-MM-DD) to its record.
	WorkSessionsMap map[string]WorkDay

	ThemeColors struct {
		HeaderBg string `json:"headerBg" firestore:"headerBg"`
		AppBg    string `json:"appBg" firestore:"appBg"`
	}

	UserProfile struct {
		UID                  string           `json:"uid" firestore:"uid"`
		Email                string           `json:"email" firestore:"email"`
		DisplayName          string           `json:"displayName" firestore:"displayName"`
		WorkerName           string           `json:"workerName" firestore:"workerName"`
		HourlyRate           float64          `json:"hourlyRate" firestore:"hourlyRate"`
		CurrencySymbol       string           `json:"currencySymbol" firestore:"currencySymbol"`
		IdealDailyEarnings   float64          `json:"idealDailyEarnings" firestore:"idealDailyEarnings"`
		IdealMonthlyEarnings float64          `json:"idealMonthlyEarnings" firestore:"idealMonthlyEarnings"`
		PaymentReminderDays  int              `json:"paymentReminderDays" firestore:"paymentReminderDays"`
		OvertimeSettings     OvertimeSettings `json:"overtimeSettings" firestore:"overtimeSettings"`
		ThemeColors          ThemeColors      `json:"themeColors" firestore:"themeColors"`
		Role                 Role             `json:"role" firestore:"role"`
	}

	// User is the authenticated principal.
	User struct {
		ID          string `json:"id"`
		DisplayName string `json:"displayName"`
		Email       string `json:"email"`
	}

	// MonthlyAggregatedEarnings is derived per (year, month) and never stored.
	MonthlyAggregatedEarnings struct {
		Label          string    `json:"monthYearLabel"`
		Year           int       `json:"year"`
		Month          int       `json:"month"`
		TotalEarnings  float64   `json:"totalEarnings"`
		TotalSurplus   float64   `json:"totalSurplus"`
		WeeklyEarnings []float64 `json:"weeklyEarnings"`
	}

	DateRange struct {
		Start string `json:"start"`
		End   string `json:"end"`
	}

	WorkerReport struct {
		ID               string           `json:"id"`
		WorkerName       string           `json:"workerName"`
		CurrencySymbol   string           `json:"currencySymbol"`
		HourlyRate       float64          `json:"hourlyRate"`
		OvertimeSettings OvertimeSettings `json:"overtimeSettings"`
		DateRange        DateRange        `json:"dateRange"`
		WorkSessions     WorkSessionsMap  `json:"workSessions"`
		TotalEarnings    float64          `json:"totalEarnings"`
		GeneratedAt      string           `json:"generatedAt"`
	}
)

var (
	ErrInvalidTime      = errors.New("invalid time of day")
	ErrInvalidDateKey   = errors.New("invalid date key")
	ErrInvalidDateRange = errors.New("start date must not be after end date")
	ErrMissingShift     = errors.New("first shift start and end are required")
)

// IsPaymentPending reports whether the day is explicitly flagged as unpaid.
func (d WorkDay) IsPaymentPending() bool {
	return d.PaymentPending != nil && *d.PaymentPending
}

// HasRecordedEarnings reports whether the day carries a saved snapshot.
func (d WorkDay) HasRecordedEarnings() bool {
	return d.RecordedEarnings != nil
}

// Clone returns a deep copy of the day.
func (d WorkDay) Clone() WorkDay {
	out := d
	if d.PaymentPending != nil {
		v := *d.PaymentPending
		out.PaymentPending = &v
	}
	if d.RecordedEarnings != nil {
		v := *d.RecordedEarnings
		out.RecordedEarnings = &v
	}
	if d.RecordedHourlyRate != nil {
		v := *d.RecordedHourlyRate
		out.RecordedHourlyRate = &v
	}
	if d.RecordedOvertimeSettings != nil {
		v := *d.RecordedOvertimeSettings
		out.RecordedOvertimeSettings = &v
	}
	return out
}

// Clone returns a deep copy of the map. A nil map clones to an empty one.
func (m WorkSessionsMap) Clone() WorkSessionsMap {
	out := make(WorkSessionsMap, len(m))
	for k, v := range m {
		out[k] = v.Clone()
	}
	return out
}

// Merge copies every entry of other into m, replacing existing keys.
func (m WorkSessionsMap) Merge(other WorkSessionsMap) {
	for k, v := range other {
		m[k] = v
	}
}

// IsEmpty reports whether the shift has no usable bounds.
func (s WorkShift) IsEmpty() bool {
	return strings.TrimSpace(s.Start) == "" || strings.TrimSpace(s.End) == ""
}

// NeedsSetup reports whether the initial setup flow must run for p.
func NeedsSetup(p *UserProfile) bool {
	return p == nil || p.Role == RolePayer
}

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

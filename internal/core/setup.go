package core

import "strings"

// InitialSetup is what the worker provides the first time they sign in.
type InitialSetup struct {
	WorkerName           string  `json:"workerName" validate:"required"`
	HourlyRate           float64 `json:"hourlyRate" validate:"gte=0"`
	CurrencySymbol       string  `json:"currencySymbol" validate:"required"`
	IdealDailyEarnings   float64 `json:"idealDailyEarnings" validate:"gte=0"`
	IdealMonthlyEarnings float64 `json:"idealMonthlyEarnings" validate:"gte=0"`
	Theme                string  `json:"theme" validate:"omitempty,oneof=light dark"`
}

// DefaultInitialSetup prefills the setup form.
func DefaultInitialSetup(user User) InitialSetup {
	name := user.DisplayName
	if name == "" {
		name = DefaultWorkerName
	}
	return InitialSetup{
		WorkerName:           name,
		HourlyRate:           DefaultHourlyRate,
		CurrencySymbol:       DefaultCurrencySymbol,
		IdealDailyEarnings:   DefaultIdealDailyEarnings,
		IdealMonthlyEarnings: DefaultIdealMonthlyEarnings,
		Theme:                ThemeLight,
	}
}

// Validate trims text fields and checks the setup values.
func (s *InitialSetup) Validate() error {
	s.WorkerName = strings.TrimSpace(s.WorkerName)
	s.CurrencySymbol = strings.TrimSpace(s.CurrencySymbol)
	return ValidateStruct(s)
}

// NewProfile builds the profile document created by the setup flow.
func NewProfile(user User, s InitialSetup) UserProfile {
	return UserProfile{
		UID:                  user.ID,
		Email:                user.Email,
		DisplayName:          user.DisplayName,
		WorkerName:           s.WorkerName,
		HourlyRate:           s.HourlyRate,
		CurrencySymbol:       s.CurrencySymbol,
		IdealDailyEarnings:   s.IdealDailyEarnings,
		IdealMonthlyEarnings: s.IdealMonthlyEarnings,
		PaymentReminderDays:  DefaultPaymentReminderDays,
		OvertimeSettings: OvertimeSettings{
			Enabled:   false,
			Threshold: 8,
			Rate:      s.HourlyRate * 1.5,
		},
		ThemeColors: ThemeColorsFor(s.Theme),
		Role:        RoleWorker,
	}
}

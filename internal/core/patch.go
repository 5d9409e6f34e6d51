package core

// ProfilePatch is a partial profile update. Nil fields are left untouched.
type ProfilePatch struct {
	WorkerName           *string           `json:"workerName,omitempty" validate:"omitnil,min=1"`
	HourlyRate           *float64          `json:"hourlyRate,omitempty" validate:"omitnil,gte=0"`
	CurrencySymbol       *string           `json:"currencySymbol,omitempty" validate:"omitnil,min=1"`
	IdealDailyEarnings   *float64          `json:"idealDailyEarnings,omitempty" validate:"omitnil,gte=0"`
	IdealMonthlyEarnings *float64          `json:"idealMonthlyEarnings,omitempty" validate:"omitnil,gte=0"`
	PaymentReminderDays  *int              `json:"paymentReminderDays,omitempty" validate:"omitnil,gte=0"`
	OvertimeSettings     *OvertimeSettings `json:"overtimeSettings,omitempty"`
	ThemeColors          *ThemeColors      `json:"themeColors,omitempty"`
	Role                 *Role             `json:"role,omitempty" validate:"omitnil,oneof=worker payer"`
}

// IsEmpty reports whether the patch would change nothing.
func (p ProfilePatch) IsEmpty() bool {
	return len(p.Fields()) == 0
}

// Apply writes every set field onto dst.
func (p ProfilePatch) Apply(dst *UserProfile) {
	if p.WorkerName != nil {
		dst.WorkerName = *p.WorkerName
	}
	if p.HourlyRate != nil {
		dst.HourlyRate = *p.HourlyRate
	}
	if p.CurrencySymbol != nil {
		dst.CurrencySymbol = *p.CurrencySymbol
	}
	if p.IdealDailyEarnings != nil {
		dst.IdealDailyEarnings = *p.IdealDailyEarnings
	}
	if p.IdealMonthlyEarnings != nil {
		dst.IdealMonthlyEarnings = *p.IdealMonthlyEarnings
	}
	if p.PaymentReminderDays != nil {
		dst.PaymentReminderDays = *p.PaymentReminderDays
	}
	if p.OvertimeSettings != nil {
		dst.OvertimeSettings = *p.OvertimeSettings
	}
	if p.ThemeColors != nil {
		dst.ThemeColors = *p.ThemeColors
	}
	if p.Role != nil {
		dst.Role = *p.Role
	}
}

// Fields returns the set fields keyed by their persisted names.
func (p ProfilePatch) Fields() map[string]any {
	f := make(map[string]any)
	if p.WorkerName != nil {
		f["workerName"] = *p.WorkerName
	}
	if p.HourlyRate != nil {
		f["hourlyRate"] = *p.HourlyRate
	}
	if p.CurrencySymbol != nil {
		f["currencySymbol"] = *p.CurrencySymbol
	}
	if p.IdealDailyEarnings != nil {
		f["idealDailyEarnings"] = *p.IdealDailyEarnings
	}
	if p.IdealMonthlyEarnings != nil {
		f["idealMonthlyEarnings"] = *p.IdealMonthlyEarnings
	}
	if p.PaymentReminderDays != nil {
		f["paymentReminderDays"] = *p.PaymentReminderDays
	}
	if p.OvertimeSettings != nil {
		f["overtimeSettings"] = map[string]any{
			"enabled":   p.OvertimeSettings.Enabled,
			"threshold": p.OvertimeSettings.Threshold,
			"rate":      p.OvertimeSettings.Rate,
		}
	}
	if p.ThemeColors != nil {
		f["themeColors"] = map[string]any{
			"headerBg": p.ThemeColors.HeaderBg,
			"appBg":    p.ThemeColors.AppBg,
		}
	}
	if p.Role != nil {
		f["role"] = string(*p.Role)
	}
	return f
}

// WorkDayPatch is a partial work day update.
type WorkDayPatch struct {
	PaymentPending *bool `json:"paymentPending,omitempty"`
}

// MarkPaid is the patch that clears the pending payment flag.
func MarkPaid() WorkDayPatch {
	return WorkDayPatch{PaymentPending: Bool(false)}
}

func (p WorkDayPatch) Apply(dst *WorkDay) {
	if p.PaymentPending != nil {
		dst.PaymentPending = Bool(*p.PaymentPending)
	}
}

func (p WorkDayPatch) Fields() map[string]any {
	f := make(map[string]any)
	if p.PaymentPending != nil {
		f["paymentPending"] = *p.PaymentPending
	}
	return f
}

package core

// ExportedData is the backup file format.
type ExportedData struct {
	UID                  string            `json:"uid,omitempty"`
	WorkerName           *string           `json:"workerName,omitempty"`
	HourlyRate           *float64          `json:"hourlyRate,omitempty"`
	OvertimeSettings     *OvertimeSettings `json:"overtimeSettings,omitempty"`
	WorkSessions         WorkSessionsMap   `json:"workSessions"`
	ThemeColors          *ThemeColors      `json:"themeColors,omitempty"`
	IdealDailyEarnings   *float64          `json:"idealDailyEarnings,omitempty"`
	IdealMonthlyEarnings *float64          `json:"idealMonthlyEarnings,omitempty"`
	PaymentReminderDays  *int              `json:"paymentReminderDays,omitempty"`
	CurrencySymbol       *string           `json:"currencySymbol,omitempty"`
	DataTimestamp        string            `json:"dataTimestamp,omitempty"`
}

// ExportFromProfile builds the export payload for p and its sessions.
func ExportFromProfile(p UserProfile, sessions WorkSessionsMap, timestamp string) ExportedData {
	rate := p.HourlyRate
	name := p.WorkerName
	symbol := p.CurrencySymbol
	ot := p.OvertimeSettings
	theme := p.ThemeColors
	daily := p.IdealDailyEarnings
	monthly := p.IdealMonthlyEarnings
	reminder := p.PaymentReminderDays
	return ExportedData{
		UID:                  p.UID,
		WorkerName:           &name,
		HourlyRate:           &rate,
		OvertimeSettings:     &ot,
		WorkSessions:         sessions,
		ThemeColors:          &theme,
		IdealDailyEarnings:   &daily,
		IdealMonthlyEarnings: &monthly,
		PaymentReminderDays:  &reminder,
		CurrencySymbol:       &symbol,
		DataTimestamp:        timestamp,
	}
}

// ProfilePatch returns the whitelisted profile fields present in the file.
// Absent fields, the hourly rate included, leave the stored profile as is.
func (d ExportedData) ProfilePatch() ProfilePatch {
	return ProfilePatch{
		WorkerName:           d.WorkerName,
		HourlyRate:           d.HourlyRate,
		CurrencySymbol:       d.CurrencySymbol,
		IdealDailyEarnings:   d.IdealDailyEarnings,
		IdealMonthlyEarnings: d.IdealMonthlyEarnings,
		PaymentReminderDays:  d.PaymentReminderDays,
		OvertimeSettings:     d.OvertimeSettings,
		ThemeColors:          d.ThemeColors,
	}
}

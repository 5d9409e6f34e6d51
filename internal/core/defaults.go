package core

// Persisted collection names.
const (
	CollectionUsers        = "users"
	CollectionWorkSessions = "work_sessions"
)

const (
	DefaultHourlyRate           = 15.0
	DefaultIdealDailyEarnings   = 0.0
	DefaultIdealMonthlyEarnings = 0.0
	DefaultPaymentReminderDays  = 7
	DefaultCurrencySymbol       = "$"
	DefaultWorkerName           = "My Name"

	ThemeLight = "light"
	ThemeDark  = "dark"
)

var (
	DefaultOvertimeSettings = OvertimeSettings{Enabled: false, Threshold: 8, Rate: 22.5}
	LightThemeColors        = ThemeColors{HeaderBg: "#0284c7", AppBg: "#f8fafc"}
	DarkThemeColors         = ThemeColors{HeaderBg: "#334155", AppBg: "#0f172a"}
	DefaultThemeColors      = LightThemeColors
)

// StoredProfile is the profile document as read from a backend, where the
// optional sections may be absent.
type StoredProfile struct {
	UserProfile
	HasOvertimeSettings    bool
	HasPaymentReminderDays bool
	HasThemeColors         bool
}

// ApplyProfileDefaults fills the optional sections a stored profile lacks.
// Values present in the document always win.
func ApplyProfileDefaults(sp StoredProfile) UserProfile {
	p := sp.UserProfile
	if !sp.HasOvertimeSettings {
		p.OvertimeSettings = DefaultOvertimeSettings
	}
	if !sp.HasPaymentReminderDays {
		p.PaymentReminderDays = DefaultPaymentReminderDays
	}
	if !sp.HasThemeColors {
		p.ThemeColors = DefaultThemeColors
	}
	return p
}

// ThemeColorsFor returns the palette for a theme name, light by default.
func ThemeColorsFor(theme string) ThemeColors {
	if theme == ThemeDark {
		return DarkThemeColors
	}
	return LightThemeColors
}

// Merge applies a partial update and marks the optional sections it sets as
// present, as a merge write on the profile document would.
func (sp *StoredProfile) Merge(p ProfilePatch) {
	p.Apply(&sp.UserProfile)
	if p.OvertimeSettings != nil {
		sp.HasOvertimeSettings = true
	}
	if p.PaymentReminderDays != nil {
		sp.HasPaymentReminderDays = true
	}
	if p.ThemeColors != nil {
		sp.HasThemeColors = true
	}
}

// Complete wraps a full profile; every optional section counts as present.
func Complete(p UserProfile) StoredProfile {
	return StoredProfile{
		UserProfile:            p,
		HasOvertimeSettings:    true,
		HasPaymentReminderDays: true,
		HasThemeColors:         true,
	}
}

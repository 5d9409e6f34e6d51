package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestWorkDayIsPaymentPending(t *testing.T) {
	cases := []struct {
		name string
		day  WorkDay
		want bool
	}{
		{"absent", WorkDay{}, false},
		{"false", WorkDay{PaymentPending: Bool(false)}, false},
		{"true", WorkDay{PaymentPending: Bool(true)}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.day.IsPaymentPending(); got != tc.want {
				t.Errorf("IsPaymentPending() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestWorkDayCloneIsDeep(t *testing.T) {
	day := WorkDay{
		PaymentPending:           Bool(true),
		RecordedEarnings:         Float(80),
		RecordedOvertimeSettings: &OvertimeSettings{Enabled: true, Threshold: 8, Rate: 15},
	}
	c := day.Clone()
	*c.RecordedEarnings = 1
	c.RecordedOvertimeSettings.Rate = 99
	*c.PaymentPending = false

	if *day.RecordedEarnings != 80 {
		t.Fatalf("clone shares RecordedEarnings")
	}
	if day.RecordedOvertimeSettings.Rate != 15 {
		t.Fatalf("clone shares RecordedOvertimeSettings")
	}
	if !*day.PaymentPending {
		t.Fatalf("clone shares PaymentPending")
	}
}

func TestWorkDayJSONOmitsAbsentSnapshot(t *testing.T) {
	b, err := json.Marshal(WorkDay{Shift1: WorkShift{Start: "09:00", End: "17:00"}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, k := range []string{"paymentPending", "recordedEarnings", "recordedHourlyRate", "recordedOvertimeSettings"} {
		if _, ok := raw[k]; ok {
			t.Errorf("expected %s to be omitted", k)
		}
	}
}

func TestNeedsSetup(t *testing.T) {
	if !NeedsSetup(nil) {
		t.Error("nil profile needs setup")
	}
	if !NeedsSetup(&UserProfile{Role: RolePayer}) {
		t.Error("payer profile needs setup")
	}
	if NeedsSetup(&UserProfile{Role: RoleWorker}) {
		t.Error("worker profile does not need setup")
	}
}

func TestApplyProfileDefaults(t *testing.T) {
	stored := StoredProfile{UserProfile: UserProfile{UID: "u1", HourlyRate: 20}}
	p := ApplyProfileDefaults(stored)
	if p.OvertimeSettings != DefaultOvertimeSettings {
		t.Errorf("overtime = %+v, want defaults", p.OvertimeSettings)
	}
	if p.PaymentReminderDays != DefaultPaymentReminderDays {
		t.Errorf("reminder days = %d, want %d", p.PaymentReminderDays, DefaultPaymentReminderDays)
	}
	if p.ThemeColors != DefaultThemeColors {
		t.Errorf("theme = %+v, want defaults", p.ThemeColors)
	}

	stored.HasOvertimeSettings = true
	stored.OvertimeSettings = OvertimeSettings{Enabled: true, Threshold: 6, Rate: 30}
	stored.HasPaymentReminderDays = true
	stored.PaymentReminderDays = 0
	p = ApplyProfileDefaults(stored)
	if p.OvertimeSettings.Threshold != 6 || !p.OvertimeSettings.Enabled {
		t.Errorf("stored overtime was replaced: %+v", p.OvertimeSettings)
	}
	if p.PaymentReminderDays != 0 {
		t.Errorf("stored reminder days was replaced: %d", p.PaymentReminderDays)
	}
}

func TestProfilePatch(t *testing.T) {
	var empty ProfilePatch
	if !empty.IsEmpty() {
		t.Fatal("zero patch should be empty")
	}

	name := "Ana"
	patch := ProfilePatch{
		WorkerName:       &name,
		HourlyRate:       Float(12),
		OvertimeSettings: &OvertimeSettings{Enabled: true, Threshold: 8, Rate: 18},
	}
	p := UserProfile{WorkerName: "Old", CurrencySymbol: "€", HourlyRate: 10}
	patch.Apply(&p)

	if p.WorkerName != "Ana" || p.HourlyRate != 12 || p.CurrencySymbol != "€" {
		t.Errorf("unexpected profile after patch: %+v", p)
	}
	fields := patch.Fields()
	if len(fields) != 3 {
		t.Errorf("Fields() has %d entries, want 3: %v", len(fields), fields)
	}
	if _, ok := fields["currencySymbol"]; ok {
		t.Error("unset field leaked into Fields()")
	}
}

func TestMarkPaidPatch(t *testing.T) {
	day := WorkDay{Shift1: WorkShift{Start: "08:00", End: "12:00"}, PaymentPending: Bool(true)}
	MarkPaid().Apply(&day)
	if day.IsPaymentPending() {
		t.Fatal("day should no longer be pending")
	}
	if day.Shift1.Start != "08:00" {
		t.Fatal("merge must not touch shifts")
	}
	if got := MarkPaid().Fields(); len(got) != 1 || got["paymentPending"] != false {
		t.Fatalf("unexpected fields %v", got)
	}
}

func TestInitialSetupValidate(t *testing.T) {
	tests := []struct {
		name    string
		setup   InitialSetup
		wantErr bool
		field   string
	}{
		{
			name:  "valid",
			setup: InitialSetup{WorkerName: "Ana", HourlyRate: 10, CurrencySymbol: "$", Theme: ThemeDark},
		},
		{
			name:    "blank name",
			setup:   InitialSetup{WorkerName: "   ", HourlyRate: 10, CurrencySymbol: "$"},
			wantErr: true,
			field:   "WorkerName",
		},
		{
			name:    "negative rate",
			setup:   InitialSetup{WorkerName: "Ana", HourlyRate: -1, CurrencySymbol: "$"},
			wantErr: true,
			field:   "HourlyRate",
		},
		{
			name:    "missing symbol",
			setup:   InitialSetup{WorkerName: "Ana", HourlyRate: 1},
			wantErr: true,
			field:   "CurrencySymbol",
		},
		{
			name:    "negative goal",
			setup:   InitialSetup{WorkerName: "Ana", CurrencySymbol: "$", IdealMonthlyEarnings: -5},
			wantErr: true,
			field:   "IdealMonthlyEarnings",
		},
		{
			name:    "unknown theme",
			setup:   InitialSetup{WorkerName: "Ana", CurrencySymbol: "$", Theme: "neon"},
			wantErr: true,
			field:   "Theme",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.setup.Validate()
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if verr.Fields[0].Field != tt.field {
				t.Errorf("field = %s, want %s", verr.Fields[0].Field, tt.field)
			}
		})
	}
}

func TestNewProfile(t *testing.T) {
	user := User{ID: "u1", Email: "ana@example.com", DisplayName: "Ana"}
	p := NewProfile(user, InitialSetup{WorkerName: "Ana", HourlyRate: 20, CurrencySymbol: "€", Theme: ThemeDark})

	if p.Role != RoleWorker {
		t.Errorf("role = %s, want worker", p.Role)
	}
	if p.PaymentReminderDays != 7 {
		t.Errorf("reminder days = %d, want 7", p.PaymentReminderDays)
	}
	want := OvertimeSettings{Enabled: false, Threshold: 8, Rate: 30}
	if p.OvertimeSettings != want {
		t.Errorf("overtime = %+v, want %+v", p.OvertimeSettings, want)
	}
	if p.ThemeColors != DarkThemeColors {
		t.Errorf("theme = %+v, want dark", p.ThemeColors)
	}
	if p.UID != "u1" || p.Email != "ana@example.com" {
		t.Errorf("identity not copied: %+v", p)
	}
}

func TestParseShiftInput(t *testing.T) {
	ps, err := ParseShiftInput([]byte(`{"shift1":{"start":"08:00","end":"12:00"},"shift2":{"start":"13:00","end":"17:00"}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	day := ps.ApplyTo(WorkDay{PaymentPending: Bool(true), RecordedEarnings: Float(5)})
	if day.Shift2.End != "17:00" {
		t.Errorf("shift2 not applied: %+v", day.Shift2)
	}
	if !day.IsPaymentPending() {
		t.Error("payment flag lost")
	}
	if day.RecordedEarnings != nil {
		t.Error("stale snapshot must be dropped when shifts change")
	}

	if _, err := ParseShiftInput([]byte(`{"shift1":{"start":"08:00"}}`)); !errors.Is(err, ErrMissingShift) {
		t.Errorf("expected ErrMissingShift, got %v", err)
	}
	if _, err := ParseShiftInput([]byte(`not json`)); err == nil {
		t.Error("expected decode error")
	}
}

func TestExportedDataProfilePatchSkipsAbsentFields(t *testing.T) {
	data := ExportedData{HourlyRate: Float(11), WorkSessions: WorkSessionsMap{}}
	fields := data.ProfilePatch().Fields()
	if len(fields) != 1 || fields["hourlyRate"] != 11.0 {
		t.Fatalf("unexpected fields %v", fields)
	}

	var noRate ExportedData
	if err := json.Unmarshal([]byte(`{"uid":"u1","workerName":"Ana","workSessions":{}}`), &noRate); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	patch := noRate.ProfilePatch()
	if patch.HourlyRate != nil {
		t.Fatalf("absent hourlyRate must not be patched, got %v", *patch.HourlyRate)
	}
	p := UserProfile{HourlyRate: 25}
	patch.Apply(&p)
	if p.HourlyRate != 25 || p.WorkerName != "Ana" {
		t.Errorf("unexpected profile after apply: %+v", p)
	}
}

func TestExportFromProfileAlwaysWritesRate(t *testing.T) {
	data := ExportFromProfile(UserProfile{UID: "u1"}, WorkSessionsMap{}, "")
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(raw), `"hourlyRate":0`) {
		t.Errorf("hourlyRate missing from %s", raw)
	}
}

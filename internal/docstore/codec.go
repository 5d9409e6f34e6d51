package docstore

import (
	"encoding/json"
	"fmt"
	"time"

	"workday/internal/core"
)

// profileDoc is the persisted profile. The optional sections are pointers
// so an absent section survives a round trip as absent.
type profileDoc struct {
	core.UserProfile
	OvertimeSettings    *core.OvertimeSettings `json:"overtimeSettings,omitempty" firestore:"overtimeSettings,omitempty"`
	PaymentReminderDays *int                   `json:"paymentReminderDays,omitempty" firestore:"paymentReminderDays,omitempty"`
	ThemeColors         *core.ThemeColors      `json:"themeColors,omitempty" firestore:"themeColors,omitempty"`
}

// ProfileDocument converts a stored profile to its persisted form.
func ProfileDocument(sp core.StoredProfile) any {
	doc := profileDoc{UserProfile: sp.UserProfile}
	if sp.HasOvertimeSettings {
		ot := sp.OvertimeSettings
		doc.OvertimeSettings = &ot
	}
	if sp.HasPaymentReminderDays {
		days := sp.PaymentReminderDays
		doc.PaymentReminderDays = &days
	}
	if sp.HasThemeColors {
		theme := sp.ThemeColors
		doc.ThemeColors = &theme
	}
	return &doc
}

// NewProfileDocument returns an empty persisted profile to decode into.
func NewProfileDocument() any {
	return &profileDoc{}
}

// StoredFromDocument converts a decoded persisted profile back.
func StoredFromDocument(v any) (core.StoredProfile, error) {
	doc, ok := v.(*profileDoc)
	if !ok {
		return core.StoredProfile{}, fmt.Errorf("unexpected profile document type %T", v)
	}
	sp := core.StoredProfile{UserProfile: doc.UserProfile}
	if doc.OvertimeSettings != nil {
		sp.OvertimeSettings = *doc.OvertimeSettings
		sp.HasOvertimeSettings = true
	}
	if doc.PaymentReminderDays != nil {
		sp.PaymentReminderDays = *doc.PaymentReminderDays
		sp.HasPaymentReminderDays = true
	}
	if doc.ThemeColors != nil {
		sp.ThemeColors = *doc.ThemeColors
		sp.HasThemeColors = true
	}
	return sp, nil
}

// EncodeProfile marshals a stored profile to JSON.
func EncodeProfile(sp core.StoredProfile) ([]byte, error) {
	return json.Marshal(ProfileDocument(sp))
}

// DecodeProfile unmarshals a JSON profile document.
func DecodeProfile(data []byte) (core.StoredProfile, error) {
	doc := NewProfileDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		return core.StoredProfile{}, fmt.Errorf("decode profile: %w", err)
	}
	return StoredFromDocument(doc)
}

// EncodeWorkDay marshals a work day to JSON.
func EncodeWorkDay(d core.WorkDay) ([]byte, error) {
	return json.Marshal(d)
}

// DecodeWorkDay unmarshals a JSON work day document.
func DecodeWorkDay(data []byte) (core.WorkDay, error) {
	var d core.WorkDay
	if err := json.Unmarshal(data, &d); err != nil {
		return core.WorkDay{}, fmt.Errorf("decode work day: %w", err)
	}
	return d, nil
}

// ValidateKey rejects anything that is not a YYYY-MM-DD key.
func ValidateKey(key string) error {
	if _, err := time.Parse(core.DateKeyLayout, key); err != nil {
		return fmt.Errorf("%w: %q", core.ErrInvalidDateKey, key)
	}
	return nil
}

// ValidateBatch checks every day key of b before anything is written.
func ValidateBatch(b Batch) error {
	for key := range b.Days {
		if err := ValidateKey(key); err != nil {
			return err
		}
	}
	return nil
}

// Package timecalc converts "HH:MM" shift bounds into durations.
package timecalc

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"workday/internal/core"
)

const minutesPerDay = 24 * 60

var hhmm = regexp.MustCompile(`^\d{2}:\d{2}$`)

// TimeStringToMinutes returns the minutes since midnight for an "HH:MM"
// string. It reports false for anything else, including out of range
// hours or minutes.
func TimeStringToMinutes(s string) (int, bool) {
	if !hhmm.MatchString(s) {
		return 0, false
	}
	h, _ := strconv.Atoi(s[:2])
	m, _ := strconv.Atoi(s[3:])
	if h > 23 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

// CalculateHours returns the length of a shift in hours. An end before the
// start is taken to cross midnight once. Unparseable bounds yield 0.
func CalculateHours(start, end string) float64 {
	s, ok := TimeStringToMinutes(start)
	if !ok {
		return 0
	}
	e, ok := TimeStringToMinutes(end)
	if !ok {
		return 0
	}
	diff := e - s
	if diff < 0 {
		diff += minutesPerDay
	}
	return float64(diff) / 60
}

// ShiftHours is CalculateHours for a shift value.
func ShiftHours(s core.WorkShift) float64 {
	return CalculateHours(s.Start, s.End)
}

// TotalHoursForDay sums both shifts of a day.
func TotalHoursForDay(d core.WorkDay) float64 {
	return ShiftHours(d.Shift1) + ShiftHours(d.Shift2)
}

// RoundToNearest15Minutes rounds the minute of t half-up to a quarter hour.
// Seconds and nanoseconds are dropped; 60 rolls into the next hour.
func RoundToNearest15Minutes(t time.Time) time.Time {
	q := (t.Minute() + 7) / 15 * 15
	base := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
	return base.Add(time.Duration(q) * time.Minute)
}

// FormatTimeHHMM formats t as a zero-padded 24-hour "HH:MM".
func FormatTimeHHMM(t time.Time) string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// ParseTimeOfDay validates s and returns it unchanged, or core.ErrInvalidTime.
// An empty string is accepted as an unset bound.
func ParseTimeOfDay(s string) (string, error) {
	if s == "" {
		return s, nil
	}
	if _, ok := TimeStringToMinutes(s); !ok {
		return "", fmt.Errorf("%w: %q", core.ErrInvalidTime, s)
	}
	return s, nil
}

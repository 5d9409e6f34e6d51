// Package calendar provides Monday-first week and month partitioning over
// local calendar dates, plus the ISO date keys used to address work days.
package calendar

import (
	"fmt"
	"sort"
	"time"

	"workday/internal/core"
)

// MaxGridCells is six full weeks.
const MaxGridCells = 42

// Week is one Monday-keyed bucket of days.
type Week struct {
	Number int
	Monday time.Time
	Days   []time.Time
}

// Date returns local midnight for the given calendar day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.Local)
}

// FormatDateISO formats the local calendar fields of t as YYYY-MM-DD.
func FormatDateISO(t time.Time) string {
	return fmt.Sprintf("%04d-%02d-%02d", t.Year(), int(t.Month()), t.Day())
}

// ParseDateISO parses a date key into local midnight.
func ParseDateISO(key string) (time.Time, error) {
	t, err := time.ParseInLocation(core.DateKeyLayout, key, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", core.ErrInvalidDateKey, key)
	}
	return t, nil
}

// Midnight truncates t to the start of its local day.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// AddDays shifts t by n calendar days, rolling over months and years.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// StartOfWeek returns the Monday on or before t, at midnight.
func StartOfWeek(t time.Time) time.Time {
	sinceMonday := (int(t.Weekday()) - int(time.Monday) + 7) % 7
	return Midnight(AddDays(t, -sinceMonday))
}

// StartOfMonth returns the first day of the month containing t.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// EndOfMonth returns the last day of the month containing t, at midnight.
func EndOfMonth(t time.Time) time.Time {
	return StartOfMonth(t).AddDate(0, 1, -1)
}

// DaysInMonth returns the number of days of the given month.
func DaysInMonth(year int, month time.Month) int {
	return EndOfMonth(Date(year, month, 1)).Day()
}

// SameMonth reports whether a and b fall in the same calendar month.
func SameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// MonthKey identifies a month in the loaded-month registry.
func MonthKey(year int, month time.Month) string {
	return fmt.Sprintf("%d-%d", year, int(month))
}

// MonthBounds returns the first and last date keys of a month.
func MonthBounds(year int, month time.Month) (first, last string) {
	start := Date(year, month, 1)
	return FormatDateISO(start), FormatDateISO(EndOfMonth(start))
}

// MonthName returns the English month name.
func MonthName(month time.Month) string {
	return month.String()
}

// MonthLabel returns e.g. "January 2024".
func MonthLabel(year int, month time.Month) string {
	return fmt.Sprintf("%s %d", MonthName(month), year)
}

// DaysInMonthGrid lays the month out in Monday-first rows. Cells before the
// 1st and after the last day are nil. The grid never exceeds six weeks.
func DaysInMonthGrid(year int, month time.Month) []*time.Time {
	first := Date(year, month, 1)
	offset := (int(first.Weekday()) - int(time.Monday) + 7) % 7
	days := DaysInMonth(year, month)

	total := (offset + days + 6) / 7 * 7
	if total > MaxGridCells {
		total = MaxGridCells
	}

	grid := make([]*time.Time, total)
	for d := 1; d <= days && offset+d-1 < total; d++ {
		day := Date(year, month, d)
		grid[offset+d-1] = &day
	}
	return grid
}

// WeeksInMonth buckets every day of the month containing t by its own
// Monday. Buckets are ordered by Monday and numbered from 1.
func WeeksInMonth(t time.Time) []Week {
	first := StartOfMonth(Midnight(t))
	days := DaysInMonth(first.Year(), first.Month())

	byMonday := make(map[string]*Week)
	for d := 0; d < days; d++ {
		day := AddDays(first, d)
		monday := StartOfWeek(day)
		key := FormatDateISO(monday)
		w, ok := byMonday[key]
		if !ok {
			w = &Week{Monday: monday}
			byMonday[key] = w
		}
		w.Days = append(w.Days, day)
	}

	weeks := make([]Week, 0, len(byMonday))
	for _, w := range byMonday {
		weeks = append(weeks, *w)
	}
	sort.Slice(weeks, func(i, j int) bool { return weeks[i].Monday.Before(weeks[j].Monday) })
	for i := range weeks {
		weeks[i].Number = i + 1
	}
	return weeks
}

// Contains reports whether the week holds the given calendar day.
func (w Week) Contains(t time.Time) bool {
	return StartOfWeek(t).Equal(w.Monday)
}

// Start returns the first day of the bucket that lies inside the month.
func (w Week) Start() time.Time {
	if len(w.Days) == 0 {
		return w.Monday
	}
	return w.Days[0]
}

// End returns the last day of the bucket that lies inside the month.
func (w Week) End() time.Time {
	if len(w.Days) == 0 {
		return AddDays(w.Monday, 6)
	}
	return w.Days[len(w.Days)-1]
}

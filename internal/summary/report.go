package summary

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"workday/internal/calendar"
	"workday/internal/core"
	"workday/internal/earnings"
)

// GenerateReport collects the days between start and end, both inclusive,
// into a report priced by earn.
func GenerateReport(p core.UserProfile, sessions core.WorkSessionsMap, start, end string, now time.Time, earn earnings.Func) (core.WorkerReport, error) {
	from, err := calendar.ParseDateISO(start)
	if err != nil {
		return core.WorkerReport{}, err
	}
	to, err := calendar.ParseDateISO(end)
	if err != nil {
		return core.WorkerReport{}, err
	}
	if from.After(to) {
		return core.WorkerReport{}, core.ErrInvalidDateRange
	}
	until := calendar.AddDays(to, 1)

	subset := make(core.WorkSessionsMap)
	var total sum
	for _, e := range entries(sessions) {
		if e.date.Before(from) || !e.date.Before(until) {
			continue
		}
		subset[e.key] = e.day.Clone()
		total.add(earn(e.day))
	}

	return core.WorkerReport{
		ID:               reportID(p.WorkerName),
		WorkerName:       p.WorkerName,
		CurrencySymbol:   p.CurrencySymbol,
		HourlyRate:       p.HourlyRate,
		OvertimeSettings: p.OvertimeSettings,
		DateRange:        core.DateRange{Start: start, End: end},
		WorkSessions:     subset,
		TotalEarnings:    total.value(),
		GeneratedAt:      now.UTC().Format(time.RFC3339),
	}, nil
}

func reportID(workerName string) string {
	return fmt.Sprintf("report-%s-%s", replaceSpaces(workerName, '-'), uuid.NewString())
}

func replaceSpaces(s string, with rune) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return with
		}
		return r
	}, s)
}

// ReportFilename is the download name of a generated report.
func ReportFilename(r core.WorkerReport) string {
	return fmt.Sprintf("work_report_%s_%s_%s.json", replaceSpaces(r.WorkerName, '_'), r.DateRange.Start, r.DateRange.End)
}

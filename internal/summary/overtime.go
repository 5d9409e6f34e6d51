package summary

import (
	"time"

	"workday/internal/calendar"
	"workday/internal/core"
	"workday/internal/earnings"
	"workday/internal/timecalc"
)

type (
	WeekOvertime struct {
		Number int     `json:"weekNumber"`
		Start  string  `json:"start"`
		End    string  `json:"end"`
		Hours  float64 `json:"hours"`
	}

	DayOvertime struct {
		Date  string  `json:"date"`
		Hours float64 `json:"hours"`
	}

	OvertimeStats struct {
		TotalMonth float64        `json:"totalMonth"`
		ByWeek     []WeekOvertime `json:"byWeek"`
		ByDay      []DayOvertime  `json:"byDay"`
	}
)

// Overtime reports the overtime hours of the month containing monthDate.
// Each day is judged by its recorded overtime settings, or by current when
// it has none. Nothing is reported while current overtime is disabled.
func Overtime(sessions core.WorkSessionsMap, monthDate time.Time, current core.OvertimeSettings) OvertimeStats {
	stats := OvertimeStats{ByWeek: []WeekOvertime{}, ByDay: []DayOvertime{}}
	if !current.Enabled {
		return stats
	}

	var month sum
	for _, w := range calendar.WeeksInMonth(monthDate) {
		var week sum
		for _, d := range w.Days {
			key := calendar.FormatDateISO(d)
			day, ok := sessions[key]
			if !ok {
				continue
			}
			settings := &current
			if day.RecordedOvertimeSettings != nil {
				settings = day.RecordedOvertimeSettings
			}
			hours := timecalc.TotalHoursForDay(day)
			if !earnings.OvertimeApplies(hours, settings) {
				continue
			}
			ot := earnings.CalculateDailyEarnings(hours, 0, settings).OvertimeHours
			if ot <= 0 {
				continue
			}
			week.add(ot)
			stats.ByDay = append(stats.ByDay, DayOvertime{Date: key, Hours: ot})
		}
		month.d = month.d.Add(week.d)
		stats.ByWeek = append(stats.ByWeek, WeekOvertime{
			Number: w.Number,
			Start:  calendar.FormatDateISO(w.Start()),
			End:    calendar.FormatDateISO(w.End()),
			Hours:  week.value(),
		})
	}
	stats.TotalMonth = month.value()
	return stats
}

package summary

import (
	"time"

	"workday/internal/calendar"
	"workday/internal/core"
	"workday/internal/timecalc"
)

// WeeklyAverage describes how hours spread across the weeks of a month.
type WeeklyAverage struct {
	TotalHours    float64 `json:"totalHours"`
	DaysWorked    int     `json:"daysWorked"`
	AvgDailyHours float64 `json:"avgDailyHours"`
	// BusiestDay is meaningful only when DaysWorked > 0.
	BusiestDay time.Weekday `json:"busiestDay"`
}

// HasBusiestDay reports whether any day was worked.
func (w WeeklyAverage) HasBusiestDay() bool {
	return w.DaysWorked > 0
}

// BusiestDayName returns the busiest weekday name, or "N/A".
func (w WeeklyAverage) BusiestDayName() string {
	if !w.HasBusiestDay() {
		return "N/A"
	}
	return w.BusiestDay.String()
}

// mondayFirst maps index 0..6 to Monday..Sunday.
var mondayFirst = [7]time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// WeeklyAverages totals the worked hours of the month containing monthDate.
// Ties for the busiest weekday go to the earliest day in Monday..Sunday.
func WeeklyAverages(sessions core.WorkSessionsMap, monthDate time.Time) WeeklyAverage {
	var out WeeklyAverage
	var byWeekday [7]float64

	for _, w := range calendar.WeeksInMonth(monthDate) {
		for _, d := range w.Days {
			day, ok := sessions[calendar.FormatDateISO(d)]
			if !ok {
				continue
			}
			hours := timecalc.TotalHoursForDay(day)
			if hours <= 0 {
				continue
			}
			out.TotalHours += hours
			out.DaysWorked++
			byWeekday[(int(d.Weekday())+6)%7] += hours
		}
	}

	if out.DaysWorked > 0 {
		out.AvgDailyHours = out.TotalHours / float64(out.DaysWorked)
	}
	best := 0
	for i := 1; i < len(byWeekday); i++ {
		if byWeekday[i] > byWeekday[best] {
			best = i
		}
	}
	out.BusiestDay = mondayFirst[best]
	return out
}

// Package summary folds a work sessions map into period aggregates. Every
// function takes the day resolver as input so recorded snapshots are
// honored; none of them mutate the map.
package summary

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"workday/internal/calendar"
	"workday/internal/core"
	"workday/internal/earnings"
)

type (
	MonthEarnings struct {
		Month     time.Month `json:"month"`
		Earnings  float64    `json:"earnings"`
		Shortfall bool       `json:"shortfall"`
	}

	AnnualReport struct {
		Year   int             `json:"year"`
		Months []MonthEarnings `json:"months"`
		Total  float64         `json:"total"`
	}

	WeekEarnings struct {
		Number   int     `json:"weekNumber"`
		Start    string  `json:"start"`
		End      string  `json:"end"`
		Earnings float64 `json:"earnings"`
	}

	PeriodSummary struct {
		Daily   float64 `json:"daily"`
		Weekly  float64 `json:"weekly"`
		Monthly float64 `json:"monthly"`
	}

	DailyPoint struct {
		Date     string  `json:"date"`
		Earnings float64 `json:"earnings"`
	}
)

// entry is a work day with its key already parsed.
type entry struct {
	key  string
	date time.Time
	day  core.WorkDay
}

// sum accumulates money without float drift.
type sum struct {
	d decimal.Decimal
}

func (s *sum) add(v float64) { s.d = s.d.Add(decimal.NewFromFloat(v)) }

func (s sum) value() float64 { return s.d.InexactFloat64() }

// entries returns the days of sessions in date order. Keys that are not
// valid dates are skipped.
func entries(sessions core.WorkSessionsMap) []entry {
	out := make([]entry, 0, len(sessions))
	for key, day := range sessions {
		date, err := calendar.ParseDateISO(key)
		if err != nil {
			continue
		}
		out = append(out, entry{key: key, date: date, day: day})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].date.Before(out[j].date) })
	return out
}

func inMonth(e entry, year int, month time.Month) bool {
	return e.date.Year() == year && e.date.Month() == month
}

// MonthlyTotal sums the earnings of every day in the given month.
func MonthlyTotal(sessions core.WorkSessionsMap, year int, month time.Month, earn earnings.Func) float64 {
	var total sum
	for _, e := range entries(sessions) {
		if inMonth(e, year, month) {
			total.add(earn(e.day))
		}
	}
	return total.value()
}

// Annual buckets a year into twelve month totals. A month with some
// earnings below idealMonthly is flagged as a shortfall.
func Annual(sessions core.WorkSessionsMap, year int, idealMonthly float64, earn earnings.Func) AnnualReport {
	var months [12]sum
	for _, e := range entries(sessions) {
		if e.date.Year() == year {
			months[e.date.Month()-1].add(earn(e.day))
		}
	}

	report := AnnualReport{Year: year, Months: make([]MonthEarnings, 12)}
	var total sum
	for i := range months {
		v := months[i].value()
		total.d = total.d.Add(months[i].d)
		report.Months[i] = MonthEarnings{
			Month:     time.Month(i + 1),
			Earnings:  v,
			Shortfall: v > 0 && v < idealMonthly,
		}
	}
	report.Total = total.value()
	return report
}

// Weekly returns the per-week earnings of the month containing monthDate,
// one entry per Monday bucket.
func Weekly(sessions core.WorkSessionsMap, monthDate time.Time, earn earnings.Func) []WeekEarnings {
	weeks := calendar.WeeksInMonth(monthDate)
	out := make([]WeekEarnings, 0, len(weeks))
	for _, w := range weeks {
		var total sum
		for _, d := range w.Days {
			if day, ok := sessions[calendar.FormatDateISO(d)]; ok {
				total.add(earn(day))
			}
		}
		out = append(out, WeekEarnings{
			Number:   w.Number,
			Start:    calendar.FormatDateISO(w.Start()),
			End:      calendar.FormatDateISO(w.End()),
			Earnings: total.value(),
		})
	}
	return out
}

// Monthly groups the whole dataset by month. Each group carries its total,
// a per-week breakdown aligned to WeeksInMonth, and the surplus earned above
// idealDaily on the days that beat it. Groups are in chronological order.
func Monthly(sessions core.WorkSessionsMap, idealDaily float64, earn earnings.Func) []core.MonthlyAggregatedEarnings {
	type group struct {
		year    int
		month   time.Month
		total   sum
		surplus sum
		weekly  map[string]*sum
	}
	groups := make(map[string]*group)
	var order []*group

	for _, e := range entries(sessions) {
		key := calendar.MonthKey(e.date.Year(), e.date.Month())
		g, ok := groups[key]
		if !ok {
			g = &group{year: e.date.Year(), month: e.date.Month(), weekly: make(map[string]*sum)}
			groups[key] = g
			order = append(order, g)
		}

		v := earn(e.day)
		g.total.add(v)
		if idealDaily > 0 && v > idealDaily {
			g.surplus.add(v - idealDaily)
		}
		monday := calendar.FormatDateISO(calendar.StartOfWeek(e.date))
		ws, ok := g.weekly[monday]
		if !ok {
			ws = &sum{}
			g.weekly[monday] = ws
		}
		ws.add(v)
	}

	out := make([]core.MonthlyAggregatedEarnings, 0, len(order))
	for _, g := range order {
		weeks := calendar.WeeksInMonth(calendar.Date(g.year, g.month, 1))
		weekly := make([]float64, len(weeks))
		for i, w := range weeks {
			if ws, ok := g.weekly[calendar.FormatDateISO(w.Monday)]; ok {
				weekly[i] = ws.value()
			}
		}
		out = append(out, core.MonthlyAggregatedEarnings{
			Label:          calendar.MonthLabel(g.year, g.month),
			Year:           g.year,
			Month:          int(g.month),
			TotalEarnings:  g.total.value(),
			TotalSurplus:   g.surplus.value(),
			WeeklyEarnings: weekly,
		})
	}
	return out
}

// CurrentPeriod returns the earnings of the day of date, of its Monday
// week and of its month.
func CurrentPeriod(sessions core.WorkSessionsMap, date time.Time, earn earnings.Func) PeriodSummary {
	var out PeriodSummary
	if day, ok := sessions[calendar.FormatDateISO(date)]; ok {
		out.Daily = earn(day)
	}

	var week sum
	monday := calendar.StartOfWeek(date)
	for i := 0; i < 7; i++ {
		if day, ok := sessions[calendar.FormatDateISO(calendar.AddDays(monday, i))]; ok {
			week.add(earn(day))
		}
	}
	out.Weekly = week.value()
	out.Monthly = MonthlyTotal(sessions, date.Year(), date.Month(), earn)
	return out
}

// DailySeries returns one point per calendar day of the month containing
// monthDate; days without a record are 0.
func DailySeries(sessions core.WorkSessionsMap, monthDate time.Time, earn earnings.Func) []DailyPoint {
	first := calendar.StartOfMonth(monthDate)
	n := calendar.DaysInMonth(first.Year(), first.Month())
	out := make([]DailyPoint, 0, n)
	for i := 0; i < n; i++ {
		key := calendar.FormatDateISO(calendar.AddDays(first, i))
		p := DailyPoint{Date: key}
		if day, ok := sessions[key]; ok {
			p.Earnings = earn(day)
		}
		out = append(out, p)
	}
	return out
}

package earnings

import (
	"workday/internal/core"
	"workday/internal/timecalc"
)

// Func yields the earnings of one day.
type Func func(core.WorkDay) float64

// Resolver derives a day's earnings against a profile. It is the only place
// raw shifts are turned into money for display and aggregation.
type Resolver struct {
	profile *core.UserProfile
}

// NewResolver binds a resolver to p. A nil profile prices unrecorded days
// at a rate of 0.
func NewResolver(p *core.UserProfile) Resolver {
	return Resolver{profile: p}
}

// ForDay returns the recorded snapshot when present, otherwise prices the
// day with the recorded rate and overtime, falling back to the profile's.
func (r Resolver) ForDay(day core.WorkDay) float64 {
	if day.RecordedEarnings != nil {
		return *day.RecordedEarnings
	}
	hours := timecalc.TotalHoursForDay(day)
	if hours == 0 {
		return 0
	}

	var rate float64
	var ot *core.OvertimeSettings
	if r.profile != nil {
		rate = r.profile.HourlyRate
		current := r.profile.OvertimeSettings
		ot = &current
	}
	if day.RecordedHourlyRate != nil {
		rate = *day.RecordedHourlyRate
	}
	if day.RecordedOvertimeSettings != nil {
		ot = day.RecordedOvertimeSettings
	}
	return CalculateDailyEarnings(hours, rate, ot).Earnings
}

// Func returns ForDay as a plain function value.
func (r Resolver) Func() Func {
	return r.ForDay
}

// Snapshot stamps day with the earnings, rate and overtime settings of p as
// they are at save time.
func Snapshot(day core.WorkDay, p core.UserProfile) core.WorkDay {
	out := day.Clone()
	ot := p.OvertimeSettings
	res := CalculateDailyEarnings(timecalc.TotalHoursForDay(day), p.HourlyRate, &ot)
	out.RecordedEarnings = core.Float(res.Earnings)
	out.RecordedHourlyRate = core.Float(p.HourlyRate)
	out.RecordedOvertimeSettings = &ot
	return out
}

// GoalShortfall returns how far a worked day fell below the daily goal.
// Days with no earnings and profiles without a goal never fall short.
func GoalShortfall(dayEarnings, idealDaily float64) (float64, bool) {
	if idealDaily <= 0 || dayEarnings <= 0 || dayEarnings >= idealDaily {
		return 0, false
	}
	return idealDaily - dayEarnings, true
}

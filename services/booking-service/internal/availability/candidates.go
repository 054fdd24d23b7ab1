package availability

import "time"

const (
	DefaultStep          = 15 * time.Minute
	DefaultHorizonMonths = 2
)

// Candidates generates start instants every step from now rounded up to the
// next step boundary, through the end of the day (in loc) that falls
// horizonMonths after now.
func Candidates(now time.Time, loc *time.Location, horizonMonths int, step time.Duration) []time.Time {
	if step <= 0 {
		step = DefaultStep
	}
	if horizonMonths <= 0 {
		horizonMonths = DefaultHorizonMonths
	}
	if loc == nil {
		loc = time.UTC
	}
	return CandidatesBetween(now, EndOfDay(now.AddDate(0, horizonMonths, 0), loc), step)
}

// CandidatesBetween steps from from (rounded up to a step boundary) while the
// instant is before until.
func CandidatesBetween(from, until time.Time, step time.Duration) []time.Time {
	if step <= 0 {
		step = DefaultStep
	}
	start := CeilTo(from, step)
	if !start.Before(until) {
		return nil
	}
	out := make([]time.Time, 0, int(until.Sub(start)/step)+1)
	for t := start; t.Before(until); t = t.Add(step) {
		out = append(out, t)
	}
	return out
}

// CeilTo rounds t up to a multiple of step since the zero time.
func CeilTo(t time.Time, step time.Duration) time.Time {
	floor := t.Truncate(step)
	if floor.Equal(t) {
		return t
	}
	return floor.Add(step)
}

// EndOfDay returns the first instant of the following day in loc.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
}

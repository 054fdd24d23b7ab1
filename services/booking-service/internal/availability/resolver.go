package availability

import (
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/elevacare/libs/schedule"
)

// Event is the bookable event type being resolved.
type Event struct {
	OwnerID         string
	DurationMinutes int
}

func (e Event) Duration() time.Duration {
	return time.Duration(e.DurationMinutes) * time.Minute
}

// Resolver filters candidate start instants against an expert's weekly
// schedule and known busy intervals. It holds no state between calls.
type Resolver struct {
	logger *slog.Logger
}

// NewResolver returns a Resolver that logs skipped windows to logger.
// A nil logger discards them.
func NewResolver(logger *slog.Logger) *Resolver {
	return &Resolver{logger: logger}
}

// Resolve is Resolver.Resolve without logging.
func Resolve(candidates []time.Time, event Event, sched *schedule.Schedule, busy []Interval) []time.Time {
	return (&Resolver{}).Resolve(candidates, event, sched, busy)
}

// Resolve returns the candidates, in input order, whose interval
// [c, c+duration) fits inside one of the schedule's windows for c's weekday
// (weekday and window bounds taken in the schedule's timezone) and overlaps
// no busy interval. A nil schedule yields no results.
func (r *Resolver) Resolve(candidates []time.Time, event Event, sched *schedule.Schedule, busy []Interval) []time.Time {
	out := []time.Time{}
	if len(candidates) == 0 || sched == nil {
		return out
	}
	duration := event.Duration()
	if duration <= 0 {
		r.warn("non-positive event duration", "owner_id", event.OwnerID, "duration_minutes", event.DurationMinutes)
		return out
	}
	week, ok := r.compile(sched)
	if !ok {
		return out
	}

	for _, c := range candidates {
		if week.accepts(c, duration) && !overlapsAny(c, c.Add(duration), busy) {
			out = append(out, c)
		}
	}
	return out
}

type compiledWeek struct {
	loc  *time.Location
	days [schedule.DaysPerWeek][]schedule.ParsedWindow
}

func (r *Resolver) compile(sched *schedule.Schedule) (compiledWeek, bool) {
	loc, err := sched.Location()
	if err != nil {
		r.warn("schedule timezone unusable", "owner_id", sched.OwnerID, "err", err)
		return compiledWeek{}, false
	}
	week := compiledWeek{loc: loc}
	for i, w := range sched.Windows {
		pw, err := w.Parse()
		if err != nil {
			r.warn("skipping malformed availability window", "owner_id", sched.OwnerID, "index", i, "err", err)
			continue
		}
		week.days[pw.Day] = append(week.days[pw.Day], pw)
	}
	return week, true
}

func (w compiledWeek) accepts(c time.Time, duration time.Duration) bool {
	local := c.In(w.loc)
	end := c.Add(duration)
	for _, win := range w.days[schedule.FromTime(local.Weekday())] {
		winStart := win.Start.On(local, w.loc)
		winEnd := win.End.On(local, w.loc)
		if !c.Before(winStart) && !end.After(winEnd) {
			return true
		}
	}
	return false
}

func (r *Resolver) warn(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Warn(msg, args...)
	}
}

package availability

import "time"

type Interval struct {
	Start time.Time
	End   time.Time
}

// Slot is a resolved bookable interval.
type Slot struct {
	Start time.Time
	End   time.Time
}

// ToSlots pairs each accepted start with its end (start + duration).
func ToSlots(starts []time.Time, duration time.Duration) []Slot {
	out := make([]Slot, 0, len(starts))
	for _, s := range starts {
		out = append(out, Slot{Start: s, End: s.Add(duration)})
	}
	return out
}

// NextAvailable returns the earliest accepted start, or false when none exist.
// Resolved starts keep candidate order, so the first element is the earliest
// as long as candidates were generated in order.
func NextAvailable(starts []time.Time) (time.Time, bool) {
	if len(starts) == 0 {
		return time.Time{}, false
	}
	return starts[0], true
}

func overlapsAny(start, end time.Time, busy []Interval) bool {
	for _, b := range busy {
		// Half-open intervals: [start,end) overlaps [b.Start,b.End) iff start < b.End && b.Start < end.
		if start.Before(b.End) && b.Start.Before(end) {
			return true
		}
	}
	return false
}

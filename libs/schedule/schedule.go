// Package schedule holds the weekly availability model shared by the
// scheduling and booking services.
package schedule

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Window is one recurring availability block, stored as entered by the expert.
type Window struct {
	DayOfWeek string `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// Schedule is an expert's weekly availability in a single IANA timezone.
type Schedule struct {
	OwnerID  string   `json:"owner_id"`
	Timezone string   `json:"timezone"`
	Windows  []Window `json:"windows"`
}

// ParsedWindow is a Window with its day and bounds decoded.
type ParsedWindow struct {
	Day   Weekday
	Start TimeOfDay
	End   TimeOfDay
}

// Parse decodes w. Windows with start >= end (including ones that wrap past
// midnight) are rejected.
func (w Window) Parse() (ParsedWindow, error) {
	day, err := ParseWeekday(w.DayOfWeek)
	if err != nil {
		return ParsedWindow{}, err
	}
	start, err := ParseTimeOfDay(w.StartTime)
	if err != nil {
		return ParsedWindow{}, fmt.Errorf("start_time: %w", err)
	}
	end, err := ParseTimeOfDay(w.EndTime)
	if err != nil {
		return ParsedWindow{}, fmt.Errorf("end_time: %w", err)
	}
	if start >= end {
		return ParsedWindow{}, fmt.Errorf("start_time %s must be before end_time %s", start, end)
	}
	return ParsedWindow{Day: day, Start: start, End: end}, nil
}

// Location loads the schedule's timezone. An empty timezone is an error;
// UTC must be named explicitly.
func (s *Schedule) Location() (*time.Location, error) {
	tz := strings.TrimSpace(s.Timezone)
	if tz == "" {
		return nil, errors.New("timezone is required")
	}
	if strings.EqualFold(tz, "local") {
		return nil, fmt.Errorf("timezone %q is not an IANA zone", tz)
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", tz, err)
	}
	return loc, nil
}

// ValidationError describes one problem with a schedule submitted for storage.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Validate checks a schedule before it is persisted. All problems are
// reported together (joined with errors.Join). Overlapping windows on the
// same day are rejected so stored schedules never contain them.
func Validate(s *Schedule) error {
	if s == nil {
		return &ValidationError{Message: "schedule is required"}
	}
	var errs []error
	if strings.TrimSpace(s.OwnerID) == "" {
		errs = append(errs, &ValidationError{Field: "owner_id", Message: "is required"})
	}
	if _, err := s.Location(); err != nil {
		errs = append(errs, &ValidationError{Field: "timezone", Message: err.Error()})
	}

	var byDay [DaysPerWeek][]ParsedWindow
	for i, w := range s.Windows {
		pw, err := w.Parse()
		if err != nil {
			errs = append(errs, &ValidationError{Field: fmt.Sprintf("windows[%d]", i), Message: err.Error()})
			continue
		}
		byDay[pw.Day] = append(byDay[pw.Day], pw)
	}
	for day, windows := range byDay {
		sort.Slice(windows, func(i, j int) bool { return windows[i].Start < windows[j].Start })
		for i := 1; i < len(windows); i++ {
			prev, cur := windows[i-1], windows[i]
			if cur.Start < prev.End {
				errs = append(errs, &ValidationError{
					Field:   "windows",
					Message: fmt.Sprintf("%s %s-%s overlaps %s-%s", Weekday(day), cur.Start, cur.End, prev.Start, prev.End),
				})
			}
		}
	}
	return errors.Join(errs...)
}

// Problems flattens a Validate error into user-facing messages.
func Problems(err error) []string {
	if err == nil {
		return nil
	}
	var out []string
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{err.Error()}
}

package availability

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/md-rashed-zaman/elevacare/libs/schedule"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return v
}

func newYorkMornings() *schedule.Schedule {
	return &schedule.Schedule{
		OwnerID:  "expert-ny",
		Timezone: "America/New_York",
		Windows: []schedule.Window{
			{DayOfWeek: "monday", StartTime: "09:00", EndTime: "12:00"},
		},
	}
}

var halfHour = Event{OwnerID: "expert-ny", DurationMinutes: 30}

func TestResolve_NewYorkScenarios(t *testing.T) {
	busy := []Interval{{
		Start: mustTime(t, "2024-03-04T14:00:00Z"),
		End:   mustTime(t, "2024-03-04T14:30:00Z"),
	}}

	tests := []struct {
		name      string
		candidate string
		busy      []Interval
		accepted  bool
	}{
		{"window start", "2024-03-04T14:00:00Z", nil, true},
		{"before window start", "2024-03-04T13:45:00Z", nil, false},
		{"spills past window end", "2024-03-04T15:45:00Z", nil, false},
		{"ends exactly at window end", "2024-03-04T16:30:00Z", nil, true},
		{"exact busy overlap", "2024-03-04T14:00:00Z", busy, false},
		{"back to back with busy", "2024-03-04T14:30:00Z", busy, true},
		{"tuesday has no windows", "2024-03-05T14:00:00Z", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := mustTime(t, tt.candidate)
			got := Resolve([]time.Time{c}, halfHour, newYorkMornings(), tt.busy)
			if tt.accepted && (len(got) != 1 || !got[0].Equal(c)) {
				t.Fatalf("expected %s accepted, got %v", tt.candidate, got)
			}
			if !tt.accepted && len(got) != 0 {
				t.Fatalf("expected %s rejected, got %v", tt.candidate, got)
			}
		})
	}
}

func TestResolve_NilScheduleIsEmpty(t *testing.T) {
	candidates := CandidatesBetween(mustTime(t, "2024-03-04T00:00:00Z"), mustTime(t, "2024-03-11T00:00:00Z"), 15*time.Minute)
	got := Resolve(candidates, halfHour, nil, nil)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil result, got %v", got)
	}
}

func TestResolve_EmptyCandidates(t *testing.T) {
	got := Resolve(nil, halfHour, newYorkMornings(), nil)
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}
}

func TestResolve_NonPositiveDuration(t *testing.T) {
	c := mustTime(t, "2024-03-04T14:00:00Z")
	got := Resolve([]time.Time{c}, Event{OwnerID: "e", DurationMinutes: 0}, newYorkMornings(), nil)
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}
}

func TestResolve_WeekdayTakenInScheduleZone(t *testing.T) {
	// 03:00Z Tuesday is 22:00 Monday in New York.
	c := mustTime(t, "2024-03-05T03:00:00Z")
	evening := &schedule.Schedule{
		OwnerID:  "expert-ny",
		Timezone: "America/New_York",
		Windows:  []schedule.Window{{DayOfWeek: "monday", StartTime: "21:00", EndTime: "23:00"}},
	}
	if got := Resolve([]time.Time{c}, halfHour, evening, nil); len(got) != 1 {
		t.Fatalf("expected Monday evening candidate accepted, got %v", got)
	}

	tuesday := &schedule.Schedule{
		OwnerID:  "expert-ny",
		Timezone: "America/New_York",
		Windows:  []schedule.Window{{DayOfWeek: "tuesday", StartTime: "00:00", EndTime: "23:59"}},
	}
	if got := Resolve([]time.Time{c}, halfHour, tuesday, nil); len(got) != 0 {
		t.Fatalf("expected candidate rejected for Tuesday-only schedule, got %v", got)
	}
}

func TestResolve_DSTSpringForwardLisbon(t *testing.T) {
	// Europe/Lisbon moves from UTC+0 to UTC+1 on 2024-03-31.
	sched := &schedule.Schedule{
		OwnerID:  "expert-lx",
		Timezone: "Europe/Lisbon",
		Windows: []schedule.Window{
			{DayOfWeek: "saturday", StartTime: "09:00", EndTime: "17:00"},
			{DayOfWeek: "monday", StartTime: "09:00", EndTime: "17:00"},
		},
	}
	event := Event{OwnerID: "expert-lx", DurationMinutes: 30}

	tests := []struct {
		candidate string
		accepted  bool
	}{
		{"2024-03-30T08:45:00Z", false},
		{"2024-03-30T09:00:00Z", true},
		{"2024-03-30T16:30:00Z", true},
		{"2024-03-30T16:45:00Z", false},
		{"2024-04-01T07:45:00Z", false},
		{"2024-04-01T08:00:00Z", true},
		{"2024-04-01T15:30:00Z", true},
		{"2024-04-01T16:00:00Z", false},
		{"2024-04-01T16:30:00Z", false},
	}
	for _, tt := range tests {
		c := mustTime(t, tt.candidate)
		got := Resolve([]time.Time{c}, event, sched, nil)
		if tt.accepted != (len(got) == 1) {
			t.Fatalf("candidate %s: expected accepted=%v, got %v", tt.candidate, tt.accepted, got)
		}
	}
}

func TestResolve_SkipsMalformedWindows(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	sched := newYorkMornings()
	sched.Windows = append([]schedule.Window{
		{DayOfWeek: "monday", StartTime: "nine", EndTime: "12:00"},
		{DayOfWeek: "monday", StartTime: "22:00", EndTime: "02:00"},
	}, sched.Windows...)

	c := mustTime(t, "2024-03-04T14:00:00Z")
	got := NewResolver(logger).Resolve([]time.Time{c}, halfHour, sched, nil)
	if len(got) != 1 {
		t.Fatalf("expected valid window to still accept candidate, got %v", got)
	}
	if n := strings.Count(buf.String(), "skipping malformed availability window"); n != 2 {
		t.Fatalf("expected 2 skipped-window logs, got %d: %s", n, buf.String())
	}
}

func TestResolve_UnknownTimezoneIsEmpty(t *testing.T) {
	sched := newYorkMornings()
	sched.Timezone = "Atlantis/Capital"
	c := mustTime(t, "2024-03-04T14:00:00Z")
	if got := Resolve([]time.Time{c}, halfHour, sched, nil); len(got) != 0 {
		t.Fatalf("expected empty result for unknown timezone, got %v", got)
	}
}

func TestResolve_OverlappingWindowsActAsUnion(t *testing.T) {
	sched := newYorkMornings()
	sched.Windows = append(sched.Windows, schedule.Window{DayOfWeek: "monday", StartTime: "11:00", EndTime: "13:00"})
	// 11:45 local: spills past the first window but fits the second.
	c := mustTime(t, "2024-03-04T16:45:00Z")
	if got := Resolve([]time.Time{c}, halfHour, sched, nil); len(got) != 1 {
		t.Fatalf("expected candidate accepted by second window, got %v", got)
	}
	// 11:50 to 12:20 would need the union of both windows, not one window.
	sched.Windows[1] = schedule.Window{DayOfWeek: "monday", StartTime: "12:00", EndTime: "13:00"}
	c = mustTime(t, "2024-03-04T16:50:00Z")
	if got := Resolve([]time.Time{c}, halfHour, sched, nil); len(got) != 0 {
		t.Fatalf("expected candidate spanning two windows rejected, got %v", got)
	}
}

func TestResolve_PropertiesOverAWeek(t *testing.T) {
	sched := &schedule.Schedule{
		OwnerID:  "expert-ny",
		Timezone: "America/New_York",
		Windows: []schedule.Window{
			{DayOfWeek: "monday", StartTime: "09:00", EndTime: "12:00"},
			{DayOfWeek: "wednesday", StartTime: "13:00", EndTime: "17:30"},
			{DayOfWeek: "friday", StartTime: "08:00", EndTime: "10:00"},
		},
	}
	busy := []Interval{
		{Start: mustTime(t, "2024-03-04T15:10:00Z"), End: mustTime(t, "2024-03-04T15:40:00Z")},
		{Start: mustTime(t, "2024-03-06T19:00:00Z"), End: mustTime(t, "2024-03-06T20:00:00Z")},
	}
	candidates := CandidatesBetween(mustTime(t, "2024-03-03T00:00:00Z"), mustTime(t, "2024-03-10T00:00:00Z"), 5*time.Minute)
	duration := halfHour.Duration()

	got := Resolve(candidates, halfHour, sched, busy)
	if len(got) == 0 {
		t.Fatalf("expected some accepted candidates")
	}

	// Subsequence in input order.
	j := 0
	for _, c := range candidates {
		if j < len(got) && c.Equal(got[j]) {
			j++
		}
	}
	if j != len(got) {
		t.Fatalf("result is not an ordered subsequence of the candidates")
	}

	loc, _ := time.LoadLocation("America/New_York")
	for _, c := range got {
		if overlapsAny(c, c.Add(duration), busy) {
			t.Fatalf("accepted %s overlaps a busy interval", c)
		}
		local := c.In(loc)
		end := c.Add(duration).In(loc)
		if local.YearDay() != end.YearDay() && !(end.Hour() == 0 && end.Minute() == 0) {
			t.Fatalf("accepted %s crosses local midnight", c)
		}
	}

	// Adding busy time never adds results.
	free := Resolve(candidates, halfHour, sched, nil)
	if len(free) < len(got) {
		t.Fatalf("removing busy intervals shrank the result: %d < %d", len(free), len(got))
	}
}

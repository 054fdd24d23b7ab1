package schedule

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseWeekday(t *testing.T) {
	cases := map[string]Weekday{
		"monday":   Monday,
		"Monday":   Monday,
		" SUNDAY ": Sunday,
		"friday":   Friday,
	}
	for in, want := range cases {
		got, err := ParseWeekday(in)
		if err != nil {
			t.Fatalf("ParseWeekday(%q) failed: %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseWeekday(%q) = %s, want %s", in, got, want)
		}
	}
	if _, err := ParseWeekday("funday"); err == nil {
		t.Fatalf("expected error for unknown day")
	}
}

func TestFromTime(t *testing.T) {
	if FromTime(time.Sunday) != Sunday {
		t.Fatalf("expected Sunday")
	}
	if FromTime(time.Monday) != Monday {
		t.Fatalf("expected Monday")
	}
	if FromTime(time.Saturday) != Saturday {
		t.Fatalf("expected Saturday")
	}
}

func TestParseTimeOfDay(t *testing.T) {
	got, err := ParseTimeOfDay("09:30")
	if err != nil {
		t.Fatalf("ParseTimeOfDay failed: %v", err)
	}
	if got.Hour() != 9 || got.Minute() != 30 {
		t.Fatalf("unexpected value %s", got)
	}
	for _, bad := range []string{"", "9", "24:00", "12:60", "ab:cd", "09:30:00", "9:5"} {
		if _, err := ParseTimeOfDay(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestTimeOfDayOnFollowsZoneRules(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	nine := TimeOfDay(9 * 60)

	winter := nine.On(time.Date(2024, 3, 4, 14, 0, 0, 0, time.UTC), loc)
	if !winter.Equal(time.Date(2024, 3, 4, 14, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected 14:00Z in EST, got %s", winter.UTC())
	}
	summer := nine.On(time.Date(2024, 3, 11, 13, 0, 0, 0, time.UTC), loc)
	if !summer.Equal(time.Date(2024, 3, 11, 13, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected 13:00Z in EDT, got %s", summer.UTC())
	}
}

func TestValidate(t *testing.T) {
	valid := &Schedule{
		OwnerID:  "expert-1",
		Timezone: "Europe/Lisbon",
		Windows: []Window{
			{DayOfWeek: "monday", StartTime: "09:00", EndTime: "12:00"},
			{DayOfWeek: "monday", StartTime: "12:00", EndTime: "17:00"},
			{DayOfWeek: "tuesday", StartTime: "09:00", EndTime: "17:00"},
		},
	}
	if err := Validate(valid); err != nil {
		t.Fatalf("expected valid schedule, got %v", err)
	}

	tests := []struct {
		name  string
		sched *Schedule
		want  string
	}{
		{"nil", nil, "schedule is required"},
		{"bad timezone", &Schedule{OwnerID: "e", Timezone: "Mars/Olympus"}, "unknown timezone"},
		{"empty timezone", &Schedule{OwnerID: "e"}, "timezone is required"},
		{"bad day", &Schedule{OwnerID: "e", Timezone: "UTC", Windows: []Window{{DayOfWeek: "someday", StartTime: "09:00", EndTime: "10:00"}}}, "unknown day"},
		{"cross midnight", &Schedule{OwnerID: "e", Timezone: "UTC", Windows: []Window{{DayOfWeek: "friday", StartTime: "22:00", EndTime: "02:00"}}}, "must be before"},
		{"empty window", &Schedule{OwnerID: "e", Timezone: "UTC", Windows: []Window{{DayOfWeek: "friday", StartTime: "10:00", EndTime: "10:00"}}}, "must be before"},
		{"overlap", &Schedule{OwnerID: "e", Timezone: "UTC", Windows: []Window{
			{DayOfWeek: "monday", StartTime: "09:00", EndTime: "12:00"},
			{DayOfWeek: "monday", StartTime: "11:00", EndTime: "13:00"},
		}}, "overlaps"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.sched)
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q in %q", tt.want, err.Error())
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %T", err)
			}
		})
	}
}

func TestProblemsListsEveryError(t *testing.T) {
	err := Validate(&Schedule{Timezone: "nowhere", Windows: []Window{{DayOfWeek: "x", StartTime: "1", EndTime: "2"}}})
	problems := Problems(err)
	if len(problems) != 3 {
		t.Fatalf("expected 3 problems, got %d: %v", len(problems), problems)
	}
}

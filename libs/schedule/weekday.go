package schedule

import (
	"fmt"
	"strings"
	"time"
)

// Weekday is a day of the week as stored on availability windows.
// Values are dense (Monday = 0) so they can index fixed-size arrays.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// DaysPerWeek is the number of distinct Weekday values.
const DaysPerWeek = 7

var weekdayNames = [DaysPerWeek]string{
	"Monday",
	"Tuesday",
	"Wednesday",
	"Thursday",
	"Friday",
	"Saturday",
	"Sunday",
}

func (d Weekday) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	return weekdayNames[d]
}

func (d Weekday) Valid() bool {
	return d >= Monday && d <= Sunday
}

// ParseWeekday accepts full English day names, case-insensitively.
func ParseWeekday(s string) (Weekday, error) {
	s = strings.TrimSpace(s)
	for i, name := range weekdayNames {
		if strings.EqualFold(s, name) {
			return Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("unknown day of week %q", s)
}

// FromTime converts the standard library weekday (Sunday = 0).
func FromTime(d time.Weekday) Weekday {
	if d == time.Sunday {
		return Sunday
	}
	return Weekday(d - 1)
}

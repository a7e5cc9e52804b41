package utils

import (
	"fmt"
	"time"

	"github.com/julianstephens/dayledger/internal/constants"
)

// LoadLocation loads a timezone location from an IANA timezone name.
// If the timezone is "Local" or empty, it returns the system's local timezone.
func LoadLocation(timezone string) (*time.Location, error) {
	if timezone == "" || timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(timezone)
}

// ValidateTimezone checks if the timezone name is valid.
func ValidateTimezone(timezone string) bool {
	_, err := LoadLocation(timezone)
	return err == nil
}

// ParseDay parses a day string (YYYY-MM-DD) as midnight UTC. Day arithmetic
// is done in UTC so DST transitions never produce 23 or 25 hour days.
func ParseDay(day string) (time.Time, error) {
	t, err := time.Parse(constants.DateFormat, day)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q (expected YYYY-MM-DD): %w", day, err)
	}
	return t, nil
}

// FormatDay formats t's calendar date as YYYY-MM-DD.
func FormatDay(t time.Time) string {
	return t.Format(constants.DateFormat)
}

// ValidateDay reports whether day is a well-formed YYYY-MM-DD string.
func ValidateDay(day string) bool {
	_, err := ParseDay(day)
	return err == nil
}

// DayOf returns the calendar day of t in loc.
func DayOf(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return FormatDay(t)
}

// AddDays shifts day by n calendar days.
func AddDays(day string, n int) (string, error) {
	t, err := ParseDay(day)
	if err != nil {
		return "", err
	}
	return FormatDay(t.AddDate(0, 0, n)), nil
}

// MustAddDays is AddDays for days that were already validated.
func MustAddDays(day string, n int) string {
	out, err := AddDays(day, n)
	if err != nil {
		panic(err)
	}
	return out
}

// DaysBetween returns the number of calendar days from start to end.
// It is negative when end is before start.
func DaysBetween(start, end string) (int, error) {
	s, err := ParseDay(start)
	if err != nil {
		return 0, err
	}
	e, err := ParseDay(end)
	if err != nil {
		return 0, err
	}
	// Days are parsed at UTC midnight, so whole days divide evenly. Unix
	// seconds do not saturate the way time.Duration does past ~292 years.
	return int((e.Unix() - s.Unix()) / 86400), nil
}

// WeekStart returns the Monday on or before day (the first day of its ISO week).
func WeekStart(day string) (string, error) {
	t, err := ParseDay(day)
	if err != nil {
		return "", err
	}
	offset := (int(t.Weekday()) + 6) % 7 // Monday=0 ... Sunday=6
	return FormatDay(t.AddDate(0, 0, -offset)), nil
}

// IsWeekStart reports whether day is a Monday.
func IsWeekStart(day string) bool {
	t, err := ParseDay(day)
	return err == nil && t.Weekday() == time.Monday
}

// DayAt combines a day with an hour of day in loc.
func DayAt(day string, hour int, loc *time.Location) (time.Time, error) {
	t, err := ParseDay(day)
	if err != nil {
		return time.Time{}, err
	}
	if loc == nil {
		loc = time.Local
	}
	return time.Date(t.Year(), t.Month(), t.Day(), hour, 0, 0, 0, loc), nil
}

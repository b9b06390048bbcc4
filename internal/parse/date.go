package parse

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DateLayout is the boundary format of every date parameter.
const DateLayout = "2006-01-02"

// ISO-like inputs: a civil date, optionally followed by a time part that is ignored.
var dateRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})(?:[T ][0-9:.]+(?:Z|[+-]\d{2}:?\d{2})?)?$`)

// Date parses a yyyy-mm-dd string into a civil day at UTC midnight.
func Date(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	m := dateRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected yyyy-mm-dd", raw)
	}
	t, err := time.ParseInLocation(DateLayout, m[1], time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", raw, err)
	}
	return t, nil
}

// OptionalDate parses raw, returning nil for an empty string.
func OptionalDate(raw string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	t, err := Date(raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Range parses an inclusive [start, end] pair and rejects inverted ranges.
func Range(start, end string) (time.Time, time.Time, error) {
	s, err := Date(start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	e, err := Date(end)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if e.Before(s) {
		return time.Time{}, time.Time{}, fmt.Errorf("end date %s is before start date %s", end, start)
	}
	return s, e, nil
}

// Day truncates t to its civil day in t's own location and returns that day
// at UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current civil day in loc.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return Day(now.In(loc))
}

// DaysBetween returns the whole number of days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// Format renders a civil day in the boundary format.
func Format(t time.Time) string {
	return t.Format(DateLayout)
}

package timeutil

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DateLayout is the ISO calendar date used for command slots.
	DateLayout = "2006-01-02"
	// ClockLayout is the 24-hour clock used for command slots.
	ClockLayout = "15:04"
)

var defaultLocation = time.UTC

// Clock supplies the current time. Pure helpers take a time value instead of a Clock.
type Clock interface {
	Now() time.Time
}

// SystemClock reports wall-clock time in a fixed location.
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

// FixedClock always reports the same instant. Used by tests and replay tooling.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time {
	return c.At
}

// ResolveLocation returns the named location with UTC fallback.
func ResolveLocation(timezone string) (*time.Location, bool) {
	if timezone == "" {
		return defaultLocation, true
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return defaultLocation, true
	}
	return loc, false
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar date in a's location.
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// NextWeekday returns the next date strictly after now that falls on day.
// A weekday equal to today's always resolves a full week ahead.
func NextWeekday(now time.Time, day time.Weekday) time.Time {
	ahead := int(day) - int(now.Weekday())
	if ahead <= 0 {
		ahead += 7
	}
	return StartOfDay(now).AddDate(0, 0, ahead)
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekday maps a full lowercase weekday name to time.Weekday.
func ParseWeekday(name string) (time.Weekday, bool) {
	day, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
	return day, ok
}

// ResolveDate turns a date slot (today, tomorrow, a weekday name or YYYY-MM-DD)
// into midnight of that day in now's location.
func ResolveDate(value string, now time.Time) (time.Time, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	switch value {
	case "", "today":
		return StartOfDay(now), nil
	case "tomorrow":
		return StartOfDay(now).AddDate(0, 0, 1), nil
	}

	if day, ok := ParseWeekday(value); ok {
		return NextWeekday(now, day), nil
	}

	d, err := time.ParseInLocation(DateLayout, value, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("unable to parse date: %s", value)
	}
	return d, nil
}

// ParseClock parses an HH:MM slot into hour and minute.
func ParseClock(value string) (int, int, error) {
	t, err := time.Parse(ClockLayout, strings.TrimSpace(value))
	if err != nil {
		return 0, 0, fmt.Errorf("unable to parse time: %s", value)
	}
	return t.Hour(), t.Minute(), nil
}

// Combine places hour:minute on the calendar day of date.
func Combine(date time.Time, hour, minute int) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, date.Location())
}

// RelativeLabel renders an event start relative to now:
// "Today 03:00 PM", "Tomorrow 09:30 AM" or "Oct 21, 10:00 AM".
func RelativeLabel(start, now time.Time) string {
	start = start.In(now.Location())
	clock := start.Format("03:04 PM")

	switch {
	case SameDay(now, start):
		return "Today " + clock
	case SameDay(now.AddDate(0, 0, 1), start):
		return "Tomorrow " + clock
	default:
		return start.Format("Jan 02") + ", " + clock
	}
}

// Package nlp holds the deterministic extractors that pull command slots
// (date, time, duration, title) out of free-text chat messages.
package nlp

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/omriShneor/calpal/internal/timeutil"
)

// DefaultDurationMinutes is used whenever no duration can be read from the text.
const DefaultDurationMinutes = 60

// TimeSlots is the result of scanning a message for time expressions.
// Date is an ISO date (YYYY-MM-DD) and Time an HH:MM clock; both are empty when absent.
type TimeSlots struct {
	Date            string
	Time            string
	DurationMinutes int
}

var (
	isoDateRe   = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	tomorrowRe  = regexp.MustCompile(`\b(?:tomorrow|tommorow|tommorrow|tomorow|tmrw|tmr)\b`)
	todayRe     = regexp.MustCompile(`\b(?:today|tonight)\b`)
	weekdayRe   = regexp.MustCompile(`\b(monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b`)
	rangeRe     = regexp.MustCompile(`\bfrom\s+(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\s*(?:to|until|till|-)\s*(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`)
	fromRe      = regexp.MustCompile(`\bfrom\s+(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`)
	clockRe     = regexp.MustCompile(`\b(\d{1,2})(?:[:.](\d{2}))?\s*(am|pm)?\b`)
	atHourRe    = regexp.MustCompile(`\bat\s+(\d{1,2})\b`)
	noonRe      = regexp.MustCompile(`\b(?:noon|midday)\b`)
	midnightRe  = regexp.MustCompile(`\bmidnight\b`)
	hoursMinsRe = regexp.MustCompile(`\b(\d+)\s*(?:hours?|hrs?)\s*(?:and\s+)?(\d+)\s*(?:minutes?|mins?)\b`)
	hoursRe     = regexp.MustCompile(`\b(\d+(?:\.\d+)?)\s*(?:hours?|hrs?)\b`)
	minutesRe   = regexp.MustCompile(`\b(\d+)\s*(?:minutes?|mins?)\b`)
	halfHourRe  = regexp.MustCompile(`\bhalf\s+an?\s+hour\b`)
	anHourRe    = regexp.MustCompile(`\b(?:of|for)\s+(?:an|one)\s+hour\b`)
)

// Extract scans text for a date, a start time and a duration.
func Extract(text string, now time.Time) TimeSlots {
	return TimeSlots{
		Date:            ExtractDate(text, now),
		Time:            ExtractTime(text),
		DurationMinutes: ExtractDuration(text),
	}
}

// ExtractDate returns the ISO date referenced by text, or "" when none is found.
// Weekday names resolve to their next occurrence strictly after today.
func ExtractDate(text string, now time.Time) string {
	tl := strings.ToLower(text)

	if m := isoDateRe.FindStringSubmatch(tl); m != nil {
		if _, err := time.Parse(timeutil.DateLayout, m[1]); err == nil {
			return m[1]
		}
	}
	if tomorrowRe.MatchString(tl) {
		return timeutil.StartOfDay(now).AddDate(0, 0, 1).Format(timeutil.DateLayout)
	}
	if todayRe.MatchString(tl) {
		return now.Format(timeutil.DateLayout)
	}
	if m := weekdayRe.FindStringSubmatch(tl); m != nil {
		day, _ := timeutil.ParseWeekday(m[1])
		return timeutil.NextWeekday(now, day).Format(timeutil.DateLayout)
	}
	return ""
}

// ExtractTime returns the start time in text as HH:MM (24-hour), or "" when none is found.
func ExtractTime(text string) string {
	tl := strings.ToLower(text)

	if start, _, ok := parseRange(tl); ok {
		return formatMinutes(start)
	}
	if m := fromRe.FindStringSubmatch(tl); m != nil {
		if minutes, ok := clockMinutes(m[1], m[2], m[3]); ok {
			return formatMinutes(minutes)
		}
	}

	for _, m := range clockRe.FindAllStringSubmatch(tl, -1) {
		// A bare number is a count, not a clock reading. "6.30" reads as a
		// clock only with am/pm, otherwise it is a decimal.
		if m[3] == "" && (m[2] == "" || strings.Contains(m[0], ".")) {
			continue
		}
		if minutes, ok := clockMinutes(m[1], m[2], m[3]); ok {
			return formatMinutes(minutes)
		}
	}

	if m := atHourRe.FindStringSubmatch(tl); m != nil {
		if minutes, ok := clockMinutes(m[1], "", ""); ok {
			return formatMinutes(minutes)
		}
	}
	if noonRe.MatchString(tl) {
		return "12:00"
	}
	if midnightRe.MatchString(tl) {
		return "00:00"
	}
	return ""
}

// ExtractDuration returns the event length in minutes, defaulting to DefaultDurationMinutes.
func ExtractDuration(text string) int {
	if minutes, ok := FindDuration(text); ok {
		return minutes
	}
	return DefaultDurationMinutes
}

// FindDuration returns the event length in minutes and whether text states one at all.
func FindDuration(text string) (int, bool) {
	tl := strings.ToLower(text)

	if m := hoursMinsRe.FindStringSubmatch(tl); m != nil {
		h, _ := strconv.Atoi(m[1])
		mins, _ := strconv.Atoi(m[2])
		if total := h*60 + mins; total > 0 {
			return total, true
		}
	}
	if m := hoursRe.FindStringSubmatch(tl); m != nil {
		if h, err := strconv.ParseFloat(m[1], 64); err == nil && h > 0 {
			return int(math.Round(h * 60)), true
		}
	}
	if m := minutesRe.FindStringSubmatch(tl); m != nil {
		if mins, err := strconv.Atoi(m[1]); err == nil && mins > 0 {
			return mins, true
		}
	}
	if halfHourRe.MatchString(tl) {
		return 30, true
	}
	if anHourRe.MatchString(tl) {
		return 60, true
	}
	if start, end, ok := parseRange(tl); ok && end > start {
		return end - start, true
	}
	return 0, false
}

// parseRange reads "from H[:MM][am|pm] to H[:MM][am|pm]" as minutes past midnight.
// A meridiem given on only one side is carried over to the other.
func parseRange(tl string) (int, int, bool) {
	m := rangeRe.FindStringSubmatch(tl)
	if m == nil {
		return 0, 0, false
	}

	startHour, _ := strconv.Atoi(m[1])
	endHour, _ := strconv.Atoi(m[4])
	startMer, endMer := m[3], m[6]

	switch {
	case startMer == "" && endMer != "":
		// "from 2 to 4pm" shares the pm block; "from 11 to 1pm" crosses noon.
		if startHour%12 <= endHour%12 {
			startMer = endMer
		} else if endMer == "pm" {
			startMer = "am"
		}
	case startMer != "" && endMer == "":
		endMer = startMer
	}

	start, ok := clockMinutes(m[1], m[2], startMer)
	if !ok {
		return 0, 0, false
	}
	end, ok := clockMinutes(m[4], m[5], endMer)
	if !ok {
		return 0, 0, false
	}
	if m[3] != "" && m[6] == "" && end <= start && end+12*60 < 24*60 {
		end += 12 * 60
	}
	return start, end, true
}

// clockMinutes converts hour, minute and meridiem captures to minutes past midnight.
func clockMinutes(hourStr, minStr, meridiem string) (int, bool) {
	hour, err := strconv.Atoi(hourStr)
	if err != nil {
		return 0, false
	}
	minute := 0
	if minStr != "" {
		if minute, err = strconv.Atoi(minStr); err != nil || minute > 59 {
			return 0, false
		}
	}

	switch meridiem {
	case "pm":
		if hour < 1 || hour > 12 {
			return 0, false
		}
		if hour != 12 {
			hour += 12
		}
	case "am":
		if hour < 1 || hour > 12 {
			return 0, false
		}
		if hour == 12 {
			hour = 0
		}
	default:
		if hour > 23 {
			return 0, false
		}
	}
	return hour*60 + minute, true
}

func formatMinutes(total int) string {
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

package nlp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// Monday 19 October 2026, 10:00.
var refNow = time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)

func TestExtractDate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"today", "lunch today at 1pm", "2026-10-19"},
		{"tonight maps to today", "dinner tonight", "2026-10-19"},
		{"tomorrow", "standup tomorrow 9:30", "2026-10-20"},
		{"misspelled tommorow", "gym tommorow", "2026-10-20"},
		{"abbreviated tmrw", "call mom tmrw", "2026-10-20"},
		{"weekday later this week", "review on Wednesday", "2026-10-21"},
		{"weekday earlier wraps to next week", "brunch sunday", "2026-10-25"},
		{"same weekday is a week ahead", "sync monday 10am", "2026-10-26"},
		{"iso date", "dentist on 2026-11-03 at 4pm", "2026-11-03"},
		{"invalid iso date ignored", "thing on 2026-13-45", ""},
		{"no date", "schedule coffee meeting", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractDate(tt.input, refNow))
		})
	}
}

func TestExtractDateWeekdayNeverToday(t *testing.T) {
	for i := 0; i < 7; i++ {
		now := refNow.AddDate(0, 0, i)
		name := now.Weekday().String()

		got := ExtractDate("meet on "+name, now)

		expected := now.AddDate(0, 0, 7).Format("2006-01-02")
		assert.Equal(t, expected, got, "weekday %s", name)
	}
}

func TestExtractTime(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"pm", "gym at 5pm", "17:00"},
		{"pm with space", "call at 11 am today", "11:00"},
		{"noon pm stays 12", "lunch 12pm", "12:00"},
		{"12am maps to midnight", "deploy at 12am", "00:00"},
		{"minutes with meridiem", "standup 9:30am", "09:30"},
		{"24 hour clock", "schedule team standup tomorrow morning 9:30", "09:30"},
		{"afternoon 24 hour", "review 14:45", "14:45"},
		{"range start only", "workshop from 2pm to 4pm", "14:00"},
		{"range start inherits end meridiem", "workshop from 2 to 4pm", "14:00"},
		{"from without range", "office hours from 3pm", "15:00"},
		{"bare hour after at", "sync at 9", "09:00"},
		{"noon word", "lunch at noon", "12:00"},
		{"bare counts are not times", "block 2 hours for focus", ""},
		{"decimal duration is not a time", "team sync for 1.25 hours at 5pm", "17:00"},
		{"decimal amount is not a time", "lunch budget 10.50 at 1pm", "13:00"},
		{"dotted clock with meridiem", "dinner 7.30pm", "19:30"},
		{"invalid hour rejected", "meet at 13pm", ""},
		{"no time", "schedule coffee meeting", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractTime(tt.input))
		})
	}
}

func TestExtractDuration(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
	}{
		{"hours", "2 hours", 120},
		{"hrs", "focus block 3 hrs", 180},
		{"fractional hours", "1.5 hours workshop", 90},
		{"mins", "45 mins", 45},
		{"minutes", "for 30 minutes", 30},
		{"hours and minutes", "1 hour and 30 minutes", 90},
		{"of n hours phrasing", "a session of 2 hours", 120},
		{"half an hour", "call for half an hour", 30},
		{"an hour", "coffee for an hour", 60},
		{"range same meridiem", "from 2pm to 4pm", 120},
		{"range inferred meridiem", "from 2 to 3:30pm", 90},
		{"range across noon", "from 11 to 1pm", 120},
		{"range 24 hour", "from 9:30 to 11", 90},
		{"backwards range uses default", "from 5 to 3", 60},
		{"empty", "", 60},
		{"no duration", "gym at 6pm", 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractDuration(tt.input))
		})
	}
}

func TestFindDurationReportsPresence(t *testing.T) {
	minutes, ok := FindDuration("make it 90 minutes")
	assert.True(t, ok)
	assert.Equal(t, 90, minutes)

	minutes, ok = FindDuration("coffee for an hour")
	assert.True(t, ok)
	assert.Equal(t, 60, minutes)

	_, ok = FindDuration("move gym to 7pm")
	assert.False(t, ok)
}

func TestExtract(t *testing.T) {
	slots := Extract("add a meeting named PwC at 11 am today for 30 minutes", refNow)

	assert.Equal(t, "2026-10-19", slots.Date)
	assert.Equal(t, "11:00", slots.Time)
	assert.Equal(t, 30, slots.DurationMinutes)
}

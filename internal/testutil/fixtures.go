package testutil

import (
	"time"

	"github.com/omriShneor/calpal/internal/calendar"
)

// RefNow is the reference instant used across tests: Monday 2026-10-19 10:00 UTC.
var RefNow = time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)

// EventBuilder builds test calendar events
type EventBuilder struct {
	id       string
	title    string
	start    time.Time
	duration time.Duration
}

// NewEventBuilder creates a new event builder with defaults
func NewEventBuilder() *EventBuilder {
	return &EventBuilder{
		title:    "Test Event",
		start:    RefNow.Add(2 * time.Hour),
		duration: time.Hour,
	}
}

// WithID sets the event ID
func (b *EventBuilder) WithID(id string) *EventBuilder {
	b.id = id
	return b
}

// WithTitle sets the title
func (b *EventBuilder) WithTitle(title string) *EventBuilder {
	b.title = title
	return b
}

// At sets the start time
func (b *EventBuilder) At(start time.Time) *EventBuilder {
	b.start = start
	return b
}

// OnDay places the event daysFromRef days after RefNow at hour:minute
func (b *EventBuilder) OnDay(daysFromRef, hour, minute int) *EventBuilder {
	d := RefNow.AddDate(0, 0, daysFromRef)
	b.start = time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, d.Location())
	return b
}

// Lasting sets the duration
func (b *EventBuilder) Lasting(d time.Duration) *EventBuilder {
	b.duration = d
	return b
}

// Build returns the event
func (b *EventBuilder) Build() calendar.Event {
	return calendar.Event{
		ID:    b.id,
		Title: b.title,
		Start: b.start,
		End:   b.start.Add(b.duration),
	}
}

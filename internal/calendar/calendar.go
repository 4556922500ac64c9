// Package calendar defines the calendar capability the assistant drives and the
// event shape it reads back. Implementations live elsewhere (see internal/gcal).
package calendar

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrEventNotFound is returned when an event id no longer resolves.
	ErrEventNotFound = errors.New("calendar event not found")
	// ErrNotConnected is returned by a Provider for users without calendar credentials.
	ErrNotConnected = errors.New("calendar not connected")
)

// Event is a timed calendar entry. All-day entries are never surfaced.
type Event struct {
	ID    string    `json:"id"`
	Title string    `json:"title"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration returns the event length.
func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// EventInput describes a new event.
type EventInput struct {
	Title    string
	Start    time.Time
	End      time.Time
	TimeZone string
}

// EventPatch carries the fields of an update. Nil fields are left unchanged.
type EventPatch struct {
	Title *string
	Start *time.Time
	End   *time.Time
}

// ListQuery bounds a listing by start time. TimeMax is optional.
type ListQuery struct {
	MaxResults int
	TimeMin    time.Time
	TimeMax    *time.Time
}

// Service is the remote calendar capability for a single user.
// ListEvents returns events ordered by start time ascending.
type Service interface {
	InsertEvent(ctx context.Context, in EventInput) (*Event, error)
	GetEvent(ctx context.Context, id string) (*Event, error)
	ListEvents(ctx context.Context, q ListQuery) ([]Event, error)
	UpdateEvent(ctx context.Context, id string, patch EventPatch) (*Event, error)
	DeleteEvent(ctx context.Context, id string) error
}

// Provider builds a calendar Service for a user from their stored credentials.
type Provider interface {
	ForUser(ctx context.Context, userID string) (Service, error)
}

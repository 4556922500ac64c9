package gcal

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const primaryCalendar = "primary"

// Client wraps the Google Calendar API for one user's primary calendar and
// implements calendar.Service
type Client struct {
	service    *calendar.Service
	calendarID string
	loc        *time.Location
}

// NewClient creates a calendar client. Event times are reported in loc.
// opts must carry the user's credentials, typically option.WithHTTPClient.
func NewClient(ctx context.Context, loc *time.Location, opts ...option.ClientOption) (*Client, error) {
	service, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	if loc == nil {
		loc = time.UTC
	}

	return &Client{
		service:    service,
		calendarID: primaryCalendar,
		loc:        loc,
	}, nil
}

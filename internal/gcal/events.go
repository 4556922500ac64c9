package gcal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gcalendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"

	"github.com/omriShneor/calpal/internal/calendar"
)

// IsEventNotFound returns true when a Google Calendar event no longer exists.
func IsEventNotFound(err error) bool {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return gErr.Code == http.StatusNotFound || gErr.Code == http.StatusGone
	}
	return errors.Is(err, calendar.ErrEventNotFound)
}

// errAllDay marks entries with a date instead of a datetime
var errAllDay = errors.New("all-day event")

func (c *Client) toEvent(item *gcalendar.Event) (calendar.Event, error) {
	if item == nil || item.Start == nil || item.End == nil {
		return calendar.Event{}, fmt.Errorf("event is missing start or end")
	}
	if item.Start.Date != "" {
		return calendar.Event{}, errAllDay
	}
	if item.Start.DateTime == "" || item.End.DateTime == "" {
		return calendar.Event{}, fmt.Errorf("event datetime is missing")
	}

	start, err := time.Parse(time.RFC3339, item.Start.DateTime)
	if err != nil {
		return calendar.Event{}, fmt.Errorf("failed to parse start datetime: %w", err)
	}
	end, err := time.Parse(time.RFC3339, item.End.DateTime)
	if err != nil {
		return calendar.Event{}, fmt.Errorf("failed to parse end datetime: %w", err)
	}

	return calendar.Event{
		ID:    item.Id,
		Title: item.Summary,
		Start: start.In(c.loc),
		End:   end.In(c.loc),
	}, nil
}

func eventDateTime(t time.Time, tz string) *gcalendar.EventDateTime {
	// RFC3339 carries the offset; the zone name keeps recurring edits in the user's zone
	return &gcalendar.EventDateTime{DateTime: t.Format(time.RFC3339), TimeZone: tz}
}

// InsertEvent creates a timed event
func (c *Client) InsertEvent(ctx context.Context, in calendar.EventInput) (*calendar.Event, error) {
	item := &gcalendar.Event{
		Summary: in.Title,
		Start:   eventDateTime(in.Start, in.TimeZone),
		End:     eventDateTime(in.End, in.TimeZone),
	}

	created, err := c.service.Events.Insert(c.calendarID, item).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	ev, err := c.toEvent(created)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created event: %w", err)
	}
	return &ev, nil
}

// GetEvent retrieves a single event. Cancelled and missing events yield
// calendar.ErrEventNotFound.
func (c *Client) GetEvent(ctx context.Context, id string) (*calendar.Event, error) {
	if id == "" {
		return nil, fmt.Errorf("event id is required")
	}

	item, err := c.service.Events.Get(c.calendarID, id).Context(ctx).Do()
	if err != nil {
		if IsEventNotFound(err) {
			return nil, calendar.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if item.Status == "cancelled" {
		return nil, calendar.ErrEventNotFound
	}

	ev, err := c.toEvent(item)
	if err != nil {
		return nil, fmt.Errorf("failed to parse event times: %w", err)
	}
	return &ev, nil
}

// ListEvents returns timed events overlapping the query window, ordered by start.
// Recurring events are expanded into their instances; all-day entries are skipped.
func (c *Client) ListEvents(ctx context.Context, q calendar.ListQuery) ([]calendar.Event, error) {
	if q.TimeMax != nil && q.TimeMax.Before(q.TimeMin) {
		return nil, fmt.Errorf("invalid range: time_max is before time_min")
	}

	call := c.service.Events.List(c.calendarID).
		TimeMin(q.TimeMin.Format(time.RFC3339)).
		SingleEvents(true).
		ShowDeleted(false).
		OrderBy("startTime").
		Context(ctx)
	if q.TimeMax != nil {
		call = call.TimeMax(q.TimeMax.Format(time.RFC3339))
	}
	if q.MaxResults > 0 {
		call = call.MaxResults(int64(q.MaxResults))
	}

	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	events := make([]calendar.Event, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item == nil || item.Status == "cancelled" {
			continue
		}
		ev, err := c.toEvent(item)
		if err != nil {
			// All-day and malformed entries never reach the chat
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// UpdateEvent patches the given fields, leaving the rest of the event untouched
func (c *Client) UpdateEvent(ctx context.Context, id string, patch calendar.EventPatch) (*calendar.Event, error) {
	item := &gcalendar.Event{}
	if patch.Title != nil {
		item.Summary = *patch.Title
	}
	if patch.Start != nil {
		item.Start = eventDateTime(*patch.Start, "")
	}
	if patch.End != nil {
		item.End = eventDateTime(*patch.End, "")
	}

	updated, err := c.service.Events.Patch(c.calendarID, id, item).Context(ctx).Do()
	if err != nil {
		if IsEventNotFound(err) {
			return nil, calendar.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to update event: %w", err)
	}

	ev, err := c.toEvent(updated)
	if err != nil {
		return nil, fmt.Errorf("failed to parse updated event: %w", err)
	}
	return &ev, nil
}

// DeleteEvent deletes an event from Google Calendar
func (c *Client) DeleteEvent(ctx context.Context, id string) error {
	err := c.service.Events.Delete(c.calendarID, id).Context(ctx).Do()
	if err != nil {
		if IsEventNotFound(err) {
			return calendar.ErrEventNotFound
		}
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return nil
}

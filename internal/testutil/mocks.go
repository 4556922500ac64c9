package testutil

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/omriShneor/calpal/internal/calendar"
)

// FakeCalendar is an in-memory calendar.Service for tests
type FakeCalendar struct {
	mu     sync.Mutex
	events []calendar.Event
	nextID int

	// Err, when set, is returned by every call
	Err error

	Calls []string
}

// NewFakeCalendar creates a fake calendar holding events
func NewFakeCalendar(events ...calendar.Event) *FakeCalendar {
	f := &FakeCalendar{}
	for _, e := range events {
		f.AddEvent(e)
	}
	return f
}

// AddEvent adds an event, assigning an ID when it has none
func (f *FakeCalendar) AddEvent(e calendar.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e.ID == "" {
		f.nextID++
		e.ID = fmt.Sprintf("evt-%d", f.nextID)
	}
	f.events = append(f.events, e)
}

// Events returns a snapshot of the stored events
func (f *FakeCalendar) Events() []calendar.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]calendar.Event{}, f.events...)
}

// CallCount returns how many calls were made to the given operation
func (f *FakeCalendar) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if c == op {
			n++
		}
	}
	return n
}

func (f *FakeCalendar) record(op string) error {
	f.Calls = append(f.Calls, op)
	return f.Err
}

func (f *FakeCalendar) InsertEvent(_ context.Context, in calendar.EventInput) (*calendar.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("insert"); err != nil {
		return nil, err
	}
	f.nextID++
	e := calendar.Event{ID: fmt.Sprintf("evt-%d", f.nextID), Title: in.Title, Start: in.Start, End: in.End}
	f.events = append(f.events, e)
	return &e, nil
}

func (f *FakeCalendar) GetEvent(_ context.Context, id string) (*calendar.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("get"); err != nil {
		return nil, err
	}
	for _, e := range f.events {
		if e.ID == id {
			found := e
			return &found, nil
		}
	}
	return nil, calendar.ErrEventNotFound
}

func (f *FakeCalendar) ListEvents(_ context.Context, q calendar.ListQuery) ([]calendar.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("list"); err != nil {
		return nil, err
	}

	var out []calendar.Event
	for _, e := range f.events {
		// An event still running at TimeMin is included, matching the Google API.
		if e.End.Before(q.TimeMin) || e.End.Equal(q.TimeMin) {
			continue
		}
		if q.TimeMax != nil && !e.Start.Before(*q.TimeMax) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	if q.MaxResults > 0 && len(out) > q.MaxResults {
		out = out[:q.MaxResults]
	}
	return out, nil
}

func (f *FakeCalendar) UpdateEvent(_ context.Context, id string, patch calendar.EventPatch) (*calendar.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("update"); err != nil {
		return nil, err
	}
	for i := range f.events {
		if f.events[i].ID != id {
			continue
		}
		if patch.Title != nil {
			f.events[i].Title = *patch.Title
		}
		if patch.Start != nil {
			f.events[i].Start = *patch.Start
		}
		if patch.End != nil {
			f.events[i].End = *patch.End
		}
		updated := f.events[i]
		return &updated, nil
	}
	return nil, calendar.ErrEventNotFound
}

func (f *FakeCalendar) DeleteEvent(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("delete"); err != nil {
		return err
	}
	for i, e := range f.events {
		if e.ID == id {
			f.events = append(f.events[:i], f.events[i+1:]...)
			return nil
		}
	}
	return calendar.ErrEventNotFound
}

// FakeProvider hands out calendars by user ID
type FakeProvider struct {
	mu        sync.Mutex
	calendars map[string]*FakeCalendar
}

// NewFakeProvider creates an empty provider
func NewFakeProvider() *FakeProvider {
	return &FakeProvider{calendars: make(map[string]*FakeCalendar)}
}

// Set registers the calendar for a user
func (p *FakeProvider) Set(userID string, cal *FakeCalendar) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calendars[userID] = cal
}

func (p *FakeProvider) ForUser(_ context.Context, userID string) (calendar.Service, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cal, ok := p.calendars[userID]
	if !ok {
		return nil, calendar.ErrNotConnected
	}
	return cal, nil
}

// FailingCompleter is a text-completion capability that always fails
type FailingCompleter struct{}

func (FailingCompleter) Complete(context.Context, string) (string, error) {
	return "", errors.New("completion unavailable")
}

// StaticCompleter always replies with Reply
type StaticCompleter struct {
	Reply string
}

func (c StaticCompleter) Complete(context.Context, string) (string, error) {
	return c.Reply, nil
}

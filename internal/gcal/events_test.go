package gcal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gcalendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/omriShneor/calpal/internal/calendar"
)

const eventsPath = "/calendar/v3/calendars/primary/events"

// fakeAPI is a minimal stand-in for the Calendar v3 events endpoints
type fakeAPI struct {
	mu        sync.Mutex
	events    map[string]*gcalendar.Event
	next      int
	lastQuery url.Values
	authz     string
	fail      bool
}

func newFakeAPI(t *testing.T, events ...*gcalendar.Event) (*fakeAPI, *httptest.Server) {
	t.Helper()
	f := &fakeAPI{events: make(map[string]*gcalendar.Event)}
	for _, e := range events {
		f.events[e.Id] = e
	}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	return f, srv
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func notFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]any{"error": map[string]any{"code": 404, "message": "Not Found"}})
}

func (f *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.authz = r.Header.Get("Authorization")
	if f.fail {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": map[string]any{"code": 500, "message": "backend error"}})
		return
	}
	if !strings.HasPrefix(r.URL.Path, eventsPath) {
		notFound(w)
		return
	}
	id := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, eventsPath), "/")

	switch {
	case r.Method == http.MethodPost && id == "":
		var ev gcalendar.Event
		json.NewDecoder(r.Body).Decode(&ev)
		f.next++
		ev.Id = fmt.Sprintf("g%d", f.next)
		f.events[ev.Id] = &ev
		writeJSON(w, http.StatusOK, ev)

	case r.Method == http.MethodGet && id == "":
		f.lastQuery = r.URL.Query()
		items := make([]*gcalendar.Event, 0, len(f.events))
		for _, e := range f.events {
			items = append(items, e)
		}
		sort.Slice(items, func(i, j int) bool { return sortKey(items[i]) < sortKey(items[j]) })
		writeJSON(w, http.StatusOK, gcalendar.Events{Items: items})

	case r.Method == http.MethodGet:
		ev, ok := f.events[id]
		if !ok {
			notFound(w)
			return
		}
		writeJSON(w, http.StatusOK, ev)

	case r.Method == http.MethodPatch:
		ev, ok := f.events[id]
		if !ok {
			notFound(w)
			return
		}
		var patch gcalendar.Event
		json.NewDecoder(r.Body).Decode(&patch)
		if patch.Summary != "" {
			ev.Summary = patch.Summary
		}
		if patch.Start != nil {
			ev.Start = patch.Start
		}
		if patch.End != nil {
			ev.End = patch.End
		}
		writeJSON(w, http.StatusOK, ev)

	case r.Method == http.MethodDelete:
		if _, ok := f.events[id]; !ok {
			notFound(w)
			return
		}
		delete(f.events, id)
		w.WriteHeader(http.StatusNoContent)

	default:
		notFound(w)
	}
}

func sortKey(e *gcalendar.Event) string {
	if e.Start == nil {
		return ""
	}
	if e.Start.DateTime != "" {
		return e.Start.DateTime
	}
	return e.Start.Date
}

func timed(id, title, start, end string) *gcalendar.Event {
	return &gcalendar.Event{
		Id:      id,
		Summary: title,
		Start:   &gcalendar.EventDateTime{DateTime: start},
		End:     &gcalendar.EventDateTime{DateTime: end},
	}
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(context.Background(), time.UTC,
		option.WithEndpoint(srv.URL+"/calendar/v3/"),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	return c
}

func TestInsertEvent(t *testing.T) {
	api, srv := newFakeAPI(t)
	c := newTestClient(t, srv)

	start := time.Date(2026, 10, 20, 18, 0, 0, 0, time.UTC)
	ev, err := c.InsertEvent(context.Background(), calendar.EventInput{
		Title:    "Gym",
		Start:    start,
		End:      start.Add(time.Hour),
		TimeZone: "UTC",
	})
	require.NoError(t, err)
	assert.Equal(t, "g1", ev.ID)
	assert.Equal(t, "Gym", ev.Title)
	assert.True(t, start.Equal(ev.Start))
	assert.Equal(t, time.Hour, ev.Duration())

	stored := api.events["g1"]
	require.NotNil(t, stored)
	assert.Equal(t, "2026-10-20T18:00:00Z", stored.Start.DateTime)
	assert.Equal(t, "UTC", stored.Start.TimeZone)
}

func TestListEvents(t *testing.T) {
	api, srv := newFakeAPI(t,
		timed("b", "Standup", "2026-10-20T09:30:00Z", "2026-10-20T10:00:00Z"),
		timed("a", "Gym", "2026-10-19T18:00:00Z", "2026-10-19T19:00:00Z"),
		&gcalendar.Event{Id: "c", Summary: "Holiday", Start: &gcalendar.EventDateTime{Date: "2026-10-21"}, End: &gcalendar.EventDateTime{Date: "2026-10-22"}},
		&gcalendar.Event{Id: "d", Summary: "Cancelled", Status: "cancelled", Start: &gcalendar.EventDateTime{DateTime: "2026-10-20T08:00:00Z"}, End: &gcalendar.EventDateTime{DateTime: "2026-10-20T09:00:00Z"}},
	)
	c := newTestClient(t, srv)

	from := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	until := from.AddDate(0, 0, 30)
	events, err := c.ListEvents(context.Background(), calendar.ListQuery{MaxResults: 10, TimeMin: from, TimeMax: &until})
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, "Gym", events[0].Title)
	assert.Equal(t, "Standup", events[1].Title)

	assert.Equal(t, "true", api.lastQuery.Get("singleEvents"))
	assert.Equal(t, "startTime", api.lastQuery.Get("orderBy"))
	assert.Equal(t, "10", api.lastQuery.Get("maxResults"))
	assert.Equal(t, "2026-10-19T10:00:00Z", api.lastQuery.Get("timeMin"))
	assert.Equal(t, "2026-11-18T10:00:00Z", api.lastQuery.Get("timeMax"))

	t.Run("open ended", func(t *testing.T) {
		_, err := c.ListEvents(context.Background(), calendar.ListQuery{TimeMin: from})
		require.NoError(t, err)
		assert.Empty(t, api.lastQuery.Get("timeMax"))
		assert.Empty(t, api.lastQuery.Get("maxResults"))
	})

	t.Run("inverted range", func(t *testing.T) {
		before := from.Add(-time.Hour)
		_, err := c.ListEvents(context.Background(), calendar.ListQuery{TimeMin: from, TimeMax: &before})
		assert.Error(t, err)
	})
}

func TestUpdateEventPatchesTimes(t *testing.T) {
	api, srv := newFakeAPI(t, timed("a", "Gym", "2026-10-19T18:00:00Z", "2026-10-19T19:30:00Z"))
	c := newTestClient(t, srv)

	start := time.Date(2026, 10, 19, 19, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Minute)
	ev, err := c.UpdateEvent(context.Background(), "a", calendar.EventPatch{Start: &start, End: &end})
	require.NoError(t, err)

	assert.Equal(t, "Gym", ev.Title)
	assert.True(t, start.Equal(ev.Start))
	assert.Equal(t, "2026-10-19T20:30:00Z", api.events["a"].End.DateTime)
}

func TestNotFoundMapping(t *testing.T) {
	_, srv := newFakeAPI(t, &gcalendar.Event{
		Id: "gone", Status: "cancelled",
		Start: &gcalendar.EventDateTime{DateTime: "2026-10-19T18:00:00Z"},
		End:   &gcalendar.EventDateTime{DateTime: "2026-10-19T19:00:00Z"},
	})
	c := newTestClient(t, srv)
	ctx := context.Background()
	now := time.Now()

	tests := []struct {
		name string
		call func() error
	}{
		{"get missing", func() error { _, err := c.GetEvent(ctx, "nope"); return err }},
		{"get cancelled", func() error { _, err := c.GetEvent(ctx, "gone"); return err }},
		{"update missing", func() error { _, err := c.UpdateEvent(ctx, "nope", calendar.EventPatch{Start: &now}); return err }},
		{"delete missing", func() error { return c.DeleteEvent(ctx, "nope") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.call(), calendar.ErrEventNotFound)
		})
	}
}

func TestGetAndDeleteEvent(t *testing.T) {
	api, srv := newFakeAPI(t, timed("a", "Dentist", "2026-10-21T11:00:00+05:30", "2026-10-21T12:00:00+05:30"))
	c := newTestClient(t, srv)
	ctx := context.Background()

	ev, err := c.GetEvent(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Dentist", ev.Title)
	assert.Equal(t, time.UTC, ev.Start.Location())
	assert.Equal(t, 5, ev.Start.Hour())
	assert.Equal(t, 30, ev.Start.Minute())

	require.NoError(t, c.DeleteEvent(ctx, "a"))
	assert.Empty(t, api.events)
}

func TestServerErrorIsWrapped(t *testing.T) {
	api, srv := newFakeAPI(t)
	api.fail = true
	c := newTestClient(t, srv)

	_, err := c.ListEvents(context.Background(), calendar.ListQuery{TimeMin: time.Now()})
	require.Error(t, err)
	assert.NotErrorIs(t, err, calendar.ErrEventNotFound)
	assert.Contains(t, err.Error(), "failed to list events")
}

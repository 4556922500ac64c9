// Package executor carries out canonical commands against a user's calendar and
// builds the reply shown in the chat.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/omriShneor/calpal/internal/calendar"
	"github.com/omriShneor/calpal/internal/command"
	"github.com/omriShneor/calpal/internal/intent"
	"github.com/omriShneor/calpal/internal/matcher"
	"github.com/omriShneor/calpal/internal/metrics"
	"github.com/omriShneor/calpal/internal/timeutil"
)

// TransientFailureMessage is shown whenever the calendar itself fails.
const TransientFailureMessage = "Sorry, I couldn't reach your calendar right now. Please try again in a moment."

const (
	DefaultListMaxResults   = 10
	DefaultSearchMaxResults = 50
	DefaultSearchWindowDays = 30
	DefaultCallTimeout      = 10 * time.Second
)

// Outcome is the result of executing a command.
type Outcome struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Event   *calendar.Event  `json:"event,omitempty"`
	Events  []calendar.Event `json:"events,omitempty"`
}

// Config configures an Executor.
type Config struct {
	ListMaxResults   int
	SearchMaxResults int
	SearchWindowDays int
	CallTimeout      time.Duration
}

// Executor dispatches commands to a calendar.Service.
type Executor struct {
	resolver *matcher.Resolver
	clock    timeutil.Clock
	cfg      Config
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// New creates an executor.
func New(resolver *matcher.Resolver, clock timeutil.Clock, cfg Config, logger *slog.Logger, m *metrics.Metrics) *Executor {
	if cfg.ListMaxResults <= 0 {
		cfg.ListMaxResults = DefaultListMaxResults
	}
	if cfg.SearchMaxResults <= 0 {
		cfg.SearchMaxResults = DefaultSearchMaxResults
	}
	if cfg.SearchWindowDays <= 0 {
		cfg.SearchWindowDays = DefaultSearchWindowDays
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{resolver: resolver, clock: clock, cfg: cfg, logger: logger, metrics: m}
}

// Execute runs cmd. Every path yields a well-formed outcome; calendar errors are
// logged and replaced by TransientFailureMessage.
func (e *Executor) Execute(ctx context.Context, cmd command.ParsedCommand, svc calendar.Service) Outcome {
	if cmd.Status != command.StatusReady {
		msg := cmd.Response
		if msg == "" {
			msg = command.HelpText
		}
		return Outcome{Success: false, Message: msg}
	}

	switch cmd.Action {
	case intent.ActionCreate:
		return e.create(ctx, cmd, svc)
	case intent.ActionList:
		return e.list(ctx, cmd, svc)
	case intent.ActionUpdate:
		return e.update(ctx, cmd, svc)
	case intent.ActionDelete:
		return e.delete(ctx, cmd, svc)
	default:
		return Outcome{Success: false, Message: command.HelpText}
	}
}

func (e *Executor) create(ctx context.Context, cmd command.ParsedCommand, svc calendar.Service) Outcome {
	if cmd.Time == "" {
		return Outcome{Success: false, Message: fmt.Sprintf("What time should I schedule %q?", cmd.Title)}
	}

	now := e.clock.Now()
	day, err := timeutil.ResolveDate(cmd.Date, now)
	if err != nil {
		return Outcome{Success: false, Message: fmt.Sprintf("I couldn't understand the date %q.", cmd.Date)}
	}
	hour, minute, err := timeutil.ParseClock(cmd.Time)
	if err != nil {
		return Outcome{Success: false, Message: fmt.Sprintf("I couldn't understand the time %q.", cmd.Time)}
	}

	duration := cmd.DurationMinutes
	if duration <= 0 {
		duration = 60
	}
	start := timeutil.Combine(day, hour, minute)
	in := calendar.EventInput{
		Title:    cmd.Title,
		Start:    start,
		End:      start.Add(time.Duration(duration) * time.Minute),
		TimeZone: now.Location().String(),
	}

	var created *calendar.Event
	err = e.call(ctx, "insert", func(ctx context.Context) error {
		var err error
		created, err = svc.InsertEvent(ctx, in)
		return err
	})
	if err != nil {
		return Outcome{Success: false, Message: TransientFailureMessage}
	}

	return Outcome{
		Success: true,
		Message: fmt.Sprintf("✅ Created event: %s (%s)", created.Title, timeutil.RelativeLabel(created.Start, now)),
		Event:   created,
	}
}

func (e *Executor) list(ctx context.Context, cmd command.ParsedCommand, svc calendar.Service) Outcome {
	now := e.clock.Now()
	q := calendar.ListQuery{MaxResults: e.cfg.ListMaxResults, TimeMin: now}

	var day *time.Time
	if cmd.Date != "" {
		d, err := timeutil.ResolveDate(cmd.Date, now)
		if err != nil {
			return Outcome{Success: false, Message: fmt.Sprintf("I couldn't understand the date %q.", cmd.Date)}
		}
		end := d.AddDate(0, 0, 1)
		if d.After(now) {
			q.TimeMin = d
		}
		q.TimeMax = &end
		day = &d
	}

	var events []calendar.Event
	err := e.call(ctx, "list", func(ctx context.Context) error {
		var err error
		events, err = svc.ListEvents(ctx, q)
		return err
	})
	if err != nil {
		return Outcome{Success: false, Message: TransientFailureMessage}
	}

	if len(events) == 0 {
		if day != nil {
			return Outcome{Success: true, Message: fmt.Sprintf("You have no upcoming events on %s.", day.Format("Mon, Jan 02"))}
		}
		return Outcome{Success: true, Message: "You have no upcoming events."}
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("📅 Found %d upcoming events:", len(events)))
	for i, ev := range events {
		b.WriteString(fmt.Sprintf("\n%d. %s - %s", i+1, ev.Title, timeutil.RelativeLabel(ev.Start, now)))
	}
	return Outcome{Success: true, Message: b.String(), Events: events}
}

func (e *Executor) update(ctx context.Context, cmd command.ParsedCommand, svc calendar.Service) Outcome {
	if cmd.Title == "" {
		return Outcome{Success: false, Message: "Which event would you like to update?"}
	}
	now := e.clock.Now()

	match, outcome, ok := e.resolve(ctx, cmd, svc, now)
	if !ok {
		return outcome
	}

	// Patch from the event as it is now; the search results may be stale.
	var target *calendar.Event
	err := e.call(ctx, "get", func(ctx context.Context) error {
		var err error
		target, err = svc.GetEvent(ctx, match.ID)
		return err
	})
	if errors.Is(err, calendar.ErrEventNotFound) {
		return notFound(cmd.Title)
	}
	if err != nil {
		return Outcome{Success: false, Message: TransientFailureMessage}
	}

	start := target.Start.In(now.Location())
	day := timeutil.StartOfDay(start)
	if cmd.NewDate != "" {
		d, err := timeutil.ResolveDate(cmd.NewDate, now)
		if err != nil {
			return Outcome{Success: false, Message: fmt.Sprintf("I couldn't understand the date %q.", cmd.NewDate)}
		}
		day = d
	}
	hour, minute := start.Hour(), start.Minute()
	if cmd.NewTime != "" {
		h, m, err := timeutil.ParseClock(cmd.NewTime)
		if err != nil {
			return Outcome{Success: false, Message: fmt.Sprintf("I couldn't understand the time %q.", cmd.NewTime)}
		}
		hour, minute = h, m
	}

	duration := target.Duration()
	if cmd.DurationMinutes > 0 {
		duration = time.Duration(cmd.DurationMinutes) * time.Minute
	}
	newStart := timeutil.Combine(day, hour, minute)
	newEnd := newStart.Add(duration)

	var updated *calendar.Event
	err = e.call(ctx, "update", func(ctx context.Context) error {
		var err error
		updated, err = svc.UpdateEvent(ctx, target.ID, calendar.EventPatch{Start: &newStart, End: &newEnd})
		return err
	})
	if errors.Is(err, calendar.ErrEventNotFound) {
		return notFound(cmd.Title)
	}
	if err != nil {
		return Outcome{Success: false, Message: TransientFailureMessage}
	}

	return Outcome{
		Success: true,
		Message: fmt.Sprintf("✅ Updated event: %s (%s)", updated.Title, timeutil.RelativeLabel(updated.Start, now)),
		Event:   updated,
	}
}

func (e *Executor) delete(ctx context.Context, cmd command.ParsedCommand, svc calendar.Service) Outcome {
	if cmd.Title == "" {
		return Outcome{Success: false, Message: "Which event would you like to delete?"}
	}
	now := e.clock.Now()

	target, outcome, ok := e.resolve(ctx, cmd, svc, now)
	if !ok {
		return outcome
	}

	err := e.call(ctx, "delete", func(ctx context.Context) error {
		return svc.DeleteEvent(ctx, target.ID)
	})
	if errors.Is(err, calendar.ErrEventNotFound) {
		return notFound(cmd.Title)
	}
	if err != nil {
		return Outcome{Success: false, Message: TransientFailureMessage}
	}

	return Outcome{
		Success: true,
		Message: fmt.Sprintf("🗑️ Deleted event: %s", target.Title),
		Event:   &target,
	}
}

// resolve finds the event cmd.Title refers to. The search starts at the beginning
// of today so events already under way can still be changed.
func (e *Executor) resolve(ctx context.Context, cmd command.ParsedCommand, svc calendar.Service, now time.Time) (calendar.Event, Outcome, bool) {
	from := timeutil.StartOfDay(now)
	until := from.AddDate(0, 0, e.cfg.SearchWindowDays)

	var filter *time.Time
	if cmd.Date != "" && cmd.Date != "today" {
		if d, err := timeutil.ResolveDate(cmd.Date, now); err == nil {
			filter = &d
			if !d.Before(until) {
				until = d.AddDate(0, 0, 1)
			}
		}
	}

	var events []calendar.Event
	err := e.call(ctx, "list", func(ctx context.Context) error {
		var err error
		events, err = svc.ListEvents(ctx, calendar.ListQuery{
			MaxResults: e.cfg.SearchMaxResults,
			TimeMin:    from,
			TimeMax:    &until,
		})
		return err
	})
	if err != nil {
		return calendar.Event{}, Outcome{Success: false, Message: TransientFailureMessage}, false
	}

	match, ok := e.resolver.Resolve(cmd.Title, events, filter)
	if !ok && filter != nil {
		match, ok = e.resolver.Resolve(cmd.Title, events, nil)
	}
	if !ok {
		e.logger.Info("event resolution miss", "title", cmd.Title, "candidates", len(events))
		e.metrics.RecordResolutionMiss()
		return calendar.Event{}, notFound(cmd.Title), false
	}
	return match.Event, Outcome{}, true
}

func notFound(title string) Outcome {
	return Outcome{
		Success: false,
		Message: fmt.Sprintf("❌ Could not find event: %s. Try \"show my events\" to see what's scheduled.", title),
	}
}

// call runs one calendar operation under the configured timeout.
func (e *Executor) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	e.metrics.RecordCalendarCall(op, time.Since(start), err)
	if err != nil && !errors.Is(err, calendar.ErrEventNotFound) {
		e.logger.Error("calendar call failed", "operation", op, "error", err)
	}
	return err
}

// Package assistant is the single entry point of the chat pipeline: it takes a
// user's message and returns the reply, keeping the conversation record in step.
package assistant

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/omriShneor/calpal/internal/auth"
	"github.com/omriShneor/calpal/internal/calendar"
	"github.com/omriShneor/calpal/internal/command"
	"github.com/omriShneor/calpal/internal/conversation"
	"github.com/omriShneor/calpal/internal/executor"
	"github.com/omriShneor/calpal/internal/metrics"
	"github.com/omriShneor/calpal/internal/timeutil"
)

const (
	msgEmpty        = "Please type a message."
	msgNoUser       = "A user ID is required."
	msgNotConnected = "Please connect your Google Calendar first."
	msgInternal     = "Sorry, something went wrong. Please try again."
)

// Request is one chat message.
type Request struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// Response is the reply to a chat message.
type Response struct {
	Success            bool                   `json:"success"`
	Message            string                 `json:"message"`
	Event              *calendar.Event        `json:"event,omitempty"`
	Events             []calendar.Event       `json:"events,omitempty"`
	NeedsClarification bool                   `json:"needs_clarification,omitempty"`
	Missing            []string               `json:"missing,omitempty"`
	Command            *command.ParsedCommand `json:"command,omitempty"`
}

// Service wires the parser, executor and conversation memory together.
type Service struct {
	parser        *command.Parser
	executor      *executor.Executor
	conversations *conversation.Manager
	calendars     calendar.Provider
	clock         timeutil.Clock
	logger        *slog.Logger
	metrics       *metrics.Metrics
}

// Deps are the collaborators of a Service.
type Deps struct {
	Parser        *command.Parser
	Executor      *executor.Executor
	Conversations *conversation.Manager
	Calendars     calendar.Provider
	Clock         timeutil.Clock
	Logger        *slog.Logger
	Metrics       *metrics.Metrics
}

// New creates a service.
func New(d Deps) *Service {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := d.Clock
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	return &Service{
		parser:        d.Parser,
		executor:      d.Executor,
		conversations: d.Conversations,
		calendars:     d.Calendars,
		clock:         clock,
		logger:        logger,
		metrics:       d.Metrics,
	}
}

// HandleMessage runs the whole pipeline for one message. It never returns an
// error: every failure is turned into a reply. Messages from the same user are
// processed one at a time.
func (s *Service) HandleMessage(ctx context.Context, req Request) Response {
	text := strings.TrimSpace(req.Message)
	if req.UserID == "" {
		return Response{Success: false, Message: msgNoUser}
	}
	if text == "" {
		return Response{Success: false, Message: msgEmpty}
	}

	ctx = auth.WithUserID(ctx, req.UserID)
	logger := s.logger.With("user_id", req.UserID)

	var resp Response
	err := s.conversations.Update(ctx, req.UserID, func(rec *conversation.Record) error {
		history := append([]conversation.Turn(nil), rec.History...)
		rec.Append(conversation.Turn{Text: text, IsUser: true, Timestamp: s.clock.Now()}, s.conversations.HistorySize())

		cmd := s.parser.Parse(ctx, command.Utterance{
			Text:    text,
			History: history,
			Pending: rec.Pending,
		})
		resp = s.respond(ctx, logger, req.UserID, cmd, rec)
		s.metrics.RecordCommand(string(cmd.Action), string(cmd.Status))

		rec.Append(conversation.Turn{Text: resp.Message, IsUser: false, Timestamp: s.clock.Now()}, s.conversations.HistorySize())
		return nil
	})
	if err != nil {
		logger.Error("conversation update failed", "error", err)
		if resp.Message == "" {
			return Response{Success: false, Message: msgInternal}
		}
		// The calendar call already happened; the reply is still accurate.
		return resp
	}
	return resp
}

func (s *Service) respond(ctx context.Context, logger *slog.Logger, userID string, cmd command.ParsedCommand, rec *conversation.Record) Response {
	parsed := cmd

	switch cmd.Status {
	case command.StatusNeedsClarification:
		pending := cmd.Pending()
		if cmd.PartialData != nil {
			pending = *cmd.PartialData
		}
		rec.AwaitClarification(pending, cmd.Response)
		return Response{
			Success:            false,
			Message:            cmd.Response,
			NeedsClarification: true,
			Missing:            cmd.Missing,
			Command:            &parsed,
		}

	case command.StatusError:
		return Response{Success: false, Message: cmd.Response, Command: &parsed}
	}

	svc, err := s.calendars.ForUser(ctx, userID)
	if err != nil {
		if errors.Is(err, calendar.ErrNotConnected) {
			return Response{Success: false, Message: msgNotConnected, Command: &parsed}
		}
		logger.Error("failed to open calendar", "error", err)
		return Response{Success: false, Message: executor.TransientFailureMessage, Command: &parsed}
	}

	out := s.executor.Execute(ctx, cmd, svc)
	if out.Success {
		rec.Complete()
	}
	return Response{
		Success: out.Success,
		Message: out.Message,
		Event:   out.Event,
		Events:  out.Events,
		Command: &parsed,
	}
}

// History returns the stored turns for userID, oldest first.
func (s *Service) History(ctx context.Context, userID string) ([]conversation.Turn, error) {
	rec, err := s.conversations.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return rec.History, nil
}

// Package command turns a chat message into a canonical ParsedCommand and decides
// whether it can be executed or needs a follow-up question.
package command

import (
	"github.com/omriShneor/calpal/internal/conversation"
	"github.com/omriShneor/calpal/internal/intent"
)

// Status says whether a command can be executed.
type Status string

const (
	StatusReady              Status = "ready"
	StatusNeedsClarification Status = "needs_clarification"
	StatusError              Status = "error"
)

// Field names reported in ParsedCommand.Missing.
const (
	FieldAction  = "action"
	FieldTitle   = "title"
	FieldDate    = "date"
	FieldTime    = "time"
	FieldNewTime = "new_time"
)

// ParsedCommand is the canonical form every extraction path produces.
//
// Date and NewDate hold an ISO date or one of today, tomorrow or a weekday name.
// Time and NewTime are HH:MM. DurationMinutes defaults to 60 for create; for update
// it is zero unless the user asked for a new length.
type ParsedCommand struct {
	Action          intent.Action         `json:"action"`
	Title           string                `json:"title,omitempty"`
	Date            string                `json:"date,omitempty"`
	Time            string                `json:"time,omitempty"`
	NewDate         string                `json:"new_date,omitempty"`
	NewTime         string                `json:"new_time,omitempty"`
	DurationMinutes int                   `json:"duration_minutes,omitempty"`
	Status          Status                `json:"status"`
	Missing         []string              `json:"missing,omitempty"`
	Response        string                `json:"response,omitempty"`
	PartialData     *conversation.Pending `json:"partial_data,omitempty"`
}

// RawCommand is an unvalidated command. Nil means the field was not provided.
type RawCommand struct {
	Action          *string
	Title           *string
	Date            *string
	Time            *string
	NewDate         *string
	NewTime         *string
	DurationMinutes *int
	Status          *string
	Missing         []string
	Response        *string
}

// Raw converts c back into a RawCommand, so that Normalize can be re-applied.
func (c ParsedCommand) Raw() RawCommand {
	action := string(c.Action)
	status := string(c.Status)
	raw := RawCommand{
		Action:  &action,
		Status:  &status,
		Missing: append([]string(nil), c.Missing...),
	}
	raw.Title = optional(c.Title)
	raw.Date = optional(c.Date)
	raw.Time = optional(c.Time)
	raw.NewDate = optional(c.NewDate)
	raw.NewTime = optional(c.NewTime)
	raw.Response = optional(c.Response)
	if c.DurationMinutes > 0 {
		d := c.DurationMinutes
		raw.DurationMinutes = &d
	}
	return raw
}

// Pending returns the fields of c worth remembering for a follow-up turn.
func (c ParsedCommand) Pending() conversation.Pending {
	return conversation.Pending{
		Action:          string(c.Action),
		Title:           c.Title,
		Date:            c.Date,
		Time:            c.Time,
		NewDate:         c.NewDate,
		NewTime:         c.NewTime,
		DurationMinutes: c.DurationMinutes,
		Missing:         append([]string(nil), c.Missing...),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// String returns a pointer to s. Handy for building RawCommand literals.
func String(s string) *string {
	return &s
}

// Int returns a pointer to n.
func Int(n int) *int {
	return &n
}

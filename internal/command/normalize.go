package command

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/omriShneor/calpal/internal/intent"
	"github.com/omriShneor/calpal/internal/nlp"
)

var clockShapeRe = regexp.MustCompile(`^(\d{1,2}):(\d{1,2})$`)

// Normalize coerces raw into the canonical schema. It never fails: a command
// without a usable action comes back as needs_clarification.
func Normalize(raw RawCommand) ParsedCommand {
	cmd := ParsedCommand{
		Action:  intent.ActionUnknown,
		Status:  StatusReady,
		Missing: append([]string(nil), raw.Missing...),
	}

	if raw.Action != nil {
		if a, ok := intent.ParseAction(strings.ToLower(strings.TrimSpace(*raw.Action))); ok {
			cmd.Action = a
		}
	}
	if raw.Status != nil {
		switch s := Status(strings.TrimSpace(*raw.Status)); s {
		case StatusReady, StatusNeedsClarification, StatusError:
			cmd.Status = s
		}
	}

	cmd.Title = trimmed(raw.Title)
	cmd.Date = strings.ToLower(trimmed(raw.Date))
	cmd.NewDate = strings.ToLower(trimmed(raw.NewDate))
	cmd.Time = normalizeClock(trimmed(raw.Time))
	cmd.NewTime = normalizeClock(trimmed(raw.NewTime))
	cmd.Response = trimmed(raw.Response)

	if raw.DurationMinutes != nil && *raw.DurationMinutes > 0 {
		cmd.DurationMinutes = *raw.DurationMinutes
	}
	if cmd.Action == intent.ActionCreate && cmd.DurationMinutes == 0 {
		cmd.DurationMinutes = nlp.DefaultDurationMinutes
	}

	if cmd.Action == intent.ActionUnknown && cmd.Status == StatusReady {
		cmd.Status = StatusNeedsClarification
		cmd.Missing = appendMissing(cmd.Missing, FieldAction)
	}

	return cmd
}

// normalizeClock zero-pads an H:MM value. Anything else passes through unchanged.
func normalizeClock(v string) string {
	m := clockShapeRe.FindStringSubmatch(v)
	if m == nil {
		return v
	}
	h, _ := strconv.Atoi(m[1])
	mins, _ := strconv.Atoi(m[2])
	if h > 23 || mins > 59 {
		return v
	}
	return fmt.Sprintf("%02d:%02d", h, mins)
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func appendMissing(missing []string, field string) []string {
	for _, f := range missing {
		if f == field {
			return missing
		}
	}
	return append(missing, field)
}

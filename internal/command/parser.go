package command

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/omriShneor/calpal/internal/conversation"
	"github.com/omriShneor/calpal/internal/intent"
	"github.com/omriShneor/calpal/internal/nlp"
	"github.com/omriShneor/calpal/internal/timeutil"
)

// HelpText is the reply for messages that are not calendar requests.
const HelpText = `Sorry, I didn't understand that. Try something like "schedule gym tomorrow at 6pm", "move gym to 7pm", "delete gym" or "show my events".`

var (
	toRe        = regexp.MustCompile(`(?i)\s+to\s+`)
	leadDigitRe = regexp.MustCompile(`^\d`)
)

// Utterance is one incoming message with its conversation context.
type Utterance struct {
	Text    string
	History []conversation.Turn
	Pending *conversation.Pending
}

// Parser runs the extraction pipeline: classification, slot extraction, merging
// of pending fields, normalization and the clarification gate.
type Parser struct {
	classifier *intent.Classifier
	clock      timeutil.Clock
	logger     *slog.Logger
}

// NewParser creates a parser.
func NewParser(classifier *intent.Classifier, clock timeutil.Clock, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{classifier: classifier, clock: clock, logger: logger}
}

// Parse turns u into a canonical command. It never fails.
func (p *Parser) Parse(ctx context.Context, u Utterance) ParsedCommand {
	now := p.clock.Now()
	text := strings.TrimSpace(u.Text)

	cls := p.classifier.Classify(ctx, intent.Input{
		Text:    text,
		History: u.History,
		Pending: u.Pending,
		Now:     now,
	})

	action := cls.Action
	continued := false
	if u.Pending != nil && cls.Source == intent.SourceKeyword && !intent.HasKeyword(text) {
		// A bare answer to a follow-up question continues the pending request.
		if a, ok := intent.ParseAction(u.Pending.Action); ok {
			action = a
			continued = true
		}
	}

	slots := extractSlots(action, text, now)
	slots.override(cls.Slots, now)

	title := cls.Title
	if title == "" && cls.Source == intent.SourceLLM && action != intent.ActionList {
		title = nlp.ExtractTitle(text)
	}
	if title == nlp.DefaultTitle {
		title = ""
	}
	if continued && u.Pending.Title != "" {
		// Leftover words of an answer ("around 6pm") are not a new name.
		title = u.Pending.Title
		if explicit, ok := nlp.ExplicitTitle(text); ok {
			title = explicit
		}
	}

	if u.Pending != nil && u.Pending.Action == string(action) {
		slots.merge(u.Pending)
		if title == "" {
			title = u.Pending.Title
		}
	}
	if action == intent.ActionCreate && title == "" {
		title = nlp.DefaultTitle
	}

	actionStr := string(action)
	raw := RawCommand{
		Action:  &actionStr,
		Title:   optional(title),
		Date:    optional(slots.date),
		Time:    optional(slots.time),
		NewDate: optional(slots.newDate),
		NewTime: optional(slots.newTime),
	}
	if slots.duration > 0 {
		raw.DurationMinutes = Int(slots.duration)
	}

	cmd := Normalize(raw)
	gate(&cmd)

	p.logger.Debug("command parsed",
		"action", cmd.Action,
		"status", cmd.Status,
		"source", cls.Source,
		"title", cmd.Title,
		"date", cmd.Date,
		"time", cmd.Time,
	)
	if cmd.Status == StatusNeedsClarification {
		p.logger.Info("clarification requested", "action", cmd.Action, "missing", cmd.Missing)
	}
	return cmd
}

// gate decides whether cmd can run or needs a follow-up question.
func gate(cmd *ParsedCommand) {
	switch cmd.Action {
	case intent.ActionUnknown:
		cmd.Status = StatusError
		cmd.Response = HelpText
		return

	case intent.ActionCreate:
		if cmd.Time == "" {
			cmd.Missing = appendMissing(cmd.Missing, FieldTime)
			if cmd.Date == "" {
				cmd.Missing = appendMissing(cmd.Missing, FieldDate)
				cmd.Response = fmt.Sprintf("When should I schedule %q? Tell me a day and a time.", cmd.Title)
			} else {
				cmd.Response = fmt.Sprintf("What time should I schedule %q?", cmd.Title)
			}
		}

	case intent.ActionUpdate, intent.ActionDelete:
		if cmd.Title == "" {
			cmd.Missing = appendMissing(cmd.Missing, FieldTitle)
			cmd.Response = fmt.Sprintf("Which event would you like to %s?", cmd.Action)
		}
		if cmd.Action == intent.ActionUpdate && cmd.NewDate == "" && cmd.NewTime == "" && cmd.DurationMinutes == 0 {
			cmd.Missing = appendMissing(cmd.Missing, FieldNewTime)
			if cmd.Title != "" {
				cmd.Response = fmt.Sprintf("When should I move %q to?", cmd.Title)
			}
		}
	}

	if len(cmd.Missing) > 0 {
		cmd.Status = StatusNeedsClarification
		partial := cmd.Pending()
		cmd.PartialData = &partial
	}
}

type slotSet struct {
	date, time       string
	newDate, newTime string
	duration         int
}

func extractSlots(action intent.Action, text string, now time.Time) slotSet {
	var s slotSet

	switch action {
	case intent.ActionUpdate:
		if before, after, ok := splitUpdate(text, now); ok {
			s.date = nlp.ExtractDate(before, now)
			s.newDate = nlp.ExtractDate(after, now)
			s.newTime = looseTime(after)
			if d, ok := nlp.FindDuration(after); ok {
				s.duration = d
			}
		} else {
			s.newDate = nlp.ExtractDate(text, now)
			s.newTime = nlp.ExtractTime(text)
			if d, ok := nlp.FindDuration(text); ok {
				s.duration = d
			}
		}

	case intent.ActionCreate:
		s.date = nlp.ExtractDate(text, now)
		s.time = nlp.ExtractTime(text)
		if d, ok := nlp.FindDuration(text); ok {
			s.duration = d
		}

	default:
		s.date = nlp.ExtractDate(text, now)
		s.time = nlp.ExtractTime(text)
	}
	return s
}

// splitUpdate splits "move X [on D] to NEW" at the last standalone "to" whose
// right-hand side names a date or a time.
func splitUpdate(text string, now time.Time) (string, string, bool) {
	locs := toRe.FindAllStringIndex(text, -1)
	for i := len(locs) - 1; i >= 0; i-- {
		before, after := text[:locs[i][0]], text[locs[i][1]:]
		if nlp.ExtractDate(after, now) != "" || looseTime(after) != "" {
			return before, after, true
		}
	}
	return "", "", false
}

// looseTime reads the target of "to": besides the usual forms, a bare leading
// hour ("to 10") counts as a clock reading unless it is a duration.
func looseTime(s string) string {
	if t := nlp.ExtractTime(s); t != "" {
		return t
	}
	s = strings.TrimSpace(s)
	if !leadDigitRe.MatchString(s) {
		return ""
	}
	if _, isDuration := nlp.FindDuration(s); isDuration {
		return ""
	}
	return nlp.ExtractTime("at " + s)
}

// override applies slots the language model was confident about.
func (s *slotSet) override(m intent.Slots, now time.Time) {
	if m.Date != "" {
		s.date = canonicalDate(m.Date, now)
	}
	if m.Time != "" {
		s.time = m.Time
	}
	if m.NewDate != "" {
		s.newDate = canonicalDate(m.NewDate, now)
	}
	if m.NewTime != "" {
		s.newTime = m.NewTime
	}
	if m.DurationMinutes > 0 {
		s.duration = m.DurationMinutes
	}
}

func (s *slotSet) merge(p *conversation.Pending) {
	if s.date == "" {
		s.date = p.Date
	}
	if s.time == "" {
		s.time = p.Time
	}
	if s.newDate == "" {
		s.newDate = p.NewDate
	}
	if s.newTime == "" {
		s.newTime = p.NewTime
	}
	if s.duration == 0 {
		s.duration = p.DurationMinutes
	}
}

// canonicalDate turns a relative date into ISO form when it can be resolved.
// Unrecognized values pass through for the executor to reject.
func canonicalDate(v string, now time.Time) string {
	if d, err := timeutil.ResolveDate(v, now); err == nil {
		return d.Format(timeutil.DateLayout)
	}
	return v
}

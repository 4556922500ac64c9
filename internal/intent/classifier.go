// Package intent decides which calendar action a message asks for, preferring a
// language model and falling back to keyword matching whenever the model fails.
package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/omriShneor/calpal/internal/conversation"
	"github.com/omriShneor/calpal/internal/metrics"
	"github.com/omriShneor/calpal/internal/nlp"
)

const (
	DefaultTimeout      = 8 * time.Second
	DefaultContextTurns = 3
)

// Source tells which path produced a classification.
type Source string

const (
	SourceLLM     Source = "llm"
	SourceKeyword Source = "keyword"
)

// Fallback reasons reported in Classification.FallbackReason.
const (
	ReasonNoCompleter     = "no_completer"
	ReasonTimeout         = "timeout"
	ReasonCompletionError = "completion_error"
	ReasonNoJSON          = "no_json"
	ReasonInvalidJSON     = "invalid_json"
	ReasonMissingAction   = "missing_action"
	ReasonInvalidAction   = "invalid_action"
)

// Completer is a text-completion capability.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Input is what the classifier sees for one message.
type Input struct {
	Text    string
	History []conversation.Turn
	Pending *conversation.Pending
	Now     time.Time
}

// Slots are the optional date/time fields a model reply may carry.
// Empty strings and zero mean "not provided".
type Slots struct {
	Date            string
	Time            string
	NewDate         string
	NewTime         string
	DurationMinutes int
}

// Classification is the outcome of Classify. It is always usable; when the model
// path failed, Source is SourceKeyword and FallbackReason says why.
type Classification struct {
	Action         Action
	Title          string
	Slots          Slots
	Source         Source
	FallbackReason string
}

// Config configures a Classifier.
type Config struct {
	Timeout      time.Duration
	ContextTurns int
}

// Classifier is the two-tier intent classifier.
type Classifier struct {
	completer Completer
	cfg       Config
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// NewClassifier creates a classifier. completer may be nil, in which case every
// message goes through the keyword path.
func NewClassifier(completer Completer, cfg Config, logger *slog.Logger, m *metrics.Metrics) *Classifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ContextTurns <= 0 {
		cfg.ContextTurns = DefaultContextTurns
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{completer: completer, cfg: cfg, logger: logger, metrics: m}
}

// Classify returns the action and title for in.Text. It never fails.
func (c *Classifier) Classify(ctx context.Context, in Input) Classification {
	result, reason := c.classifyLLM(ctx, in)
	if reason == "" {
		c.metrics.RecordClassification(string(SourceLLM))
		return result
	}

	c.logger.Warn("classification fallback", "reason", reason)
	c.metrics.RecordFallback(reason)
	c.metrics.RecordClassification(string(SourceKeyword))
	return Fallback(in.Text, reason)
}

// Fallback is the deterministic keyword classification of text.
func Fallback(text, reason string) Classification {
	action := KeywordAction(text)
	title := ""
	if action != ActionList {
		title = nlp.ExtractTitle(text)
	}
	return Classification{
		Action:         action,
		Title:          title,
		Source:         SourceKeyword,
		FallbackReason: reason,
	}
}

func (c *Classifier) classifyLLM(ctx context.Context, in Input) (Classification, string) {
	if c.completer == nil {
		return Classification{}, ReasonNoCompleter
	}

	turns := in.History
	if len(turns) > c.cfg.ContextTurns {
		turns = turns[len(turns)-c.cfg.ContextTurns:]
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	prompt := BuildPrompt(in.Text, turns, in.Pending, now)

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	reply, err := c.completer.Complete(callCtx, prompt)
	if err != nil {
		c.logger.Debug("completion failed", "error", err)
		if errors.Is(err, context.DeadlineExceeded) {
			return Classification{}, ReasonTimeout
		}
		return Classification{}, ReasonCompletionError
	}

	result, err := ParseReply(reply)
	switch {
	case err == nil:
		return result, ""
	case errors.Is(err, ErrNoJSON):
		return Classification{}, ReasonNoJSON
	case errors.Is(err, ErrMissingAction):
		return Classification{}, ReasonMissingAction
	case errors.Is(err, errInvalidAction):
		return Classification{}, ReasonInvalidAction
	default:
		return Classification{}, ReasonInvalidJSON
	}
}

var errInvalidAction = errors.New("reply has an unsupported action")

type reply struct {
	Action          *string `json:"action"`
	Title           *string `json:"title"`
	Date            *string `json:"date"`
	Time            *string `json:"time"`
	NewDate         *string `json:"new_date"`
	NewTime         *string `json:"new_time"`
	DurationMinutes flexInt `json:"duration_minutes"`
}

// ParseReply decodes a model reply into a classification.
func ParseReply(text string) (Classification, error) {
	payload, err := ExtractJSONObject(text)
	if err != nil {
		return Classification{}, err
	}

	var r reply
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return Classification{}, fmt.Errorf("failed to decode reply: %w", err)
	}

	if r.Action == nil || strings.TrimSpace(*r.Action) == "" {
		return Classification{}, ErrMissingAction
	}
	action, ok := ParseAction(strings.ToLower(strings.TrimSpace(*r.Action)))
	if !ok {
		return Classification{}, fmt.Errorf("%w: %q", errInvalidAction, *r.Action)
	}

	return Classification{
		Action: action,
		Title:  strings.Trim(deref(r.Title), " \"'"),
		Slots: Slots{
			Date:            strings.ToLower(deref(r.Date)),
			Time:            deref(r.Time),
			NewDate:         strings.ToLower(deref(r.NewDate)),
			NewTime:         deref(r.NewTime),
			DurationMinutes: int(r.DurationMinutes),
		},
		Source: SourceLLM,
	}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	v := strings.TrimSpace(*s)
	if strings.EqualFold(v, "null") || strings.EqualFold(v, "none") {
		return ""
	}
	return v
}

// flexInt accepts a JSON number or a numeric string. Anything else decodes to zero.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexInt(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			*f = flexInt(v)
		}
	}
	return nil
}

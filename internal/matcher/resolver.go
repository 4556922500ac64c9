// Package matcher resolves a spoken event title against real calendar events.
package matcher

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/omriShneor/calpal/internal/calendar"
	"github.com/omriShneor/calpal/internal/timeutil"
)

// Config holds the fuzzy-match constants. Only their ordering matters:
// ShortThreshold <= Threshold, and TokenBonus lifts shared-word candidates over noise.
type Config struct {
	Threshold      float64
	ShortThreshold float64
	ShortQueryLen  int
	TokenBonus     float64
}

// DefaultConfig returns the empirically chosen matching constants.
func DefaultConfig() Config {
	return Config{
		Threshold:      0.4,
		ShortThreshold: 0.3,
		ShortQueryLen:  5,
		TokenBonus:     0.3,
	}
}

// MatchResult is a scored candidate.
type MatchResult struct {
	Event calendar.Event
	Score float64
}

// Resolver picks the calendar event a title most plausibly refers to.
type Resolver struct {
	cfg Config
	dmp *diffmatchpatch.DiffMatchPatch
}

// NewResolver creates a resolver, filling unset fields from DefaultConfig.
func NewResolver(cfg Config) *Resolver {
	def := DefaultConfig()
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.ShortThreshold <= 0 {
		cfg.ShortThreshold = def.ShortThreshold
	}
	if cfg.ShortQueryLen <= 0 {
		cfg.ShortQueryLen = def.ShortQueryLen
	}
	if cfg.TokenBonus < 0 {
		cfg.TokenBonus = def.TokenBonus
	}
	return &Resolver{cfg: cfg, dmp: diffmatchpatch.New()}
}

// Resolve returns the best match for title among events. When day is non-nil only
// events starting on that calendar day are considered. Exact and substring hits
// short-circuit with score 1; otherwise the highest fuzzy score must clear the
// length-dependent threshold.
func (r *Resolver) Resolve(title string, events []calendar.Event, day *time.Time) (MatchResult, bool) {
	query := normalize(title)
	if query == "" {
		return MatchResult{}, false
	}

	candidates := events
	if day != nil {
		candidates = make([]calendar.Event, 0, len(events))
		for _, e := range events {
			if timeutil.SameDay(*day, e.Start) {
				candidates = append(candidates, e)
			}
		}
	}
	if len(candidates) == 0 {
		return MatchResult{}, false
	}

	for _, e := range candidates {
		if normalize(e.Title) == query {
			return MatchResult{Event: e, Score: 1}, true
		}
	}
	for _, e := range candidates {
		name := normalize(e.Title)
		if name == "" {
			continue
		}
		if strings.Contains(name, query) || strings.Contains(query, name) {
			return MatchResult{Event: e, Score: 1}, true
		}
	}

	var best MatchResult
	found := false
	for _, e := range candidates {
		score := r.Score(query, normalize(e.Title))
		if !found || score > best.Score {
			best = MatchResult{Event: e, Score: score}
			found = true
		}
	}

	if !found || best.Score < r.threshold(query) {
		return MatchResult{}, false
	}
	return best, true
}

// Score is the similarity ratio of a and b plus the shared-token bonus, capped at 1.
func (r *Resolver) Score(a, b string) float64 {
	score := r.Similarity(a, b)
	if sharesToken(a, b) {
		score += r.cfg.TokenBonus
	}
	if score > 1 {
		score = 1
	}
	return score
}

// Similarity returns 2*M/T where M is the number of characters in matching
// blocks of a and b and T their combined length, in [0, 1].
func (r *Resolver) Similarity(a, b string) float64 {
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	if total == 0 {
		return 1
	}

	matched := 0
	for _, d := range r.dmp.DiffMain(a, b, false) {
		if d.Type == diffmatchpatch.DiffEqual {
			matched += utf8.RuneCountInString(d.Text)
		}
	}
	return 2 * float64(matched) / float64(total)
}

func (r *Resolver) threshold(query string) float64 {
	if utf8.RuneCountInString(query) <= r.cfg.ShortQueryLen {
		return r.cfg.ShortThreshold
	}
	return r.cfg.Threshold
}

// sharesToken reports whether a and b have a word in common. Single-letter
// words are ignored so "a" or "i" cannot trigger the bonus.
func sharesToken(a, b string) bool {
	words := make(map[string]struct{})
	for _, w := range strings.Fields(a) {
		if utf8.RuneCountInString(w) > 1 {
			words[w] = struct{}{}
		}
	}
	for _, w := range strings.Fields(b) {
		if _, ok := words[w]; ok {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

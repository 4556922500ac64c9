// Package conversation keeps per-user turn memory: the rolling message history
// and the partially filled command awaiting clarification.
package conversation

import (
	"time"
)

// DefaultHistorySize bounds the rolling history window.
const DefaultHistorySize = 20

// State is the clarification state of a user's conversation.
type State string

const (
	StateIdle                  State = "idle"
	StateAwaitingClarification State = "awaiting_clarification"
)

// Turn is one message in the conversation.
type Turn struct {
	Text      string    `json:"text"`
	IsUser    bool      `json:"is_user"`
	Timestamp time.Time `json:"timestamp"`
}

// Pending holds the command fields already known while a follow-up question is open.
type Pending struct {
	Action          string   `json:"action,omitempty"`
	Title           string   `json:"title,omitempty"`
	Date            string   `json:"date,omitempty"`
	Time            string   `json:"time,omitempty"`
	NewDate         string   `json:"new_date,omitempty"`
	NewTime         string   `json:"new_time,omitempty"`
	DurationMinutes int      `json:"duration_minutes,omitempty"`
	Missing         []string `json:"missing,omitempty"`
}

// Record is everything remembered about one user's conversation.
type Record struct {
	UserID       string
	History      []Turn
	Pending      *Pending
	LastQuestion string
	Version      int64
	UpdatedAt    time.Time

	unsaved []Turn
}

// NewRecord returns an idle record with empty history.
func NewRecord(userID string) *Record {
	return &Record{UserID: userID}
}

// State reports whether a clarification question is outstanding.
func (r *Record) State() State {
	if r.Pending != nil {
		return StateAwaitingClarification
	}
	return StateIdle
}

// Append adds a turn, evicting the oldest turns beyond limit.
func (r *Record) Append(turn Turn, limit int) {
	if limit <= 0 {
		limit = DefaultHistorySize
	}
	r.History = append(r.History, turn)
	if over := len(r.History) - limit; over > 0 {
		r.History = append([]Turn(nil), r.History[over:]...)
	}
	r.unsaved = append(r.unsaved, turn)
}

// AwaitClarification replaces any pending fields with p and remembers the question asked.
func (r *Record) AwaitClarification(p Pending, question string) {
	cp := p
	cp.Missing = append([]string(nil), p.Missing...)
	r.Pending = &cp
	r.LastQuestion = question
}

// Complete clears the pending command after it was executed or abandoned.
func (r *Record) Complete() {
	r.Pending = nil
	r.LastQuestion = ""
}

// RecentTurns returns up to n of the most recent turns, oldest first.
func (r *Record) RecentTurns(n int) []Turn {
	if n <= 0 || len(r.History) == 0 {
		return nil
	}
	if n > len(r.History) {
		n = len(r.History)
	}
	return append([]Turn(nil), r.History[len(r.History)-n:]...)
}

// Unsaved returns turns appended since the record was loaded.
func (r *Record) Unsaved() []Turn {
	return r.unsaved
}

// Clone returns a deep copy without the unsaved-turn bookkeeping.
func (r *Record) Clone() *Record {
	cp := &Record{
		UserID:       r.UserID,
		History:      append([]Turn(nil), r.History...),
		LastQuestion: r.LastQuestion,
		Version:      r.Version,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.Pending != nil {
		p := *r.Pending
		p.Missing = append([]string(nil), r.Pending.Missing...)
		cp.Pending = &p
	}
	return cp
}

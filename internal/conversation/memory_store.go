package conversation

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store, used when no database is configured and in tests.
// It keeps the last historyLimit turns of each conversation.
type MemoryStore struct {
	mu           sync.Mutex
	records      map[string]*Record
	historyLimit int
}

// NewMemoryStore creates an empty store. A non-positive limit means DefaultHistorySize.
func NewMemoryStore(historyLimit int) *MemoryStore {
	if historyLimit <= 0 {
		historyLimit = DefaultHistorySize
	}
	return &MemoryStore{records: make(map[string]*Record), historyLimit: historyLimit}
}

func (s *MemoryStore) LoadConversation(_ context.Context, userID string, historyLimit int) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok {
		return nil, nil
	}
	cp := rec.Clone()
	if historyLimit > 0 && len(cp.History) > historyLimit {
		cp.History = cp.History[len(cp.History)-historyLimit:]
	}
	return cp, nil
}

func (s *MemoryStore) SaveConversation(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.records[rec.UserID]
	if !ok {
		if rec.Version != 0 {
			return ErrVersionConflict
		}
		stored = NewRecord(rec.UserID)
	} else if stored.Version != rec.Version {
		return ErrVersionConflict
	}

	next := stored.Clone()
	next.History = append(next.History, rec.Unsaved()...)
	if over := len(next.History) - s.historyLimit; over > 0 {
		next.History = append([]Turn(nil), next.History[over:]...)
	}
	next.Pending = nil
	if rec.Pending != nil {
		p := *rec.Pending
		p.Missing = append([]string(nil), rec.Pending.Missing...)
		next.Pending = &p
	}
	next.LastQuestion = rec.LastQuestion
	next.UpdatedAt = rec.UpdatedAt
	next.Version = stored.Version + 1
	s.records[rec.UserID] = next
	return nil
}

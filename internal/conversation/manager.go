package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/semaphore"
)

const defaultCacheSize = 1024

// ErrVersionConflict is returned by a Store when the record changed since it was loaded.
var ErrVersionConflict = errors.New("conversation record was modified concurrently")

// Store persists conversation records. SaveConversation must append rec.Unsaved()
// to the history log and write the pending state only if the stored version still
// equals rec.Version, then bump it.
type Store interface {
	LoadConversation(ctx context.Context, userID string, historyLimit int) (*Record, error)
	SaveConversation(ctx context.Context, rec *Record) error
}

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	HistorySize int
	CacheSize   int
}

// Manager serializes read-modify-write cycles on each user's record.
type Manager struct {
	store       Store
	historySize int
	cache       *lru.Cache[string, *Record]

	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	sem  *semaphore.Weighted
	refs int
}

// NewManager creates a manager backed by store.
func NewManager(store Store, cfg ManagerConfig) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("conversation store is required")
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = DefaultHistorySize
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaultCacheSize
	}

	cache, err := lru.New[string, *Record](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation cache: %w", err)
	}

	return &Manager{
		store:       store,
		historySize: cfg.HistorySize,
		cache:       cache,
		locks:       make(map[string]*userLock),
	}, nil
}

// HistorySize returns the rolling window applied to every record.
func (m *Manager) HistorySize() int {
	return m.historySize
}

// Get returns a snapshot of the user's record.
func (m *Manager) Get(ctx context.Context, userID string) (*Record, error) {
	if rec, ok := m.cache.Get(userID); ok {
		return rec.Clone(), nil
	}
	rec, err := m.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return rec.Clone(), nil
}

// Update runs fn on the user's record while holding that user's lock, then persists
// the result. Concurrent updates for the same user run one after another; different
// users never block each other. If fn returns an error nothing is saved.
func (m *Manager) Update(ctx context.Context, userID string, fn func(rec *Record) error) error {
	release, err := m.acquire(ctx, userID)
	if err != nil {
		return err
	}
	defer release()

	var rec *Record
	if cached, ok := m.cache.Get(userID); ok {
		rec = cached.Clone()
	} else {
		loaded, err := m.load(ctx, userID)
		if err != nil {
			return err
		}
		rec = loaded.Clone()
	}

	if err := fn(rec); err != nil {
		return err
	}

	rec.UpdatedAt = time.Now()
	if err := m.store.SaveConversation(ctx, rec); err != nil {
		m.cache.Remove(userID)
		return fmt.Errorf("failed to save conversation: %w", err)
	}

	rec.Version++
	m.cache.Add(userID, rec.Clone())
	return nil
}

func (m *Manager) load(ctx context.Context, userID string) (*Record, error) {
	rec, err := m.store.LoadConversation(ctx, userID, m.historySize)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	if rec == nil {
		rec = NewRecord(userID)
	}
	m.cache.Add(userID, rec.Clone())
	return rec, nil
}

func (m *Manager) acquire(ctx context.Context, userID string) (func(), error) {
	m.mu.Lock()
	l, ok := m.locks[userID]
	if !ok {
		l = &userLock{sem: semaphore.NewWeighted(1)}
		m.locks[userID] = l
	}
	l.refs++
	m.mu.Unlock()

	if err := l.sem.Acquire(ctx, 1); err != nil {
		m.releaseRef(userID, l)
		return nil, fmt.Errorf("waiting for conversation lock: %w", err)
	}

	return func() {
		l.sem.Release(1)
		m.releaseRef(userID, l)
	}, nil
}

func (m *Manager) releaseRef(userID string, l *userLock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(m.locks, userID)
	}
}

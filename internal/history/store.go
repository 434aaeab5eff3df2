// Package history persists practice sessions and per-user progress.
//
// Two [Store] implementations are provided: [MemoryStore] for deployments
// without a database (and for tests), and [PostgresStore] for durable
// storage. Both apply the same progress bookkeeping: a rolling average over
// all sessions, a best score, and a streak counter that grows with each
// session at or above [StreakThreshold] and resets on anything below.
package history

import (
	"context"
	"sort"
	"sync"
	"time"
)

// StreakThreshold is the minimum accuracy for a session to extend the user's
// practice streak.
const StreakThreshold = 70

// Session is one recorded pronunciation attempt.
type Session struct {
	ID         int64     `json:"id"`
	UserID     string    `json:"userId"`
	BrandID    string    `json:"brandId"`
	BrandName  string    `json:"brandName"`
	Transcript string    `json:"transcript"`
	Accuracy   int       `json:"accuracy"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Progress is the aggregated practice history for one user.
type Progress struct {
	UserID          string    `json:"userId"`
	TotalSessions   int       `json:"totalSessions"`
	AverageAccuracy float64   `json:"averageAccuracy"`
	BestAccuracy    int       `json:"bestAccuracy"`
	Streak          int       `json:"streak"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Store persists sessions and progress. Implementations must be safe for
// concurrent use.
type Store interface {
	// RecordSession persists a session and updates the user's progress.
	// The store assigns ID and CreatedAt.
	RecordSession(ctx context.Context, s *Session) error

	// Sessions returns the user's most recent sessions, newest first.
	// A limit <= 0 returns all of them.
	Sessions(ctx context.Context, userID string, limit int) ([]Session, error)

	// Progress returns the user's aggregated progress. It returns
	// (nil, nil) when the user has no recorded sessions.
	Progress(ctx context.Context, userID string) (*Progress, error)

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}

// MemoryStore is an in-memory [Store]. Data is lost on process exit.
type MemoryStore struct {
	mu       sync.RWMutex
	nextID   int64
	sessions map[string][]Session
	progress map[string]*Progress
}

// Compile-time interface check.
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty [MemoryStore].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID:   1,
		sessions: make(map[string][]Session),
		progress: make(map[string]*Progress),
	}
}

// RecordSession stores the session and folds it into the user's progress.
func (m *MemoryStore) RecordSession(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.ID = m.nextID
	m.nextID++
	s.CreatedAt = time.Now().UTC()
	m.sessions[s.UserID] = append(m.sessions[s.UserID], *s)

	p := m.progress[s.UserID]
	if p == nil {
		p = &Progress{UserID: s.UserID}
		m.progress[s.UserID] = p
	}
	applySession(p, s)
	return nil
}

// Sessions returns the user's sessions, newest first.
func (m *MemoryStore) Sessions(_ context.Context, userID string, limit int) ([]Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.sessions[userID]
	out := make([]Session, len(stored))
	copy(out, stored)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Progress returns a copy of the user's progress, or (nil, nil) for an
// unknown user.
func (m *MemoryStore) Progress(_ context.Context, userID string) (*Progress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p := m.progress[userID]
	if p == nil {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

// Ping always succeeds for the in-memory store.
func (m *MemoryStore) Ping(_ context.Context) error {
	return nil
}

// applySession folds one session into the progress aggregate.
func applySession(p *Progress, s *Session) {
	total := float64(p.TotalSessions)
	p.AverageAccuracy = (p.AverageAccuracy*total + float64(s.Accuracy)) / (total + 1)
	p.TotalSessions++
	if s.Accuracy > p.BestAccuracy {
		p.BestAccuracy = s.Accuracy
	}
	if s.Accuracy >= StreakThreshold {
		p.Streak++
	} else {
		p.Streak = 0
	}
	p.UpdatedAt = s.CreatedAt
}

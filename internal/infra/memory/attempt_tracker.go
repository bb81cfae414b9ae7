package memory

import (
	"context"
	"sync"
	"time"
)

// AttemptTracker is an in-memory implementation of app.AttemptTracker.
type AttemptTracker struct {
	clock   func() time.Time
	mu      sync.Mutex
	started map[string]trackedStart
}

type trackedStart struct {
	at        time.Time
	expiresAt time.Time
}

func NewAttemptTracker() *AttemptTracker {
	return NewAttemptTrackerWithClock(time.Now)
}

// NewAttemptTrackerWithClock allows deterministic expiry in tests.
func NewAttemptTrackerWithClock(clock func() time.Time) *AttemptTracker {
	return &AttemptTracker{clock: clock, started: make(map[string]trackedStart)}
}

func (t *AttemptTracker) Begin(_ context.Context, quizID, userID string, at time.Time, ttl time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.started[key(quizID, userID)] = trackedStart{at: at, expiresAt: t.clock().Add(ttl)}
	return nil
}

func (t *AttemptTracker) StartedAt(_ context.Context, quizID, userID string) (time.Time, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := key(quizID, userID)
	entry, ok := t.started[k]
	if !ok {
		return time.Time{}, false, nil
	}
	if !entry.expiresAt.After(t.clock()) {
		delete(t.started, k)
		return time.Time{}, false, nil
	}
	return entry.at, true, nil
}

func (t *AttemptTracker) Clear(_ context.Context, quizID, userID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.started, key(quizID, userID))
	return nil
}

func key(quizID, userID string) string {
	return quizID + ":" + userID
}

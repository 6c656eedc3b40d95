package lock

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/legalintake/backend/internal/domain/questionnaire"
)

// InMemorySessionLocker implements questionnaire.SessionLocker with a plain
// map. Suitable for single-instance deployments and testing.
// WARNING: lock state is not shared across process instances, so concurrent
// transitions for one session are only serialised within a single process.
type InMemorySessionLocker struct {
	mu   sync.Mutex
	held map[uuid.UUID]struct{}
}

// NewInMemorySessionLocker creates a new in-memory locker
func NewInMemorySessionLocker() *InMemorySessionLocker {
	return &InMemorySessionLocker{
		held: make(map[uuid.UUID]struct{}),
	}
}

// Acquire takes the session lock, returning ErrConcurrentAccess when it is
// already held.
func (l *InMemorySessionLocker) Acquire(_ context.Context, sessionID uuid.UUID) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, taken := l.held[sessionID]; taken {
		return nil, questionnaire.ErrConcurrentAccess
	}
	l.held[sessionID] = struct{}{}

	var once sync.Once
	release := func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			delete(l.held, sessionID)
		})
	}
	return release, nil
}

package lock

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legalintake/backend/internal/domain/questionnaire"
)

func TestInMemorySessionLocker(t *testing.T) {
	t.Run("second acquire conflicts until release", func(t *testing.T) {
		locker := NewInMemorySessionLocker()
		sessionID := uuid.New()

		release, err := locker.Acquire(context.Background(), sessionID)
		require.NoError(t, err)

		_, err = locker.Acquire(context.Background(), sessionID)
		assert.ErrorIs(t, err, questionnaire.ErrConcurrentAccess)

		release()

		release2, err := locker.Acquire(context.Background(), sessionID)
		assert.NoError(t, err)
		release2()
	})

	t.Run("locks are per session", func(t *testing.T) {
		locker := NewInMemorySessionLocker()

		releaseA, err := locker.Acquire(context.Background(), uuid.New())
		require.NoError(t, err)
		defer releaseA()

		releaseB, err := locker.Acquire(context.Background(), uuid.New())
		assert.NoError(t, err)
		defer releaseB()
	})

	t.Run("release is idempotent", func(t *testing.T) {
		locker := NewInMemorySessionLocker()
		sessionID := uuid.New()

		release, err := locker.Acquire(context.Background(), sessionID)
		require.NoError(t, err)

		release()
		release()

		release2, err := locker.Acquire(context.Background(), sessionID)
		assert.NoError(t, err)
		release2()
	})

	t.Run("only one of many concurrent acquirers wins", func(t *testing.T) {
		locker := NewInMemorySessionLocker()
		sessionID := uuid.New()

		const goroutines = 20
		var wg sync.WaitGroup
		var mu sync.Mutex
		wins := 0
		var releases []func()

		for i := 0; i < goroutines; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				release, err := locker.Acquire(context.Background(), sessionID)
				if err == nil {
					mu.Lock()
					wins++
					releases = append(releases, release)
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, wins)
		for _, release := range releases {
			release()
		}
	})
}

package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/legalintake/backend/internal/domain/questionnaire"
)

const defaultLockTTL = 30 * time.Second

// releaseScript deletes the lock key only when it still holds our token, so
// a lock that expired and was re-acquired elsewhere is never released by the
// original holder.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisSessionLocker implements questionnaire.SessionLocker with a Redis
// SETNX lock per session. Suitable for multi-instance deployments where
// transitions for one session may land on different processes.
type RedisSessionLocker struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	logger    *zap.Logger
}

// RedisSessionLockerOption is a functional option for the locker
type RedisSessionLockerOption func(*RedisSessionLocker)

// WithLockTTL sets how long an unreleased lock survives. The TTL bounds the
// damage of a crashed holder; it must exceed the longest transition.
func WithLockTTL(ttl time.Duration) RedisSessionLockerOption {
	return func(l *RedisSessionLocker) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

// WithRedisLockerLogger sets the logger
func WithRedisLockerLogger(logger *zap.Logger) RedisSessionLockerOption {
	return func(l *RedisSessionLocker) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewRedisSessionLocker creates a locker with an existing Redis client
func NewRedisSessionLocker(client *redis.Client, opts ...RedisSessionLockerOption) *RedisSessionLocker {
	l := &RedisSessionLocker{
		client:    client,
		keyPrefix: "questionnaire:session:lock:",
		ttl:       defaultLockTTL,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire takes the session lock, returning ErrConcurrentAccess when it is
// held elsewhere.
func (l *RedisSessionLocker) Acquire(ctx context.Context, sessionID uuid.UUID) (func(), error) {
	key := l.keyPrefix + sessionID.String()
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire session lock: %w", err)
	}
	if !ok {
		return nil, questionnaire.ErrConcurrentAccess
	}

	release := func() {
		// Release must not inherit a cancelled request context
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil {
			l.logger.Warn("failed to release session lock",
				zap.String("session_id", sessionID.String()),
				zap.Error(err))
		}
	}
	return release, nil
}

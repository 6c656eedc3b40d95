package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/legalintake/backend/internal/domain/questionnaire"
	"github.com/legalintake/backend/internal/infrastructure/config"
)

// SessionLockerFactory creates session lockers based on configuration
type SessionLockerFactory struct {
	redisConfig           config.RedisConfig
	lockTTL               time.Duration
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// SessionLockerFactoryOption is a functional option for configuring the factory
type SessionLockerFactoryOption func(*SessionLockerFactory)

// WithFactoryLogger sets the logger for the factory
func WithFactoryLogger(logger *zap.Logger) SessionLockerFactoryOption {
	return func(f *SessionLockerFactory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithFactoryLockTTL sets the TTL applied to Redis locks
func WithFactoryLockTTL(ttl time.Duration) SessionLockerFactoryOption {
	return func(f *SessionLockerFactory) {
		f.lockTTL = ttl
	}
}

// WithInMemoryFallback controls whether to fall back to the in-memory locker
// when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) SessionLockerFactoryOption {
	return func(f *SessionLockerFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewSessionLockerFactory creates a new factory
func NewSessionLockerFactory(cfg config.RedisConfig, opts ...SessionLockerFactoryOption) *SessionLockerFactory {
	f := &SessionLockerFactory{
		redisConfig:           cfg,
		lockTTL:               defaultLockTTL,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateRedisLocker connects to Redis and creates a distributed locker
func (f *SessionLockerFactory) CreateRedisLocker() (questionnaire.SessionLocker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     f.redisConfig.Addr(),
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisSessionLocker(client,
		WithLockTTL(f.lockTTL),
		WithRedisLockerLogger(f.logger)), nil
}

// CreateInMemoryLocker creates a process-local locker
func (f *SessionLockerFactory) CreateInMemoryLocker() questionnaire.SessionLocker {
	return NewInMemorySessionLocker()
}

// CreateLocker tries Redis first and falls back to the in-memory locker when
// Redis is unavailable and fallback is allowed.
func (f *SessionLockerFactory) CreateLocker() (questionnaire.SessionLocker, error) {
	locker, err := f.CreateRedisLocker()
	if err == nil {
		f.logger.Info("using Redis session locker",
			zap.String("addr", f.redisConfig.Addr()))
		return locker, nil
	}

	if !f.allowInMemoryFallback {
		return nil, err
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory session locker",
		zap.Error(err))
	return f.CreateInMemoryLocker(), nil
}

package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func newObservedGormLogger(t *testing.T, zapLevel zapcore.Level, gormLevel gormlogger.LogLevel, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
	t.Helper()
	core, recorded := observer.New(zapLevel)
	return NewGormLogger(zap.New(core), gormLevel, opts...), recorded
}

func sessionQuery() (string, int64) {
	return "SELECT * FROM questionnaire_sessions WHERE user_id = $1", 3
}

func TestNewGormLoggerDefaults(t *testing.T) {
	l, _ := newObservedGormLogger(t, zapcore.InfoLevel, gormlogger.Info)

	assert.Equal(t, gormlogger.Info, l.level)
	assert.Equal(t, defaultSlowQueryThreshold, l.slowThreshold)
	assert.True(t, l.skipNotFound)
}

func TestNewGormLoggerOptions(t *testing.T) {
	l, _ := newObservedGormLogger(t, zapcore.InfoLevel, gormlogger.Info,
		WithSlowThreshold(500*time.Millisecond),
		WithIgnoreRecordNotFoundError(false),
	)

	assert.Equal(t, 500*time.Millisecond, l.slowThreshold)
	assert.False(t, l.skipNotFound)
}

func TestGormLoggerLogMode(t *testing.T) {
	l, _ := newObservedGormLogger(t, zapcore.InfoLevel, gormlogger.Info)

	scoped := l.LogMode(gormlogger.Warn)

	clone, ok := scoped.(*GormLogger)
	require.True(t, ok)
	assert.Equal(t, gormlogger.Warn, clone.level)
	assert.Equal(t, gormlogger.Info, l.level)
}

func TestGormLoggerLevelGates(t *testing.T) {
	l, recorded := newObservedGormLogger(t, zapcore.DebugLevel, gormlogger.Warn)

	l.Info(context.Background(), "migrating %s", "questionnaire_sessions")
	assert.Empty(t, recorded.All(), "info is below the configured level")

	l.Warn(context.Background(), "retrying connection %d", 2)
	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Contains(t, logs[0].Message, "retrying connection 2")
	assert.Equal(t, zapcore.WarnLevel, logs[0].Level)

	l.Error(context.Background(), "connection lost")
	assert.Len(t, recorded.All(), 2)
}

func TestGormLoggerTraceError(t *testing.T) {
	l, recorded := newObservedGormLogger(t, zapcore.ErrorLevel, gormlogger.Error)

	l.Trace(context.Background(), time.Now(), sessionQuery, errors.New("deadlock detected"))

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Equal(t, "SQL Error", logs[0].Message)
}

func TestGormLoggerTraceSkipsNotFound(t *testing.T) {
	l, recorded := newObservedGormLogger(t, zapcore.ErrorLevel, gormlogger.Error)

	l.Trace(context.Background(), time.Now(), sessionQuery, gormlogger.ErrRecordNotFound)

	assert.Empty(t, recorded.All())
}

func TestGormLoggerTraceNotFoundLoggedWhenConfigured(t *testing.T) {
	l, recorded := newObservedGormLogger(t, zapcore.ErrorLevel, gormlogger.Error,
		WithIgnoreRecordNotFoundError(false))

	l.Trace(context.Background(), time.Now(), sessionQuery, gormlogger.ErrRecordNotFound)

	assert.Len(t, recorded.All(), 1)
}

func TestGormLoggerTraceSlowQuery(t *testing.T) {
	l, recorded := newObservedGormLogger(t, zapcore.WarnLevel, gormlogger.Warn,
		WithSlowThreshold(time.Nanosecond))

	l.Trace(context.Background(), time.Now().Add(-time.Second), sessionQuery, nil)

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Equal(t, "SLOW SQL", logs[0].Message)
}

func TestGormLoggerTraceNormalQuery(t *testing.T) {
	l, recorded := newObservedGormLogger(t, zapcore.DebugLevel, gormlogger.Info)

	l.Trace(context.Background(), time.Now(), sessionQuery, nil)

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Equal(t, "SQL Query", logs[0].Message)
}

func TestGormLoggerTraceSilent(t *testing.T) {
	l, recorded := newObservedGormLogger(t, zapcore.DebugLevel, gormlogger.Silent)

	l.Trace(context.Background(), time.Now(), sessionQuery, nil)

	assert.Empty(t, recorded.All())
}

func TestGormLoggerTraceCarriesRequestID(t *testing.T) {
	l, recorded := newObservedGormLogger(t, zapcore.DebugLevel, gormlogger.Info)

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-42")
	l.Trace(ctx, time.Now(), sessionQuery, nil)

	logs := recorded.All()
	require.Len(t, logs, 1)

	found := false
	for _, field := range logs[0].Context {
		if field.Key == "request_id" {
			found = true
			assert.Equal(t, "req-42", field.String)
		}
	}
	assert.True(t, found, "request_id field expected")
}

func TestMapGormLogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  gormlogger.LogLevel
	}{
		{"silent", gormlogger.Silent},
		{"error", gormlogger.Error},
		{"warn", gormlogger.Warn},
		{"info", gormlogger.Info},
		{"debug", gormlogger.Info},
		{"verbose", gormlogger.Warn},
		{"", gormlogger.Warn},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MapGormLogLevel(tt.level), "level %q", tt.level)
	}
}

func TestGormLoggerImplementsInterface(t *testing.T) {
	l, _ := newObservedGormLogger(t, zapcore.InfoLevel, gormlogger.Info)
	var _ gormlogger.Interface = l
}

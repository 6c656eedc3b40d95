package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

// startSpan opens a span on a real SDK tracer so its context is valid.
func startSpan(t *testing.T) (context.Context, trace.Span) {
	t.Helper()

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
	})
	return tp.Tracer("context-test").Start(context.Background(), "intake-op")
}

func entryField(t *testing.T, logs *observer.ObservedLogs, msg, key string) string {
	t.Helper()

	entries := logs.FilterMessage(msg).All()
	require.Len(t, entries, 1)
	for _, f := range entries[0].Context {
		if f.Key == key {
			return f.String
		}
	}
	require.FailNowf(t, "field missing", "entry %q has no field %q", msg, key)
	return ""
}

func TestWithContextRoundTrip(t *testing.T) {
	base, logs := observedLogger()

	ctx := WithContext(context.Background(), base)
	FromContext(ctx).Info("round trip")

	assert.Len(t, logs.FilterMessage("round trip").All(), 1)
}

func TestFromContextMissingOrWrongType(t *testing.T) {
	assert.NotPanics(t, func() {
		FromContext(context.Background()).Info("nop")
	})

	ctx := context.WithValue(context.Background(), LoggerKey, "not a logger")
	assert.NotPanics(t, func() {
		FromContext(ctx).Info("still nop")
	})
}

func TestScopedFields(t *testing.T) {
	tests := []struct {
		name  string
		scope func(context.Context, *zap.Logger, string) (context.Context, *zap.Logger)
		get   func(context.Context) string
		key   string
	}{
		{"request", WithRequestID, GetRequestID, "request_id"},
		{"session", WithSessionID, GetSessionID, "session_id"},
		{"user", WithUserID, GetUserID, "user_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, logs := observedLogger()

			ctx, scoped := tt.scope(context.Background(), base, "val-1")
			scoped.Info("scoped")

			assert.Equal(t, "val-1", tt.get(ctx))
			assert.Equal(t, "val-1", entryField(t, logs, "scoped", tt.key))

			// the scoped logger is also reachable through the context
			FromContext(ctx).Info("from ctx")
			assert.Equal(t, "val-1", entryField(t, logs, "from ctx", tt.key))
		})
	}
}

func TestScopedFieldsChain(t *testing.T) {
	base, logs := observedLogger()

	ctx := context.Background()
	ctx, log := WithRequestID(ctx, base, "req-1")
	ctx, log = WithSessionID(ctx, log, "sess-1")
	ctx, log = WithUserID(ctx, log, "user-1")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "sess-1", GetSessionID(ctx))
	assert.Equal(t, "user-1", GetUserID(ctx))

	log.Info("chained")
	assert.Equal(t, "req-1", entryField(t, logs, "chained", "request_id"))
	assert.Equal(t, "sess-1", entryField(t, logs, "chained", "session_id"))
	assert.Equal(t, "user-1", entryField(t, logs, "chained", "user_id"))
}

func TestScopedFieldOverride(t *testing.T) {
	base, _ := observedLogger()

	ctx, _ := WithRequestID(context.Background(), base, "first")
	ctx, _ = WithRequestID(ctx, base, "second")

	assert.Equal(t, "second", GetRequestID(ctx))
}

func TestGettersOnEmptyContext(t *testing.T) {
	ctx := context.Background()

	assert.Empty(t, GetRequestID(ctx))
	assert.Empty(t, GetSessionID(ctx))
	assert.Empty(t, GetUserID(ctx))
}

func TestContextKeysDistinct(t *testing.T) {
	keys := []contextKey{LoggerKey, RequestIDKey, SessionIDKey, UserIDKey}
	seen := map[contextKey]bool{}
	for _, k := range keys {
		assert.False(t, seen[k], "duplicate context key %q", k)
		seen[k] = true
	}
}

func TestTraceIdentifiers(t *testing.T) {
	t.Run("no span", func(t *testing.T) {
		assert.Empty(t, GetTraceID(context.Background()))
		assert.Empty(t, GetSpanID(context.Background()))
	})

	t.Run("noop span is invalid", func(t *testing.T) {
		ctx, span := noop.NewTracerProvider().Tracer("t").Start(context.Background(), "s")
		defer span.End()

		assert.Empty(t, GetTraceID(ctx))
		assert.Empty(t, GetSpanID(ctx))
	})

	t.Run("recorded span", func(t *testing.T) {
		ctx, span := startSpan(t)
		defer span.End()

		sc := span.SpanContext()
		assert.Equal(t, sc.TraceID().String(), GetTraceID(ctx))
		assert.Equal(t, sc.SpanID().String(), GetSpanID(ctx))
	})
}

func TestWithTraceContext(t *testing.T) {
	t.Run("no span returns logger unchanged", func(t *testing.T) {
		base := zap.NewNop()
		assert.Same(t, base, WithTraceContext(context.Background(), base))
	})

	t.Run("invalid span returns logger unchanged", func(t *testing.T) {
		ctx, span := noop.NewTracerProvider().Tracer("t").Start(context.Background(), "s")
		defer span.End()

		base := zap.NewNop()
		assert.Same(t, base, WithTraceContext(ctx, base))
	})

	t.Run("recorded span adds identifiers", func(t *testing.T) {
		ctx, span := startSpan(t)
		defer span.End()

		base, logs := observedLogger()
		WithTraceContext(ctx, base).Info("traced")

		assert.Equal(t, span.SpanContext().TraceID().String(), entryField(t, logs, "traced", "trace_id"))
		assert.Equal(t, span.SpanContext().SpanID().String(), entryField(t, logs, "traced", "span_id"))
	})
}

func TestLUsesContextLogger(t *testing.T) {
	base, logs := observedLogger()

	ctx := WithContext(context.Background(), base)
	L(ctx).Info("via L")

	assert.Len(t, logs.FilterMessage("via L").All(), 1)
}

func TestLWithoutLoggerDoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		L(context.Background()).Info("nop")
	})
}

func TestContextLoggerCorrelation(t *testing.T) {
	base, logs := observedLogger()

	ctx, span := startSpan(t)
	defer span.End()
	ctx = context.WithValue(ctx, RequestIDKey, "req-9")
	ctx = context.WithValue(ctx, SessionIDKey, "sess-9")
	ctx = context.WithValue(ctx, UserIDKey, "user-9")

	WithLogger(ctx, base).Info("correlated", zap.Int("answered", 12))

	assert.Equal(t, "req-9", entryField(t, logs, "correlated", "request_id"))
	assert.Equal(t, "sess-9", entryField(t, logs, "correlated", "session_id"))
	assert.Equal(t, "user-9", entryField(t, logs, "correlated", "user_id"))
	assert.Equal(t, span.SpanContext().TraceID().String(), entryField(t, logs, "correlated", "trace_id"))

	entry := logs.FilterMessage("correlated").All()[0]
	fields := entry.ContextMap()
	assert.EqualValues(t, 12, fields["answered"])
}

func TestContextLoggerSkipsEmptyFields(t *testing.T) {
	base, logs := observedLogger()

	WithLogger(context.Background(), base).Info("bare")

	entry := logs.FilterMessage("bare").All()
	require.Len(t, entry, 1)
	fields := entry[0].ContextMap()
	assert.NotContains(t, fields, "request_id")
	assert.NotContains(t, fields, "session_id")
	assert.NotContains(t, fields, "user_id")
	assert.NotContains(t, fields, "trace_id")
}

func TestContextLoggerNilLogger(t *testing.T) {
	cl := &ContextLogger{ctx: context.Background()}

	assert.NotPanics(t, func() {
		cl.Info("nil base")
	})
}

func TestContextLoggerWithChaining(t *testing.T) {
	base, logs := observedLogger()

	WithLogger(context.Background(), base).
		With(zap.String("part", "accident")).
		With(zap.Int("question", 3)).
		Info("chained fields")

	fields := logs.FilterMessage("chained fields").All()[0].ContextMap()
	assert.Equal(t, "accident", fields["part"])
	assert.EqualValues(t, 3, fields["question"])
}

func TestContextLoggerLevels(t *testing.T) {
	base, logs := observedLogger()
	cl := WithLogger(context.Background(), base)

	cl.Debug("d")
	cl.Info("i")
	cl.Warn("w")
	cl.Error("e")

	assert.Equal(t, 1, logs.FilterMessage("d").Len())
	assert.Equal(t, 1, logs.FilterMessage("i").Len())
	assert.Equal(t, 1, logs.FilterMessage("w").Len())
	assert.Equal(t, 1, logs.FilterMessage("e").Len())
	assert.Equal(t, zapcore.WarnLevel, logs.FilterMessage("w").All()[0].Level)
}

func TestContextLoggerZapAndSugar(t *testing.T) {
	base, logs := observedLogger()
	ctx := context.WithValue(context.Background(), SessionIDKey, "sess-z")
	cl := WithLogger(ctx, base)

	cl.Zap().Info("plain zap")
	cl.Sugar().Infow("sugared")

	assert.Equal(t, "sess-z", entryField(t, logs, "plain zap", "session_id"))
	assert.Equal(t, "sess-z", entryField(t, logs, "sugared", "session_id"))
}

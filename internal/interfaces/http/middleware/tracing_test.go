package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	t.Cleanup(func() {
		_ = tp.Shutdown(t.Context())
	})

	return sr
}

func spanByName(t *testing.T, sr *tracetest.SpanRecorder, name string) sdktrace.ReadOnlySpan {
	t.Helper()

	for _, span := range sr.Ended() {
		if span.Name() == name {
			return span
		}
	}
	require.FailNowf(t, "span not recorded", "no ended span named %q", name)
	return nil
}

func spanAttr(span sdktrace.ReadOnlySpan, key attribute.Key) (string, bool) {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value.AsString(), true
		}
	}
	return "", false
}

func tracedRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	for _, m := range mw {
		r.Use(m)
	}
	return r
}

func doTraced(r *gin.Engine, path string, headers map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestTracingDisabled(t *testing.T) {
	r := tracedRouter(TracingWithConfig(TracingConfig{Enabled: false}))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	w := doTraced(r, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTracingCreatesServerSpan(t *testing.T) {
	sr := recordSpans(t)

	r := tracedRouter(TracingWithConfig(TracingConfig{Enabled: true, ServiceName: "legal-intake-test"}))
	r.GET("/sessions", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"sessions": []string{}})
	})

	w := doTraced(r, "/sessions", nil)
	require.Equal(t, http.StatusOK, w.Code)

	span := spanByName(t, sr, "GET /sessions")
	assert.Equal(t, codes.Unset, span.Status().Code)
}

func TestTracingRequestIDAttribute(t *testing.T) {
	sr := recordSpans(t)

	r := tracedRouter(
		RequestID(),
		TracingWithConfig(TracingConfig{Enabled: true, ServiceName: "legal-intake-test"}),
		TracingAttributeInjector(),
	)
	r.GET("/sessions", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"sessions": []string{}})
	})

	w := doTraced(r, "/sessions", map[string]string{RequestIDKey: "req-intake-42"})
	require.Equal(t, http.StatusOK, w.Code)

	span := spanByName(t, sr, "GET /sessions")
	id, ok := spanAttr(span, "request_id")
	require.True(t, ok, "request_id attribute missing")
	assert.Equal(t, "req-intake-42", id)
}

func TestTracingSessionIDAttribute(t *testing.T) {
	sr := recordSpans(t)

	r := tracedRouter(
		TracingWithConfig(TracingConfig{Enabled: true, ServiceName: "legal-intake-test"}),
		TracingAttributeInjector(),
	)
	r.GET("/sessions/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "active"})
	})

	const sessionID = "2f9c1a40-77d0-4be2-9c5a-1f4d6b3e8a01"
	w := doTraced(r, "/sessions/"+sessionID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	span := spanByName(t, sr, "GET /sessions/:id")
	id, ok := spanAttr(span, "session_id")
	require.True(t, ok, "session_id attribute missing")
	assert.Equal(t, sessionID, id)
}

func TestTracingInvalidSessionParamSkipped(t *testing.T) {
	sr := recordSpans(t)

	r := tracedRouter(
		TracingWithConfig(TracingConfig{Enabled: true, ServiceName: "legal-intake-test"}),
		TracingAttributeInjector(),
	)
	r.GET("/sessions/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "active"})
	})

	w := doTraced(r, "/sessions/not-a-uuid", nil)
	require.Equal(t, http.StatusOK, w.Code)

	span := spanByName(t, sr, "GET /sessions/:id")
	_, ok := spanAttr(span, "session_id")
	assert.False(t, ok, "non-UUID path value must not reach the span")
}

func TestTracingUserIDAttribute(t *testing.T) {
	sr := recordSpans(t)

	r := tracedRouter(
		TracingWithConfig(TracingConfig{Enabled: true, ServiceName: "legal-intake-test"}),
		func(c *gin.Context) {
			c.Set(JWTUserIDKey, "clerk-7f2a")
			c.Next()
		},
		TracingAttributeInjector(),
	)
	r.GET("/sessions", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"sessions": []string{}})
	})

	w := doTraced(r, "/sessions", nil)
	require.Equal(t, http.StatusOK, w.Code)

	span := spanByName(t, sr, "GET /sessions")
	id, ok := spanAttr(span, "user_id")
	require.True(t, ok, "user_id attribute missing")
	assert.Equal(t, "clerk-7f2a", id)
}

func TestSpanErrorMarker(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		description string
	}{
		{"bad request", http.StatusBadRequest, "Client Error"},
		{"unauthorized", http.StatusUnauthorized, "Unauthorized"},
		{"forbidden", http.StatusForbidden, "Forbidden"},
		{"not found", http.StatusNotFound, "Not Found"},
		{"unprocessable", http.StatusUnprocessableEntity, "Client Error"},
		{"internal error", http.StatusInternalServerError, "Internal Server Error"},
		{"bad gateway", http.StatusBadGateway, "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sr := recordSpans(t)

			r := tracedRouter(
				TracingWithConfig(TracingConfig{Enabled: true, ServiceName: "legal-intake-test"}),
				SpanErrorMarker(),
			)
			r.GET("/sessions/:id", func(c *gin.Context) {
				c.JSON(tt.status, gin.H{"code": "SESSION_ERROR"})
			})

			w := doTraced(r, "/sessions/2f9c1a40-77d0-4be2-9c5a-1f4d6b3e8a01", nil)
			require.Equal(t, tt.status, w.Code)

			span := spanByName(t, sr, "GET /sessions/:id")
			assert.Equal(t, codes.Error, span.Status().Code)
			if tt.status < http.StatusInternalServerError {
				// otelgin leaves 4xx unset on server spans, so the
				// description is ours alone
				assert.Equal(t, tt.description, span.Status().Description)
			}
		})
	}
}

func TestSpanErrorMarkerSuccessUntouched(t *testing.T) {
	sr := recordSpans(t)

	r := tracedRouter(
		TracingWithConfig(TracingConfig{Enabled: true, ServiceName: "legal-intake-test"}),
		SpanErrorMarker(),
	)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	w := doTraced(r, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)

	span := spanByName(t, sr, "GET /healthz")
	assert.NotEqual(t, codes.Error, span.Status().Code)
}

func TestSpanErrorMarkerWithoutRecordingSpan(t *testing.T) {
	otel.SetTracerProvider(noop.NewTracerProvider())

	r := tracedRouter(SpanErrorMarker())
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL_ERROR"})
	})

	w := doTraced(r, "/healthz", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestTracingAttributeInjectorWithoutSpan(t *testing.T) {
	otel.SetTracerProvider(noop.NewTracerProvider())

	r := tracedRouter(TracingAttributeInjector())
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	w := doTraced(r, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDefaultTracingConfig(t *testing.T) {
	cfg := DefaultTracingConfig()

	assert.Equal(t, "legal-intake-backend", cfg.ServiceName)
	assert.True(t, cfg.Enabled)
}

func TestTracingDefault(t *testing.T) {
	sr := recordSpans(t)

	r := tracedRouter(Tracing())
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	w := doTraced(r, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, sr.Ended())
}

func TestTraceRequestIDFromContext(t *testing.T) {
	r := tracedRouter(func(c *gin.Context) {
		c.Set("request_id", "ctx-req-7")
		c.Next()
	})
	r.GET("/probe", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": traceRequestID(c)})
	})

	w := doTraced(r, "/probe", map[string]string{RequestIDKey: "header-req-ignored"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ctx-req-7")
}

func TestTraceRequestIDHeaderTruncated(t *testing.T) {
	r := tracedRouter()
	r.GET("/probe", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"length": len(traceRequestID(c))})
	})

	w := doTraced(r, "/probe", map[string]string{RequestIDKey: strings.Repeat("x", 3*MaxRequestIDLength)})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"length":128`)
}

func TestValidSessionID(t *testing.T) {
	tests := []struct {
		name  string
		id    string
		valid bool
	}{
		{"lowercase uuid", "2f9c1a40-77d0-4be2-9c5a-1f4d6b3e8a01", true},
		{"uppercase uuid", "2F9C1A40-77D0-4BE2-9C5A-1F4D6B3E8A01", true},
		{"mixed case uuid", "2f9C1a40-77D0-4bE2-9c5A-1f4d6B3e8A01", true},
		{"truncated", "2f9c1a40-77d0-4be2", false},
		{"no dashes", "2f9c1a4077d04be29c5a1f4d6b3e8a01", false},
		{"script injection", "<script>alert(1)</script>", false},
		{"embedded space", "2f9c1a40-77d0 -4be2-9c5a-1f4d6b3e8a01", false},
		{"empty", "", false},
		{"over length limit", "2f9c1a40-77d0-4be2-9c5a-1f4d6b3e8a01" + strings.Repeat("0", MaxSessionIDLength), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, validSessionID(tt.id))
		})
	}
}

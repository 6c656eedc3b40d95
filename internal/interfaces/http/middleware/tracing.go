package middleware

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Header and path values are bounded before being copied into trace
// attributes.
const (
	// MaxRequestIDLength caps the X-Request-ID header value.
	MaxRequestIDLength = 128
	// MaxSessionIDLength caps the :id path parameter.
	MaxSessionIDLength = 64
)

// sessionIDPattern matches canonical UUIDs; anything else in the :id
// path parameter is dropped rather than recorded on the span.
var sessionIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// TracingConfig controls the otelgin-based tracing middleware.
type TracingConfig struct {
	// ServiceName identifies this service in exported spans.
	ServiceName string
	// Enabled turns the middleware into a no-op when false.
	Enabled bool
}

// DefaultTracingConfig returns the tracing configuration used in production.
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName: "legal-intake-backend",
		Enabled:     true,
	}
}

// Tracing returns tracing middleware with the default configuration.
func Tracing() gin.HandlerFunc {
	return TracingWithConfig(DefaultTracingConfig())
}

// TracingWithConfig wraps otelgin and annotates the server span with
// request_id, session_id and user_id. Span names follow otelgin's
// "METHOD route" convention.
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return passthrough
	}

	otelMiddleware := otelgin.Middleware(cfg.ServiceName)

	return func(c *gin.Context) {
		otelMiddleware(c)
		annotateSpan(c)
	}
}

// TracingAttributeInjector re-applies the span annotations once the auth
// middleware has stored JWT claims. Place it after both Tracing and
// JWTAuthMiddleware in the chain.
func TracingAttributeInjector() gin.HandlerFunc {
	return func(c *gin.Context) {
		annotateSpan(c)
		c.Next()
	}
}

// SpanErrorMarker sets an error status on the server span for 4xx and
// 5xx responses. Place it after Tracing in the chain.
func SpanErrorMarker() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}

		status := c.Writer.Status()
		if status < http.StatusBadRequest {
			return
		}

		span.SetStatus(codes.Error, errorDescription(status))
		span.SetAttributes(attribute.Int("http.status_code", status))
	}
}

func errorDescription(status int) string {
	switch {
	case status >= http.StatusInternalServerError:
		return "Internal Server Error"
	case status == http.StatusUnauthorized:
		return "Unauthorized"
	case status == http.StatusForbidden:
		return "Forbidden"
	case status == http.StatusNotFound:
		return "Not Found"
	default:
		return "Client Error"
	}
}

func annotateSpan(c *gin.Context) {
	span := trace.SpanFromContext(c.Request.Context())
	if !span.IsRecording() {
		return
	}
	if attrs := traceAttributes(c); len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
}

func traceAttributes(c *gin.Context) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if id := traceRequestID(c); id != "" {
		attrs = append(attrs, attribute.String("request_id", id))
	}
	if id := sessionIDParam(c); id != "" {
		attrs = append(attrs, attribute.String("session_id", id))
	}
	if id := traceUserID(c); id != "" {
		attrs = append(attrs, attribute.String("user_id", id))
	}
	return attrs
}

// traceRequestID prefers the ID assigned by the RequestID middleware and
// falls back to the raw header, truncated to MaxRequestIDLength.
func traceRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	id := c.GetHeader(RequestIDKey)
	if len(id) > MaxRequestIDLength {
		id = id[:MaxRequestIDLength]
	}
	return id
}

func sessionIDParam(c *gin.Context) string {
	if id := c.Param("id"); validSessionID(id) {
		return id
	}
	return ""
}

func validSessionID(id string) bool {
	return id != "" && len(id) <= MaxSessionIDLength && sessionIDPattern.MatchString(id)
}

func traceUserID(c *gin.Context) string {
	return c.GetString(JWTUserIDKey)
}

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/legalintake/backend/internal/infrastructure/telemetry"
)

// metricsRouter wires the metrics middleware in front of a pair of
// workflow-shaped routes and returns a collector for recorded metrics.
func metricsRouter(t *testing.T) (*gin.Engine, func() metricdata.ResourceMetrics) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = provider.Shutdown(context.Background())
	})

	r := gin.New()
	r.Use(HTTPMetricsWithMeter(provider.Meter("http.server"), true))
	r.GET("/sessions/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
	})
	r.POST("/sessions/:id/answers", func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"accepted": true})
	})
	r.GET("/missing", func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "SESSION_NOT_FOUND"})
	})

	collect := func() metricdata.ResourceMetrics {
		var rm metricdata.ResourceMetrics
		require.NoError(t, reader.Collect(context.Background(), &rm))
		return rm
	}
	return r, collect
}

func metricByName(rm metricdata.ResourceMetrics, name string) (metricdata.Metrics, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

func TestHTTPMetricsDisabledConfig(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(HTTPMetrics(HTTPMetricsConfig{Enabled: false}))
	r.GET("/sessions", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"sessions": []string{}})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHTTPMetricsNilMeterProvider(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(HTTPMetrics(HTTPMetricsConfig{Enabled: true, MeterProvider: nil}))
	r.GET("/sessions", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"sessions": []string{}})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHTTPMetricsWithMeterDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	r := gin.New()
	r.Use(HTTPMetricsWithMeter(provider.Meter("http.server"), false))
	r.GET("/sessions", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"sessions": []string{}})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	_, found := metricByName(rm, "http_server_request_total")
	assert.False(t, found, "disabled middleware must not create instruments")
}

func TestHTTPMetricsRequestCounter(t *testing.T) {
	r, collect := metricsRouter(t)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions/sess-1", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}

	m, found := metricByName(collect(), "http_server_request_total")
	require.True(t, found)

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)

	dp := sum.DataPoints[0]
	assert.Equal(t, int64(3), dp.Value)

	route, _ := dp.Attributes.Value("http.route")
	assert.Equal(t, "/sessions/:id", route.AsString(), "route pattern, not the raw path")
	status, _ := dp.Attributes.Value("http.status_code")
	assert.Equal(t, int64(http.StatusOK), status.AsInt64())
}

func TestHTTPMetricsStatusCodeSeries(t *testing.T) {
	r, collect := metricsRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions/sess-1", nil))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))

	m, found := metricByName(collect(), "http_server_request_total")
	require.True(t, found)

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Len(t, sum.DataPoints, 2, "one series per route/status pair")
}

func TestHTTPMetricsDuration(t *testing.T) {
	r, collect := metricsRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions/sess-1", nil))

	m, found := metricByName(collect(), "http_server_request_duration_seconds")
	require.True(t, found)

	hist, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)

	dp := hist.DataPoints[0]
	assert.Equal(t, uint64(1), dp.Count)
	assert.Equal(t, telemetry.HTTPDurationBuckets, dp.Bounds)

	// Duration labels exclude the status code
	_, hasStatus := dp.Attributes.Value("http.status_code")
	assert.False(t, hasStatus)
}

func TestHTTPMetricsRequestSize(t *testing.T) {
	r, collect := metricsRouter(t)

	body := strings.NewReader(`{"question_id":"q3","answer":"是"}`)
	req := httptest.NewRequest(http.MethodPost, "/sessions/sess-1/answers", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)

	m, found := metricByName(collect(), "http_server_request_size_bytes")
	require.True(t, found)

	hist, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Greater(t, hist.DataPoints[0].Sum, float64(0))
}

func TestHTTPMetricsResponseSize(t *testing.T) {
	r, collect := metricsRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions/sess-1", nil))

	m, found := metricByName(collect(), "http_server_response_size_bytes")
	require.True(t, found)

	hist, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Greater(t, hist.DataPoints[0].Sum, float64(0))
}

func TestHTTPMetricsActiveRequests(t *testing.T) {
	r, collect := metricsRouter(t)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions/sess-1", nil))
		}()
	}
	wg.Wait()

	m, found := metricByName(collect(), "http_server_active_requests")
	require.True(t, found)

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(0), sum.DataPoints[0].Value, "every increment is paired with a decrement")
}

func TestHTTPMetricsUnmatchedRoute(t *testing.T) {
	r, collect := metricsRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	m, found := metricByName(collect(), "http_server_request_total")
	require.True(t, found)

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)

	route, _ := sum.DataPoints[0].Attributes.Value("http.route")
	assert.Equal(t, "unknown", route.AsString())
}

func TestRoutePattern(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	var got string
	r.GET("/sessions/:id/documents", func(c *gin.Context) {
		got = routePattern(c)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions/sess-1/documents", nil))
	assert.Equal(t, "/sessions/:id/documents", got)
}

func TestDefaultHTTPMetricsConfig(t *testing.T) {
	cfg := DefaultHTTPMetricsConfig()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "legal-intake-backend", cfg.ServiceName)
	assert.Nil(t, cfg.MeterProvider)
}

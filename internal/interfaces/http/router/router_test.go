package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/legalintake/backend/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNewRouter(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	assert.NotNil(t, r)
	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)
}

func TestRouterWithAPIVersion(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine, WithAPIVersion("v2"))

	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouterRegister(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	r.Register(RegistrarFunc(func(rg *gin.RouterGroup) {}))

	assert.Len(t, r.registrars, 1)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine, WithAPIVersion("v1"))

	r.Register(RegistrarFunc(func(rg *gin.RouterGroup) {
		rg.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})
	}))
	r.Setup()

	req := httptest.NewRequest("GET", "/api/v1/ping", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}

func TestRouterUse(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	r.Use(func(c *gin.Context) {
		c.Header("X-Test-Middleware", "applied")
		c.Next()
	})
	r.Register(RegistrarFunc(func(rg *gin.RouterGroup) {
		rg.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})
	}))
	r.Setup()

	req := httptest.NewRequest("GET", "/api/v1/ping", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "applied", w.Header().Get("X-Test-Middleware"))
}

func TestRouterVersionPrefix(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine, WithAPIVersion("v2"))

	r.Register(RegistrarFunc(func(rg *gin.RouterGroup) {
		rg.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})
	}))
	r.Setup()

	t.Run("v2 path resolves", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v2/ping", nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("v1 path does not", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/ping", nil)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestSystemRoutes(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)
	r.Register(SystemRoutes(handler.NewSystemHandler()))
	r.Setup()

	req := httptest.NewRequest("GET", "/api/v1/system/ping", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pong")
}

func TestWorkflowRoutesRegistered(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)
	r.Register(WorkflowRoutes(&handler.WorkflowHandler{}, &handler.DocumentHandler{}))
	r.Register(FileRoutes(&handler.UploadHandler{}))
	r.Register(DocumentRoutes(&handler.DocumentHandler{}))
	r.Setup()

	routes := make(map[string]bool)
	for _, route := range engine.Routes() {
		routes[route.Method+" "+route.Path] = true
	}

	expected := []string{
		"POST /api/v1/workflow/sessions",
		"GET /api/v1/workflow/sessions",
		"GET /api/v1/workflow/sessions/:id",
		"DELETE /api/v1/workflow/sessions/:id",
		"POST /api/v1/workflow/sessions/:id/answers",
		"POST /api/v1/workflow/sessions/:id/summary",
		"POST /api/v1/workflow/sessions/:id/templates",
		"POST /api/v1/workflow/sessions/:id/back",
		"POST /api/v1/workflow/sessions/:id/ocr",
		"POST /api/v1/workflow/sessions/:id/finalize",
		"POST /api/v1/workflow/sessions/:id/resume",
		"GET /api/v1/workflow/sessions/:id/completion",
		"GET /api/v1/workflow/sessions/:id/documents",
		"POST /api/v1/files",
		"GET /api/v1/files/:id/url",
		"GET /api/v1/documents/:id/url",
	}
	for _, route := range expected {
		assert.True(t, routes[route], "missing route %s", route)
	}
}

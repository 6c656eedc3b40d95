package router

import (
	"github.com/legalintake/backend/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// RegistrarFunc adapts a plain function to the RouteRegistrar interface
type RegistrarFunc func(rg *gin.RouterGroup)

// RegisterRoutes implements RouteRegistrar
func (f RegistrarFunc) RegisterRoutes(rg *gin.RouterGroup) {
	f(rg)
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	apiVersion string
	middleware []gin.HandlerFunc
	registrars []RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
		registrars: make([]RouteRegistrar, 0),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Use adds middleware applied to the versioned API group before any routes
func (r *Router) Use(middleware ...gin.HandlerFunc) *Router {
	r.middleware = append(r.middleware, middleware...)
	return r
}

// Register adds a RouteRegistrar to be registered later
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// Setup registers all routes with the engine
func (r *Router) Setup() {
	api := r.engine.Group("/api/" + r.apiVersion)
	if len(r.middleware) > 0 {
		api.Use(r.middleware...)
	}

	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// WorkflowRoutes wires the questionnaire workflow endpoints. Generated
// document listings live under the session they belong to. resumeGuards are
// applied to the resume endpoint only, which is the one that can be probed
// for other people's sessions.
func WorkflowRoutes(wf *handler.WorkflowHandler, docs *handler.DocumentHandler, resumeGuards ...gin.HandlerFunc) RouteRegistrar {
	return RegistrarFunc(func(rg *gin.RouterGroup) {
		sessions := rg.Group("/workflow/sessions")
		sessions.POST("", wf.Start)
		sessions.GET("", wf.List)
		sessions.GET("/:id", wf.Get)
		sessions.DELETE("/:id", wf.Delete)
		sessions.POST("/:id/answers", wf.SubmitAnswer)
		sessions.POST("/:id/summary", wf.ValidateSummary)
		sessions.POST("/:id/templates", wf.SelectTemplates)
		sessions.POST("/:id/back", wf.GoBack)
		sessions.POST("/:id/ocr", wf.MergeOCR)
		sessions.POST("/:id/finalize", wf.Finalize)
		sessions.POST("/:id/resume", append(resumeGuards, wf.Resume)...)
		sessions.GET("/:id/completion", wf.Completion)
		sessions.GET("/:id/documents", docs.ListBySession)
	})
}

// FileRoutes wires the upload endpoints
func FileRoutes(up *handler.UploadHandler) RouteRegistrar {
	return RegistrarFunc(func(rg *gin.RouterGroup) {
		files := rg.Group("/files")
		files.POST("", up.Upload)
		files.GET("/:id/url", up.DownloadURL)
	})
}

// DocumentRoutes wires the generated document endpoints
func DocumentRoutes(docs *handler.DocumentHandler) RouteRegistrar {
	return RegistrarFunc(func(rg *gin.RouterGroup) {
		documents := rg.Group("/documents")
		documents.GET("/:id/url", docs.DownloadURL)
	})
}

// SystemRoutes wires the system info endpoints
func SystemRoutes(sys *handler.SystemHandler) RouteRegistrar {
	return RegistrarFunc(func(rg *gin.RouterGroup) {
		system := rg.Group("/system")
		system.GET("/info", sys.GetSystemInfo)
		system.GET("/ping", sys.Ping)
	})
}

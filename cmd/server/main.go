package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/legalintake/backend/docs"
	questionnaireapp "github.com/legalintake/backend/internal/application/questionnaire"
	uploadapp "github.com/legalintake/backend/internal/application/upload"
	"github.com/legalintake/backend/internal/domain/questionnaire"
	"github.com/legalintake/backend/internal/infrastructure/auth"
	"github.com/legalintake/backend/internal/infrastructure/config"
	"github.com/legalintake/backend/internal/infrastructure/docgen"
	"github.com/legalintake/backend/internal/infrastructure/llm"
	"github.com/legalintake/backend/internal/infrastructure/lock"
	"github.com/legalintake/backend/internal/infrastructure/logger"
	"github.com/legalintake/backend/internal/infrastructure/ocr"
	"github.com/legalintake/backend/internal/infrastructure/persistence"
	"github.com/legalintake/backend/internal/infrastructure/scheduler"
	"github.com/legalintake/backend/internal/infrastructure/storage"
	"github.com/legalintake/backend/internal/infrastructure/telemetry"
	"github.com/legalintake/backend/internal/interfaces/http/handler"
	"github.com/legalintake/backend/internal/interfaces/http/middleware"
	"github.com/legalintake/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

//	@title			Legal Intake Backend API
//	@version		1.0
//	@description	法律咨询预录入系统后端 API - 可恢复的问卷工作流与文书生成服务

//	@contact.name	API Support

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Legal Intake Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Initialize database connection
	db, err := persistence.NewDatabaseWithZapLogger(&cfg.Database, log, logger.MapGormLogLevel(cfg.Log.Level))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize tracing
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Initialize metrics
	meterProvider, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	// Register database instrumentation
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:          true,
			LogFullSQL:       cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh:  cfg.Telemetry.DBSlowQueryThresh,
			DBSystem:         "postgresql",
			WithoutVariables: !cfg.Telemetry.DBLogFullSQL,
		}, log)
		if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
			log.Warn("Failed to register database tracing", zap.Error(err))
		}
	}
	if cfg.Telemetry.Enabled {
		dbMetrics, err := telemetry.RegisterDBMetrics(db.DB, meterProvider, telemetry.DefaultDBMetricsConfig(), log)
		if err != nil {
			log.Warn("Failed to register database metrics", zap.Error(err))
		} else if dbMetrics != nil {
			dbMetrics.StartPoolStatsCollection(context.Background())
			defer dbMetrics.Stop()
		}
	}

	// Initialize repositories
	sessionRepo := persistence.NewGormSessionRepository(db.DB)
	checkpointStore := persistence.NewGormCheckpointStore(db.DB)
	submissionRepo := persistence.NewGormSubmissionRepository(db.DB)
	caseRepo := persistence.NewGormCaseRepository(db.DB)
	fileRepo := persistence.NewGormFileRepository(db.DB)
	documentRepo := persistence.NewGormDocumentRepository(db.DB)

	// Session locking: Redis when reachable, in-process fallback otherwise
	lockerFactory := lock.NewSessionLockerFactory(cfg.Redis,
		lock.WithFactoryLogger(log),
		lock.WithFactoryLockTTL(cfg.Session.LockTTL))
	locker, err := lockerFactory.CreateLocker()
	if err != nil {
		log.Fatal("Failed to create session locker", zap.Error(err))
	}

	// Object storage for uploads and generated documents
	objectStorage, err := storage.NewObjectStorage(&cfg.Storage, log)
	if err != nil {
		log.Fatal("Failed to initialize object storage", zap.Error(err))
	}

	// Summary generation via Ollama with a deterministic fallback
	summaryGenerator := llm.NewOllamaGenerator(cfg.LLM, log)

	// Document generation: template fill plus optional PDF rendering
	templateStore := docgen.NewTemplateStore(cfg.Document.TemplateDir)
	generatorOpts := []docgen.GeneratorOption{
		docgen.WithDocumentRepository(documentRepo),
		docgen.WithGeneratorLogger(log),
	}
	if cfg.Document.Renderer == "chromedp" {
		renderer, err := docgen.NewChromedpRenderer(&docgen.ChromedpConfig{
			DefaultTimeout: cfg.Document.RenderTimeout,
			PageFormat:     cfg.Document.PageFormat,
			NoSandbox:      true,
			Logger:         log,
		})
		if err != nil {
			log.Warn("Failed to initialize PDF renderer, documents stay HTML", zap.Error(err))
		} else {
			generatorOpts = append(generatorOpts, docgen.WithPDFRenderer(renderer))
			defer renderer.Close()
		}
	}
	documentGenerator := docgen.NewGenerator(templateStore, objectStorage, generatorOpts...)

	// Workflow engine over the traffic accident catalog
	catalog := questionnaire.TrafficAccidentCatalog()
	engine := questionnaire.NewEngine(catalog, summaryGenerator, documentGenerator,
		questionnaire.WithGeneratorTimeout(cfg.Session.GeneratorTimeout),
		questionnaire.WithEngineLogger(log))

	// Upload service with best-effort OCR extraction
	ocrClient := ocr.NewClient(cfg.OCR, log)
	uploadService := uploadapp.NewService(objectStorage, fileRepo,
		uploadapp.WithFieldExtractor(ocrClient),
		uploadapp.WithLogger(log))

	// Workflow application service
	workflowService := questionnaireapp.NewWorkflowService(
		engine, catalog, checkpointStore, sessionRepo, submissionRepo, locker,
		questionnaireapp.WithCaseRepository(caseRepo),
		questionnaireapp.WithFileResolver(uploadService),
		questionnaireapp.WithSessionTTL(cfg.Session.TTL),
		questionnaireapp.WithLogger(log),
	)

	// Background expiry sweeper
	if cfg.Scheduler.Enabled {
		sweeper := scheduler.NewExpirySweeper(cfg.Scheduler, workflowService, log)
		if err := sweeper.Start(context.Background()); err != nil {
			log.Fatal("Failed to start expiry sweeper", zap.Error(err))
		}
		defer func() {
			if err := sweeper.Stop(context.Background()); err != nil {
				log.Error("Error stopping expiry sweeper", zap.Error(err))
			}
		}()
		log.Info("Expiry sweeper started",
			zap.Duration("interval", cfg.Scheduler.ExpirySweepInterval))
	}

	// Intake gauges observed from the session table
	if cfg.Telemetry.Enabled {
		_, err := telemetry.NewIntakeMetrics(telemetry.IntakeMetricsConfig{
			Meter:           meterProvider.Meter("legal-intake-backend"),
			Logger:          log,
			SessionProvider: telemetry.NewGormSessionMetricsProvider(db.DB),
		})
		if err != nil {
			log.Warn("Failed to initialize intake metrics", zap.Error(err))
		}
	}

	// Continuous profiling
	if cfg.Profiler.Enabled {
		profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
			Enabled:             true,
			ServerAddress:       cfg.Profiler.ServerAddress,
			ApplicationName:     cfg.Profiler.ApplicationName,
			BasicAuthUser:       cfg.Profiler.BasicAuthUser,
			BasicAuthPassword:   cfg.Profiler.BasicAuthPass,
			ProfileCPU:          true,
			ProfileAllocObjects: true,
			ProfileAllocSpace:   true,
			ProfileInuseObjects: true,
			ProfileInuseSpace:   true,
			ProfileGoroutines:   true,
		}, log)
		if err != nil {
			log.Warn("Failed to start continuous profiler", zap.Error(err))
		} else {
			defer func() {
				if err := profiler.Stop(); err != nil {
					log.Error("Error stopping profiler", zap.Error(err))
				}
			}()
		}
	}

	// JWT authentication
	jwtService := auth.NewJWTService(cfg.JWT)
	tokenBlacklist := auth.NewTokenBlacklistFromConfig(cfg.Redis, log)

	// Initialize HTTP handlers
	workflowHandler := handler.NewWorkflowHandler(workflowService)
	uploadHandler := handler.NewUploadHandler(uploadService)
	documentHandler := handler.NewDocumentHandler(documentRepo, objectStorage)
	systemHandler := handler.NewSystemHandler()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	engineHTTP := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engineHTTP.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware stack, outermost first
	engineHTTP.Use(middleware.RequestID())
	engineHTTP.Use(logger.Recovery(log))
	engineHTTP.Use(logger.GinMiddleware(log))
	engineHTTP.Use(middleware.Secure())

	if cfg.Telemetry.Enabled {
		engineHTTP.Use(middleware.TracingWithConfig(middleware.TracingConfig{
			Enabled: true,
		}))
		engineHTTP.Use(middleware.HTTPMetricsWithMeter(meterProvider.Meter("legal-intake-backend"), true))
	}
	if cfg.Profiler.Enabled {
		engineHTTP.Use(middleware.Profiling())
	}

	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engineHTTP.Use(middleware.CORSWithConfig(corsConfig))

	engineHTTP.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engineHTTP.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning)
	engineHTTP.GET("/health", healthHandler(db))

	// Swagger documentation endpoint
	jwtConfig := middleware.JWTMiddlewareConfig{
		JWTService:     jwtService,
		TokenBlacklist: tokenBlacklist,
		SkipPaths: []string{
			"/api/v1/ping",
			"/api/v1/system/ping",
			"/api/v1/system/info",
		},
		Logger: log,
	}
	jwtMiddleware := middleware.JWTAuthMiddlewareWithConfig(jwtConfig)

	swaggerGroup := engineHTTP.Group("/swagger")
	swaggerGroup.Use(middleware.SwaggerProtection(middleware.SwaggerConfig{
		Enabled:     cfg.Swagger.Enabled,
		RequireAuth: cfg.Swagger.RequireAuth,
		AllowedIPs:  cfg.Swagger.AllowedIPs,
	}, jwtMiddleware))
	swaggerGroup.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	var resumeGuards []gin.HandlerFunc
	if cfg.HTTP.AuthRateLimitEnabled {
		resumeLimiter := middleware.NewRateLimiter(cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow)
		resumeGuards = append(resumeGuards, middleware.AuthRateLimit(resumeLimiter))
		log.Info("Resume rate limiting enabled",
			zap.Int("requests", cfg.HTTP.AuthRateLimitRequests),
			zap.Duration("window", cfg.HTTP.AuthRateLimitWindow),
		)
	}

	// Setup API routes
	r := router.NewRouter(engineHTTP, router.WithAPIVersion("v1"))
	r.Use(jwtMiddleware)
	r.Register(router.WorkflowRoutes(workflowHandler, documentHandler, resumeGuards...))
	r.Register(router.FileRoutes(uploadHandler))
	r.Register(router.DocumentRoutes(documentHandler))
	r.Register(router.SystemRoutes(systemHandler))
	r.Setup()

	// Simple ping at root API level for basic health checks
	engineHTTP.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engineHTTP,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		body := gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		}
		if stats, err := db.Stats(); err == nil {
			body["pool"] = gin.H{
				"open":     stats.OpenConnections,
				"in_use":   stats.InUse,
				"idle":     stats.Idle,
				"waits":    stats.WaitCount,
				"max_open": stats.MaxOpenConnections,
			}
		}
		c.JSON(http.StatusOK, body)
	}
}

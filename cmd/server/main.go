package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/printdesk/backend/docs"
	"github.com/printdesk/backend/internal/infrastructure/config"
	"github.com/printdesk/backend/internal/infrastructure/logger"
	"github.com/printdesk/backend/internal/infrastructure/persistence"
	"github.com/printdesk/backend/internal/interfaces/http/handler"
	"github.com/printdesk/backend/internal/interfaces/http/middleware"
	"github.com/printdesk/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title			Print Dispatch API
//	@version		1.0
//	@description	Accepts documents for printing, hands them to CUPS, the Windows spooler or an IPP printer, and tracks each job to a final status.

//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token. Format: "Bearer {token}". Without a configured secret the X-User-ID header identifies the caller.

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel, log := setupTelemetry(ctx, cfg, log)
	defer tel.shutdown(log)

	log.Info("Starting print dispatch backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", version),
		zap.String("port", cfg.App.Port),
		zap.String("backend", cfg.Printing.Backend),
	)

	db, err := openDatabase(cfg, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	app, err := buildApp(ctx, cfg, db, tel, log)
	if err != nil {
		log.Fatal("Failed to initialize print pipeline", zap.Error(err))
	}
	defer app.close(log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine, err := newEngine(cfg, app, db, tel, log)
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Readiness probing and resume run after the listener is up so the
	// health endpoint answers while devices are checked
	app.startBackground(ctx, log)

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	app.stop(shutdownCtx, log)

	log.Info("Server exited gracefully")
}

// newEngine builds the gin engine with the middleware chain and all routes
func newEngine(cfg *config.Config, app *application, db *persistence.Database, tel *telemetryStack, log *zap.Logger) (*gin.Engine, error) {
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Order: request id, tracing, recovery, request log, security headers,
	// CORS, body limit, metrics, profiling labels
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
		SkipPaths:   []string{"/health"},
	}))
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORS(cors))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	httpMetrics, err := middleware.HTTPMetrics(tel.meter.Meter("printdesk/http"))
	if err != nil {
		return nil, err
	}
	engine.Use(httpMetrics)
	if tel.profiler != nil && tel.profiler.IsEnabled() {
		engine.Use(middleware.Profiling("/health", router.SwaggerPath))
	}

	system := handler.NewSystemHandler(cfg.App.Name, version)
	system.AddCheck("database", handler.PingFunc(func(context.Context) error { return db.Ping() }))
	if app.redis != nil {
		system.AddCheck("redis", handler.PingFunc(func(ctx context.Context) error {
			return app.redis.Ping(ctx).Err()
		}))
	}
	system.SetStreamCounter(app.hub.Clients)
	engine.GET("/health", system.Health)

	identity := middleware.Identity(middleware.IdentityConfig{
		Tokens: app.tokens,
		Logger: log,
		SkipPaths: []string{
			"/api/v1/ping",
			"/api/v1/system/ping",
			"/api/v1/system/info",
		},
	})

	docs := middleware.SwaggerProtection(middleware.SwaggerConfig{
		Enabled:     cfg.Swagger.Enabled,
		RequireAuth: cfg.Swagger.RequireAuth,
		AllowedIPs:  cfg.Swagger.AllowedIPs,
	}, identity)
	r := router.NewRouter(engine, router.WithAPIVersion("v1"), router.WithSwagger(docs)).
		Use(identity, middleware.SpanAttributes(), middleware.SpanErrorMarker())

	prints := handler.PrintRoutes(
		handler.NewPrintHandler(app.service, cfg.HTTP.MaxBodySize),
		handler.NewStreamHandler(app.hub),
	)
	r.Register(prints).Register(handler.SystemRoutes(system))
	api := r.Setup()
	api.GET("/ping", system.Ping)

	for _, route := range prints.Routes() {
		log.Debug("Route registered", zap.String("method", route.Method), zap.String("path", "/api/v1"+route.Path))
	}
	return engine, nil
}

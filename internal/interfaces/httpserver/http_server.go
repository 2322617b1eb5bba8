package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	videoapidocs "github.com/vidflow/video-api/docs/swagger"
	"github.com/vidflow/video-api/internal/config"
	"github.com/vidflow/video-api/internal/domain/transcoder"
	"github.com/vidflow/video-api/internal/infrastructure/auth"
	"github.com/vidflow/video-api/internal/interfaces/httpserver/handlers"
	"github.com/vidflow/video-api/internal/interfaces/httpserver/middlewares"
	"github.com/vidflow/video-api/internal/interfaces/httpserver/routes"
)

const readinessTimeout = 3 * time.Second

// DatabasePinger reports whether the catalog store is reachable.
type DatabasePinger interface {
	Ping(ctx context.Context) error
}

// StorageChecker reports whether object storage is configured and reachable.
type StorageChecker interface {
	Enabled() bool
	Health(ctx context.Context) error
}

// HttpServer wraps the gin engine with graceful shutdown helpers.
type HttpServer struct {
	cfg    *config.Config
	engine *gin.Engine
	log    zerolog.Logger
}

// New constructs the HTTP server with default middleware and routes.
func New(
	cfg *config.Config,
	log zerolog.Logger,
	provider *handlers.Provider,
	authValidator *auth.Validator,
	gateway *transcoder.Gateway,
	db DatabasePinger,
	storage StorageChecker,
) *HttpServer {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	videoapidocs.SwaggerInfo.BasePath = "/"

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		middlewares.RequestID(),
		middlewares.Tracing(cfg.ServiceName),
		middlewares.MetricsMiddleware(),
		middlewares.LoggingMiddleware(log.With().Str("component", "http").Logger()),
	)

	registerCoreRoutes(engine, cfg, authValidator, db, storage)
	routes.NewRoutes(provider, authValidator, gateway, log).Register(engine.Group("/"))

	return &HttpServer{
		cfg:    cfg,
		engine: engine,
		log:    log,
	}
}

// Handler exposes the engine, mainly for tests.
func (s *HttpServer) Handler() http.Handler {
	return s.engine
}

// Run starts the HTTP listener and handles graceful shutdown via context cancellation.
func (s *HttpServer) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr()).Msg("video-api HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		s.log.Info().Msg("context cancelled, shutting down HTTP server")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func registerCoreRoutes(engine *gin.Engine, cfg *config.Config, authValidator *auth.Validator, db DatabasePinger, storage StorageChecker) {
	engine.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"service": cfg.ServiceName, "status": "ok"})
	})
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	engine.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
		defer cancel()

		checks := gin.H{"database": "ok", "storage": "ok"}
		ready := true
		if db != nil {
			if err := db.Ping(ctx); err != nil {
				checks["database"] = err.Error()
				ready = false
			}
		}
		switch {
		case storage == nil:
		case !storage.Enabled():
			// Catalog reads still work; upload and stream credentials fail.
			checks["storage"] = "disabled"
		default:
			if err := storage.Health(ctx); err != nil {
				checks["storage"] = err.Error()
				ready = false
			}
		}

		if !ready {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "checks": checks})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "checks": checks})
	})
	engine.GET("/health/auth", func(c *gin.Context) {
		if authValidator == nil || authValidator.Ready() {
			c.JSON(http.StatusOK, gin.H{"status": "ready"})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "initializing"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

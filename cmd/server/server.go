package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vidflow/video-api/internal/config"
	"github.com/vidflow/video-api/internal/domain/like"
	"github.com/vidflow/video-api/internal/domain/transcoder"
	"github.com/vidflow/video-api/internal/domain/upload"
	"github.com/vidflow/video-api/internal/domain/video"
	"github.com/vidflow/video-api/internal/infrastructure/auth"
	"github.com/vidflow/video-api/internal/infrastructure/crontab"
	"github.com/vidflow/video-api/internal/infrastructure/logger"
	"github.com/vidflow/video-api/internal/infrastructure/observability"
	"github.com/vidflow/video-api/internal/infrastructure/redis"
	"github.com/vidflow/video-api/internal/infrastructure/storage"
	"github.com/vidflow/video-api/internal/interfaces/httpserver"
	"github.com/vidflow/video-api/internal/interfaces/httpserver/handlers"
	"github.com/vidflow/video-api/internal/worker"
)

const workerDrainTimeout = 30 * time.Second

// @title VidFlow Video API
// @version 1.0
// @description Upload, publishing and engagement service for VidFlow videos
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
type Application struct {
	httpServer *httpserver.HttpServer
	crontab    *crontab.Crontab
	pool       *worker.Pool
	redis      *redis.Client
	validator  *auth.Validator
	log        zerolog.Logger
}

func NewApplication(
	httpServer *httpserver.HttpServer,
	ctab *crontab.Crontab,
	pool *worker.Pool,
	redisClient *redis.Client,
	validator *auth.Validator,
	log zerolog.Logger,
) *Application {
	return &Application{
		httpServer: httpServer,
		crontab:    ctab,
		pool:       pool,
		redis:      redisClient,
		validator:  validator,
		log:        log,
	}
}

// Start runs background jobs alongside the HTTP server and blocks until ctx is
// done or one of them fails.
func (a *Application) Start(ctx context.Context) error {
	defer a.close()

	eg, gctx := errgroup.WithContext(ctx)
	if a.crontab != nil {
		eg.Go(func() error {
			return a.crontab.Run(gctx)
		})
	}
	if a.pool != nil {
		a.pool.Start(gctx)
	}
	eg.Go(func() error {
		return a.httpServer.Run(gctx)
	})

	return eg.Wait()
}

func (a *Application) close() {
	if a.pool != nil {
		a.pool.Stop(workerDrainTimeout)
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Error().Err(err).Msg("close redis")
		}
	}
	if a.validator != nil {
		a.validator.Close()
	}
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	app, err := buildApplication(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("build application")
	}

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

func buildApplication(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Application, error) {
	repos, err := provideRepositories(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	redisClient, err := provideRedis(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	sqsClient, err := provideSQS(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize sqs: %w", err)
	}
	dispatcher, err := provideDispatcher(cfg, redisClient, sqsClient, log)
	if err != nil {
		return nil, err
	}

	storageClient, err := storage.NewS3Storage(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("initialize storage: %w", err)
	}

	videoService := video.NewService(cfg, repos.Videos, storageClient, log)
	uploadService := upload.NewService(cfg, repos.Uploads, repos.Videos, storageClient, dispatcher, log)
	likeService := like.NewService(repos.Likes, repos.Videos, log)
	gateway := transcoder.NewGateway(provideTranscoderSecrets(cfg), uploadService, log)

	validator, err := auth.NewValidator(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("initialize auth: %w", err)
	}

	provider := handlers.NewProvider(videoService, uploadService, likeService, gateway, log)
	httpServer := httpserver.New(cfg, log, provider, validator, gateway, repos.Pinger, storageClient)

	return NewApplication(
		httpServer,
		provideCrontab(cfg, uploadService, redisClient, log),
		provideResultPool(cfg, sqsClient, gateway, log),
		redisClient,
		validator,
		log,
	), nil
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}

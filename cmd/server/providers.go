package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/vidflow/video-api/internal/config"
	"github.com/vidflow/video-api/internal/domain/like"
	"github.com/vidflow/video-api/internal/domain/upload"
	"github.com/vidflow/video-api/internal/domain/video"
	"github.com/vidflow/video-api/internal/infrastructure/crontab"
	"github.com/vidflow/video-api/internal/infrastructure/database"
	"github.com/vidflow/video-api/internal/infrastructure/queue"
	"github.com/vidflow/video-api/internal/infrastructure/redis"
	"github.com/vidflow/video-api/internal/infrastructure/repository/memory"
	likerepo "github.com/vidflow/video-api/internal/infrastructure/repository/like"
	uploadrepo "github.com/vidflow/video-api/internal/infrastructure/repository/upload"
	videorepo "github.com/vidflow/video-api/internal/infrastructure/repository/video"
	"github.com/vidflow/video-api/internal/interfaces/httpserver"
	"github.com/vidflow/video-api/internal/worker"
)

// Repositories groups the persistence backends selected by DATABASE_BACKEND.
type Repositories struct {
	Videos  video.Repository
	Uploads upload.Repository
	Likes   like.Repository
	Pinger  httpserver.DatabasePinger
}

func provideRepositories(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Repositories, error) {
	if cfg.IsMemoryDatabase() {
		log.Warn().Msg("DATABASE_BACKEND=memory: data is kept in process and lost on restart")
		store := memory.NewStore()
		return &Repositories{
			Videos:  store.Videos(),
			Uploads: store.Uploads(),
			Likes:   store.Likes(),
			Pinger:  store,
		}, nil
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := database.AutoMigrate(ctx, db, log); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return &Repositories{
		Videos:  videorepo.NewRepository(db),
		Uploads: uploadrepo.NewRepository(db),
		Likes:   likerepo.NewRepository(db),
		Pinger:  database.NewPinger(db),
	}, nil
}

func provideVideoRepository(r *Repositories) video.Repository { return r.Videos }
func provideUploadRepository(r *Repositories) upload.Repository { return r.Uploads }
func provideLikeRepository(r *Repositories) like.Repository { return r.Likes }
func provideDatabasePinger(r *Repositories) httpserver.DatabasePinger {
	return r.Pinger
}

func provideUploadVideoReader(r *Repositories) upload.VideoReader {
	return r.Videos
}

func provideLikeVideoReader(r *Repositories) like.VideoReader {
	return r.Videos
}

// provideRedis connects when REDIS_URL is set; a nil client means Redis is not in use.
func provideRedis(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}
	return redis.NewClient(ctx, cfg.RedisURL, log)
}

// provideSQS builds a client only when a queue is configured.
func provideSQS(ctx context.Context, cfg *config.Config) (queue.SQSAPI, error) {
	if cfg.TranscodeDispatch != "sqs" && cfg.TranscodeResultsQueueURL == "" {
		return nil, nil
	}
	client, err := queue.NewSQSClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func provideDispatcher(cfg *config.Config, redisClient *redis.Client, sqsClient queue.SQSAPI, log zerolog.Logger) (upload.Dispatcher, error) {
	switch cfg.TranscodeDispatch {
	case "redis":
		if redisClient == nil {
			return nil, fmt.Errorf("TRANSCODE_DISPATCH=redis requires REDIS_URL")
		}
		return queue.NewRedisDispatcher(redisClient.Universal(), cfg.TranscodeRedisList, log), nil
	case "sqs":
		return queue.NewSQSDispatcher(sqsClient, cfg.TranscodeJobsQueueURL, log), nil
	default:
		return queue.NewLogDispatcher(log), nil
	}
}

func provideCrontab(cfg *config.Config, uploads *upload.Service, redisClient *redis.Client, log zerolog.Logger) *crontab.Crontab {
	if !cfg.ExpirySweepEnabled {
		return nil
	}
	var locker crontab.Locker
	if redisClient != nil {
		locker = redisClient
	}
	return crontab.NewCrontab(cfg, uploads, locker, log)
}

func provideResultPool(cfg *config.Config, sqsClient queue.SQSAPI, reporter worker.Reporter, log zerolog.Logger) *worker.Pool {
	if cfg.TranscodeResultsQueueURL == "" || sqsClient == nil {
		return nil
	}
	source := queue.NewSQSResultSource(sqsClient, cfg.TranscodeResultsQueueURL)
	return worker.NewPool(source, reporter, worker.Config{
		WorkerCount: cfg.TranscodeResultWorkers,
		TaskTimeout: cfg.TranscodeResultTimeout,
	}, log)
}

func provideTranscoderSecrets(cfg *config.Config) []string {
	return cfg.TranscoderSecrets()
}

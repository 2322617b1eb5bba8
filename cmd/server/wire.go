//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"

	"github.com/vidflow/video-api/internal/config"
	"github.com/vidflow/video-api/internal/domain/like"
	"github.com/vidflow/video-api/internal/domain/transcoder"
	"github.com/vidflow/video-api/internal/domain/upload"
	"github.com/vidflow/video-api/internal/domain/video"
	"github.com/vidflow/video-api/internal/infrastructure/auth"
	"github.com/vidflow/video-api/internal/infrastructure/logger"
	"github.com/vidflow/video-api/internal/infrastructure/storage"
	"github.com/vidflow/video-api/internal/interfaces/httpserver"
	"github.com/vidflow/video-api/internal/interfaces/httpserver/handlers"
	"github.com/vidflow/video-api/internal/worker"
)

var persistenceSet = wire.NewSet(
	provideRepositories,
	provideVideoRepository,
	provideUploadRepository,
	provideLikeRepository,
	provideDatabasePinger,
	provideUploadVideoReader,
	provideLikeVideoReader,
)

var storageSet = wire.NewSet(
	storage.NewS3Storage,
	wire.Bind(new(video.ObjectStore), new(*storage.S3Storage)),
	wire.Bind(new(upload.Storage), new(*storage.S3Storage)),
	wire.Bind(new(httpserver.StorageChecker), new(*storage.S3Storage)),
)

var transcodeSet = wire.NewSet(
	provideRedis,
	provideSQS,
	provideDispatcher,
	provideTranscoderSecrets,
	transcoder.NewGateway,
	wire.Bind(new(transcoder.Finalizer), new(*upload.Service)),
	wire.Bind(new(worker.Reporter), new(*transcoder.Gateway)),
	provideResultPool,
	provideCrontab,
)

// BuildApplication assembles the video API with Wire.
func BuildApplication(ctx context.Context) (*Application, error) {
	wire.Build(
		config.Load,
		logger.New,
		auth.NewValidator,
		persistenceSet,
		storageSet,
		transcodeSet,
		video.NewService,
		upload.NewService,
		like.NewService,
		handlers.NewProvider,
		httpserver.New,
		NewApplication,
	)
	return nil, nil
}

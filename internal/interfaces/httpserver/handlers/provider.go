package handlers

import (
	"github.com/rs/zerolog"

	"github.com/vidflow/video-api/internal/domain/like"
	"github.com/vidflow/video-api/internal/domain/transcoder"
	"github.com/vidflow/video-api/internal/domain/upload"
	"github.com/vidflow/video-api/internal/domain/video"
)

// Provider wires HTTP handlers.
type Provider struct {
	Video      *VideoHandler
	Upload     *UploadHandler
	Like       *LikeHandler
	Transcoder *TranscoderHandler
}

func NewProvider(
	videos *video.Service,
	uploads *upload.Service,
	likes *like.Service,
	gateway *transcoder.Gateway,
	log zerolog.Logger,
) *Provider {
	return &Provider{
		Video:      NewVideoHandler(videos, log),
		Upload:     NewUploadHandler(uploads, log),
		Like:       NewLikeHandler(likes, log),
		Transcoder: NewTranscoderHandler(gateway, log),
	}
}

package responses

import (
	"time"

	"github.com/vidflow/video-api/internal/domain/like"
	"github.com/vidflow/video-api/internal/domain/upload"
	"github.com/vidflow/video-api/internal/domain/video"
)

// CompleteUploadResponse wraps the provisional video created by complete.
type CompleteUploadResponse struct {
	Video *video.Video `json:"video"`
}

// StreamResponse carries a time-limited playback URL.
type StreamResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// TransitionResponse acknowledges a transcoder report.
type TransitionResponse struct {
	Key     string       `json:"key"`
	State   upload.State `json:"state"`
	Changed bool         `json:"changed"`
	Video   *video.Video `json:"video,omitempty"`
}

func BuildTransitionResponse(t *upload.Transition) TransitionResponse {
	return TransitionResponse{
		Key:     t.Session.Key,
		State:   t.Session.State,
		Changed: t.Changed,
		Video:   t.Video,
	}
}

// LikeStatusResponse reports the caller's reaction to a video.
type LikeStatusResponse struct {
	Status like.Status `json:"status"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

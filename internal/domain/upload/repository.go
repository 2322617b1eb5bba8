package upload

import (
	"context"
	"time"

	"github.com/vidflow/video-api/internal/domain/video"
)

// Repository persists sessions. Every transition is a conditional update on the
// current state; the boolean result is false when the session was not in the
// expected source state.
type Repository interface {
	Create(ctx context.Context, session *Session) error
	GetByKey(ctx context.Context, key string) (*Session, error)
	// MarkUploaded inserts v and moves the session from initiated to uploaded in one transaction.
	MarkUploaded(ctx context.Context, key string, v *video.Video, expiresAt time.Time) (bool, error)
	// Finalize moves an uploaded session to target (published or failed) and mirrors it onto its video.
	Finalize(ctx context.Context, key string, target State, outcome Outcome) (bool, error)
	// Abandon moves an expirable session past its deadline to abandoned and drops its provisional video.
	Abandon(ctx context.Context, key string, now time.Time) (bool, error)
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*Session, error)
}

// Storage is the object storage surface used by the upload lifecycle.
type Storage interface {
	PresignPost(ctx context.Context, key, contentType string, maxBytes int64, ttl time.Duration) (*UploadTarget, error)
	// Head returns nil without error when the object does not exist.
	Head(ctx context.Context, key string) (*ObjectInfo, error)
	Delete(ctx context.Context, key string) error
}

// Dispatcher hands completed uploads to the transcoder.
type Dispatcher interface {
	Dispatch(ctx context.Context, job TranscodeJob) error
}

// VideoReader loads the video attached to a session.
type VideoReader interface {
	GetByID(ctx context.Context, id string) (*video.Video, error)
}

package like

import (
	"context"

	"github.com/vidflow/video-api/internal/domain/video"
)

// Repository stores reactions keyed by (user, video).
type Repository interface {
	// Upsert inserts or overwrites the kind in a single statement.
	Upsert(ctx context.Context, reaction *Reaction) (*Reaction, error)
	// Delete is a no-op when no reaction exists.
	Delete(ctx context.Context, videoID, userID string) error
	// Find returns nil without error when no reaction exists.
	Find(ctx context.Context, videoID, userID string) (*Reaction, error)
	Counts(ctx context.Context, videoID string) (Counts, error)
}

// VideoReader resolves the video a reaction targets.
type VideoReader interface {
	GetByID(ctx context.Context, id string) (*video.Video, error)
}

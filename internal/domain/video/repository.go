package video

import (
	"context"
	"time"
)

// Repository defines persistence operations needed by the catalog.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Video, error)
	List(ctx context.Context, filter Filter) ([]*Video, int64, error)
	Update(ctx context.Context, id string, patch Patch) (*Video, error)
	// Delete removes the video and its reactions in one transaction.
	Delete(ctx context.Context, id string) error
}

// ObjectStore is the storage surface the catalog needs.
type ObjectStore interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

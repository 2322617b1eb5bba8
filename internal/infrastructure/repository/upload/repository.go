package upload

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	domain "github.com/vidflow/video-api/internal/domain/upload"
	"github.com/vidflow/video-api/internal/domain/video"
	"github.com/vidflow/video-api/internal/infrastructure/database/entities"
	"github.com/vidflow/video-api/internal/utils/platformerrors"
)

// errNotMoved rolls a transition transaction back when the source state did not match.
var errNotMoved = errors.New("session not in source state")

var expirableStates = []string{string(domain.StateInitiated), string(domain.StateUploaded)}

// Repository persists upload sessions. Transitions are conditional updates on
// the current state, applied in the same transaction as the video they affect.
type Repository struct {
	db *gorm.DB
}

var _ domain.Repository = (*Repository)(nil)

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, session *domain.Session) error {
	err := r.db.WithContext(ctx).Create(entities.NewSchemaUploadSession(session)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeConflict,
			"upload session already exists", err, "4c0a6e2b-8f3d-4b57-9e1a-3d7f1b5c9e82")
	}
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to create upload session", err, "9e5b1f7c-3a8d-4d02-b6e4-8f2c6a0d4b19")
	}
	return nil
}

func (r *Repository) GetByKey(ctx context.Context, key string) (*domain.Session, error) {
	var entity entities.UploadSession
	err := r.db.WithContext(ctx).Where("storage_key = ?", key).First(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, platformerrors.NewErrorWithContext(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
			"upload session not found", err, "2a8d4f0b-6e1c-4a93-8b5f-1c7e3a9d5f26", map[string]any{"key": key})
	}
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to get upload session", err, "6f2b8d4a-0c5e-4e71-a9d3-5b1f7c3e9a40")
	}
	return entity.EtoD(), nil
}

func (r *Repository) MarkUploaded(ctx context.Context, key string, v *video.Video, expiresAt time.Time) (bool, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(entities.NewSchemaVideo(v)).Error; err != nil {
			return err
		}
		result := tx.Model(&entities.UploadSession{}).
			Where("storage_key = ? AND state = ?", key, string(domain.StateInitiated)).
			Updates(map[string]interface{}{
				"state":      string(domain.StateUploaded),
				"video_id":   v.ID,
				"expires_at": expiresAt,
				"updated_at": time.Now().UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errNotMoved
		}
		return nil
	})
	return r.transitionResult(ctx, err, "failed to complete upload session", "d1c7e3a9-5f2b-4b86-8d0e-4a6c2f8b1d53")
}

func (r *Repository) Finalize(ctx context.Context, key string, target domain.State, outcome domain.Outcome) (bool, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		sessionUpdates := map[string]interface{}{
			"state":      string(target),
			"outcome":    datatypes.NewJSONType(outcome),
			"updated_at": now,
		}

		result := tx.Model(&entities.UploadSession{}).
			Where("storage_key = ? AND state = ?", key, string(domain.StateUploaded)).
			Updates(sessionUpdates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errNotMoved
		}

		var session entities.UploadSession
		if err := tx.Where("storage_key = ?", key).First(&session).Error; err != nil {
			return err
		}
		if session.VideoID == nil {
			return nil
		}

		videoUpdates := map[string]interface{}{"updated_at": now}
		switch target {
		case domain.StatePublished:
			videoUpdates["state"] = string(video.StatePublished)
			if outcome.DurationSeconds > 0 {
				videoUpdates["duration_seconds"] = outcome.DurationSeconds
			}
		case domain.StateFailed:
			videoUpdates["state"] = string(video.StateFailed)
		}
		return tx.Model(&entities.Video{}).
			Where("id = ?", *session.VideoID).
			Updates(videoUpdates).
			Error
	})
	return r.transitionResult(ctx, err, "failed to finalize upload session", "7a3e9c5f-1b6d-4f20-b8a2-0e4d8f6c2a71")
}

func (r *Repository) Abandon(ctx context.Context, key string, now time.Time) (bool, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&entities.UploadSession{}).
			Where("storage_key = ? AND state IN ? AND expires_at <= ?", key, expirableStates, now).
			Updates(map[string]interface{}{
				"state":      string(domain.StateAbandoned),
				"updated_at": now.UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errNotMoved
		}

		var session entities.UploadSession
		if err := tx.Where("storage_key = ?", key).First(&session).Error; err != nil {
			return err
		}
		if session.VideoID == nil {
			return nil
		}
		if err := tx.Where("video_id = ?", *session.VideoID).Delete(&entities.Reaction{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", *session.VideoID).Delete(&entities.Video{}).Error
	})
	return r.transitionResult(ctx, err, "failed to abandon upload session", "b5f1d7a3-9c4e-4a68-8e2b-6d0a4c8f2e95")
}

func (r *Repository) transitionResult(ctx context.Context, err error, message, uuid string) (bool, error) {
	if errors.Is(err, errNotMoved) {
		return false, nil
	}
	if err != nil {
		return false, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			message, err, uuid)
	}
	return true, nil
}

func (r *Repository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*domain.Session, error) {
	var rows []entities.UploadSession
	query := r.db.WithContext(ctx).
		Where("state IN ? AND expires_at <= ?", expirableStates, now).
		Order("expires_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to list expired upload sessions", err, "3d9b5f1e-7a2c-4c84-a0e6-2f8b4d0a6c17")
	}

	out := make([]*domain.Session, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].EtoD())
	}
	return out, nil
}

package like

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/vidflow/video-api/internal/domain/like"
	"github.com/vidflow/video-api/internal/infrastructure/database/entities"
	"github.com/vidflow/video-api/internal/utils/platformerrors"
)

// Repository stores reactions. Contention on one (user, video) pair is
// serialized by the primary key upsert.
type Repository struct {
	db *gorm.DB
}

var _ domain.Repository = (*Repository)(nil)

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Upsert(ctx context.Context, reaction *domain.Reaction) (*domain.Reaction, error) {
	now := time.Now().UTC()
	entity := &entities.Reaction{
		UserID:    reaction.UserID,
		VideoID:   reaction.VideoID,
		Kind:      string(reaction.Kind),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "video_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"kind":       entity.Kind,
				"updated_at": now,
			}),
		}).
		Create(entity).
		Error
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return nil, platformerrors.NewErrorWithContext(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
			"video not found", err, "f4a0c6e2-8b3d-4d17-9f5a-1e7c3b9d5a60", map[string]any{"video_id": reaction.VideoID})
	}
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to upsert reaction", err, "0b6e2a8c-4d9f-4b31-a7c5-9e3f1d7b5c28")
	}

	persisted, err := r.Find(ctx, reaction.VideoID, reaction.UserID)
	if err != nil {
		return nil, err
	}
	if persisted == nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
			"reaction removed concurrently", nil, "8c2f6b0d-5e1a-4e94-b3d7-4a0c8e6f2b13")
	}
	return persisted, nil
}

func (r *Repository) Delete(ctx context.Context, videoID, userID string) error {
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND video_id = ?", userID, videoID).
		Delete(&entities.Reaction{}).
		Error
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to delete reaction", err, "5a1d7f3b-9e6c-4a08-8b2e-7f5d3a1c9e46")
	}
	return nil
}

func (r *Repository) Find(ctx context.Context, videoID, userID string) (*domain.Reaction, error) {
	var entity entities.Reaction
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND video_id = ?", userID, videoID).
		First(&entity).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to find reaction", err, "e9c5a1f7-3b8d-4f62-a0e4-6c2a8e4b0d91")
	}
	return entity.EtoD(), nil
}

func (r *Repository) Counts(ctx context.Context, videoID string) (domain.Counts, error) {
	var counts domain.Counts
	err := r.db.WithContext(ctx).
		Model(&entities.Reaction{}).
		Select("COUNT(*) FILTER (WHERE kind = ?) AS likes, COUNT(*) FILTER (WHERE kind = ?) AS dislikes",
			string(domain.KindLike), string(domain.KindDislike)).
		Where("video_id = ?", videoID).
		Scan(&counts).
		Error
	if err != nil {
		return domain.Counts{}, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to count reactions", err, "2f8d4b0e-6a3c-4e75-9d1b-0a6e2c8f4d37")
	}
	return counts, nil
}

package video

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/vidflow/video-api/internal/domain/access"
	domain "github.com/vidflow/video-api/internal/domain/video"
	"github.com/vidflow/video-api/internal/infrastructure/database/entities"
	"github.com/vidflow/video-api/internal/utils/platformerrors"
)

// Repository persists catalog rows and derives reaction tallies on read.
type Repository struct {
	db *gorm.DB
}

var _ domain.Repository = (*Repository)(nil)

var inFlightStates = []string{"initiated", "uploaded"}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type videoRow struct {
	entities.Video `gorm:"embedded"`
	LikeCount      int64
	DislikeCount   int64
}

func (row videoRow) toDomain() *domain.Video {
	v := row.Video.EtoD()
	v.LikeCount = row.LikeCount
	v.DislikeCount = row.DislikeCount
	return v
}

// withCounts joins the per-video reaction aggregate onto the videos table.
func (r *Repository) withCounts(ctx context.Context) *gorm.DB {
	counts := r.db.
		Table("video_reactions").
		Select("video_id, COUNT(*) FILTER (WHERE kind = ?) AS like_count, COUNT(*) FILTER (WHERE kind = ?) AS dislike_count",
			"like", "dislike").
		Group("video_id")

	return r.db.WithContext(ctx).
		Table("videos").
		Select("videos.*, COALESCE(rc.like_count, 0) AS like_count, COALESCE(rc.dislike_count, 0) AS dislike_count").
		Joins("LEFT JOIN (?) AS rc ON rc.video_id = videos.id", counts)
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Video, error) {
	var rows []videoRow
	err := r.withCounts(ctx).
		Where("videos.id = ?", id).
		Limit(1).
		Scan(&rows).
		Error
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to get video", err, "3e9a5c1f-7b2d-4f84-a6e0-1d8c4b7f2a95")
	}
	if len(rows) == 0 {
		return nil, platformerrors.NewErrorWithContext(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
			"video not found", nil, "8b4f0d6a-2c9e-4a37-9f1b-5e3a7c0d8b62", map[string]any{"video_id": id})
	}
	return rows[0].toDomain(), nil
}

func (r *Repository) List(ctx context.Context, filter domain.Filter) ([]*domain.Video, int64, error) {
	var total int64
	if err := r.applyFilter(r.db.WithContext(ctx).Table("videos"), filter).Count(&total).Error; err != nil {
		return nil, 0, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to count videos", err, "c6d2a8e4-0f5b-4b19-8d3c-7a1e9f5b3c40")
	}
	if total == 0 || int64(filter.Offset) >= total {
		return []*domain.Video{}, total, nil
	}

	var rows []videoRow
	query := r.applyFilter(r.withCounts(ctx), filter).
		Order(orderClause(filter.SortBy, filter.SortOrder)).
		Offset(filter.Offset)
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if err := query.Scan(&rows).Error; err != nil {
		return nil, 0, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to list videos", err, "1a7e3b9d-5c2f-4e60-b8a4-9d6f2c0e7b13")
	}

	out := make([]*domain.Video, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, total, nil
}

func (r *Repository) applyFilter(query *gorm.DB, filter domain.Filter) *gorm.DB {
	query = query.Where("videos.state <> ?", string(domain.StateFailed))
	if filter.OwnerID != "" {
		query = query.Where("videos.owner_id = ?", filter.OwnerID)
	}
	if !filter.Scope.IncludeNonPublic {
		query = query.Where("videos.visibility = ?", string(access.VisibilityPublic))
	}
	if !filter.Scope.IncludeUnpublished {
		query = query.Where("videos.state = ?", string(domain.StatePublished))
	}
	if filter.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(filter.Search)) + "%"
		query = query.Where("(LOWER(videos.title) LIKE ? OR LOWER(videos.description) LIKE ?)", pattern, pattern)
	}
	return query
}

// orderClause only ever interpolates whitelisted column names.
func orderClause(by domain.SortKey, order domain.SortOrder) string {
	column := "videos.created_at"
	switch by {
	case domain.SortByLikes:
		column = "like_count"
	case domain.SortByLength:
		column = "videos.duration_seconds"
	case domain.SortByTitle:
		column = "LOWER(videos.title)"
	}
	direction := "DESC"
	if order == domain.SortAsc {
		direction = "ASC"
	}
	return fmt.Sprintf("%s %s, videos.id %s", column, direction, direction)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *Repository) Update(ctx context.Context, id string, patch domain.Patch) (*domain.Video, error) {
	updates := map[string]interface{}{"updated_at": time.Now().UTC()}
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.Visibility != nil {
		updates["visibility"] = string(*patch.Visibility)
	}

	result := r.db.WithContext(ctx).
		Model(&entities.Video{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to update video", result.Error, "5f1b7d3e-9a4c-4c82-8e6f-2b0d5a9c1e74")
	}
	if result.RowsAffected == 0 {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
			"video not found", nil, "0c8e4a2f-6d1b-4f95-a3c7-8e2b6d0f4a19")
	}
	return r.GetByID(ctx, id)
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("video_id = ?", id).Delete(&entities.Reaction{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&entities.Video{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		// In-flight uploads lose their target; later transcoder callbacks see abandoned.
		return tx.Model(&entities.UploadSession{}).
			Where("video_id = ? AND state IN ?", id, inFlightStates).
			Updates(map[string]any{"state": "abandoned", "updated_at": time.Now().UTC()}).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return platformerrors.NewErrorWithContext(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
			"video not found", nil, "7d3f9b5a-1e8c-4a26-b0d4-6f2a8c4e0b37", map[string]any{"video_id": id})
	}
	if err != nil {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeDatabaseError,
			"failed to delete video", err, "e2a6c0f8-4b3d-4e71-9a5f-0c8e4b2d6a53")
	}
	return nil
}

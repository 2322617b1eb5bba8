package entities

import (
	"time"

	"github.com/vidflow/video-api/internal/domain/access"
	"github.com/vidflow/video-api/internal/domain/video"
)

// Video is the persisted catalog row. Reaction tallies are never stored here.
type Video struct {
	ID              string    `gorm:"type:varchar(40);primaryKey"`
	OwnerID         string    `gorm:"type:varchar(128);not null;index:idx_videos_owner_created,priority:1"`
	Title           string    `gorm:"type:varchar(200);not null"`
	Description     string    `gorm:"type:text;not null;default:''"`
	Visibility      string    `gorm:"type:varchar(16);not null;index:idx_videos_listing,priority:1"`
	State           string    `gorm:"type:varchar(16);not null;index:idx_videos_listing,priority:2"`
	DurationSeconds int       `gorm:"not null;default:0"`
	StorageKey      string    `gorm:"type:varchar(512);not null"`
	ContentType     string    `gorm:"type:varchar(128);not null"`
	CreatedAt       time.Time `gorm:"not null;index:idx_videos_listing,priority:3;index:idx_videos_owner_created,priority:2"`
	UpdatedAt       time.Time `gorm:"not null"`
}

func (Video) TableName() string {
	return "videos"
}

// NewSchemaVideo maps a domain video onto its row.
func NewSchemaVideo(v *video.Video) *Video {
	return &Video{
		ID:              v.ID,
		OwnerID:         v.OwnerID,
		Title:           v.Title,
		Description:     v.Description,
		Visibility:      string(v.Visibility),
		State:           string(v.State),
		DurationSeconds: v.DurationSeconds,
		StorageKey:      v.StorageKey,
		ContentType:     v.ContentType,
		CreatedAt:       v.CreatedAt,
		UpdatedAt:       v.UpdatedAt,
	}
}

// EtoD converts the row back to the domain type.
func (e *Video) EtoD() *video.Video {
	return &video.Video{
		ID:              e.ID,
		OwnerID:         e.OwnerID,
		Title:           e.Title,
		Description:     e.Description,
		Visibility:      access.Visibility(e.Visibility),
		State:           video.State(e.State),
		DurationSeconds: e.DurationSeconds,
		StorageKey:      e.StorageKey,
		ContentType:     e.ContentType,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

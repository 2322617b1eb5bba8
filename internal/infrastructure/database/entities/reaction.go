package entities

import (
	"time"

	"github.com/vidflow/video-api/internal/domain/like"
)

// Reaction is keyed by (user_id, video_id); the key enforces one reaction per user and video.
type Reaction struct {
	UserID    string    `gorm:"type:varchar(128);primaryKey"`
	VideoID   string    `gorm:"type:varchar(40);primaryKey;index"`
	Kind      string    `gorm:"type:varchar(8);not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	Video *Video `gorm:"foreignKey:VideoID;references:ID;constraint:OnDelete:CASCADE"`
}

func (Reaction) TableName() string {
	return "video_reactions"
}

func (e *Reaction) EtoD() *like.Reaction {
	return &like.Reaction{
		UserID:    e.UserID,
		VideoID:   e.VideoID,
		Kind:      like.Kind(e.Kind),
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

package entities

import (
	"time"

	"gorm.io/datatypes"

	"github.com/vidflow/video-api/internal/domain/access"
	"github.com/vidflow/video-api/internal/domain/upload"
)

// UploadSession is one upload attempt keyed by its storage key.
type UploadSession struct {
	Key          string    `gorm:"column:storage_key;type:varchar(512);primaryKey"`
	OwnerID      string    `gorm:"type:varchar(128);not null;index"`
	Filename     string    `gorm:"type:varchar(255);not null"`
	ContentType  string    `gorm:"type:varchar(128);not null"`
	DeclaredSize int64     `gorm:"not null"`
	Title        string    `gorm:"type:varchar(200);not null"`
	Description  string    `gorm:"type:text;not null;default:''"`
	Visibility   string    `gorm:"type:varchar(16);not null"`
	State        string    `gorm:"type:varchar(16);not null;index:idx_upload_sessions_expiry,priority:1"`
	VideoID      *string   `gorm:"type:varchar(40);uniqueIndex"`
	ExpiresAt    time.Time `gorm:"not null;index:idx_upload_sessions_expiry,priority:2"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`

	// Outcome holds the transcoder report that closed the session.
	Outcome datatypes.JSONType[upload.Outcome] `gorm:"type:jsonb"`
}

func (UploadSession) TableName() string {
	return "upload_sessions"
}

func NewSchemaUploadSession(s *upload.Session) *UploadSession {
	entity := &UploadSession{
		Key:          s.Key,
		OwnerID:      s.OwnerID,
		Filename:     s.Filename,
		ContentType:  s.ContentType,
		DeclaredSize: s.DeclaredSize,
		Title:        s.Title,
		Description:  s.Description,
		Visibility:   string(s.Visibility),
		State:        string(s.State),
		ExpiresAt:    s.ExpiresAt,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
	if s.FailureReason != "" {
		entity.Outcome = datatypes.NewJSONType(upload.Outcome{Reason: s.FailureReason})
	}
	if s.VideoID != "" {
		videoID := s.VideoID
		entity.VideoID = &videoID
	}
	return entity
}

func (e *UploadSession) EtoD() *upload.Session {
	s := &upload.Session{
		Key:           e.Key,
		OwnerID:       e.OwnerID,
		Filename:      e.Filename,
		ContentType:   e.ContentType,
		DeclaredSize:  e.DeclaredSize,
		Title:         e.Title,
		Description:   e.Description,
		Visibility:    access.Visibility(e.Visibility),
		State:         upload.State(e.State),
		FailureReason: e.Outcome.Data().Reason,
		ExpiresAt:     e.ExpiresAt,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
	if e.VideoID != nil {
		s.VideoID = *e.VideoID
	}
	return s
}

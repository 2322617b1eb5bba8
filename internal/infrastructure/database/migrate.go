package database

import (
	"context"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/vidflow/video-api/internal/infrastructure/database/entities"
)

// AutoMigrate applies the catalog, upload and reaction schema.
func AutoMigrate(ctx context.Context, db *gorm.DB, log zerolog.Logger) error {
	if err := db.WithContext(ctx).AutoMigrate(
		&entities.Video{},
		&entities.UploadSession{},
		&entities.Reaction{},
	); err != nil {
		return err
	}
	log.Info().Msg("applied video schema migrations")
	return nil
}

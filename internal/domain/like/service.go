package like

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/vidflow/video-api/internal/domain/access"
	"github.com/vidflow/video-api/internal/domain/video"
	"github.com/vidflow/video-api/internal/utils/platformerrors"
)

// Service is the like/dislike ledger.
type Service struct {
	repo   Repository
	videos VideoReader
	log    zerolog.Logger
}

func NewService(repo Repository, videos VideoReader, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		videos: videos,
		log:    log.With().Str("component", "like-service").Logger(),
	}
}

// Toggle sets the requester's reaction to kind. Repeating the same kind leaves
// the state unchanged; switching kinds overwrites the row in place.
func (s *Service) Toggle(ctx context.Context, videoID string, requester access.Requester, kind Kind) (*Reaction, error) {
	if requester.IsAnonymous() {
		return nil, unauthenticated(ctx)
	}
	if kind != KindLike && kind != KindDislike {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"type must be like or dislike", nil, "e2b8d4f0-7a1c-4e39-b5d6-0c9f3a8e1b47")
	}
	if _, err := s.reactable(ctx, videoID, requester); err != nil {
		return nil, err
	}

	reaction, err := s.repo.Upsert(ctx, &Reaction{
		UserID:  requester.UserID,
		VideoID: videoID,
		Kind:    kind,
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug().Str("video_id", videoID).Str("user_id", requester.UserID).Str("kind", string(kind)).Msg("reaction stored")
	return reaction, nil
}

// Remove deletes the requester's reaction. Removing nothing is not an error.
func (s *Service) Remove(ctx context.Context, videoID string, requester access.Requester) error {
	if requester.IsAnonymous() {
		return unauthenticated(ctx)
	}
	if _, err := s.viewable(ctx, videoID, requester); err != nil {
		return err
	}
	return s.repo.Delete(ctx, videoID, requester.UserID)
}

// StatusFor reports like, dislike or none for the requester.
func (s *Service) StatusFor(ctx context.Context, videoID string, requester access.Requester) (Status, error) {
	if requester.IsAnonymous() {
		return StatusNone, unauthenticated(ctx)
	}
	if _, err := s.viewable(ctx, videoID, requester); err != nil {
		return StatusNone, err
	}
	reaction, err := s.repo.Find(ctx, videoID, requester.UserID)
	if err != nil {
		return StatusNone, err
	}
	if reaction == nil {
		return StatusNone, nil
	}
	if reaction.Kind == KindDislike {
		return StatusDislike, nil
	}
	return StatusLike, nil
}

// CountsFor aggregates the live reactions of a video.
func (s *Service) CountsFor(ctx context.Context, videoID string, requester access.Requester) (Counts, error) {
	if _, err := s.viewable(ctx, videoID, requester); err != nil {
		return Counts{}, err
	}
	return s.repo.Counts(ctx, videoID)
}

func (s *Service) viewable(ctx context.Context, videoID string, requester access.Requester) (*video.Video, error) {
	v, err := s.videos.GetByID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if !access.CanView(v.Resource(), requester) {
		return nil, platformerrors.NewErrorWithContext(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound,
			"video not found", nil, "a5f0c7e3-9b2d-4d18-86e1-4c7b0e2f9a35", map[string]any{"video_id": videoID})
	}
	return v, nil
}

func (s *Service) reactable(ctx context.Context, videoID string, requester access.Requester) (*video.Video, error) {
	v, err := s.viewable(ctx, videoID, requester)
	if err != nil {
		return nil, err
	}
	if v.State != video.StatePublished {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInvalidState,
			"video is not published yet", nil, "d9e4a1b7-2c6f-4a05-9d83-1f5e8b3c7a20")
	}
	return v, nil
}

func unauthenticated(ctx context.Context) error {
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeUnauthorized,
		"authentication required", nil, "f3c6b9e2-8d4a-4f71-a0b5-6e2d9c4f1a88")
}

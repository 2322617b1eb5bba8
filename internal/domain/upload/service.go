package upload

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"github.com/vidflow/video-api/internal/config"
	"github.com/vidflow/video-api/internal/domain/access"
	"github.com/vidflow/video-api/internal/domain/video"
	"github.com/vidflow/video-api/internal/utils/platformerrors"
	"github.com/vidflow/video-api/utils/videoid"
)

var extensionPattern = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)

// Service drives upload sessions from intent to publication, failure or abandonment.
type Service struct {
	cfg        *config.Config
	repo       Repository
	videos     VideoReader
	storage    Storage
	dispatcher Dispatcher
	log        zerolog.Logger
	now        func() time.Time
}

func NewService(cfg *config.Config, repo Repository, videos VideoReader, storage Storage, dispatcher Dispatcher, log zerolog.Logger) *Service {
	return &Service{
		cfg:        cfg,
		repo:       repo,
		videos:     videos,
		storage:    storage,
		dispatcher: dispatcher,
		log:        log.With().Str("component", "upload-service").Logger(),
		now:        time.Now,
	}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Initiate validates the declared upload and issues a presigned POST scoped to
// one key, one content type and the declared size.
func (s *Service) Initiate(ctx context.Context, requester access.Requester, req InitiateRequest) (*InitiateResult, error) {
	if requester.IsAnonymous() {
		return nil, unauthenticated(ctx)
	}

	filename := strings.TrimSpace(req.Filename)
	if filename == "" {
		return nil, validation(ctx, "filename is required", "0b7e3d9f-4a2c-4f81-9e6b-5c1d8a3f7e20")
	}
	if req.DeclaredSize <= 0 {
		return nil, validation(ctx, "declaredSize must be positive", "6d2a8f4c-1e9b-4b73-a5d0-2f7c4e9b1a86")
	}
	if req.DeclaredSize > s.cfg.MaxUploadBytes {
		return nil, platformerrors.NewErrorWithContext(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			fmt.Sprintf("declaredSize exceeds the maximum of %d bytes", s.cfg.MaxUploadBytes), nil,
			"9f4c1b7e-3d8a-4e25-b6f0-8a2e5d1c9b43", map[string]any{"declared_size": req.DeclaredSize})
	}

	contentType, ext, err := s.resolveContentType(ctx, req.ContentType, filename)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = strings.TrimSuffix(filename, filepath.Ext(filename))
	}
	title, ok := video.NormalizeTitle(title)
	if !ok {
		return nil, validation(ctx, "title must be between 1 and 200 characters", "2e8b5a1d-7c4f-4d96-8b3e-0f6a9c2d5e17")
	}
	description, ok := video.NormalizeDescription(req.Description)
	if !ok {
		return nil, validation(ctx, "description is too long", "5a1f9c3e-8b6d-4a02-9f7c-3e0b6d8a2c54")
	}
	visibility, ok := access.ParseVisibility(req.Visibility, access.VisibilityPublic)
	if !ok {
		return nil, validation(ctx, "visibility must be hidden, link-only or public", "8c3d7f2a-5e1b-4c68-a9d4-1b7e0f5c3a92")
	}

	key := fmt.Sprintf("uploads/%s/%s%s", url.PathEscape(requester.UserID), videoid.NewULID(), ext)

	target, err := s.storage.PresignPost(ctx, key, contentType, req.DeclaredSize, s.cfg.UploadURLTTL)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal,
			"failed to issue upload credential", err, "3b9e6c4f-2a7d-4f10-8e5b-7d1c3a9f6e28").WithRetry(platformerrors.RetryRetryable)
	}

	now := s.now().UTC()
	session := &Session{
		Key:          key,
		OwnerID:      requester.UserID,
		Filename:     filename,
		ContentType:  contentType,
		DeclaredSize: req.DeclaredSize,
		Title:        title,
		Description:  description,
		Visibility:   visibility,
		State:        StateInitiated,
		ExpiresAt:    now.Add(s.cfg.UploadSessionTTL),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("key", key).
		Str("owner_id", requester.UserID).
		Str("content_type", contentType).
		Int64("declared_size", req.DeclaredSize).
		Msg("upload initiated")

	return &InitiateResult{
		Key:       key,
		Upload:    *target,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

func (s *Service) resolveContentType(ctx context.Context, raw, filename string) (string, string, error) {
	mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(raw))
	if err != nil || !strings.HasPrefix(mediaType, "video/") {
		return "", "", validation(ctx, "contentType must be a video/* media type", "7e2c9a5f-6b3d-4e81-a0f4-9c5b2e8d1a63")
	}

	ext := ""
	if detected := mimetype.Lookup(mediaType); detected != nil {
		ext = detected.Extension()
	}
	if ext == "" {
		candidate := strings.ToLower(filepath.Ext(filename))
		if extensionPattern.MatchString(candidate) {
			ext = candidate
		}
	}
	return mediaType, ext, nil
}

// Complete verifies the object landed in storage and turns the session into a
// provisional video that stays out of the catalog until the transcoder publishes it.
// A second completion of the same session is rejected.
func (s *Service) Complete(ctx context.Context, requester access.Requester, req CompleteRequest) (*video.Video, error) {
	if requester.IsAnonymous() {
		return nil, unauthenticated(ctx)
	}
	key := strings.TrimSpace(req.Key)
	if key == "" {
		return nil, validation(ctx, "key is required", "4f8a2d6c-9e1b-4a37-b5c0-6d3f8e1a2b95")
	}

	session, err := s.repo.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if !requester.Owns(session.OwnerID) {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden,
			"only the uploader can complete this upload", nil, "1c6e9b3a-5f2d-4d84-9a7e-0b4c8f2d6e31")
	}

	now := s.now().UTC()
	if err := s.completable(ctx, session, now); err != nil {
		return nil, err
	}

	title := session.Title
	if strings.TrimSpace(req.Title) != "" {
		title = req.Title
	}
	title, ok := video.NormalizeTitle(title)
	if !ok {
		return nil, validation(ctx, "title must be between 1 and 200 characters", "9d3b7e1f-2a6c-4f58-8b0d-5e9a1c3f7b46")
	}
	description := session.Description
	if strings.TrimSpace(req.Description) != "" {
		description = req.Description
	}
	description, ok = video.NormalizeDescription(description)
	if !ok {
		return nil, validation(ctx, "description is too long", "6b0e4a8d-3c7f-4b19-a2e5-8d1f6c0b4a73")
	}
	visibility, ok := access.ParseVisibility(req.Visibility, session.Visibility)
	if !ok {
		return nil, validation(ctx, "visibility must be hidden, link-only or public", "2f5c8e0b-7d4a-4e62-9b1f-3a8d5c2e0f14")
	}
	if req.VideoLength < 0 {
		return nil, validation(ctx, "videoLength must not be negative", "8e1a5d9c-4b2f-4c76-b3a0-7f6e2d9c1b58")
	}

	info, err := s.storage.Head(ctx, key)
	if err != nil {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal,
			"failed to verify uploaded object", err, "5d9f2b6e-1a8c-4e03-8f4d-2c7b0e5a9d61").WithRetry(platformerrors.RetryRetryable)
	}
	if info == nil {
		return nil, platformerrors.NewErrorWithContext(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeUploadIncomplete,
			"uploaded object not found; finish the upload and retry", nil,
			"c4a8e2f6-9b3d-4f17-a6c0-1e5d9b3f7a82", map[string]any{"key": key})
	}
	if info.Size > session.DeclaredSize {
		return nil, platformerrors.NewErrorWithContext(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"uploaded object is larger than the declared size", nil,
			"0e6c3a9f-8d5b-4a21-9c7e-4f2b8d6a0c35", map[string]any{"key": key, "size": info.Size, "declared_size": session.DeclaredSize})
	}

	v := &video.Video{
		ID:              videoid.New(),
		OwnerID:         session.OwnerID,
		Title:           title,
		Description:     description,
		Visibility:      visibility,
		DurationSeconds: req.VideoLength,
		StorageKey:      key,
		ContentType:     session.ContentType,
		State:           video.StateProcessing,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	moved, err := s.repo.MarkUploaded(ctx, key, v, now.Add(s.cfg.ProcessingTTL))
	if err != nil {
		return nil, err
	}
	if !moved {
		current, err := s.repo.GetByKey(ctx, key)
		if err != nil {
			return nil, err
		}
		return nil, invalidState(ctx, fmt.Sprintf("upload session is %s and cannot be completed", current.State),
			platformerrors.RetryTerminal, "a7d1f5c9-3e8b-4b64-8d2a-6c0f4e8b2d97")
	}

	job := TranscodeJob{
		SessionKey:  key,
		VideoID:     v.ID,
		OwnerID:     v.OwnerID,
		StorageKey:  key,
		ContentType: session.ContentType,
		SubmittedAt: now,
	}
	if err := s.dispatcher.Dispatch(ctx, job); err != nil {
		s.log.Warn().Err(err).Str("key", key).Str("video_id", v.ID).Msg("dispatch transcode job")
	}

	s.log.Info().Str("key", key).Str("video_id", v.ID).Msg("upload completed")
	return v, nil
}

func (s *Service) completable(ctx context.Context, session *Session, now time.Time) error {
	switch session.State {
	case StateInitiated:
		if !now.Before(session.ExpiresAt) {
			return invalidState(ctx, "upload session expired; start a new upload",
				platformerrors.RetryTerminal, "f1b5d9e3-6c2a-4e87-b0f3-9d4a7c1e5b26")
		}
		return nil
	case StateAbandoned:
		return invalidState(ctx, "upload session was abandoned; start a new upload",
			platformerrors.RetryTerminal, "b8e2c6a0-4d9f-4a15-9e3b-7f1c5a9d3e60")
	default:
		return invalidState(ctx, fmt.Sprintf("upload session is %s and cannot be completed", session.State),
			platformerrors.RetryTerminal, "e5c9a3f7-0b6d-4d42-a8e1-2b7f4d0c8a19")
	}
}

// MarkPublished moves an uploaded session to published and exposes its video.
// Repeating it on a published session is a no-op.
func (s *Service) MarkPublished(ctx context.Context, key string, outcome Outcome) (*Transition, error) {
	return s.finalize(ctx, key, StatePublished, outcome)
}

// MarkFailed moves an uploaded session to failed; the video never reaches the
// catalog and its object is reclaimed. Repeating it on a failed session is a no-op.
func (s *Service) MarkFailed(ctx context.Context, key string, outcome Outcome) (*Transition, error) {
	transition, err := s.finalize(ctx, key, StateFailed, outcome)
	if err != nil {
		return nil, err
	}
	if transition.Changed {
		if err := s.storage.Delete(ctx, key); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("delete object of failed upload")
		}
	}
	return transition, nil
}

func (s *Service) finalize(ctx context.Context, key string, target State, outcome Outcome) (*Transition, error) {
	if outcome.DurationSeconds < 0 {
		return nil, validation(ctx, "duration must not be negative", "3a7f1c5e-9d2b-4f68-b4e0-8c6a2f9d1e73")
	}

	// A lost conditional update means another callback moved the session first;
	// re-read once and judge against the state that won.
	for attempt := 0; attempt < 2; attempt++ {
		session, err := s.repo.GetByKey(ctx, key)
		if err != nil {
			return nil, err
		}

		switch {
		case session.State == target:
			return s.transition(ctx, session, false)
		case session.State == StateInitiated:
			return nil, invalidState(ctx, "upload has not been completed yet",
				platformerrors.RetryRetryable, "7c0e4b8f-2d6a-4a93-9f1c-5b8e3d7a0c42")
		case session.State == StateAbandoned:
			return nil, invalidState(ctx, "upload session was abandoned",
				platformerrors.RetryTerminal, "d2f6a0c4-8e3b-4c17-a5d9-0e4b8f2c6a38")
		case session.State.IsTerminal():
			return nil, platformerrors.NewErrorWithContext(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeConflict,
				fmt.Sprintf("upload session already %s", session.State), nil,
				"94b8d2f6-1c5e-4e09-8b3a-6f0d4c8e2a51", map[string]any{"key": key, "requested": string(target)})
		}

		if !session.State.CanTransitionTo(target) {
			break
		}
		moved, err := s.repo.Finalize(ctx, key, target, outcome)
		if err != nil {
			return nil, err
		}
		if moved {
			updated, err := s.repo.GetByKey(ctx, key)
			if err != nil {
				return nil, err
			}
			s.log.Info().Str("key", key).Str("state", string(target)).Str("video_id", updated.VideoID).Msg("upload finalized")
			return s.transition(ctx, updated, true)
		}
	}

	return nil, invalidState(ctx, "upload session changed concurrently",
		platformerrors.RetryRetryable, "58e2a6c0-7f4b-4d31-9a8e-1c5f9b3d7e04")
}

func (s *Service) transition(ctx context.Context, session *Session, changed bool) (*Transition, error) {
	out := &Transition{Session: session, Changed: changed}
	if session.State == StatePublished && session.VideoID != "" {
		v, err := s.videos.GetByID(ctx, session.VideoID)
		switch {
		case platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound):
			// Deleted by its owner after publishing; the transition itself stands.
		case err != nil:
			return nil, err
		default:
			out.Video = v
		}
	}
	return out, nil
}

// Expire abandons a session that sat in initiated or uploaded past its
// deadline and reclaims its object. It reports whether the session was reclaimed.
func (s *Service) Expire(ctx context.Context, key string, now time.Time) (bool, error) {
	session, err := s.repo.GetByKey(ctx, key)
	if err != nil {
		return false, err
	}
	if !session.State.Expirable() || now.Before(session.ExpiresAt) {
		return false, nil
	}

	abandoned, err := s.repo.Abandon(ctx, key, now)
	if err != nil {
		return false, err
	}
	if !abandoned {
		return false, nil
	}

	if err := s.storage.Delete(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("delete object of abandoned upload")
	}
	s.log.Info().Str("key", key).Str("from", string(session.State)).Msg("upload session abandoned")
	return true, nil
}

// ExpireStale sweeps up to batch sessions that are due for expiry.
func (s *Service) ExpireStale(ctx context.Context, now time.Time, batch int) (int, error) {
	due, err := s.repo.ListExpired(ctx, now, batch)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, session := range due {
		if ctx.Err() != nil {
			return expired, ctx.Err()
		}
		ok, err := s.Expire(ctx, session.Key, now)
		if err != nil {
			s.log.Error().Err(err).Str("key", session.Key).Msg("expire upload session")
			continue
		}
		if ok {
			expired++
		}
	}
	return expired, nil
}

// Get returns a session to its owner or an admin.
func (s *Service) Get(ctx context.Context, requester access.Requester, key string) (*Session, error) {
	if requester.IsAnonymous() {
		return nil, unauthenticated(ctx)
	}
	session, err := s.repo.GetByKey(ctx, strings.TrimSpace(key))
	if err != nil {
		return nil, err
	}
	if !requester.Owns(session.OwnerID) && !requester.IsAdmin() {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound,
			"upload session not found", nil, "2b6f0d4a-8c3e-4f95-a1d7-4e9c3b7f1a06")
	}
	return session, nil
}

func validation(ctx context.Context, message, uuid string) error {
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, message, nil, uuid)
}

func invalidState(ctx context.Context, message string, hint platformerrors.RetryHint, uuid string) error {
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInvalidState, message, nil, uuid).WithRetry(hint)
}

func unauthenticated(ctx context.Context) error {
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeUnauthorized,
		"authentication required", nil, "6e1d5b9f-3a7c-4c20-8f4b-9d2e6a0c4f87")
}

package video

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vidflow/video-api/internal/config"
	"github.com/vidflow/video-api/internal/domain/access"
	"github.com/vidflow/video-api/internal/utils/platformerrors"
)

// Service is the read path of the catalog plus owner edits. Every entry point
// goes through the access policy.
type Service struct {
	cfg   *config.Config
	repo  Repository
	store ObjectStore
	log   zerolog.Logger
}

func NewService(cfg *config.Config, repo Repository, store ObjectStore, log zerolog.Logger) *Service {
	return &Service{
		cfg:   cfg,
		repo:  repo,
		store: store,
		log:   log.With().Str("component", "video-service").Logger(),
	}
}

// List returns public, published videos.
func (s *Service) List(ctx context.Context, requester access.Requester, query ListQuery) (*Page, error) {
	return s.list(ctx, requester, "", query)
}

// ByOwner lists a channel. The owner and admins also see hidden and still-processing videos.
func (s *Service) ByOwner(ctx context.Context, requester access.Requester, ownerID string, query ListQuery) (*Page, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"user id is required", nil, "3f0c8a71-5d2e-4b9a-9c61-0e7d4a2b8f13")
	}
	return s.list(ctx, requester, ownerID, query)
}

func (s *Service) list(ctx context.Context, requester access.Requester, ownerID string, query ListQuery) (*Page, error) {
	filter, page, pageSize, err := s.buildFilter(ctx, requester, ownerID, query)
	if err != nil {
		return nil, err
	}

	videos, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	visible := make([]*Video, 0, len(videos))
	for _, v := range videos {
		if !s.listable(v, requester, filter.Scope) {
			s.log.Warn().Str("video_id", v.ID).Msg("repository returned a video outside the listing scope")
			continue
		}
		visible = append(visible, v)
	}

	totalPages := 0
	if total > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}

	return &Page{
		Videos: visible,
		Pagination: Pagination{
			Page:         page,
			PageSize:     pageSize,
			TotalResults: total,
			TotalPages:   totalPages,
		},
	}, nil
}

func (s *Service) listable(v *Video, requester access.Requester, scope access.Scope) bool {
	if v.State == StateFailed {
		return false
	}
	if !scope.IncludeNonPublic && v.Visibility != access.VisibilityPublic {
		return false
	}
	if !scope.IncludeUnpublished && v.State != StatePublished {
		return false
	}
	return access.CanView(v.Resource(), requester)
}

func (s *Service) buildFilter(ctx context.Context, requester access.Requester, ownerID string, query ListQuery) (Filter, int, int, error) {
	sortBy := SortKey(strings.ToLower(strings.TrimSpace(query.SortBy)))
	switch sortBy {
	case "":
		sortBy = SortByDate
	case SortByDate, SortByLikes, SortByLength, SortByTitle:
	default:
		return Filter{}, 0, 0, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"sortBy must be one of date, likes, length, title", nil, "9a4e17c2-6b3d-4f08-8e5a-1c2b7d9f0a34")
	}

	order := SortOrder(strings.ToLower(strings.TrimSpace(query.SortOrder)))
	switch order {
	case "":
		order = SortDesc
	case SortAsc, SortDesc:
	default:
		return Filter{}, 0, 0, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
			"sortOrder must be asc or desc", nil, "b7d2e9f1-0c4a-4e6b-a3f8-5d1c9e7b2a60")
	}

	page := query.Page
	if page < 1 {
		page = 1
	}
	pageSize := query.PageSize
	if pageSize <= 0 {
		pageSize = s.cfg.DefaultPageSize
	}
	if pageSize > s.cfg.MaxPageSize {
		pageSize = s.cfg.MaxPageSize
	}

	return Filter{
		OwnerID:   ownerID,
		Search:    strings.TrimSpace(query.Search),
		Scope:     access.ListScope(requester, ownerID),
		SortBy:    sortBy,
		SortOrder: order,
		Offset:    (page - 1) * pageSize,
		Limit:     pageSize,
	}, page, pageSize, nil
}

// Get fetches a single video. Videos the requester may not see are reported as missing.
func (s *Service) Get(ctx context.Context, requester access.Requester, id string) (*Video, error) {
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !access.CanView(v.Resource(), requester) {
		return nil, notFound(ctx, id)
	}
	return v, nil
}

// Update changes title, description or visibility. Owner only.
func (s *Service) Update(ctx context.Context, requester access.Requester, id string, patch Patch) (*Video, error) {
	if requester.IsAnonymous() {
		return nil, unauthenticated(ctx)
	}
	v, err := s.Get(ctx, requester, id)
	if err != nil {
		return nil, err
	}
	if !access.CanMutate(v.Resource(), requester, access.ActionEdit) {
		return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden,
			"only the owner can edit this video", nil, "c81f3a5e-2d7b-4c90-b6e4-8a0d1f5c3e27")
	}

	normalized, err := normalizePatch(ctx, patch)
	if err != nil {
		return nil, err
	}
	if normalized.Empty() {
		return v, nil
	}
	return s.repo.Update(ctx, id, normalized)
}

func normalizePatch(ctx context.Context, patch Patch) (Patch, error) {
	out := Patch{}
	if patch.Title != nil {
		title, ok := NormalizeTitle(*patch.Title)
		if !ok {
			return Patch{}, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
				"title must be between 1 and 200 characters", nil, "1e5b9c3d-7f2a-4d86-9b0e-6c4a8f2d1e53")
		}
		out.Title = &title
	}
	if patch.Description != nil {
		description, ok := NormalizeDescription(*patch.Description)
		if !ok {
			return Patch{}, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
				"description is too long", nil, "4d8a2f6c-1b3e-4a97-8c5d-0f9e3b7a2c61")
		}
		out.Description = &description
	}
	if patch.Visibility != nil {
		if !patch.Visibility.Valid() {
			return Patch{}, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation,
				"visibility must be hidden, link-only or public", nil, "6f1c4e8b-3a5d-4b20-9e7f-2d8c0a6b4e95")
		}
		visibility := *patch.Visibility
		out.Visibility = &visibility
	}
	return out, nil
}

// Delete removes a video, its reactions and its stored object. Owner or admin.
func (s *Service) Delete(ctx context.Context, requester access.Requester, id string) error {
	if requester.IsAnonymous() {
		return unauthenticated(ctx)
	}
	v, err := s.Get(ctx, requester, id)
	if err != nil {
		return err
	}
	if !access.CanMutate(v.Resource(), requester, access.ActionDelete) {
		return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden,
			"only the owner or an admin can delete this video", nil, "8b3e7a1f-5c9d-4e02-a6b8-4f2d1c7e9a30")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if v.StorageKey != "" {
		if err := s.store.Delete(ctx, v.StorageKey); err != nil {
			s.log.Warn().Err(err).Str("video_id", id).Str("key", v.StorageKey).Msg("delete stored object")
		}
	}
	s.log.Info().Str("video_id", id).Str("by", requester.UserID).Msg("video deleted")
	return nil
}

// StreamURL returns a short-lived URL for playback.
func (s *Service) StreamURL(ctx context.Context, requester access.Requester, id string) (string, time.Duration, error) {
	v, err := s.Get(ctx, requester, id)
	if err != nil {
		return "", 0, err
	}
	if v.State == StateFailed || v.StorageKey == "" {
		return "", 0, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInvalidState,
			"video is not available for streaming", nil, "2c7f9d3a-8e1b-4f65-b0a4-7d3e5c1f8b92")
	}

	url, err := s.store.PresignGet(ctx, v.StorageKey, s.cfg.StreamURLTTL)
	if err != nil {
		return "", 0, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeExternal,
			"failed to issue stream url", err, "5e0a3c8f-4b7d-4a19-8f2e-9c6b1d4a7e03")
	}
	return url, s.cfg.StreamURLTTL, nil
}

func notFound(ctx context.Context, id string) error {
	return platformerrors.NewErrorWithContext(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeNotFound,
		"video not found", nil, "0d6b2e9a-3f8c-4b71-a5d0-8e4c2f6a9b17", map[string]any{"video_id": id})
}

func unauthenticated(ctx context.Context) error {
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeUnauthorized,
		"authentication required", nil, "7a9c1e4f-6d2b-4e83-9f05-3b8a0c5d2e76")
}

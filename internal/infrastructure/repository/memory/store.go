// Package memory is a thread-safe, in-process implementation of the video,
// upload and reaction repositories. It backs DATABASE_BACKEND=memory and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vidflow/video-api/internal/domain/access"
	"github.com/vidflow/video-api/internal/domain/like"
	"github.com/vidflow/video-api/internal/domain/upload"
	"github.com/vidflow/video-api/internal/domain/video"
	"github.com/vidflow/video-api/internal/utils/platformerrors"
)

type reactionKey struct {
	userID  string
	videoID string
}

// Store holds every table behind a single lock so cross-table transitions stay atomic.
type Store struct {
	mu        sync.RWMutex
	videos    map[string]*video.Video
	sessions  map[string]*upload.Session
	reactions map[reactionKey]*like.Reaction
	now       func() time.Time
}

func NewStore() *Store {
	return &Store{
		videos:    make(map[string]*video.Video),
		sessions:  make(map[string]*upload.Session),
		reactions: make(map[reactionKey]*like.Reaction),
		now:       time.Now,
	}
}

// Videos returns the catalog view of the store.
func (s *Store) Videos() *VideoRepository { return &VideoRepository{store: s} }

// Uploads returns the upload session view of the store.
func (s *Store) Uploads() *UploadRepository { return &UploadRepository{store: s} }

// Likes returns the reaction view of the store.
func (s *Store) Likes() *LikeRepository { return &LikeRepository{store: s} }

// PutVideo inserts or replaces a video directly. Used for seeding.
func (s *Store) PutVideo(v *video.Video) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *v
	s.videos[v.ID] = &cp
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// withCounts copies v and fills in the derived reaction tallies. Caller holds the lock.
func (s *Store) withCounts(v *video.Video) *video.Video {
	cp := *v
	cp.LikeCount, cp.DislikeCount = 0, 0
	for key, r := range s.reactions {
		if key.videoID != v.ID {
			continue
		}
		switch r.Kind {
		case like.KindLike:
			cp.LikeCount++
		case like.KindDislike:
			cp.DislikeCount++
		}
	}
	return &cp
}

func (s *Store) dropReactions(videoID string) {
	for key := range s.reactions {
		if key.videoID == videoID {
			delete(s.reactions, key)
		}
	}
}

// VideoRepository implements video.Repository.
type VideoRepository struct {
	store *Store
}

func (r *VideoRepository) GetByID(ctx context.Context, id string) (*video.Video, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	v, ok := r.store.videos[id]
	if !ok {
		return nil, videoNotFound(ctx, id)
	}
	return r.store.withCounts(v), nil
}

func (r *VideoRepository) List(ctx context.Context, filter video.Filter) ([]*video.Video, int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	search := strings.ToLower(filter.Search)
	matched := make([]*video.Video, 0)
	for _, v := range r.store.videos {
		if filter.OwnerID != "" && v.OwnerID != filter.OwnerID {
			continue
		}
		if v.State == video.StateFailed {
			continue
		}
		if !filter.Scope.IncludeUnpublished && v.State != video.StatePublished {
			continue
		}
		if !filter.Scope.IncludeNonPublic && v.Visibility != access.VisibilityPublic {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(v.Title), search) &&
			!strings.Contains(strings.ToLower(v.Description), search) {
			continue
		}
		matched = append(matched, r.store.withCounts(v))
	}

	sortVideos(matched, filter.SortBy, filter.SortOrder)

	total := int64(len(matched))
	if filter.Offset >= len(matched) {
		return []*video.Video{}, total, nil
	}
	end := len(matched)
	if filter.Limit > 0 && filter.Offset+filter.Limit < end {
		end = filter.Offset + filter.Limit
	}
	return matched[filter.Offset:end], total, nil
}

func sortVideos(videos []*video.Video, by video.SortKey, order video.SortOrder) {
	desc := order != video.SortAsc
	sort.SliceStable(videos, func(i, j int) bool {
		a, b := videos[i], videos[j]
		var cmp int
		switch by {
		case video.SortByLikes:
			cmp = compareInt64(a.LikeCount, b.LikeCount)
		case video.SortByLength:
			cmp = compareInt64(int64(a.DurationSeconds), int64(b.DurationSeconds))
		case video.SortByTitle:
			cmp = strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		default:
			cmp = compareTime(a.CreatedAt, b.CreatedAt)
		}
		if cmp == 0 {
			cmp = strings.Compare(a.ID, b.ID)
		}
		if desc {
			return cmp > 0
		}
		return cmp < 0
	})
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func (r *VideoRepository) Update(ctx context.Context, id string, patch video.Patch) (*video.Video, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	v, ok := r.store.videos[id]
	if !ok {
		return nil, videoNotFound(ctx, id)
	}
	if patch.Title != nil {
		v.Title = *patch.Title
	}
	if patch.Description != nil {
		v.Description = *patch.Description
	}
	if patch.Visibility != nil {
		v.Visibility = *patch.Visibility
	}
	v.UpdatedAt = r.store.now().UTC()
	return r.store.withCounts(v), nil
}

func (r *VideoRepository) Delete(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.videos[id]; !ok {
		return videoNotFound(ctx, id)
	}
	delete(r.store.videos, id)
	r.store.dropReactions(id)
	for _, session := range r.store.sessions {
		if session.VideoID == id && session.State.Expirable() {
			session.State = upload.StateAbandoned
			session.UpdatedAt = r.store.now().UTC()
		}
	}
	return nil
}

// UploadRepository implements upload.Repository.
type UploadRepository struct {
	store *Store
}

func (r *UploadRepository) Create(ctx context.Context, session *upload.Session) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.sessions[session.Key]; exists {
		return platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeConflict,
			"upload session already exists", nil, "5c2e8a4f-1d7b-4e90-b3f6-9a0d2c7e5b18")
	}
	cp := *session
	r.store.sessions[session.Key] = &cp
	return nil
}

func (r *UploadRepository) GetByKey(ctx context.Context, key string) (*upload.Session, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	session, ok := r.store.sessions[key]
	if !ok {
		return nil, sessionNotFound(ctx, key)
	}
	cp := *session
	return &cp, nil
}

func (r *UploadRepository) MarkUploaded(ctx context.Context, key string, v *video.Video, expiresAt time.Time) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	session, ok := r.store.sessions[key]
	if !ok {
		return false, sessionNotFound(ctx, key)
	}
	if session.State != upload.StateInitiated {
		return false, nil
	}

	cp := *v
	r.store.videos[v.ID] = &cp
	session.State = upload.StateUploaded
	session.VideoID = v.ID
	session.ExpiresAt = expiresAt
	session.UpdatedAt = r.store.now().UTC()
	return true, nil
}

func (r *UploadRepository) Finalize(ctx context.Context, key string, target upload.State, outcome upload.Outcome) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	session, ok := r.store.sessions[key]
	if !ok {
		return false, sessionNotFound(ctx, key)
	}
	if session.State != upload.StateUploaded {
		return false, nil
	}

	now := r.store.now().UTC()
	session.State = target
	session.UpdatedAt = now
	if target == upload.StateFailed {
		session.FailureReason = outcome.Reason
	}

	if v, ok := r.store.videos[session.VideoID]; ok {
		switch target {
		case upload.StatePublished:
			v.State = video.StatePublished
			if outcome.DurationSeconds > 0 {
				v.DurationSeconds = outcome.DurationSeconds
			}
		case upload.StateFailed:
			v.State = video.StateFailed
		}
		v.UpdatedAt = now
	}
	return true, nil
}

func (r *UploadRepository) Abandon(ctx context.Context, key string, now time.Time) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	session, ok := r.store.sessions[key]
	if !ok {
		return false, sessionNotFound(ctx, key)
	}
	if !session.State.Expirable() || now.Before(session.ExpiresAt) {
		return false, nil
	}

	if session.VideoID != "" {
		delete(r.store.videos, session.VideoID)
		r.store.dropReactions(session.VideoID)
	}
	session.State = upload.StateAbandoned
	session.UpdatedAt = now.UTC()
	return true, nil
}

func (r *UploadRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*upload.Session, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	due := make([]*upload.Session, 0)
	for _, session := range r.store.sessions {
		if session.State.Expirable() && !now.Before(session.ExpiresAt) {
			cp := *session
			due = append(due, &cp)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ExpiresAt.Before(due[j].ExpiresAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

// LikeRepository implements like.Repository.
type LikeRepository struct {
	store *Store
}

func (r *LikeRepository) Upsert(ctx context.Context, reaction *like.Reaction) (*like.Reaction, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.videos[reaction.VideoID]; !ok {
		return nil, videoNotFound(ctx, reaction.VideoID)
	}

	now := r.store.now().UTC()
	key := reactionKey{userID: reaction.UserID, videoID: reaction.VideoID}
	existing, ok := r.store.reactions[key]
	if !ok {
		existing = &like.Reaction{UserID: reaction.UserID, VideoID: reaction.VideoID, CreatedAt: now}
		r.store.reactions[key] = existing
	}
	existing.Kind = reaction.Kind
	existing.UpdatedAt = now

	cp := *existing
	return &cp, nil
}

func (r *LikeRepository) Delete(ctx context.Context, videoID, userID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.reactions, reactionKey{userID: userID, videoID: videoID})
	return nil
}

func (r *LikeRepository) Find(ctx context.Context, videoID, userID string) (*like.Reaction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	reaction, ok := r.store.reactions[reactionKey{userID: userID, videoID: videoID}]
	if !ok {
		return nil, nil
	}
	cp := *reaction
	return &cp, nil
}

func (r *LikeRepository) Counts(ctx context.Context, videoID string) (like.Counts, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	v, ok := r.store.videos[videoID]
	if !ok {
		return like.Counts{}, videoNotFound(ctx, videoID)
	}
	counted := r.store.withCounts(v)
	return like.Counts{Likes: counted.LikeCount, Dislikes: counted.DislikeCount}, nil
}

func videoNotFound(ctx context.Context, id string) error {
	return platformerrors.NewErrorWithContext(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
		"video not found", nil, "e7a3c1f9-4b8d-4d26-9e0a-5f2b7c9d3e41", map[string]any{"video_id": id})
}

func sessionNotFound(ctx context.Context, key string) error {
	return platformerrors.NewErrorWithContext(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound,
		"upload session not found", nil, "1f9b5d3a-7e2c-4a68-b0d4-3c8e6a1f9b27", map[string]any{"key": key})
}

package video_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidflow/video-api/internal/config"
	"github.com/vidflow/video-api/internal/domain/access"
	"github.com/vidflow/video-api/internal/domain/like"
	"github.com/vidflow/video-api/internal/domain/video"
	"github.com/vidflow/video-api/internal/infrastructure/repository/memory"
	"github.com/vidflow/video-api/internal/utils/platformerrors"
)

type mockObjectStore struct {
	PresignGetFunc func(ctx context.Context, key string, ttl time.Duration) (string, error)
	deleted        []string
}

func (m *mockObjectStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if m.PresignGetFunc != nil {
		return m.PresignGetFunc(ctx, key, ttl)
	}
	return "https://cdn.test/" + key, nil
}

func (m *mockObjectStore) Delete(ctx context.Context, key string) error {
	m.deleted = append(m.deleted, key)
	return nil
}

var (
	owner    = access.Requester{UserID: "owner", Role: access.RoleUser}
	stranger = access.Requester{UserID: "stranger", Role: access.RoleUser}
	admin    = access.Requester{UserID: "admin", Role: access.RoleAdmin}
)

var base = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func put(store *memory.Store, id, ownerID, title string, visibility access.Visibility, state video.State, length int, age time.Duration) {
	store.PutVideo(&video.Video{
		ID:              id,
		OwnerID:         ownerID,
		Title:           title,
		Visibility:      visibility,
		State:           state,
		DurationSeconds: length,
		StorageKey:      "uploads/" + ownerID + "/" + id + ".mp4",
		CreatedAt:       base.Add(-age),
	})
}

func newCatalog() (*video.Service, *memory.Store, *mockObjectStore) {
	cfg := &config.Config{DefaultPageSize: 2, MaxPageSize: 3, StreamURLTTL: time.Hour}
	store := memory.NewStore()
	objects := &mockObjectStore{}

	put(store, "vid_a", "owner", "Alpha", access.VisibilityPublic, video.StatePublished, 300, 3*time.Hour)
	put(store, "vid_b", "owner", "bravo", access.VisibilityPublic, video.StatePublished, 100, 2*time.Hour)
	put(store, "vid_c", "other", "Charlie", access.VisibilityPublic, video.StatePublished, 200, 1*time.Hour)
	put(store, "vid_hidden", "owner", "Hidden", access.VisibilityHidden, video.StatePublished, 50, 0)
	put(store, "vid_link", "owner", "Link", access.VisibilityLinkOnly, video.StatePublished, 50, 0)
	put(store, "vid_processing", "owner", "Processing", access.VisibilityPublic, video.StateProcessing, 0, 0)
	put(store, "vid_failed", "owner", "Failed", access.VisibilityPublic, video.StateFailed, 0, 0)

	return video.NewService(cfg, store.Videos(), objects, zerolog.Nop()), store, objects
}

func ids(page *video.Page) []string {
	out := make([]string, 0, len(page.Videos))
	for _, v := range page.Videos {
		out = append(out, v.ID)
	}
	return out
}

func allPages(t *testing.T, fetch func(page int) (*video.Page, error)) []string {
	t.Helper()
	var out []string
	for page := 1; page <= 10; page++ {
		res, err := fetch(page)
		require.NoError(t, err)
		if len(res.Videos) == 0 {
			break
		}
		out = append(out, ids(res)...)
	}
	return out
}

func TestList_NeverLeaksNonPublicOrUnpublished(t *testing.T) {
	svc, _, _ := newCatalog()
	ctx := context.Background()

	for _, requester := range []access.Requester{access.Anonymous(), stranger, owner, admin} {
		t.Run(fmt.Sprintf("requester=%q", requester.UserID), func(t *testing.T) {
			got := allPages(t, func(page int) (*video.Page, error) {
				return svc.List(ctx, requester, video.ListQuery{Page: page})
			})
			assert.ElementsMatch(t, []string{"vid_a", "vid_b", "vid_c"}, got)
		})
	}
}

func TestByOwner_Scope(t *testing.T) {
	svc, _, _ := newCatalog()
	ctx := context.Background()

	tests := []struct {
		name      string
		requester access.Requester
		want      []string
	}{
		{"anonymous", access.Anonymous(), []string{"vid_a", "vid_b"}},
		{"stranger", stranger, []string{"vid_a", "vid_b"}},
		{"owner", owner, []string{"vid_a", "vid_b", "vid_hidden", "vid_link", "vid_processing"}},
		{"admin", admin, []string{"vid_a", "vid_b", "vid_hidden", "vid_link", "vid_processing"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := allPages(t, func(page int) (*video.Page, error) {
				return svc.ByOwner(ctx, tt.requester, "owner", video.ListQuery{Page: page, PageSize: 3})
			})
			assert.ElementsMatch(t, tt.want, got)
			assert.NotContains(t, got, "vid_failed")
		})
	}
}

func TestList_SortingAndPagination(t *testing.T) {
	svc, store, _ := newCatalog()
	ctx := context.Background()

	likes := like.NewService(store.Likes(), store.Videos(), zerolog.Nop())
	for _, user := range []string{"u1", "u2"} {
		_, err := likes.Toggle(ctx, "vid_b", access.Requester{UserID: user}, like.KindLike)
		require.NoError(t, err)
	}
	_, err := likes.Toggle(ctx, "vid_c", access.Requester{UserID: "u1"}, like.KindLike)
	require.NoError(t, err)

	tests := []struct {
		name  string
		query video.ListQuery
		want  []string
	}{
		{"default is newest first", video.ListQuery{PageSize: 3}, []string{"vid_c", "vid_b", "vid_a"}},
		{"date asc", video.ListQuery{SortBy: "date", SortOrder: "asc", PageSize: 3}, []string{"vid_a", "vid_b", "vid_c"}},
		{"likes desc", video.ListQuery{SortBy: "likes", PageSize: 3}, []string{"vid_b", "vid_c", "vid_a"}},
		{"length asc", video.ListQuery{SortBy: "length", SortOrder: "asc", PageSize: 3}, []string{"vid_b", "vid_c", "vid_a"}},
		{"title asc ignores case", video.ListQuery{SortBy: "title", SortOrder: "asc", PageSize: 3}, []string{"vid_a", "vid_b", "vid_c"}},
		{"default page size", video.ListQuery{}, []string{"vid_c", "vid_b"}},
		{"second page", video.ListQuery{Page: 2}, []string{"vid_a"}},
		{"page past the end", video.ListQuery{Page: 9}, []string{}},
		{"search", video.ListQuery{Search: "char"}, []string{"vid_c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := svc.List(ctx, access.Anonymous(), tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(page))
		})
	}

	page, err := svc.List(ctx, access.Anonymous(), video.ListQuery{PageSize: 50})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Pagination.PageSize, "page size is clamped to the ceiling")
	assert.Equal(t, int64(3), page.Pagination.TotalResults)
	assert.Equal(t, 1, page.Pagination.TotalPages)
	assert.Equal(t, int64(2), page.Videos[1].LikeCount)
}

func TestList_RejectsUnknownSort(t *testing.T) {
	svc, _, _ := newCatalog()

	_, err := svc.List(context.Background(), access.Anonymous(), video.ListQuery{SortBy: "views"})
	require.Error(t, err)
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))

	_, err = svc.List(context.Background(), access.Anonymous(), video.ListQuery{SortOrder: "sideways"})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
}

func TestGet_HiddenVideo(t *testing.T) {
	svc, _, _ := newCatalog()
	ctx := context.Background()

	for _, requester := range []access.Requester{access.Anonymous(), stranger} {
		_, err := svc.Get(ctx, requester, "vid_hidden")
		assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
	}
	for _, requester := range []access.Requester{owner, admin} {
		v, err := svc.Get(ctx, requester, "vid_hidden")
		require.NoError(t, err)
		assert.Equal(t, "vid_hidden", v.ID)
	}

	_, err := svc.Get(ctx, stranger, "vid_processing")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

func TestUpdate(t *testing.T) {
	svc, _, _ := newCatalog()
	ctx := context.Background()
	title := "  New title  "
	hidden := access.VisibilityHidden

	v, err := svc.Update(ctx, owner, "vid_a", video.Patch{Title: &title, Visibility: &hidden})
	require.NoError(t, err)
	assert.Equal(t, "New title", v.Title)
	assert.Equal(t, access.VisibilityHidden, v.Visibility)

	_, err = svc.Get(ctx, stranger, "vid_a")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound), "hiding removes it from strangers")

	_, err = svc.Update(ctx, admin, "vid_a", video.Patch{Title: &title})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeForbidden))

	_, err = svc.Update(ctx, stranger, "vid_b", video.Patch{Title: &title})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeForbidden))

	_, err = svc.Update(ctx, access.Anonymous(), "vid_b", video.Patch{Title: &title})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeUnauthorized))

	empty := " "
	_, err = svc.Update(ctx, owner, "vid_b", video.Patch{Title: &empty})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))

	bogus := access.Visibility("friends")
	_, err = svc.Update(ctx, owner, "vid_b", video.Patch{Visibility: &bogus})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
}

func TestDelete(t *testing.T) {
	svc, _, objects := newCatalog()
	ctx := context.Background()

	err := svc.Delete(ctx, stranger, "vid_b")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeForbidden))

	err = svc.Delete(ctx, stranger, "vid_hidden")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))

	require.NoError(t, svc.Delete(ctx, admin, "vid_hidden"))
	require.NoError(t, svc.Delete(ctx, owner, "vid_b"))
	assert.ElementsMatch(t, []string{"uploads/owner/vid_hidden.mp4", "uploads/owner/vid_b.mp4"}, objects.deleted)

	_, err = svc.Get(ctx, owner, "vid_b")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

func TestStreamURL(t *testing.T) {
	svc, _, objects := newCatalog()
	ctx := context.Background()

	url, ttl, err := svc.StreamURL(ctx, access.Anonymous(), "vid_a")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/uploads/owner/vid_a.mp4", url)
	assert.Equal(t, time.Hour, ttl)

	_, _, err = svc.StreamURL(ctx, stranger, "vid_hidden")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))

	_, _, err = svc.StreamURL(ctx, owner, "vid_failed")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeInvalidState))

	objects.PresignGetFunc = func(ctx context.Context, key string, ttl time.Duration) (string, error) {
		return "", errors.New("signer offline")
	}
	_, _, err = svc.StreamURL(ctx, owner, "vid_a")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeExternal))
}

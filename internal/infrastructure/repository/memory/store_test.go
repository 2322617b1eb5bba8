package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidflow/video-api/internal/domain/upload"
	"github.com/vidflow/video-api/internal/domain/video"
	"github.com/vidflow/video-api/internal/utils/platformerrors"
)

func seedUploaded(t *testing.T, s *Store, key, videoID string) {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Uploads().Create(ctx, &upload.Session{
		Key:       key,
		OwnerID:   "alice",
		State:     upload.StateInitiated,
		ExpiresAt: now.Add(time.Hour),
	}))
	moved, err := s.Uploads().MarkUploaded(ctx, key, &video.Video{
		ID:         videoID,
		OwnerID:    "alice",
		StorageKey: key,
		State:      video.StateProcessing,
	}, now.Add(24*time.Hour))
	require.NoError(t, err)
	require.True(t, moved)
}

func TestVideoDelete_AbandonsInFlightSession(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedUploaded(t, s, "uploads/alice/a.mp4", "v1")

	require.NoError(t, s.Videos().Delete(ctx, "v1"))

	session, err := s.Uploads().GetByKey(ctx, "uploads/alice/a.mp4")
	require.NoError(t, err)
	assert.Equal(t, upload.StateAbandoned, session.State)

	moved, err := s.Uploads().Finalize(ctx, "uploads/alice/a.mp4", upload.StatePublished, upload.Outcome{})
	require.NoError(t, err)
	assert.False(t, moved)
}

func TestVideoDelete_LeavesTerminalSessionAlone(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	seedUploaded(t, s, "uploads/alice/a.mp4", "v1")
	moved, err := s.Uploads().Finalize(ctx, "uploads/alice/a.mp4", upload.StatePublished, upload.Outcome{DurationSeconds: 12})
	require.NoError(t, err)
	require.True(t, moved)

	require.NoError(t, s.Videos().Delete(ctx, "v1"))

	session, err := s.Uploads().GetByKey(ctx, "uploads/alice/a.mp4")
	require.NoError(t, err)
	assert.Equal(t, upload.StatePublished, session.State)

	_, err = s.Videos().GetByID(ctx, "v1")
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeNotFound))
}

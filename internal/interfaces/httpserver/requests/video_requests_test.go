package requests

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidflow/video-api/internal/domain/access"
)

func TestInitiateUploadRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     InitiateUploadRequest
		wantErr string
	}{
		{
			name: "valid",
			req:  InitiateUploadRequest{Filename: "clip.mp4", DeclaredSize: 10},
		},
		{
			name:    "missing filename",
			req:     InitiateUploadRequest{DeclaredSize: 10},
			wantErr: "filename is required",
		},
		{
			name:    "zero size",
			req:     InitiateUploadRequest{Filename: "clip.mp4"},
			wantErr: "declaredSize must be greater than 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, Describe(err))
		})
	}
}

func TestCompleteUploadRequestValidate(t *testing.T) {
	assert.NoError(t, (&CompleteUploadRequest{Key: "uploads/a/b.mp4"}).Validate())

	err := (&CompleteUploadRequest{Key: "uploads/a/b.mp4", VideoLength: -1}).Validate()
	require.Error(t, err)
	assert.Equal(t, "videoLength must be at least 0", Describe(err))

	err = (&CompleteUploadRequest{}).Validate()
	require.Error(t, err)
	assert.Equal(t, "key is required", Describe(err))
}

func TestDescribePassesThroughOtherErrors(t *testing.T) {
	assert.Equal(t, "boom", Describe(errors.New("boom")))
}

func TestUpdateVideoRequestToDomain(t *testing.T) {
	title := "New"
	visibility := "hidden"

	patch := (&UpdateVideoRequest{Title: &title, Visibility: &visibility}).ToDomain()
	require.NotNil(t, patch.Title)
	assert.Equal(t, "New", *patch.Title)
	assert.Nil(t, patch.Description)
	require.NotNil(t, patch.Visibility)
	assert.Equal(t, access.VisibilityHidden, *patch.Visibility)
}

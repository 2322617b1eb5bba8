package transcoder_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidflow/video-api/internal/domain/transcoder"
	"github.com/vidflow/video-api/internal/domain/upload"
	"github.com/vidflow/video-api/internal/utils/platformerrors"
)

type mockFinalizer struct {
	MarkPublishedFunc func(ctx context.Context, key string, outcome upload.Outcome) (*upload.Transition, error)
	MarkFailedFunc    func(ctx context.Context, key string, outcome upload.Outcome) (*upload.Transition, error)
}

func (m *mockFinalizer) MarkPublished(ctx context.Context, key string, outcome upload.Outcome) (*upload.Transition, error) {
	if m.MarkPublishedFunc != nil {
		return m.MarkPublishedFunc(ctx, key, outcome)
	}
	return &upload.Transition{Session: &upload.Session{Key: key, State: upload.StatePublished}, Changed: true}, nil
}

func (m *mockFinalizer) MarkFailed(ctx context.Context, key string, outcome upload.Outcome) (*upload.Transition, error) {
	if m.MarkFailedFunc != nil {
		return m.MarkFailedFunc(ctx, key, outcome)
	}
	return &upload.Transition{Session: &upload.Session{Key: key, State: upload.StateFailed}, Changed: true}, nil
}

func TestAuthenticate(t *testing.T) {
	gw := transcoder.NewGateway([]string{"current", " previous "}, &mockFinalizer{}, zerolog.Nop())

	tests := []struct {
		presented string
		want      bool
	}{
		{"current", true},
		{"previous", true},
		{"", false},
		{"curren", false},
		{"current ", false},
		{"other", false},
	}
	for _, tt := range tests {
		t.Run(tt.presented, func(t *testing.T) {
			assert.Equal(t, tt.want, gw.Authenticate(tt.presented))
		})
	}
}

func TestAuthenticate_NoSecretsClosesBoundary(t *testing.T) {
	gw := transcoder.NewGateway(nil, &mockFinalizer{}, zerolog.Nop())
	assert.False(t, gw.Configured())
	assert.False(t, gw.Authenticate(""))
	assert.False(t, gw.Authenticate("anything"))
}

func TestReport_RoutesByResult(t *testing.T) {
	var published, failed []upload.Outcome
	finalizer := &mockFinalizer{
		MarkPublishedFunc: func(ctx context.Context, key string, outcome upload.Outcome) (*upload.Transition, error) {
			published = append(published, outcome)
			return &upload.Transition{Session: &upload.Session{Key: key, State: upload.StatePublished}, Changed: true}, nil
		},
		MarkFailedFunc: func(ctx context.Context, key string, outcome upload.Outcome) (*upload.Transition, error) {
			failed = append(failed, outcome)
			return &upload.Transition{Session: &upload.Session{Key: key, State: upload.StateFailed}, Changed: true}, nil
		},
	}
	gw := transcoder.NewGateway([]string{"s"}, finalizer, zerolog.Nop())
	ctx := context.Background()

	tr, err := gw.Report(ctx, transcoder.Report{
		SessionKey: "uploads/alice/1.mp4",
		Result:     "SUCCESS",
		Metadata:   transcoder.Metadata{DurationSeconds: 90},
	})
	require.NoError(t, err)
	assert.Equal(t, upload.StatePublished, tr.Session.State)
	require.Len(t, published, 1)
	assert.Equal(t, 90, published[0].DurationSeconds)

	_, err = gw.Report(ctx, transcoder.Report{
		SessionKey: "uploads/alice/2.mp4",
		Result:     transcoder.ResultFailure,
		Metadata:   transcoder.Metadata{Reason: " unsupported codec "},
	})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "unsupported codec", failed[0].Reason)
}

func TestReport_Validation(t *testing.T) {
	gw := transcoder.NewGateway([]string{"s"}, &mockFinalizer{}, zerolog.Nop())
	ctx := context.Background()

	_, err := gw.Report(ctx, transcoder.Report{Result: transcoder.ResultSuccess})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))

	_, err = gw.Report(ctx, transcoder.Report{SessionKey: "k", Result: "maybe"})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
}

func TestReport_PropagatesConflict(t *testing.T) {
	finalizer := &mockFinalizer{
		MarkFailedFunc: func(ctx context.Context, key string, outcome upload.Outcome) (*upload.Transition, error) {
			return nil, platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeConflict, "already published", nil, "test")
		},
	}
	gw := transcoder.NewGateway([]string{"s"}, finalizer, zerolog.Nop())

	_, err := gw.Report(context.Background(), transcoder.Report{SessionKey: "k", Result: transcoder.ResultFailure})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeConflict))
}

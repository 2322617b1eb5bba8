package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidflow/video-api/internal/domain/transcoder"
	"github.com/vidflow/video-api/internal/domain/upload"
	"github.com/vidflow/video-api/internal/infrastructure/queue"
	"github.com/vidflow/video-api/internal/utils/platformerrors"
)

type fakeSource struct {
	mu      sync.Mutex
	pending []queue.Message
	acked   []string
}

func (f *fakeSource) Receive(ctx context.Context) ([]queue.Message, error) {
	f.mu.Lock()
	batch := f.pending
	f.pending = nil
	f.mu.Unlock()
	if len(batch) > 0 {
		return batch, nil
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(10 * time.Millisecond):
		return nil, nil
	}
}

func (f *fakeSource) Ack(_ context.Context, m queue.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, m.ID)
	return nil
}

func (f *fakeSource) ackedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.acked...)
}

type mockReporter struct {
	ReportFunc func(ctx context.Context, report transcoder.Report) (*upload.Transition, error)
}

func (m *mockReporter) Report(ctx context.Context, report transcoder.Report) (*upload.Transition, error) {
	return m.ReportFunc(ctx, report)
}

func published() *upload.Transition {
	return &upload.Transition{Session: &upload.Session{Key: "k", State: upload.StatePublished}, Changed: true}
}

func TestWorkerAckPolicy(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		body    string
		err     error
		wantAck bool
	}{
		{name: "applied", body: `{"session_key":"k","result":"success"}`, wantAck: true},
		{name: "undecodable", body: `{not json`, wantAck: true},
		{
			name:    "validation is final",
			body:    `{"session_key":"","result":"success"}`,
			err:     platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeValidation, "bad", nil, "t1"),
			wantAck: true,
		},
		{
			name:    "conflict is final",
			body:    `{"session_key":"k","result":"failure"}`,
			err:     platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeConflict, "already published", nil, "t2"),
			wantAck: true,
		},
		{
			name:    "unknown session is final",
			body:    `{"session_key":"k","result":"success"}`,
			err:     platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound, "missing", nil, "t3"),
			wantAck: true,
		},
		{
			name: "incomplete upload is retried",
			body: `{"session_key":"k","result":"success"}`,
			err: platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInvalidState, "not completed", nil, "t4").
				WithRetry(platformerrors.RetryRetryable),
			wantAck: false,
		},
		{
			name: "abandoned session is final",
			body: `{"session_key":"k","result":"success"}`,
			err: platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeInvalidState, "abandoned", nil, "t5").
				WithRetry(platformerrors.RetryTerminal),
			wantAck: true,
		},
		{name: "database outage is retried", body: `{"session_key":"k","result":"success"}`, err: errors.New("connection reset"), wantAck: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &fakeSource{}
			reporter := &mockReporter{ReportFunc: func(context.Context, transcoder.Report) (*upload.Transition, error) {
				if tt.err != nil {
					return nil, tt.err
				}
				return published(), nil
			}}
			w := NewWorker(1, source, reporter, time.Second, zerolog.Nop())

			w.handle(ctx, queue.Message{ID: "m1", Body: []byte(tt.body)})

			if tt.wantAck {
				assert.Equal(t, []string{"m1"}, source.ackedIDs())
			} else {
				assert.Empty(t, source.ackedIDs())
			}
		})
	}
}

func TestWorkerPassesDecodedReport(t *testing.T) {
	source := &fakeSource{}
	var got transcoder.Report
	reporter := &mockReporter{ReportFunc: func(_ context.Context, r transcoder.Report) (*upload.Transition, error) {
		got = r
		return published(), nil
	}}
	w := NewWorker(1, source, reporter, time.Second, zerolog.Nop())

	w.handle(context.Background(), queue.Message{
		ID:   "m1",
		Body: []byte(`{"session_key":"uploads/u1/a.mp4","result":"success","metadata":{"duration_seconds":42}}`),
	})

	assert.Equal(t, "uploads/u1/a.mp4", got.SessionKey)
	assert.Equal(t, transcoder.ResultSuccess, got.Result)
	assert.Equal(t, 42, got.Metadata.DurationSeconds)
}

func TestPoolDrainsSourceAndStops(t *testing.T) {
	source := &fakeSource{pending: []queue.Message{
		{ID: "a", Body: []byte(`{"session_key":"k1","result":"success"}`)},
		{ID: "b", Body: []byte(`{"session_key":"k2","result":"failure"}`)},
	}}
	var mu sync.Mutex
	seen := map[string]bool{}
	reporter := &mockReporter{ReportFunc: func(_ context.Context, r transcoder.Report) (*upload.Transition, error) {
		mu.Lock()
		seen[r.SessionKey] = true
		mu.Unlock()
		return published(), nil
	}}

	pool := NewPool(source, reporter, Config{WorkerCount: 2, TaskTimeout: time.Second}, zerolog.Nop())
	pool.Start(context.Background())

	require.Eventually(t, func() bool { return len(source.ackedIDs()) == 2 }, 2*time.Second, 10*time.Millisecond)
	pool.Stop(time.Second)

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, seen["k1"])
	assert.True(t, seen["k2"])
}

func TestNewPoolDefaults(t *testing.T) {
	pool := NewPool(&fakeSource{}, &mockReporter{}, Config{}, zerolog.Nop())
	assert.Equal(t, 1, pool.workerCount)
	assert.Equal(t, 30*time.Second, pool.taskTimeout)
}

package crontab

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidflow/video-api/internal/config"
)

type mockExpirer struct {
	ExpireStaleFunc func(ctx context.Context, now time.Time, batch int) (int, error)
	calls           int
}

func (m *mockExpirer) ExpireStale(ctx context.Context, now time.Time, batch int) (int, error) {
	m.calls++
	return m.ExpireStaleFunc(ctx, now, batch)
}

type mockLocker struct {
	TryWithLockFunc func(ctx context.Context, name string, ttl time.Duration, fn func(ctx context.Context) error) (bool, error)
}

func (m *mockLocker) TryWithLock(ctx context.Context, name string, ttl time.Duration, fn func(ctx context.Context) error) (bool, error) {
	return m.TryWithLockFunc(ctx, name, ttl, fn)
}

func TestNewCrontabDefaults(t *testing.T) {
	c := NewCrontab(&config.Config{}, &mockExpirer{}, nil, zerolog.Nop())
	assert.Equal(t, DefaultSweepInterval, c.interval)
	assert.Equal(t, DefaultSweepBatch, c.batch)

	c = NewCrontab(&config.Config{ExpirySweepIntervalMinutes: 2, ExpirySweepBatchSize: 7}, &mockExpirer{}, nil, zerolog.Nop())
	assert.Equal(t, 2, c.interval)
	assert.Equal(t, 7, c.batch)
}

func TestSweepWithoutLocker(t *testing.T) {
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	expirer := &mockExpirer{ExpireStaleFunc: func(_ context.Context, now time.Time, batch int) (int, error) {
		assert.Equal(t, fixed, now)
		assert.Equal(t, 25, batch)
		return 3, nil
	}}
	c := NewCrontab(&config.Config{ExpirySweepBatchSize: 25}, expirer, nil, zerolog.Nop())
	c.now = func() time.Time { return fixed }

	assert.Equal(t, 3, c.Sweep(context.Background()))
	assert.Equal(t, 1, expirer.calls)
}

func TestSweepSkipsWhenLockHeld(t *testing.T) {
	expirer := &mockExpirer{ExpireStaleFunc: func(context.Context, time.Time, int) (int, error) { return 5, nil }}
	locker := &mockLocker{TryWithLockFunc: func(context.Context, string, time.Duration, func(context.Context) error) (bool, error) {
		return false, nil
	}}
	c := NewCrontab(&config.Config{}, expirer, locker, zerolog.Nop())

	assert.Equal(t, 0, c.Sweep(context.Background()))
	assert.Equal(t, 0, expirer.calls)
}

func TestSweepRunsUnderLock(t *testing.T) {
	expirer := &mockExpirer{ExpireStaleFunc: func(context.Context, time.Time, int) (int, error) { return 2, nil }}
	var lockName string
	locker := &mockLocker{TryWithLockFunc: func(ctx context.Context, name string, ttl time.Duration, fn func(context.Context) error) (bool, error) {
		lockName = name
		assert.Equal(t, CronJobTimeout, ttl)
		return true, fn(ctx)
	}}
	c := NewCrontab(&config.Config{}, expirer, locker, zerolog.Nop())

	assert.Equal(t, 2, c.Sweep(context.Background()))
	assert.Equal(t, sweepLockName, lockName)
}

func TestSweepReportsPartialProgressOnError(t *testing.T) {
	expirer := &mockExpirer{ExpireStaleFunc: func(context.Context, time.Time, int) (int, error) {
		return 1, errors.New("database unavailable")
	}}
	c := NewCrontab(&config.Config{}, expirer, nil, zerolog.Nop())

	assert.Equal(t, 1, c.Sweep(context.Background()))
}

func TestRunSweepsOnStartAndStopsWithContext(t *testing.T) {
	swept := make(chan struct{}, 1)
	expirer := &mockExpirer{ExpireStaleFunc: func(context.Context, time.Time, int) (int, error) {
		select {
		case swept <- struct{}{}:
		default:
		}
		return 0, nil
	}}
	c := NewCrontab(&config.Config{}, expirer, nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	select {
	case <-swept:
	case <-time.After(time.Second):
		t.Fatal("sweep did not run on start")
	}
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("crontab did not stop")
	}
}

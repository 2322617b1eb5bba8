package crontab

import (
	"context"
	"fmt"
	"time"

	"github.com/mileusna/crontab"
	"github.com/rs/zerolog"

	"github.com/vidflow/video-api/internal/config"
	"github.com/vidflow/video-api/internal/infrastructure/metrics"
	"github.com/vidflow/video-api/internal/infrastructure/observability"
	"github.com/vidflow/video-api/internal/utils/platformerrors"
)

const (
	DefaultSweepInterval = 5               // in minutes
	DefaultSweepBatch    = 100             // sessions per run
	CronJobTimeout       = 4 * time.Minute // Timeout for each sweep execution

	sweepLockName = "vidflow:upload-expiry-sweep"
)

// Expirer abandons upload sessions that are past their deadline.
type Expirer interface {
	ExpireStale(ctx context.Context, now time.Time, batch int) (int, error)
}

// Locker runs fn only when no other replica holds the named lock.
type Locker interface {
	TryWithLock(ctx context.Context, name string, ttl time.Duration, fn func(ctx context.Context) error) (bool, error)
}

type Crontab struct {
	ctab     *crontab.Crontab
	expirer  Expirer
	locker   Locker
	interval int
	batch    int
	now      func() time.Time
	log      zerolog.Logger
}

// NewCrontab builds the scheduler. locker may be nil for single-replica deployments.
func NewCrontab(cfg *config.Config, expirer Expirer, locker Locker, log zerolog.Logger) *Crontab {
	interval := cfg.ExpirySweepIntervalMinutes
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	batch := cfg.ExpirySweepBatchSize
	if batch <= 0 {
		batch = DefaultSweepBatch
	}
	return &Crontab{
		ctab:     crontab.New(),
		expirer:  expirer,
		locker:   locker,
		interval: interval,
		batch:    batch,
		now:      time.Now,
		log:      log.With().Str("component", "crontab").Logger(),
	}
}

// Run sweeps once, schedules the recurring sweep and blocks until ctx ends.
func (c *Crontab) Run(ctx context.Context) error {
	// execute once on server start
	c.Sweep(ctx)

	cronExpr := fmt.Sprintf("*/%d * * * *", c.interval)
	if err := c.ctab.AddJob(cronExpr, func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), CronJobTimeout)
		defer cancel()
		c.Sweep(jobCtx)
	}); err != nil {
		return platformerrors.AsError(ctx, platformerrors.LayerInfrastructure, err, "failed to add upload expiry job")
	}
	c.log.Info().Msgf("Upload expiry sweep scheduled: every %d minute(s)", c.interval)

	<-ctx.Done()
	c.ctab.Shutdown()
	return nil
}

// Sweep abandons one batch of overdue sessions and reports how many it reclaimed.
func (c *Crontab) Sweep(ctx context.Context) int {
	expired := 0
	run := func(ctx context.Context) error {
		ctx, span := observability.StartSweepSpan(ctx, c.batch)
		n, err := c.expirer.ExpireStale(ctx, c.now(), c.batch)
		observability.EndSpan(span, err)
		expired = n
		return err
	}

	if c.locker == nil {
		err := run(ctx)
		c.finish(expired, err)
		return expired
	}

	ran, err := c.locker.TryWithLock(ctx, sweepLockName, CronJobTimeout, run)
	if err == nil && !ran {
		c.log.Debug().Msg("upload expiry sweep held by another replica")
		metrics.RecordSweep("skipped", 0)
		return 0
	}
	c.finish(expired, err)
	return expired
}

func (c *Crontab) finish(expired int, err error) {
	if err != nil {
		c.log.Error().Err(err).Int("expired", expired).Msg("upload expiry sweep failed")
		metrics.RecordSweep("error", expired)
		return
	}
	if expired > 0 {
		c.log.Info().Int("expired", expired).Msg("upload expiry sweep reclaimed sessions")
	}
	metrics.RecordSweep("success", expired)
}

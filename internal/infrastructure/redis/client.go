package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	goredislib "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Client wraps a universal Redis client and a redsync instance built on it.
type Client struct {
	client goredislib.UniversalClient
	rs     *redsync.Redsync
	log    zerolog.Logger
}

// NewClient connects to the comma-separated list of Redis URLs or addresses in raw.
func NewClient(ctx context.Context, raw string, log zerolog.Logger) (*Client, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("redis URL must be provided")
	}

	opts, err := buildUniversalOptions(raw)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	logger := log.With().Str("component", "redis").Logger()
	if len(opts.Addrs) > 1 && opts.DB != 0 {
		logger.Warn().Msg("ignoring non-zero DB when using Redis Cluster configuration")
		opts.DB = 0
	}

	client := goredislib.NewUniversalClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	logger.Info().Int("addrs", len(opts.Addrs)).Msg("connected to redis")
	return &Client{
		client: client,
		rs:     redsync.New(goredis.NewPool(client)),
		log:    logger,
	}, nil
}

func buildUniversalOptions(raw string) (*goredislib.UniversalOptions, error) {
	opts := &goredislib.UniversalOptions{}

	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !strings.Contains(part, "://") {
			opts.Addrs = append(opts.Addrs, part)
			continue
		}

		parsed, err := goredislib.ParseURL(part)
		if err != nil {
			return nil, err
		}
		opts.Addrs = append(opts.Addrs, parsed.Addr)
		if opts.Username == "" {
			opts.Username = parsed.Username
		}
		if opts.Password == "" {
			opts.Password = parsed.Password
		}
		if opts.DB == 0 {
			opts.DB = parsed.DB
		}
		if opts.TLSConfig == nil {
			opts.TLSConfig = parsed.TLSConfig
		}
		if opts.DialTimeout == 0 {
			opts.DialTimeout = parsed.DialTimeout
		}
		if opts.PoolSize == 0 {
			opts.PoolSize = parsed.PoolSize
		}
	}

	if len(opts.Addrs) == 0 {
		return nil, fmt.Errorf("no redis addresses provided")
	}
	return opts, nil
}

// Universal exposes the underlying client.
func (c *Client) Universal() goredislib.UniversalClient {
	return c.client
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.client.Close()
}

// TryWithLock runs fn while holding the named lock. When another holder owns
// the lock it returns false without running fn.
func (c *Client) TryWithLock(ctx context.Context, name string, ttl time.Duration, fn func(ctx context.Context) error) (bool, error) {
	mutex := c.rs.NewMutex(name, redsync.WithExpiry(ttl), redsync.WithTries(1))

	if err := mutex.TryLockContext(ctx); err != nil {
		var taken *redsync.ErrTaken
		if errors.Is(err, redsync.ErrFailed) || errors.As(err, &taken) {
			return false, nil
		}
		return false, err
	}

	defer func() {
		if _, err := mutex.UnlockContext(context.WithoutCancel(ctx)); err != nil {
			c.log.Error().Err(err).Str("lock", name).Msg("failed to unlock mutex")
		}
	}()

	return true, fn(ctx)
}

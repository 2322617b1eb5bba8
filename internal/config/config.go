package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds the environment driven configuration for the video service.
type Config struct {
	// Service Configuration
	ServiceName      string        `env:"SERVICE_NAME" envDefault:"video-api"`
	ServiceVersion   string        `env:"SERVICE_VERSION" envDefault:"dev"`
	Environment      string        `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort         int           `env:"VIDEO_API_PORT" envDefault:"8080"`
	LogLevel         string        `env:"VIDEO_LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout  time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	EnableTracing    bool          `env:"ENABLE_TRACING" envDefault:"false"`
	OTLPEndpoint     string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	OTLPInsecure     bool          `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`
	TraceSampleRatio float64       `env:"OTEL_TRACES_SAMPLER_RATIO" envDefault:"1"`

	// Database
	DatabaseBackend      string `env:"DATABASE_BACKEND" envDefault:"postgres"` // Options: "postgres" or "memory"
	DBPostgresqlWriteDSN string `env:"DB_POSTGRESQL_WRITE_DSN"`

	// Database Connection Pool
	DBMaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBMaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"15"`
	DBConnLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`

	// S3 Storage Configuration
	S3Endpoint       string        `env:"VIDEO_S3_ENDPOINT"`
	S3PublicEndpoint string        `env:"VIDEO_S3_PUBLIC_ENDPOINT"`
	S3Region         string        `env:"VIDEO_S3_REGION" envDefault:"us-east-1"`
	S3Bucket         string        `env:"VIDEO_S3_BUCKET"`
	S3AccessKeyID    string        `env:"VIDEO_S3_ACCESS_KEY_ID"`
	S3SecretKey      string        `env:"VIDEO_S3_SECRET_ACCESS_KEY"`
	S3UsePathStyle   bool          `env:"VIDEO_S3_USE_PATH_STYLE" envDefault:"true"`
	StreamURLTTL     time.Duration `env:"VIDEO_STREAM_URL_TTL" envDefault:"1h"`

	// Upload lifecycle
	MaxUploadBytes   int64         `env:"VIDEO_MAX_UPLOAD_BYTES" envDefault:"2147483648"`
	UploadURLTTL     time.Duration `env:"VIDEO_UPLOAD_URL_TTL" envDefault:"15m"`
	UploadSessionTTL time.Duration `env:"VIDEO_UPLOAD_SESSION_TTL" envDefault:"2h"`
	ProcessingTTL    time.Duration `env:"VIDEO_PROCESSING_TTL" envDefault:"24h"`

	// Expiry sweep
	ExpirySweepEnabled         bool `env:"EXPIRY_SWEEP_ENABLED" envDefault:"true"`
	ExpirySweepIntervalMinutes int  `env:"EXPIRY_SWEEP_INTERVAL_MINUTES" envDefault:"5"`
	ExpirySweepBatchSize       int  `env:"EXPIRY_SWEEP_BATCH_SIZE" envDefault:"100"`

	// Catalog
	DefaultPageSize int `env:"CATALOG_DEFAULT_PAGE_SIZE" envDefault:"20"`
	MaxPageSize     int `env:"CATALOG_MAX_PAGE_SIZE" envDefault:"100"`

	// Transcoder
	TranscoderSecretList     string        `env:"TRANSCODER_SECRETS"`
	TranscodeDispatch        string        `env:"TRANSCODE_DISPATCH" envDefault:"log"` // Options: "log", "redis", "sqs"
	TranscodeRedisList       string        `env:"TRANSCODE_REDIS_LIST" envDefault:"vidflow:transcode_jobs"`
	TranscodeJobsQueueURL    string        `env:"TRANSCODE_JOBS_QUEUE_URL"`
	TranscodeResultsQueueURL string        `env:"TRANSCODE_RESULTS_QUEUE_URL"`
	TranscodeResultWorkers   int           `env:"TRANSCODE_RESULT_WORKERS" envDefault:"2"`
	TranscodeResultTimeout   time.Duration `env:"TRANSCODE_RESULT_TIMEOUT" envDefault:"30s"`
	SQSRegion                string        `env:"SQS_REGION"`
	SQSEndpoint              string        `env:"SQS_ENDPOINT"`

	// Redis (dispatch + sweep lock)
	RedisURL string `env:"REDIS_URL"`

	// Authentication
	AuthEnabled   bool   `env:"AUTH_ENABLED" envDefault:"true"`
	AuthIssuer    string `env:"AUTH_ISSUER"`
	AuthAudience  string `env:"AUTH_AUDIENCE"`
	AuthJWKSURL   string `env:"AUTH_JWKS_URL"`
	AuthJWTSecret string `env:"AUTH_JWT_SECRET"`
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	c.S3Bucket = strings.TrimSpace(c.S3Bucket)
	c.S3AccessKeyID = strings.TrimSpace(c.S3AccessKeyID)
	c.S3SecretKey = strings.TrimSpace(c.S3SecretKey)
	c.S3Endpoint = strings.TrimSpace(c.S3Endpoint)
	c.S3PublicEndpoint = strings.TrimSpace(c.S3PublicEndpoint)
	c.TranscodeDispatch = strings.ToLower(strings.TrimSpace(c.TranscodeDispatch))
	c.DatabaseBackend = strings.ToLower(strings.TrimSpace(c.DatabaseBackend))

	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = 2 << 30
	}
	if c.DefaultPageSize <= 0 {
		c.DefaultPageSize = 20
	}
	if c.MaxPageSize <= 0 {
		c.MaxPageSize = 100
	}
	if c.DefaultPageSize > c.MaxPageSize {
		c.DefaultPageSize = c.MaxPageSize
	}
	if c.ExpirySweepBatchSize <= 0 {
		c.ExpirySweepBatchSize = 100
	}
	if c.TranscodeResultWorkers <= 0 {
		c.TranscodeResultWorkers = 1
	}
	if c.TraceSampleRatio < 0 || c.TraceSampleRatio > 1 {
		c.TraceSampleRatio = 1
	}

	if !c.IsMemoryDatabase() && strings.TrimSpace(c.DBPostgresqlWriteDSN) == "" {
		return fmt.Errorf("DB_POSTGRESQL_WRITE_DSN is required unless DATABASE_BACKEND=memory")
	}

	switch c.TranscodeDispatch {
	case "", "log":
		c.TranscodeDispatch = "log"
	case "redis":
		if strings.TrimSpace(c.RedisURL) == "" {
			return fmt.Errorf("REDIS_URL is required when TRANSCODE_DISPATCH is redis")
		}
	case "sqs":
		if strings.TrimSpace(c.TranscodeJobsQueueURL) == "" {
			return fmt.Errorf("TRANSCODE_JOBS_QUEUE_URL is required when TRANSCODE_DISPATCH is sqs")
		}
	default:
		return fmt.Errorf("unsupported TRANSCODE_DISPATCH %q", c.TranscodeDispatch)
	}

	if c.AuthEnabled {
		if strings.TrimSpace(c.AuthJWKSURL) == "" && strings.TrimSpace(c.AuthJWTSecret) == "" {
			return fmt.Errorf("AUTH_JWKS_URL or AUTH_JWT_SECRET is required when AUTH_ENABLED is true")
		}
	}
	return nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// IsMemoryDatabase reports whether the in-process store replaces PostgreSQL.
func (c *Config) IsMemoryDatabase() bool {
	return c.DatabaseBackend == "memory"
}

// TranscoderSecrets returns the accepted callback secrets. More than one value
// allows rotating the secret without dropping in-flight callbacks.
func (c *Config) TranscoderSecrets() []string {
	var out []string
	for _, part := range strings.Split(c.TranscoderSecretList, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// SQSRegionOrDefault falls back to the storage region when no queue region is set.
func (c *Config) SQSRegionOrDefault() string {
	if strings.TrimSpace(c.SQSRegion) != "" {
		return c.SQSRegion
	}
	return c.S3Region
}

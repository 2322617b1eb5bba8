package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"

	"github.com/vidflow/video-api/internal/config"
	"github.com/vidflow/video-api/internal/domain/upload"
	"github.com/vidflow/video-api/internal/infrastructure/metrics"
)

var errStorageDisabled = errors.New("video storage backend is not configured; set VIDEO_S3_* to enable uploads")

// S3Storage issues upload and playback credentials for an S3-compatible bucket
// and verifies uploaded objects. Bytes never pass through the service.
type S3Storage struct {
	bucket    string
	client    *s3.Client
	presigner *s3.PresignClient
	log       zerolog.Logger
	disabled  bool
}

func NewS3Storage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*S3Storage, error) {
	logger := log.With().Str("component", "s3-storage").Logger()
	storage := &S3Storage{
		bucket: cfg.S3Bucket,
		log:    logger,
	}

	if cfg.S3Bucket == "" || cfg.S3AccessKeyID == "" || cfg.S3SecretKey == "" {
		logger.Warn().Msg("VIDEO_S3_BUCKET or credentials are not set; uploads and playback are disabled until configured")
		storage.disabled = true
		return storage, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	storage.client = s3.NewFromConfig(awsCfg, clientOptions(cfg.S3Endpoint, cfg.S3UsePathStyle))

	// Credentials handed to clients are signed for the host they will actually reach.
	signingClient := storage.client
	if cfg.S3PublicEndpoint != "" {
		signingClient = s3.NewFromConfig(awsCfg, clientOptions(cfg.S3PublicEndpoint, cfg.S3UsePathStyle))
	}
	storage.presigner = s3.NewPresignClient(signingClient)

	return storage, nil
}

func clientOptions(endpoint string, pathStyle bool) func(o *s3.Options) {
	return func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = pathStyle
	}
}

func (s *S3Storage) ensureEnabled() error {
	if s.disabled {
		return errStorageDisabled
	}
	return nil
}

// PresignPost returns a browser-submittable form restricted to key, the exact
// content type and at most maxBytes.
func (s *S3Storage) PresignPost(ctx context.Context, key, contentType string, maxBytes int64, ttl time.Duration) (*upload.UploadTarget, error) {
	if err := s.ensureEnabled(); err != nil {
		return nil, err
	}
	start := time.Now()
	req, err := s.presigner.PresignPostObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, func(o *s3.PresignPostOptions) {
		o.Expires = ttl
		o.Conditions = []interface{}{
			[]interface{}{"content-length-range", 1, maxBytes},
			map[string]string{"Content-Type": contentType},
		}
	})
	record("presign_post", err, start)
	if err != nil {
		return nil, fmt.Errorf("presign post %s: %w", key, err)
	}

	fields := make(map[string]string, len(req.Values)+1)
	for k, v := range req.Values {
		fields[k] = v
	}
	fields["Content-Type"] = contentType
	return &upload.UploadTarget{URL: req.URL, Fields: fields}, nil
}

// Head returns nil without error when the object does not exist.
func (s *S3Storage) Head(ctx context.Context, key string) (*upload.ObjectInfo, error) {
	if err := s.ensureEnabled(); err != nil {
		return nil, err
	}
	start := time.Now()
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if isNotFound(err) {
		record("head", nil, start)
		return nil, nil
	}
	record("head", err, start)
	if err != nil {
		return nil, fmt.Errorf("head %s: %w", key, err)
	}

	info := &upload.ObjectInfo{Size: aws.ToInt64(out.ContentLength)}
	if out.ContentType != nil {
		info.ContentType = *out.ContentType
	}
	return info, nil
}

// Delete removes an object. Deleting a missing object succeeds.
func (s *S3Storage) Delete(ctx context.Context, key string) error {
	if err := s.ensureEnabled(); err != nil {
		return err
	}
	start := time.Now()
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if isNotFound(err) {
		err = nil
	}
	record("delete", err, start)
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// PresignGet returns a time-limited playback URL.
func (s *S3Storage) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if err := s.ensureEnabled(); err != nil {
		return "", err
	}
	start := time.Now()
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	record("presign_get", err, start)
	if err != nil {
		return "", fmt.Errorf("presign get %s: %w", key, err)
	}
	return req.URL, nil
}

// Health performs a HeadBucket request.
func (s *S3Storage) Health(ctx context.Context) error {
	if s.disabled {
		return errStorageDisabled
	}
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	return err
}

// Enabled reports whether a bucket is configured.
func (s *S3Storage) Enabled() bool {
	return !s.disabled
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch strings.TrimSpace(apiErr.ErrorCode()) {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

func record(operation string, err error, start time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RecordS3Operation(operation, status, time.Since(start).Seconds())
}

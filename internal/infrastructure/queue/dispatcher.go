package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	goredislib "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/vidflow/video-api/internal/domain/upload"
	"github.com/vidflow/video-api/internal/infrastructure/metrics"
)

// LogDispatcher records jobs when no broker is configured. A transcoder must
// then learn about uploads some other way, e.g. bucket notifications.
type LogDispatcher struct {
	log zerolog.Logger
}

func NewLogDispatcher(log zerolog.Logger) *LogDispatcher {
	return &LogDispatcher{log: log.With().Str("component", "log-dispatcher").Logger()}
}

func (d *LogDispatcher) Dispatch(ctx context.Context, job upload.TranscodeJob) error {
	d.log.Info().
		Str("key", job.SessionKey).
		Str("video_id", job.VideoID).
		Str("content_type", job.ContentType).
		Msg("transcode job ready")
	metrics.RecordQueueMessage("out", "logged")
	return nil
}

// RedisDispatcher pushes jobs onto a Redis list consumed by transcoder workers.
type RedisDispatcher struct {
	client goredislib.UniversalClient
	list   string
	log    zerolog.Logger
}

func NewRedisDispatcher(client goredislib.UniversalClient, list string, log zerolog.Logger) *RedisDispatcher {
	return &RedisDispatcher{
		client: client,
		list:   list,
		log:    log.With().Str("component", "redis-dispatcher").Logger(),
	}
}

func (d *RedisDispatcher) Dispatch(ctx context.Context, job upload.TranscodeJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode transcode job: %w", err)
	}
	if err := d.client.LPush(ctx, d.list, payload).Err(); err != nil {
		metrics.RecordQueueMessage("out", "error")
		return fmt.Errorf("push transcode job: %w", err)
	}
	metrics.RecordQueueMessage("out", "success")
	d.log.Debug().Str("key", job.SessionKey).Str("list", d.list).Msg("transcode job pushed")
	return nil
}

// SQSDispatcher sends jobs to an SQS queue.
type SQSDispatcher struct {
	client   SQSAPI
	queueURL string
	log      zerolog.Logger
}

func NewSQSDispatcher(client SQSAPI, queueURL string, log zerolog.Logger) *SQSDispatcher {
	return &SQSDispatcher{
		client:   client,
		queueURL: queueURL,
		log:      log.With().Str("component", "sqs-dispatcher").Logger(),
	}
}

func (d *SQSDispatcher) Dispatch(ctx context.Context, job upload.TranscodeJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode transcode job: %w", err)
	}
	out, err := d.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(d.queueURL),
		MessageBody: aws.String(string(payload)),
	})
	if err != nil {
		metrics.RecordQueueMessage("out", "error")
		return fmt.Errorf("send transcode job: %w", err)
	}
	metrics.RecordQueueMessage("out", "success")
	d.log.Debug().Str("key", job.SessionKey).Str("message_id", aws.ToString(out.MessageId)).Msg("transcode job sent")
	return nil
}

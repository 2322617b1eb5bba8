package worker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vidflow/video-api/internal/domain/transcoder"
	"github.com/vidflow/video-api/internal/infrastructure/metrics"
	"github.com/vidflow/video-api/internal/infrastructure/observability"
	"github.com/vidflow/video-api/internal/infrastructure/queue"
	"github.com/vidflow/video-api/internal/utils/platformerrors"
)

const receiveBackoff = 2 * time.Second

// Worker long-polls the result source and feeds each message to the reporter.
// A message is acknowledged once applied, or when retrying could never succeed.
type Worker struct {
	id          int
	source      Source
	reporter    Reporter
	taskTimeout time.Duration
	log         zerolog.Logger
	stopChan    chan struct{}
	stopOnce    sync.Once
}

func NewWorker(id int, source Source, reporter Reporter, taskTimeout time.Duration, log zerolog.Logger) *Worker {
	return &Worker{
		id:          id,
		source:      source,
		reporter:    reporter,
		taskTimeout: taskTimeout,
		log:         log.With().Int("worker_id", id).Logger(),
		stopChan:    make(chan struct{}),
	}
}

// Start processes messages until Stop or ctx cancellation.
func (w *Worker) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-w.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	w.log.Info().Msg("result worker started")
	for {
		if ctx.Err() != nil {
			w.log.Info().Msg("result worker stopped")
			return
		}

		messages, err := w.source.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.log.Error().Err(err).Msg("failed to receive transcode results")
			select {
			case <-ctx.Done():
			case <-time.After(receiveBackoff):
			}
			continue
		}

		for _, m := range messages {
			w.handle(ctx, m)
		}
	}
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
}

func (w *Worker) handle(ctx context.Context, m queue.Message) {
	log := w.log.With().Str("message_id", m.ID).Logger()

	var report transcoder.Report
	if err := json.Unmarshal(m.Body, &report); err != nil {
		log.Warn().Err(err).Msg("dropping undecodable transcode result")
		metrics.RecordQueueMessage("in", "malformed")
		w.ack(ctx, m, log)
		return
	}

	taskCtx, cancel := context.WithTimeout(ctx, w.taskTimeout)
	defer cancel()
	taskCtx, span := observability.StartTranscodeResultSpan(taskCtx, m.ID, report.SessionKey)

	transition, err := w.reporter.Report(taskCtx, report)
	observability.EndSpan(span, err)
	if err != nil {
		if !redeliverable(err) {
			log.Warn().Err(err).Str("key", report.SessionKey).Msg("dropping transcode result that cannot apply")
			metrics.RecordQueueMessage("in", "rejected")
			w.ack(ctx, m, log)
			return
		}
		log.Error().Err(err).Str("key", report.SessionKey).Msg("transcode result left for redelivery")
		metrics.RecordQueueMessage("in", "retry")
		return
	}

	metrics.RecordTransition(string(transition.Session.State), transition.Changed)
	metrics.RecordQueueMessage("in", "success")
	w.ack(ctx, m, log)
}

func (w *Worker) ack(ctx context.Context, m queue.Message, log zerolog.Logger) {
	if err := w.source.Ack(context.WithoutCancel(ctx), m); err != nil {
		log.Error().Err(err).Msg("failed to acknowledge transcode result")
	}
}

// redeliverable reports whether a later attempt could still succeed. Results
// for an upload that is not complete yet are retried; everything else that
// the state machine rejected is final.
func redeliverable(err error) bool {
	perr := platformerrors.GetPlatformError(err)
	if perr == nil {
		return true
	}
	switch perr.Type {
	case platformerrors.ErrorTypeValidation, platformerrors.ErrorTypeConflict, platformerrors.ErrorTypeNotFound:
		return false
	case platformerrors.ErrorTypeInvalidState:
		return perr.Retry == platformerrors.RetryRetryable
	}
	return true
}

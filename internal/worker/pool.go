package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vidflow/video-api/internal/domain/transcoder"
	"github.com/vidflow/video-api/internal/domain/upload"
	"github.com/vidflow/video-api/internal/infrastructure/queue"
)

// Source yields transcoder results and acknowledges the handled ones.
type Source interface {
	Receive(ctx context.Context) ([]queue.Message, error)
	Ack(ctx context.Context, m queue.Message) error
}

// Reporter applies a transcoder result.
type Reporter interface {
	Report(ctx context.Context, report transcoder.Report) (*upload.Transition, error)
}

// Pool manages the workers that drain the transcoder result queue.
type Pool struct {
	workers     []*Worker
	source      Source
	reporter    Reporter
	workerCount int
	taskTimeout time.Duration
	log         zerolog.Logger
	wg          sync.WaitGroup
}

// Config contains worker pool configuration.
type Config struct {
	WorkerCount int
	TaskTimeout time.Duration
}

func NewPool(source Source, reporter Reporter, cfg Config, log zerolog.Logger) *Pool {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = 30 * time.Second
	}
	return &Pool{
		source:      source,
		reporter:    reporter,
		workerCount: cfg.WorkerCount,
		taskTimeout: cfg.TaskTimeout,
		log:         log.With().Str("component", "result-worker-pool").Logger(),
	}
}

// Start launches the workers. They run until Stop is called or ctx ends.
func (p *Pool) Start(ctx context.Context) {
	p.log.Info().Int("worker_count", p.workerCount).Msg("starting result worker pool")

	p.workers = make([]*Worker, p.workerCount)
	for i := 0; i < p.workerCount; i++ {
		w := NewWorker(i+1, p.source, p.reporter, p.taskTimeout, p.log)
		p.workers[i] = w

		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			w.Start(ctx)
		}(w)
	}
}

// Stop signals every worker and waits for in-flight messages, up to timeout.
func (p *Pool) Stop(timeout time.Duration) {
	p.log.Info().Msg("stopping result worker pool")
	for _, w := range p.workers {
		w.Stop()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.log.Info().Msg("all result workers stopped")
	case <-time.After(timeout):
		p.log.Warn().Msg("result worker pool shutdown timed out")
	}
}

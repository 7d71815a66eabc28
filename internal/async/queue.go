package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/bills-extractor/internal/common"
	"github.com/joseph-ayodele/bills-extractor/internal/entity"
	"github.com/joseph-ayodele/bills-extractor/internal/pipeline"
)

// Job is one file waiting for extraction.
type Job struct {
	Path        string
	UploadID    string
	SubmittedAt time.Time
	TraceID     string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// FileProcessor is satisfied by *pipeline.Processor.
type FileProcessor interface {
	ProcessFile(ctx context.Context, req pipeline.Request) (*entity.BillDocument, error)
}

// DoneFunc observes every finished job. It runs on the worker goroutine.
type DoneFunc func(job Job, doc *entity.BillDocument, err error)

type ProcessorQueue struct {
	proc    FileProcessor
	logger  *slog.Logger
	workers int
	timeout time.Duration
	onDone  DoneFunc

	ch      chan Job
	done    chan struct{}
	wg      sync.WaitGroup
	senders sync.WaitGroup
	once    sync.Once

	mu     sync.Mutex
	closed bool
}

var _ Queue = (*ProcessorQueue)(nil)

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}
func WithOnDone(fn DoneFunc) Option {
	return func(q *ProcessorQueue) { q.onDone = fn }
}

func NewProcessorQueue(proc FileProcessor, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:    proc,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 256),
		done:    make(chan struct{}),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("worker started", "worker_id", workerID)

				for job := range q.ch {
					q.run(workerID, job)
				}

				q.logger.Debug("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) run(workerID int, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	if job.TraceID != "" {
		ctx = common.WithRequestID(ctx, job.TraceID)
	}

	doc, err := q.proc.ProcessFile(ctx, pipeline.Request{Path: job.Path, UploadID: job.UploadID})
	if err != nil {
		q.logger.Error("processing failed", "worker_id", workerID, "path", job.Path, "upload_id", job.UploadID, "error", err)
	} else {
		q.logger.Info("processed file successfully",
			"worker_id", workerID,
			"path", job.Path,
			"upload_id", doc.UploadID,
			"wait_ms", time.Since(job.SubmittedAt).Milliseconds(),
		)
	}
	if q.onDone != nil {
		q.onDone(job, doc, err)
	}
}

// Enqueue blocks while the buffer is full until a worker frees a slot, ctx ends or Shutdown starts.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.logger.Warn("cannot enqueue: queue is shutting down", "path", job.Path)
		return common.ErrQueueClosed
	}
	q.senders.Add(1)
	q.mu.Unlock()
	defer q.senders.Done()

	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
		q.logger.Debug("queued file for processing", "path", job.Path, "upload_id", job.UploadID)
		return nil
	default:
	}

	q.logger.Warn("queue full, applying backpressure", "path", job.Path)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.done:
		return common.ErrQueueClosed
	}
}

// Shutdown stops intake and waits for queued jobs to drain or ctx to end.
// Enqueue calls still waiting for a slot return ErrQueueClosed.
func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.done)
	q.mu.Unlock()

	// no sender may be inside a send when ch closes
	q.senders.Wait()
	close(q.ch)

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}

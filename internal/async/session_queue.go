package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/form-filler/internal/common"
)

type SessionQueue struct {
	runner   Runner
	logger   *slog.Logger
	workers  int
	timeout  time.Duration
	onResult ResultHandler

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu      sync.Mutex
	closed  bool
	done    chan struct{}  // closed by Shutdown
	sending sync.WaitGroup // enqueues between the closed check and the send
}

type Option func(*SessionQueue)

func WithWorkers(n int) Option {
	return func(q *SessionQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *SessionQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithJobTimeout(d time.Duration) Option {
	return func(q *SessionQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}
func WithResultHandler(h ResultHandler) Option {
	return func(q *SessionQueue) { q.onResult = h }
}

func NewSessionQueue(runner Runner, logger *slog.Logger, opts ...Option) *SessionQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &SessionQueue{
		runner:  runner,
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

func (q *SessionQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("queue.worker.started", "worker_id", workerID)

				for job := range q.ch {
					q.process(workerID, job)
				}

				q.logger.Info("queue.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *SessionQueue) process(workerID int, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	ctx = common.WithJobPath(ctx, job.Source)
	ctx = common.WithLogger(ctx, q.logger.With("job_id", job.ID, "trace_id", job.TraceID))

	out, err := q.runner.Run(ctx, job.Fill)
	if err != nil {
		q.logger.Error("queue.job.failed",
			"worker_id", workerID,
			"job_id", job.ID,
			"trace_id", job.TraceID,
			"form", job.Fill.Form,
			"error", err,
		)
	} else {
		q.logger.Info("queue.job.done",
			"worker_id", workerID,
			"job_id", job.ID,
			"trace_id", job.TraceID,
			"score", out.Assessment.Score,
			"iterations", out.Iterations,
			"wait_ms", time.Since(job.SubmittedAt).Milliseconds(),
		)
	}
	if q.onResult != nil {
		q.onResult(job, out, err)
	}
}

// Enqueue hands a job to the workers. When the buffer is full it blocks until a
// slot frees up, ctx is done or the queue shuts down.
func (q *SessionQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.logger.Warn("queue.enqueue.closed", "job_id", job.ID, "source", job.Source)
		return ErrQueueClosed
	}
	q.sending.Add(1)
	q.mu.Unlock()
	defer q.sending.Done()

	select {
	case q.ch <- job:
		q.logger.Info("queue.enqueue.ok", "job_id", job.ID, "source", job.Source)
		return nil
	default:
	}
	q.logger.Warn("queue.enqueue.backpressure", "job_id", job.ID)
	select {
	case q.ch <- job:
		return nil
	case <-q.done:
		q.logger.Warn("queue.enqueue.closed", "job_id", job.ID, "source", job.Source)
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs, releases blocked enqueues and waits for the workers
// to drain the buffer or for ctx to end.
func (q *SessionQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.done)
	q.mu.Unlock()

	// no send may race the channel close
	q.sending.Wait()
	close(q.ch)

	drained := make(chan struct{})
	go func() { defer close(drained); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("queue.shutdown.interrupted")
	case <-drained:
		q.logger.Info("queue.shutdown.done")
	}
}

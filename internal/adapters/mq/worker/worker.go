// Package worker drains the round queue into the badge orchestrator.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/birdie/internal/adapters/mq/queue"
	"github.com/okian/birdie/internal/domain/model"
	"github.com/okian/birdie/pkg/logger"
	"github.com/okian/birdie/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultJobTimeout   = 30 * time.Second
	poolShutdownTimeout = 30 * time.Second
)

// Evaluator evaluates one round.
type Evaluator interface {
	EvaluateRound(ctx context.Context, round model.NormalizedRound) (model.EarnedBadgesReport, error)
}

// Queue is where workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// ReportFunc receives the report of every evaluated round.
type ReportFunc func(ctx context.Context, roundID string, report model.EarnedBadgesReport)

// InMemoryWorker evaluates jobs from a queue one at a time.
type InMemoryWorker struct {
	queue      Queue
	evaluator  Evaluator
	name       string
	jobTimeout time.Duration
	onReport   ReportFunc

	processed atomic.Int64
	failed    atomic.Int64

	done   chan struct{}
	logger logger.Logger
}

// NewInMemoryWorker creates a worker.
func NewInMemoryWorker(q Queue, evaluator Evaluator, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:      q,
		evaluator:  evaluator,
		name:       "worker",
		jobTimeout: defaultJobTimeout,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run processes jobs until the queue is closed and drained or ctx ends.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)
	for job := range w.queue.Dequeue(ctx) {
		if err := w.process(ctx, job); err != nil {
			w.logger.Error(ctx, "round evaluation failed",
				logger.String("round_id", job.Round.RoundID),
				logger.Error(err))
		}
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

func (w *InMemoryWorker) process(ctx context.Context, job queue.Job) error {
	start := time.Now()
	defer func() { metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds())) }()

	jctx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	report, err := w.evaluator.EvaluateRound(jctx, job.Round)
	if err != nil {
		w.failed.Add(1)
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "evaluation_error")
		metrics.RecordErrorByType("evaluation_error", "high")
		return fmt.Errorf("evaluate round %s: %w", job.Round.RoundID, err)
	}
	w.processed.Add(1)

	w.logger.Debug(ctx, "round evaluated",
		logger.String("round_id", job.Round.RoundID),
		logger.Int("awards", report.Count()),
		logger.Duration("queued_for", start.Sub(job.EnqueuedAt)))
	if w.onReport != nil {
		w.onReport(ctx, job.Round.RoundID, report)
	}
	return nil
}

// Pool runs a fixed number of workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   queue.Queue
	cancel  context.CancelFunc
	once    sync.Once
	logger  logger.Logger
}

// NewPool creates workerCount workers. A non-positive count uses one worker
// per CPU.
func NewPool(workerCount int, q queue.Queue, evaluator Evaluator, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		p.workers[i] = NewInMemoryWorker(q, evaluator, wopts...)
	}
	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Start launches the workers. They stop when ctx ends or the pool shuts down.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed returns the number of rounds evaluated successfully.
func (p *Pool) Processed() int64 {
	var n int64
	for _, w := range p.workers {
		n += w.processed.Load()
	}
	return n
}

// Failed returns the number of rounds whose evaluation returned an error.
func (p *Pool) Failed() int64 {
	var n int64
	for _, w := range p.workers {
		n += w.failed.Load()
	}
	return n
}

// Shutdown closes the queue and waits for the workers to drain it. Workers
// still busy when ctx ends are cancelled.
func (p *Pool) Shutdown(ctx context.Context) error {
	var err error
	p.once.Do(func() {
		if cerr := p.queue.Close(); cerr != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(cerr))
		}

		sctx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
		defer cancel()
		for i, w := range p.workers {
			select {
			case <-w.Done():
			case <-sctx.Done():
				p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
				err = fmt.Errorf("shutdown timed out: %w", sctx.Err())
			}
			if err != nil {
				break
			}
		}
		if p.cancel != nil {
			p.cancel()
		}
	})
	return err
}

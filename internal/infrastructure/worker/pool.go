package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/portal/backend/internal/application/importer"
	"go.uber.org/zap"
)

var (
	// ErrPoolNotRunning is returned when dispatching to a stopped pool
	ErrPoolNotRunning = errors.New("worker pool is not running")
	// ErrQueueFull is returned when the dispatch queue has no capacity left
	ErrQueueFull = errors.New("worker pool queue is full")
)

// Executor runs one dispatched import job to completion
type Executor interface {
	Execute(ctx context.Context, job importer.Job) error
}

// PoolConfig holds worker pool configuration
type PoolConfig struct {
	Workers   int
	QueueSize int
}

// Pool is the asynchronous execution backend for import jobs. Dispatch is
// non-blocking: a full queue is reported to the caller instead of stalling
// the HTTP trigger.
type Pool struct {
	config   PoolConfig
	executor Executor
	logger   *zap.Logger

	jobs      chan importer.Job
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewPool creates a new Pool
func NewPool(config PoolConfig, executor Executor, logger *zap.Logger) *Pool {
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 16
	}
	return &Pool{
		config:   config,
		executor: executor,
		logger:   logger,
		jobs:     make(chan importer.Job, config.QueueSize),
	}
}

// Start launches the worker goroutines
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.isRunning {
		p.mu.Unlock()
		return nil
	}
	p.isRunning = true
	p.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	for i := 0; i < p.config.Workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}

	p.logger.Info("Import worker pool started",
		zap.Int("workers", p.config.Workers),
		zap.Int("queue_size", p.config.QueueSize),
	)
	return nil
}

// Stop gracefully stops the pool. Queued jobs are drained before the workers
// exit; ctx bounds how long the drain may take.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.isRunning {
		p.mu.Unlock()
		return nil
	}
	p.isRunning = false
	p.mu.Unlock()

	close(p.jobs)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("Import worker pool stopped gracefully")
		return nil
	case <-ctx.Done():
		if p.cancel != nil {
			p.cancel()
		}
		p.logger.Warn("Import worker pool stop timed out")
		return ctx.Err()
	}
}

// Dispatch queues a job for asynchronous execution. The mutex is held through
// the send so Stop cannot close the queue mid-dispatch.
func (p *Pool) Dispatch(job importer.Job) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.isRunning {
		return ErrPoolNotRunning
	}

	select {
	case p.jobs <- job:
		p.logger.Debug("Import job queued",
			zap.String("task_id", job.TaskID),
			zap.String("import_type", string(job.ImportType)),
		)
		return nil
	default:
		return ErrQueueFull
	}
}

func (p *Pool) worker(ctx context.Context, workerID int) {
	defer p.wg.Done()

	p.logger.Debug("Import worker started", zap.Int("worker_id", workerID))

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("Import worker stopping", zap.Int("worker_id", workerID))
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			p.processJob(ctx, job, workerID)
		}
	}
}

func (p *Pool) processJob(ctx context.Context, job importer.Job, workerID int) {
	started := time.Now()
	p.logger.Info("Processing import job",
		zap.Int("worker_id", workerID),
		zap.String("task_id", job.TaskID),
		zap.String("import_type", string(job.ImportType)),
	)

	if err := p.executor.Execute(ctx, job); err != nil {
		// Domain failures land on the session; this is infrastructure trouble
		p.logger.Error("Import job execution failed",
			zap.Int("worker_id", workerID),
			zap.String("task_id", job.TaskID),
			zap.Error(err),
		)
		return
	}

	p.logger.Info("Import job finished",
		zap.Int("worker_id", workerID),
		zap.String("task_id", job.TaskID),
		zap.Duration("elapsed", time.Since(started)),
	)
}

// compile-time check: the pool satisfies the orchestrator's dispatcher
var _ importer.Dispatcher = (*Pool)(nil)

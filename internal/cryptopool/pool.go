// Package cryptopool runs CPU-bound cryptographic work on a fixed set of worker goroutines
// so request handlers do not compete for the scheduler while sealing or opening large payloads.
package cryptopool

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var ErrPoolClosed = errors.New("cryptopool: pool is shut down")

type Job struct {
	ctx    context.Context
	run    func() error
	result chan error
}

type Worker struct {
	ID         int
	WorkerPool chan chan Job
	JobChannel chan Job
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan Job, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan Job),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			select {
			case w.WorkerPool <- w.JobChannel:
			case <-ctx.Done():
				w.Logger.Debug("crypto worker shutting down", "worker_id", w.ID)
				return
			}

			select {
			case job := <-w.JobChannel:
				job.result <- execute(job)
			case <-ctx.Done():
				w.Logger.Debug("crypto worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

// execute skips jobs whose caller already gave up.
func execute(job Job) error {
	if err := job.ctx.Err(); err != nil {
		return err
	}
	return job.run()
}

type Config struct {
	Workers   int
	QueueSize int
}

type Pool struct {
	logger *slog.Logger

	jobQueue   chan Job
	workerPool chan chan Job
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once

	// mu orders enqueues against Shutdown so no job is queued after the dispatcher drains.
	mu     sync.RWMutex
	closed bool
}

func New(config Config, logger *slog.Logger) *Pool {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := config.Workers
	if maxWorkers <= 0 {
		maxWorkers = 4
	}

	queueSize := config.QueueSize
	if queueSize <= 0 {
		queueSize = 64
	}

	p := &Pool{
		logger:     logger,
		maxWorkers: maxWorkers,
		jobQueue:   make(chan Job, queueSize),
		workerPool: make(chan chan Job, maxWorkers),
		ctx:        ctx,
		cancel:     cancel,
	}

	for i := 0; i < p.maxWorkers; i++ {
		NewWorker(i, p.workerPool, p.logger).Start(p.ctx, &p.wg)
	}

	p.wg.Add(1)
	go p.dispatch()

	p.logger.Info("crypto worker pool started",
		"max_workers", p.maxWorkers,
		"queue_size", cap(p.jobQueue))

	return p
}

func (p *Pool) dispatch() {
	defer p.wg.Done()
	defer p.drain()

	for {
		select {
		case job := <-p.jobQueue:
			select {
			case jobChannel := <-p.workerPool:
				select {
				case jobChannel <- job:
				case <-p.ctx.Done():
					job.result <- ErrPoolClosed
					return
				}
			case <-p.ctx.Done():
				job.result <- ErrPoolClosed
				return
			}
		case <-p.ctx.Done():
			p.logger.Debug("crypto dispatcher shutting down")
			return
		}
	}
}

// drain fails every job still queued at shutdown so their callers stop waiting.
func (p *Pool) drain() {
	for {
		select {
		case job := <-p.jobQueue:
			job.result <- ErrPoolClosed
		default:
			return
		}
	}
}

// Do runs fn on a worker and returns its error. Once a job is queued, Do waits for its result
// so fn never outlives the buffers its caller owns. A queued job whose ctx has ended is skipped.
func (p *Pool) Do(ctx context.Context, fn func() error) error {
	job := Job{ctx: ctx, run: fn, result: make(chan error, 1)}

	if err := p.enqueue(ctx, job); err != nil {
		return err
	}
	return <-job.result
}

func (p *Pool) enqueue(ctx context.Context, job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.jobQueue <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) Shutdown() {
	p.once.Do(func() {
		p.logger.Info("shutting down crypto worker pool")
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
		p.cancel()
		p.wg.Wait()
	})
}

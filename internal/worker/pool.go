// Package worker runs background tasks on a bounded pool that never blocks
// its callers.
package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/windoze95/recipe-search-api/internal/logger"
	"github.com/windoze95/recipe-search-api/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Submission outcomes, also used as metric labels.
const (
	OutcomeQueued  = "queued"
	OutcomeBurst   = "burst"
	OutcomeDropped = "dropped"
)

// ErrPoolClosed is returned by Shutdown when called twice.
var ErrPoolClosed = errors.New("worker pool already shut down")

// Options sizes a Pool.
type Options struct {
	Name        string
	CoreWorkers int
	MaxWorkers  int
	QueueSize   int
}

// Pool executes tasks on CoreWorkers long-lived goroutines fed by a bounded
// backlog. When the backlog is full, up to MaxWorkers-CoreWorkers extra
// goroutines run tasks directly. When both are exhausted the task is dropped.
type Pool struct {
	name  string
	queue chan func()
	burst *semaphore.Weighted

	mu     sync.RWMutex
	closed bool

	workers sync.WaitGroup
	bursts  sync.WaitGroup
}

// NewPool starts the core workers.
func NewPool(opts Options) *Pool {
	if opts.CoreWorkers <= 0 {
		opts.CoreWorkers = 1
	}
	if opts.MaxWorkers < opts.CoreWorkers {
		opts.MaxWorkers = opts.CoreWorkers
	}
	if opts.QueueSize < 0 {
		opts.QueueSize = 0
	}

	p := &Pool{
		name:  opts.Name,
		queue: make(chan func(), opts.QueueSize),
		burst: semaphore.NewWeighted(int64(opts.MaxWorkers - opts.CoreWorkers)),
	}

	p.workers.Add(opts.CoreWorkers)
	for i := 0; i < opts.CoreWorkers; i++ {
		go p.work()
	}
	return p
}

// Submit hands task to the pool without blocking. It returns false when the
// task was dropped because the pool is saturated or shut down.
func (p *Pool) Submit(task func()) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.drop("pool shut down")
		return false
	}

	select {
	case p.queue <- task:
		metrics.RecordPoolSubmit(p.name, OutcomeQueued)
		metrics.PoolQueueDepth.WithLabelValues(p.name).Set(float64(len(p.queue)))
		return true
	default:
	}

	if p.burst.TryAcquire(1) {
		p.bursts.Add(1)
		metrics.RecordPoolSubmit(p.name, OutcomeBurst)
		go func() {
			defer p.bursts.Done()
			defer p.burst.Release(1)
			p.run(task)
		}()
		return true
	}

	p.drop("pool saturated")
	return false
}

// QueueLen returns the number of tasks waiting in the backlog.
func (p *Pool) QueueLen() int {
	return len(p.queue)
}

// Shutdown stops accepting tasks, lets the workers drain the backlog and
// waits for all running tasks or ctx, whichever comes first.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.workers.Wait()
		p.bursts.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) work() {
	defer p.workers.Done()
	for task := range p.queue {
		metrics.PoolQueueDepth.WithLabelValues(p.name).Set(float64(len(p.queue)))
		p.run(task)
	}
}

func (p *Pool) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Get().Error("worker task panicked",
				zap.String("pool", p.name),
				zap.Any("panic", r))
		}
	}()
	task()
}

func (p *Pool) drop(reason string) {
	metrics.RecordPoolSubmit(p.name, OutcomeDropped)
	logger.Get().Warn("dropping task",
		zap.String("pool", p.name),
		zap.String("reason", reason))
}

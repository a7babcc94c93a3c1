package parallel

import (
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jwsr/go-parallel/core"
)

// SimpleThreadPool executes submitted closures on a fixed set of worker
// goroutines pulling from a FIFO queue. Workers start in the constructor and
// run until Stop.
//
// A panicking closure is routed to the configured exception handler; with no
// handler installed the panic propagates out of the worker and takes the
// process down, so user errors cannot silently corrupt the pool.
type SimpleThreadPool struct {
	id       string
	workers  int
	queue    *core.WorkQueue
	wg       sync.WaitGroup
	handler  core.ExceptionHandler
	logger   core.Logger
	metrics  core.Metrics
	rejected core.RejectedTaskHandler
	active   atomic.Int32
	stopped  atomic.Bool
}

var _ core.TaskExecutor = (*SimpleThreadPool)(nil)

// NewSimpleThreadPool creates a pool of threadCount workers. handler, which
// may be nil, receives the recovered value of any closure panic; nil means a
// panicking closure terminates the process.
func NewSimpleThreadPool(threadCount int, handler func(recovered any)) *SimpleThreadPool {
	cfg := core.DefaultPoolConfig()
	if handler != nil {
		cfg.ExceptionHandler = core.ExceptionHandlerFunc(handler)
	}
	return NewSimpleThreadPoolWithConfig(threadCount, cfg)
}

// NewSimpleThreadPoolWithConfig creates a pool with explicit configuration.
// Zero config fields select defaults; a nil config behaves like
// DefaultPoolConfig.
func NewSimpleThreadPoolWithConfig(threadCount int, cfg *core.PoolConfig) *SimpleThreadPool {
	if threadCount < 1 {
		threadCount = 1
	}
	if cfg == nil {
		cfg = core.DefaultPoolConfig()
	}

	p := &SimpleThreadPool{
		id:       cfg.ID,
		workers:  threadCount,
		queue:    core.NewWorkQueue(),
		handler:  cfg.ExceptionHandler,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		rejected: cfg.RejectedTaskHandler,
	}
	if p.id == "" {
		p.id = "pool-" + uuid.NewString()
	}
	if p.logger == nil {
		p.logger = core.NewNoOpLogger()
	}
	if p.metrics == nil {
		p.metrics = &core.NilMetrics{}
	}
	if p.rejected == nil {
		p.rejected = core.NopRejectedTaskHandler
	}

	for i := 0; i < threadCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.logger.Debug("thread pool started",
		core.F("pool", p.id), core.F("workers", threadCount))
	return p
}

// AddTask appends a closure to the queue and wakes one waiting worker.
// Returns false when the pool is shutting down or the closure is nil.
func (p *SimpleThreadPool) AddTask(task core.Task) bool {
	if task == nil {
		p.reject("nil task")
		return false
	}
	if !p.queue.AddTask(task) {
		p.reject("shutdown")
		return false
	}
	p.metrics.RecordQueueDepth(p.id, p.queue.Len())
	return true
}

// Stop shuts the queue down, wakes all workers, and joins them. Closures
// already executing complete; closures still queued are discarded.
// Idempotent.
func (p *SimpleThreadPool) Stop() {
	if !p.stopped.CompareAndSwap(false, true) {
		return
	}
	p.queue.Stop()
	p.wg.Wait()
	p.logger.Debug("thread pool stopped", core.F("pool", p.id))
}

// ID returns the pool's name used in logs and metrics.
func (p *SimpleThreadPool) ID() string {
	return p.id
}

// IsRunning reports whether Stop has not yet been called.
func (p *SimpleThreadPool) IsRunning() bool {
	return !p.stopped.Load()
}

// WorkerCount returns the number of workers.
func (p *SimpleThreadPool) WorkerCount() int {
	return p.workers
}

// QueuedTaskCount returns the number of closures waiting for a worker.
func (p *SimpleThreadPool) QueuedTaskCount() int {
	return p.queue.Len()
}

// ActiveTaskCount returns the number of closures currently executing.
func (p *SimpleThreadPool) ActiveTaskCount() int {
	return int(p.active.Load())
}

// worker is the main loop for each worker goroutine.
func (p *SimpleThreadPool) worker(id int) {
	defer p.wg.Done()
	for {
		task := p.queue.GetTask()
		if task == nil {
			return
		}
		p.runTask(id, task)
	}
}

func (p *SimpleThreadPool) runTask(workerID int, task core.Task) {
	p.active.Add(1)
	start := time.Now()
	defer func() {
		p.active.Add(-1)
		p.metrics.RecordTaskDuration(p.id, time.Since(start))
		if r := recover(); r != nil {
			p.metrics.RecordTaskPanic(p.id, r)
			if p.handler == nil {
				panic(r)
			}
			p.handler.HandleException(p.id, workerID, r, debug.Stack())
		}
	}()
	task()
}

func (p *SimpleThreadPool) reject(reason string) {
	p.rejected.HandleRejectedTask(p.id, reason)
	p.metrics.RecordTaskRejected(p.id, reason)
}

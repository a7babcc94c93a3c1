package parallel

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jwsr/go-parallel/core"
)

// Timer schedules closures for execution at a future instant by dispatching
// them into a task executor, typically a SimpleThreadPool. A single
// dispatcher goroutine sleeps until the earliest task is due, pops it, and
// hands a trampoline closure to the executor.
//
// The timer does not own the executor; the executor must be stopped after
// every timer that posts to it. Due times are monotonic-clock instants: a
// wall-clock jump does not reorder pending tasks.
type Timer struct {
	id       string
	executor core.TaskExecutor
	queue    *core.TimerQueue
	wg       sync.WaitGroup
	logger   core.Logger
	metrics  core.Metrics
	rejected core.RejectedTaskHandler
	stopped  atomic.Bool
}

var _ core.Rescheduler = (*Timer)(nil)

// NewTimer creates a timer dispatching into executor, holding at most
// maxQueueSize pending tasks. The dispatcher starts immediately.
func NewTimer(executor core.TaskExecutor, maxQueueSize int) *Timer {
	return NewTimerWithConfig(executor, maxQueueSize, nil)
}

// NewTimerWithConfig creates a timer with explicit configuration. Zero config
// fields select defaults; a nil config behaves like DefaultTimerConfig.
func NewTimerWithConfig(executor core.TaskExecutor, maxQueueSize int, cfg *core.TimerConfig) *Timer {
	if maxQueueSize < 1 {
		maxQueueSize = 1
	}
	if cfg == nil {
		cfg = core.DefaultTimerConfig()
	}

	t := &Timer{
		id:       cfg.ID,
		executor: executor,
		queue:    core.NewTimerQueue(maxQueueSize),
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		rejected: cfg.RejectedTaskHandler,
	}
	if t.id == "" {
		t.id = "timer-" + uuid.NewString()
	}
	if t.logger == nil {
		t.logger = core.NewNoOpLogger()
	}
	if t.metrics == nil {
		t.metrics = &core.NilMetrics{}
	}
	if t.rejected == nil {
		t.rejected = core.NopRejectedTaskHandler
	}

	t.wg.Add(1)
	go t.dispatch()
	t.logger.Debug("timer started",
		core.F("timer", t.id), core.F("maxQueueSize", maxQueueSize))
	return t
}

// AddDelayedTask schedules task to run delay from now and returns a handle
// to it. A rejected submission (nil closure, shutdown, or a full queue) is
// reported through the handle: the task is cancelled before the handle is
// returned, never through an error value.
func (t *Timer) AddDelayedTask(delay time.Duration, task core.Task) *core.Handle {
	dt := core.NewDelayedTask(delay, task, t)
	if task == nil {
		dt.Cancel()
		t.reject("nil task")
		return core.NewHandle(dt)
	}
	if !t.queue.AddTask(dt) {
		dt.Cancel()
		if t.queue.Stopped() {
			t.reject("shutdown")
		} else {
			t.reject("capacity")
		}
		return core.NewHandle(dt)
	}
	t.metrics.RecordDelayedTasks(t.id, t.queue.Len())
	return core.NewHandle(dt)
}

// Stop shuts the queue down, joins the dispatcher, and cancels every task
// still pending. Tasks already handed to the executor run to completion.
// Idempotent.
func (t *Timer) Stop() {
	if !t.stopped.CompareAndSwap(false, true) {
		return
	}
	t.queue.Stop()
	t.wg.Wait()
	t.queue.CancelAll()
	t.logger.Debug("timer stopped", core.F("timer", t.id))
}

// ID returns the timer's name used in logs and metrics.
func (t *Timer) ID() string {
	return t.id
}

// IsRunning reports whether Stop has not yet been called.
func (t *Timer) IsRunning() bool {
	return !t.stopped.Load()
}

// PendingTaskCount returns the number of tasks waiting in the queue.
func (t *Timer) PendingTaskCount() int {
	return t.queue.Len()
}

// StartTask enqueues a task afresh at now() + delay, cancelling it when the
// queue refuses. Part of the core.Rescheduler contract used by the task
// state machine for post-run restarts; not intended for direct use.
func (t *Timer) StartTask(task *core.DelayedTask) bool {
	if !t.queue.AddTask(task) {
		if t.queue.Stopped() {
			t.reject("shutdown")
		} else {
			t.reject("capacity")
		}
		task.Cancel()
		return false
	}
	return true
}

// RescheduleTask repositions a waiting task at now() + delay. A task the
// queue no longer holds was concurrently popped for dispatch and is left
// alone; a stopped queue cancels it. Part of the core.Rescheduler contract;
// not intended for direct use.
func (t *Timer) RescheduleTask(task *core.DelayedTask) bool {
	if t.queue.RescheduleTask(task) {
		return true
	}
	if t.queue.Stopped() {
		task.Cancel()
	}
	return false
}

// dispatch is the dispatcher goroutine: pop due tasks, trampoline them into
// the executor, cancel them when the executor refuses. Exits once the queue
// is stopped.
func (t *Timer) dispatch() {
	defer t.wg.Done()
	for {
		task := t.queue.GetTask()
		if task == nil {
			return
		}
		if !t.executor.AddTask(func() { task.Run() }) {
			t.logger.Warn("executor refused task, cancelling",
				core.F("timer", t.id))
			task.Cancel()
		}
	}
}

func (t *Timer) reject(reason string) {
	t.rejected.HandleRejectedTask(t.id, reason)
	t.metrics.RecordTaskRejected(t.id, reason)
}

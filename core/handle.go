package core

import "time"

// Handle is the externally-held reference to a delayed task. It forwards
// cancellation, restart, and state queries to the task and releases it on
// Close or Detach.
//
// A handle is move-only in spirit: pass the pointer along, do not copy the
// struct. Close and Detach are not synchronized against concurrent use of
// the same handle; the task itself is safe to reach from many goroutines,
// so goroutines that need independent control should each be given the
// handle before any of them releases it.
type Handle struct {
	task *DelayedTask
}

// NewHandle wraps a delayed task.
func NewHandle(task *DelayedTask) *Handle {
	return &Handle{task: task}
}

// Cancel forwards to DelayedTask.Cancel: true iff the transition to
// cancelled happened here. Cancelling a task that is running on another
// goroutine blocks until it finishes, then returns false.
func (h *Handle) Cancel() bool {
	if h.task == nil {
		return false
	}
	return h.task.Cancel()
}

// Restart forwards to DelayedTask.Restart: true iff the restart request was
// accepted (the task was waiting or running).
func (h *Handle) Restart() bool {
	if h.task == nil {
		return false
	}
	return h.task.Restart()
}

// IsWaiting reports whether the task is queued and not yet due.
func (h *Handle) IsWaiting() bool {
	return h.task != nil && h.task.IsWaiting()
}

// IsRunning reports whether the task's closure is currently executing.
func (h *Handle) IsRunning() bool {
	return h.task != nil && h.task.IsRunning()
}

// IsDone reports whether the closure completed normally. If the closure
// panicked, the recovered value is rethrown here.
func (h *Handle) IsDone() bool {
	return h.task != nil && h.task.IsDone()
}

// IsCancelled reports whether the task was cancelled.
func (h *Handle) IsCancelled() bool {
	return h.task != nil && h.task.IsCancelled()
}

// Exception returns the panic value captured from the closure, if any,
// without rethrowing it.
func (h *Handle) Exception() (any, bool) {
	if h.task == nil {
		return nil, false
	}
	return h.task.Exception()
}

// Delay returns the fixed delay the task was created with.
func (h *Handle) Delay() time.Duration {
	if h.task == nil {
		return 0
	}
	return h.task.Delay()
}

// Close cancels the task and releases the handle. Like Cancel, it blocks
// while the task is running on another goroutine; use Detach to let the
// task finish unobserved instead. A panic stored in the exception state is
// discarded, not rethrown. Idempotent.
func (h *Handle) Close() {
	if h.task == nil {
		return
	}
	if _, failed := h.task.Exception(); !failed {
		h.task.Cancel()
	}
	h.task = nil
}

// Detach releases the handle without cancelling the task. The task keeps its
// place in the queue and runs normally; it just can no longer be reached.
func (h *Handle) Detach() {
	h.task = nil
}

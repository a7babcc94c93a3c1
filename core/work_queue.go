package core

import (
	"github.com/jwsr/go-parallel/guard"
)

const (
	defaultQueueCap     = 16
	compactMinCap       = 64 // Don't compact if capacity is less than this
	compactShrinkFactor = 4  // Trigger compaction when len < cap/4
)

// workQueue is the guarded state of a WorkQueue: the FIFO backlog plus the
// shutdown flag. Mutated only through the guard.
type workQueue struct {
	quit  bool
	tasks []Task
}

// WorkQueue is the FIFO task queue feeding pool workers. Producers append via
// AddTask; workers block in GetTask on the queue's condition until a task
// arrives or Stop is called.
type WorkQueue struct {
	st *guard.Signal[workQueue]
}

// NewWorkQueue creates an empty work queue.
func NewWorkQueue() *WorkQueue {
	return &WorkQueue{
		st: guard.NewSignal(workQueue{
			tasks: make([]Task, 0, defaultQueueCap),
		}),
	}
}

// AddTask appends a task and wakes one waiting worker. Returns false when the
// queue is shut down or the task is nil.
func (q *WorkQueue) AddTask(task Task) bool {
	if task == nil {
		return false
	}
	accepted := guard.SignalAccess(q.st, func(wq *workQueue) bool {
		if wq.quit {
			return false
		}
		wq.tasks = append(wq.tasks, task)
		return true
	})
	if accepted {
		q.st.NotifyOne()
	}
	return accepted
}

// GetTask blocks until a task is available or the queue is stopped. Returns
// nil on shutdown. Tasks come out in AddTask order.
func (q *WorkQueue) GetTask() Task {
	var task Task
	q.st.Access(func(wq *workQueue) {
		// Wait cannot fail here: we are inside the locked scope.
		_ = q.st.Wait(func() bool {
			return wq.quit || len(wq.tasks) > 0
		})
		if wq.quit {
			return
		}
		task = wq.tasks[0]
		wq.tasks[0] = nil // release the closure
		wq.tasks = wq.tasks[1:]
		maybeCompact(&wq.tasks)
	})
	return task
}

// Stop shuts the queue down and wakes all waiting workers. Tasks still queued
// are discarded; in-flight tasks are unaffected.
func (q *WorkQueue) Stop() {
	q.st.Access(func(wq *workQueue) {
		wq.quit = true
		wq.tasks = nil
	})
	q.st.NotifyAll()
}

// Len returns the number of queued tasks.
func (q *WorkQueue) Len() int {
	return guard.SignalAccess(q.st, func(wq *workQueue) int {
		return len(wq.tasks)
	})
}

// maybeCompact reallocates the backing array when repeated front-pops leave
// most of its capacity stranded behind the slice start.
func maybeCompact(tasks *[]Task) {
	n := len(*tasks)
	c := cap(*tasks)

	if c < compactMinCap {
		return
	}
	if n == 0 {
		*tasks = make([]Task, 0, defaultQueueCap)
		return
	}
	if n*compactShrinkFactor >= c {
		return
	}

	newCap := max(max(c/2, defaultQueueCap), n)
	compacted := make([]Task, n, newCap)
	copy(compacted, *tasks)
	*tasks = compacted
}

package core

import (
	"container/heap"
	"time"

	"github.com/jwsr/go-parallel/guard"
)

// queueItem is one scheduled entry: the task, the due time captured at
// scheduling, and an insertion sequence breaking ties between equal due
// times.
type queueItem struct {
	task    *DelayedTask
	dueTime time.Time
	seq     uint64
	index   int // heap position, -1 when not queued
}

// delayedHeap orders items by (dueTime, seq), so tasks sharing an instant
// dispatch in insertion order.
type delayedHeap []*queueItem

func (h delayedHeap) Len() int { return len(h) }

func (h delayedHeap) Less(i, j int) bool {
	if h[i].dueTime.Equal(h[j].dueTime) {
		return h[i].seq < h[j].seq
	}
	return h[i].dueTime.Before(h[j].dueTime)
}

func (h delayedHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *delayedHeap) Push(x any) {
	item := x.(*queueItem)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *delayedHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil // avoid memory leak
	item.index = -1
	*h = old[0 : n-1]
	return item
}

func (h delayedHeap) peek() *queueItem {
	if len(h) == 0 {
		return nil
	}
	return h[0]
}

// timerQueue is the guarded state: the due-time heap, the task-to-entry map
// mirroring it, capacity, and the shutdown flag. For every heap item there is
// exactly one mapping entry pointing at it.
type timerQueue struct {
	quit    bool
	maxSize int
	heap    delayedHeap
	mapping map[*DelayedTask]*queueItem
	seq     uint64
}

func (tq *timerQueue) ready(now time.Time) bool {
	item := tq.heap.peek()
	return item != nil && !item.dueTime.After(now)
}

// TimerQueue is the time-ordered set of pending delayed tasks. The dispatcher
// blocks in GetTask until the earliest task is due or a wakeup arrives;
// producers insert via AddTask and reposition via RescheduleTask.
type TimerQueue struct {
	st *guard.Signal[timerQueue]
}

// NewTimerQueue creates a queue holding at most maxQueueSize pending tasks.
func NewTimerQueue(maxQueueSize int) *TimerQueue {
	return &TimerQueue{
		st: guard.NewSignal(timerQueue{
			maxSize: maxQueueSize,
			mapping: make(map[*DelayedTask]*queueItem),
		}),
	}
}

// AddTask inserts a task at its fresh due time. Returns false when the queue
// is shut down, at capacity, or already holds the task. The dispatcher is
// woken when the new task becomes the earliest.
func (q *TimerQueue) AddTask(task *DelayedTask) bool {
	var wake bool
	accepted := guard.SignalAccess(q.st, func(tq *timerQueue) bool {
		if tq.quit || len(tq.heap) >= tq.maxSize {
			return false
		}
		if _, dup := tq.mapping[task]; dup {
			return false
		}
		item := &queueItem{
			task:    task,
			dueTime: task.DueTime(),
			seq:     tq.seq,
		}
		tq.seq++
		heap.Push(&tq.heap, item)
		tq.mapping[task] = item
		wake = item.index == 0
		return true
	})
	if wake {
		q.st.NotifyOne()
	}
	return accepted
}

// RescheduleTask repositions a queued task at a fresh due time. Returns false
// when the queue is shut down or no longer holds the task. The dispatcher is
// woken when the new position is the earliest.
func (q *TimerQueue) RescheduleTask(task *DelayedTask) bool {
	var wake bool
	moved := guard.SignalAccess(q.st, func(tq *timerQueue) bool {
		if tq.quit {
			return false
		}
		item, ok := tq.mapping[task]
		if !ok {
			return false
		}
		heap.Remove(&tq.heap, item.index)
		item.dueTime = task.DueTime()
		item.seq = tq.seq
		tq.seq++
		heap.Push(&tq.heap, item)
		wake = item.index == 0
		return true
	})
	if wake {
		q.st.NotifyOne()
	}
	return moved
}

// GetTask blocks until a task is due and returns it, removing it from the
// queue. Returns nil once the queue is stopped. A task whose due time equals
// the current instant is considered ready.
func (q *TimerQueue) GetTask() *DelayedTask {
	var task *DelayedTask
	q.st.Access(func(tq *timerQueue) {
		for !tq.quit {
			if tq.ready(time.Now()) {
				item := heap.Pop(&tq.heap).(*queueItem)
				delete(tq.mapping, item.task)
				task = item.task
				return
			}

			// Waits cannot fail here: we are inside the locked scope. Both
			// are predicate-guarded, so spurious wakeups just loop. A new
			// earliest entry ends the timed wait so its due time is used.
			if next := tq.heap.peek(); next != nil {
				_, _ = q.st.WaitUntil(next.dueTime, func() bool {
					return tq.quit || tq.ready(time.Now()) || tq.heap.peek() != next
				})
			} else {
				_ = q.st.Wait(func() bool {
					return tq.quit || len(tq.heap) > 0
				})
			}
		}
	})
	return task
}

// Stop shuts the queue down and wakes the dispatcher. Queued tasks stay put
// for a subsequent CancelAll.
func (q *TimerQueue) Stop() {
	q.st.Access(func(tq *timerQueue) {
		tq.quit = true
	})
	q.st.NotifyAll()
}

// Stopped reports whether Stop has been called.
func (q *TimerQueue) Stopped() bool {
	return guard.SignalAccess(q.st, func(tq *timerQueue) bool {
		return tq.quit
	})
}

// CancelAll removes every queued task and cancels it. Cancellation runs
// outside the queue lock: cancelling a running task blocks until it finishes,
// and a finishing task takes the queue lock to re-enqueue a restart, so
// holding the queue lock across cancel could deadlock.
func (q *TimerQueue) CancelAll() {
	var tasks []*DelayedTask
	q.st.Access(func(tq *timerQueue) {
		tasks = make([]*DelayedTask, 0, len(tq.heap))
		for _, item := range tq.heap {
			item.index = -1
			tasks = append(tasks, item.task)
		}
		tq.heap = nil
		tq.mapping = make(map[*DelayedTask]*queueItem)
	})
	for _, task := range tasks {
		task.Cancel()
	}
}

// Len returns the number of pending tasks.
func (q *TimerQueue) Len() int {
	return guard.SignalAccess(q.st, func(tq *timerQueue) int {
		return len(tq.heap)
	})
}

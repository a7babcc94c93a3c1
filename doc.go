// Package parallel is a small concurrency toolkit built from three
// interlocking primitives: guards that bind objects to locks, a fixed-size
// thread pool for opaque closures, and a timer that schedules closures for
// execution at a future instant by dispatching them into a pool.
//
// # Quick Start
//
// Create a pool and a timer backed by it:
//
//	pool := parallel.NewSimpleThreadPool(4, nil)
//	defer pool.Stop()
//
//	timer := parallel.NewTimer(pool, 128)
//	defer timer.Stop()
//
//	handle := timer.AddDelayedTask(2*time.Second, func() {
//		println("two seconds later, on a pool worker")
//	})
//
// The handle controls the scheduled task:
//
//	handle.Cancel()  // true iff the task moved to cancelled here
//	handle.Restart() // run again at now() + delay
//
// # Key Concepts
//
// Guard (package guard): binds an object to a lock so the object is only
// reachable through a locked scope. Exclusive, Shared, Recursive, and the
// condition-enabled Signal flavor; the pool queue and every delayed task's
// state machine are built on Signal.
//
// SimpleThreadPool: a fixed worker set consuming a FIFO queue. A panicking
// closure is routed to the pool's exception handler; with no handler the
// process terminates rather than letting user errors corrupt the pool.
//
// Timer: a single dispatcher goroutine sleeping on a monotonic due-time
// queue. Delayed tasks move through waiting, running, done, cancelled, and
// exception states; cancel and restart are safe against a task already
// executing on a worker. Cancelling a task that is mid-closure on another
// goroutine blocks until the closure finishes and then reports false — a
// running closure is never interrupted.
//
// # Lifetimes
//
// The timer holds a non-owning reference to its executor: stop timers first,
// the pool after. Stopping a timer cancels the tasks still queued; stopping
// the pool discards closures not yet picked up by a worker.
package parallel

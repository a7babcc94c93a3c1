package core

import (
	"time"

	"github.com/jwsr/go-parallel/guard"
	"github.com/jwsr/go-parallel/internal/goid"
)

// Rescheduler re-enqueues delayed tasks into their timer queue. Implemented
// by the timer; the reference is non-owning and the timer must outlive the
// scheduling of its tasks.
type Rescheduler interface {
	// StartTask enqueues the task afresh at now() + delay. A rejected task is
	// cancelled before the call returns false.
	StartTask(task *DelayedTask) bool

	// RescheduleTask repositions an already-queued task at now() + delay.
	RescheduleTask(task *DelayedTask) bool
}

// taskState is the guarded lifecycle record of a delayed task.
//
// gen increments on every state transition. Cancellation of a running task
// waits for gen to move rather than for a particular successor state: a
// restart may bounce the task straight back to waiting, and the canceller
// must observe that the running episode it raced against has ended.
type taskState struct {
	state         State
	gen           uint64
	executor      uint64 // goroutine running the closure, valid in StateRunning
	restartWanted bool   // valid in StateRunning
	recovered     any    // valid in StateException
}

// DelayedTask pairs a user closure with a fixed delay and a state machine.
// The delay never changes; the due time is re-evaluated on every scheduling
// attempt, so a restart lands at now() + delay.
//
// A task is shared between the timer queue, the dispatcher, the executing
// worker, and any outstanding handle. Every transition happens under the
// task's own lock; enqueueing back into the timer never does.
type DelayedTask struct {
	st    *guard.Signal[taskState]
	delay time.Duration
	task  Task
	timer Rescheduler
}

// NewDelayedTask creates a task in the waiting state. It is not enqueued;
// the timer does that separately so a rejected insert can cancel the task
// before the caller's handle sees it.
func NewDelayedTask(delay time.Duration, task Task, timer Rescheduler) *DelayedTask {
	return &DelayedTask{
		st:    guard.NewSignal(taskState{state: StateWaiting}),
		delay: delay,
		task:  task,
		timer: timer,
	}
}

// Delay returns the fixed delay the task was created with.
func (t *DelayedTask) Delay() time.Duration {
	return t.delay
}

// DueTime returns now() + delay, evaluated at the call.
func (t *DelayedTask) DueTime() time.Time {
	return time.Now().Add(t.delay)
}

// Run executes the closure if the task is still waiting. Called on a pool
// worker via the dispatcher's trampoline. A panic in the closure moves the
// task to the exception state; a restart requested during execution
// re-enqueues it afterwards.
func (t *DelayedTask) Run() {
	if !t.begin() {
		return
	}
	if recovered := t.execute(); recovered != nil {
		t.completeException(recovered)
	} else {
		t.completeDone()
	}
}

// begin performs waiting -> running, recording the executing goroutine so a
// cancel issued from inside the closure can be told apart from one racing it.
func (t *DelayedTask) begin() bool {
	return guard.SignalAccess(t.st, func(s *taskState) bool {
		if s.state != StateWaiting {
			return false
		}
		s.state = StateRunning
		s.executor = goid.Current()
		s.restartWanted = false
		s.gen++
		return true
	})
}

func (t *DelayedTask) execute() (recovered any) {
	defer func() {
		recovered = recover()
	}()
	t.task()
	return nil
}

// completeDone performs running -> done, or running -> waiting when a restart
// was requested mid-run. The re-enqueue happens after the lock is released;
// its rejection cancels the task. When the closure itself cancelled the task
// the state is no longer running and only the notification remains.
func (t *DelayedTask) completeDone() {
	restart := false
	t.st.Access(func(s *taskState) {
		if s.state != StateRunning {
			return
		}
		if s.restartWanted {
			s.state = StateWaiting
			restart = true
		} else {
			s.state = StateDone
		}
		s.gen++
	})
	t.st.NotifyAll()
	if restart {
		t.timer.StartTask(t)
	}
}

func (t *DelayedTask) completeException(recovered any) {
	t.st.Access(func(s *taskState) {
		if s.state != StateRunning {
			return
		}
		s.state = StateException
		s.recovered = recovered
		s.gen++
	})
	t.st.NotifyAll()
}

// Cancel moves the task to the cancelled state, reporting whether the
// transition happened. A waiting task cancels immediately and its closure
// never runs. Cancelling a running task from the executing goroutine (the
// closure cancelling itself) succeeds synchronously; from any other
// goroutine the call blocks until the running episode ends and then reports
// false, letting the caller observe the true outcome. A done task can still
// be cancelled; cancelled is terminal. In the exception state the stored
// panic value is rethrown.
func (t *DelayedTask) Cancel() bool {
	var rethrow any
	cancelled := guard.SignalAccess(t.st, func(s *taskState) bool {
		switch s.state {
		case StateWaiting, StateDone:
			s.state = StateCancelled
			s.gen++
			return true
		case StateRunning:
			if s.executor == goid.Current() {
				s.state = StateCancelled
				s.gen++
				return true
			}
			gen := s.gen
			// Wait cannot fail here: we are inside the locked scope.
			_ = t.st.Wait(func() bool {
				return s.gen != gen
			})
			return false
		case StateException:
			rethrow = s.recovered
			return false
		default: // StateCancelled
			return false
		}
	})
	if rethrow != nil {
		panic(rethrow)
	}
	return cancelled
}

// Restart asks for the task to run again with a fresh due time, reporting
// whether the request was accepted. A waiting task is repositioned in the
// queue at now() + delay; a running task records the request and re-enqueues
// once the closure finishes. In the exception state the stored panic value is
// rethrown; done and cancelled tasks reject the request.
func (t *DelayedTask) Restart() bool {
	var rethrow any
	reschedule := false
	accepted := guard.SignalAccess(t.st, func(s *taskState) bool {
		switch s.state {
		case StateWaiting:
			reschedule = true
			return true
		case StateRunning:
			s.restartWanted = true
			return true
		case StateException:
			rethrow = s.recovered
		}
		return false
	})
	if rethrow != nil {
		panic(rethrow)
	}
	if reschedule {
		t.timer.RescheduleTask(t)
	}
	return accepted
}

// IsWaiting reports whether the task is queued and not yet due.
func (t *DelayedTask) IsWaiting() bool {
	return t.stateIs(StateWaiting)
}

// IsRunning reports whether the closure is currently executing.
func (t *DelayedTask) IsRunning() bool {
	return t.stateIs(StateRunning)
}

// IsDone reports whether the closure completed normally. In the exception
// state the stored panic value is rethrown at the call site.
func (t *DelayedTask) IsDone() bool {
	var rethrow any
	done := guard.SignalAccess(t.st, func(s *taskState) bool {
		if s.state == StateException {
			rethrow = s.recovered
		}
		return s.state == StateDone
	})
	if rethrow != nil {
		panic(rethrow)
	}
	return done
}

// IsCancelled reports whether the task was cancelled.
func (t *DelayedTask) IsCancelled() bool {
	return t.stateIs(StateCancelled)
}

// Exception returns the stored panic value without rethrowing it, and
// whether the task is in the exception state.
func (t *DelayedTask) Exception() (any, bool) {
	var recovered any
	failed := guard.SignalAccess(t.st, func(s *taskState) bool {
		recovered = s.recovered
		return s.state == StateException
	})
	if !failed {
		return nil, false
	}
	return recovered, true
}

func (t *DelayedTask) stateIs(state State) bool {
	return guard.SignalAccess(t.st, func(s *taskState) bool {
		return s.state == state
	})
}

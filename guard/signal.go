package guard

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jwsr/go-parallel/internal/goid"
)

// ErrNoActiveLock reports a condition wait issued outside a locked scope.
var ErrNoActiveLock = errors.New("guard: condition wait outside a locked scope")

// Signal is an exclusive guard whose locked scope can wait on a condition
// variable. Wait, WaitFor and WaitUntil are valid only from within Access on
// the same goroutine; NotifyOne and NotifyAll may be called from anywhere,
// with or without the lock.
//
// All waits are predicate-guarded: they return only when the predicate holds
// or, for the bounded flavors, when the deadline passes. Spurious wakeups are
// absorbed by the predicate loop.
type Signal[T any] struct {
	mu     sync.Mutex
	cond   *timedCond
	owner  atomic.Uint64 // goroutine currently inside Access, 0 when none
	object T
}

// NewSignal creates a condition-enabled guard around object.
func NewSignal[T any](object T) *Signal[T] {
	g := &Signal[T]{object: object}
	g.cond = newTimedCond(&g.mu)
	return g
}

// Access invokes f with the guarded object while holding the lock. The locked
// scope is published for the duration of f so that f may call the wait
// methods.
func (g *Signal[T]) Access(f func(*T)) {
	g.mu.Lock()
	g.owner.Store(goid.Current())
	defer func() {
		g.owner.Store(0)
		g.mu.Unlock()
	}()
	f(&g.object)
}

// SignalAccess invokes f under g's lock and returns f's result.
func SignalAccess[T, R any](g *Signal[T], f func(*T) R) R {
	var result R
	g.Access(func(object *T) {
		result = f(object)
	})
	return result
}

// Wait blocks until pred returns true, releasing the lock while parked.
// Returns ErrNoActiveLock when called outside an Access scope.
func (g *Signal[T]) Wait(pred func() bool) error {
	if err := g.checkScope(); err != nil {
		return err
	}
	for !pred() {
		g.cond.wait()
		g.owner.Store(goid.Current())
	}
	return nil
}

// WaitFor is Wait bounded by a duration. It reports whether the predicate was
// satisfied; false means the wait timed out.
func (g *Signal[T]) WaitFor(d time.Duration, pred func() bool) (bool, error) {
	return g.WaitUntil(time.Now().Add(d), pred)
}

// WaitUntil is Wait bounded by an absolute deadline. It reports whether the
// predicate was satisfied; false means the deadline passed first.
func (g *Signal[T]) WaitUntil(deadline time.Time, pred func() bool) (bool, error) {
	if err := g.checkScope(); err != nil {
		return false, err
	}
	for !pred() {
		timedOut := g.cond.waitDeadline(deadline)
		g.owner.Store(goid.Current())
		if timedOut {
			return pred(), nil
		}
	}
	return true, nil
}

// NotifyOne wakes at least one waiter. The implementation broadcasts; the
// predicate loops make the difference unobservable.
func (g *Signal[T]) NotifyOne() {
	g.cond.notify()
}

// NotifyAll wakes all waiters.
func (g *Signal[T]) NotifyAll() {
	g.cond.notify()
}

func (g *Signal[T]) checkScope() error {
	if g.owner.Load() != goid.Current() {
		return ErrNoActiveLock
	}
	return nil
}

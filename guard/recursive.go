package guard

import (
	"errors"
	"sync"
	"time"

	"github.com/jwsr/go-parallel/internal/goid"
)

// ErrDeadlockWouldOccur reports a recursive acquire that exceeded its budget.
var ErrDeadlockWouldOccur = errors.New("guard: lock acquisition timed out, deadlock would occur")

// DefaultAcquireTimeout bounds Recursive lock acquisition when no explicit
// timeout is configured.
const DefaultAcquireTimeout = 3 * time.Second

// Recursive guards an object with a re-entrant lock: the goroutine holding
// the lock may enter Access again without blocking. Acquisition by any other
// goroutine is bounded by the configured timeout and fails with
// ErrDeadlockWouldOccur once exceeded.
//
// Recursion hides lock-ordering mistakes; prefer Exclusive unless the
// architecture genuinely requires re-entry.
type Recursive[T any] struct {
	mu      sync.Mutex // protects owner and depth
	cond    *timedCond
	owner   uint64
	depth   int
	timeout time.Duration
	object  T
}

// NewRecursive creates a re-entrant guard around object with
// DefaultAcquireTimeout.
func NewRecursive[T any](object T) *Recursive[T] {
	return NewRecursiveTimeout(object, DefaultAcquireTimeout)
}

// NewRecursiveTimeout creates a re-entrant guard with an explicit acquire
// timeout. Non-positive timeouts fall back to DefaultAcquireTimeout.
func NewRecursiveTimeout[T any](object T, timeout time.Duration) *Recursive[T] {
	if timeout <= 0 {
		timeout = DefaultAcquireTimeout
	}
	g := &Recursive[T]{timeout: timeout}
	g.cond = newTimedCond(&g.mu)
	g.object = object
	return g
}

// Access invokes f with the guarded object while holding the lock, acquiring
// it re-entrantly when the calling goroutine already holds it. Returns
// ErrDeadlockWouldOccur when the lock cannot be acquired within the timeout.
func (g *Recursive[T]) Access(f func(*T)) error {
	id := goid.Current()

	g.mu.Lock()
	if g.owner == id {
		g.depth++
		g.mu.Unlock()
		defer g.release()
		f(&g.object)
		return nil
	}

	deadline := time.Now().Add(g.timeout)
	for g.owner != 0 {
		if g.cond.waitDeadline(deadline) && g.owner != 0 {
			g.mu.Unlock()
			return ErrDeadlockWouldOccur
		}
	}
	g.owner = id
	g.depth = 1
	g.mu.Unlock()

	defer g.release()
	f(&g.object)
	return nil
}

func (g *Recursive[T]) release() {
	g.mu.Lock()
	g.depth--
	if g.depth == 0 {
		g.owner = 0
		g.cond.notify()
	}
	g.mu.Unlock()
}

// RecursiveAccess invokes f under g's lock and returns f's result alongside
// the acquisition error.
func RecursiveAccess[T, R any](g *Recursive[T], f func(*T) R) (R, error) {
	var result R
	err := g.Access(func(object *T) {
		result = f(object)
	})
	return result, err
}

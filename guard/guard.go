// Package guard binds objects to locks so that the object is only reachable
// through a locked scope.
//
// Guard flavors:
//
//	guard.Exclusive  - standard (exclusive) mutex semantic
//	guard.Shared     - shared (read-write) mutex semantic
//	guard.Recursive  - re-entrant semantic with a time-bounded acquire
//	guard.Signal     - exclusive guard with condition-variable waiting
//
// To reach the guarded object, either pass a closure to Access:
//
//	counter := guard.NewExclusive(0)
//	counter.Access(func(n *int) { *n++ })
//
// or obtain a scoped proxy and release it when done:
//
//	p := counter.AccessTo()
//	*p.Object()++
//	p.Release()
//
// To lock several guards at once without risking deadlock, use LockAll2 or
// LockAll3.
package guard

import "sync"

// Proxy grants access to a guarded object for as long as the underlying lock
// is held. Release unlocks; using the proxy afterwards is a bug.
type Proxy[T any] struct {
	object *T
	unlock func()
}

// Object returns the guarded object. Valid only until Release.
func (p *Proxy[T]) Object() *T {
	return p.object
}

// Release unlocks the guard. Safe to call once; subsequent calls are no-ops.
func (p *Proxy[T]) Release() {
	if p.unlock != nil {
		p.unlock()
		p.unlock = nil
		p.object = nil
	}
}

// Exclusive guards an object with a mutex. The zero delay of Go struct
// initialization means the wrapped object must be supplied up front.
type Exclusive[T any] struct {
	mu     sync.Mutex
	object T
}

// NewExclusive creates an exclusive guard around object.
func NewExclusive[T any](object T) *Exclusive[T] {
	return &Exclusive[T]{object: object}
}

// Access invokes f with the guarded object while holding the lock.
func (g *Exclusive[T]) Access(f func(*T)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	f(&g.object)
}

// AccessTo locks the guard and returns a proxy bound to the locked scope.
func (g *Exclusive[T]) AccessTo() *Proxy[T] {
	g.mu.Lock()
	return &Proxy[T]{object: &g.object, unlock: g.mu.Unlock}
}

// Access invokes f under g's lock and returns f's result. Methods cannot
// introduce type parameters, so the result-returning form is a function.
func Access[T, R any](g *Exclusive[T], f func(*T) R) R {
	g.mu.Lock()
	defer g.mu.Unlock()
	return f(&g.object)
}

// Shared guards an object with a read-write mutex. Access takes the write
// lock; ConstAccess takes the read lock and the closure must not mutate the
// object, which Go cannot enforce.
type Shared[T any] struct {
	mu     sync.RWMutex
	object T
}

// NewShared creates a shared guard around object.
func NewShared[T any](object T) *Shared[T] {
	return &Shared[T]{object: object}
}

// Access invokes f with the guarded object while holding the write lock.
func (g *Shared[T]) Access(f func(*T)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	f(&g.object)
}

// ConstAccess invokes f while holding the read lock. Multiple readers may be
// inside ConstAccess concurrently; f must treat the object as read-only.
func (g *Shared[T]) ConstAccess(f func(*T)) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	f(&g.object)
}

// AccessTo locks for writing and returns a proxy bound to the locked scope.
func (g *Shared[T]) AccessTo() *Proxy[T] {
	g.mu.Lock()
	return &Proxy[T]{object: &g.object, unlock: g.mu.Unlock}
}

// ConstAccessTo locks for reading and returns a proxy bound to the locked
// scope. The object must be treated as read-only.
func (g *Shared[T]) ConstAccessTo() *Proxy[T] {
	g.mu.RLock()
	return &Proxy[T]{object: &g.object, unlock: g.mu.RUnlock}
}

// SharedAccess invokes f under g's write lock and returns f's result.
func SharedAccess[T, R any](g *Shared[T], f func(*T) R) R {
	g.mu.Lock()
	defer g.mu.Unlock()
	return f(&g.object)
}

// ConstSharedAccess invokes f under g's read lock and returns f's result.
func ConstSharedAccess[T, R any](g *Shared[T], f func(*T) R) R {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return f(&g.object)
}

package guard

import "runtime"

// LockAll2 acquires both guards' locks deadlock-free and invokes f with both
// inner objects. Acquisition uses try-lock-and-back-off: lock the first,
// try-lock the second, and on failure release everything and retry starting
// from the contended guard. Two goroutines locking the same pair in opposite
// order therefore cannot deadlock.
func LockAll2[A, B any](f func(*A, *B), a *Exclusive[A], b *Exclusive[B]) {
	for {
		a.mu.Lock()
		if b.mu.TryLock() {
			break
		}
		a.mu.Unlock()

		b.mu.Lock()
		if a.mu.TryLock() {
			break
		}
		b.mu.Unlock()
		runtime.Gosched()
	}
	defer a.mu.Unlock()
	defer b.mu.Unlock()
	f(&a.object, &b.object)
}

// LockAll3 is LockAll2 for three guards, with a simpler back-off: it locks a,
// try-locks b and c, and on any failure releases what it holds and retries
// from a.
func LockAll3[A, B, C any](f func(*A, *B, *C), a *Exclusive[A], b *Exclusive[B], c *Exclusive[C]) {
	for {
		a.mu.Lock()
		if b.mu.TryLock() {
			if c.mu.TryLock() {
				break
			}
			b.mu.Unlock()
		}
		a.mu.Unlock()
		runtime.Gosched()
	}
	defer a.mu.Unlock()
	defer b.mu.Unlock()
	defer c.mu.Unlock()
	f(&a.object, &b.object, &c.object)
}

// Swap exchanges the objects guarded by a and b, holding both locks for the
// exchange.
func Swap[T any](a, b *Exclusive[T]) {
	if a == b {
		return
	}
	LockAll2(func(x, y *T) {
		*x, *y = *y, *x
	}, a, b)
}

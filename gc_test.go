package parallel_test

import (
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	parallel "github.com/jwsr/go-parallel"
)

// TestPoolAndTimer_GC_AfterStop verifies lifecycle cleanup
// Given: a pool and a timer that executed delayed tasks
// When: both are stopped and all references are dropped
// Then: both objects become garbage collectable (no goroutine keeps them alive)
func TestPoolAndTimer_GC_AfterStop(t *testing.T) {
	var poolFinalized atomic.Bool
	var timerFinalized atomic.Bool

	pool := parallel.NewSimpleThreadPool(2, nil)
	timer := parallel.NewTimer(pool, 16)

	runtime.SetFinalizer(pool, func(p *parallel.SimpleThreadPool) {
		poolFinalized.Store(true)
	})
	runtime.SetFinalizer(timer, func(tm *parallel.Timer) {
		timerFinalized.Store(true)
	})

	done := make(chan struct{})
	handle := timer.AddDelayedTask(10*time.Millisecond, func() {
		close(done)
	})
	<-done
	handle.Detach()

	timer.Stop()
	pool.Stop()

	timer = nil
	pool = nil

	for i := 0; i < 5; i++ {
		runtime.GC()
		time.Sleep(10 * time.Millisecond)
	}

	if !poolFinalized.Load() {
		t.Error("stopped pool was not garbage collected")
	}
	if !timerFinalized.Load() {
		t.Error("stopped timer was not garbage collected")
	}
}

// TestHandle_CloseReleasesCompletedTask verifies that closing a handle after
// the task completed returns without blocking and drops the handle's
// reference to the task.
func TestHandle_CloseReleasesCompletedTask(t *testing.T) {
	pool := parallel.NewSimpleThreadPool(1, nil)
	defer pool.Stop()
	timer := parallel.NewTimer(pool, 16)
	defer timer.Stop()

	done := make(chan struct{})
	handle := timer.AddDelayedTask(5*time.Millisecond, func() {
		close(done)
	})
	<-done

	// Completed task: closing the handle must not block and must drop the
	// last external reference.
	deadline := time.AfterFunc(2*time.Second, func() {
		t.Error("Close blocked on a completed task")
	})
	handle.Close()
	deadline.Stop()

	if handle.Cancel() {
		t.Error("closed handle still reached the task")
	}
}

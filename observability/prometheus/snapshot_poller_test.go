package prometheus

import (
	"context"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePool struct {
	queued, active, workers int
	running                 bool
}

func (f *fakePool) QueuedTaskCount() int { return f.queued }
func (f *fakePool) ActiveTaskCount() int { return f.active }
func (f *fakePool) WorkerCount() int     { return f.workers }
func (f *fakePool) IsRunning() bool      { return f.running }

type fakeTimer struct {
	pending int
	running bool
}

func (f *fakeTimer) PendingTaskCount() int { return f.pending }
func (f *fakeTimer) IsRunning() bool       { return f.running }

func TestSnapshotPoller_CollectsProviders(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, 10*time.Millisecond)
	require.NoError(t, err)

	poller.AddPool("pool-a", &fakePool{queued: 4, active: 2, workers: 8, running: true})
	poller.AddTimer("timer-a", &fakeTimer{pending: 5, running: false})

	poller.Start(context.Background())
	defer poller.Stop()

	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 4.0, testutil.ToFloat64(poller.poolQueued.WithLabelValues("pool-a")))
	assert.Equal(t, 2.0, testutil.ToFloat64(poller.poolActive.WithLabelValues("pool-a")))
	assert.Equal(t, 8.0, testutil.ToFloat64(poller.poolWorkers.WithLabelValues("pool-a")))
	assert.Equal(t, 1.0, testutil.ToFloat64(poller.poolRunning.WithLabelValues("pool-a")))
	assert.Equal(t, 5.0, testutil.ToFloat64(poller.timerPending.WithLabelValues("timer-a")))
	assert.Equal(t, 0.0, testutil.ToFloat64(poller.timerRunning.WithLabelValues("timer-a")))
}

func TestSnapshotPoller_StartStopIdempotent(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, time.Millisecond)
	require.NoError(t, err)

	poller.Start(context.Background())
	poller.Start(context.Background()) // no-op
	poller.Stop()
	poller.Stop() // no-op

	// Restartable after Stop.
	poller.Start(context.Background())
	poller.Stop()
}

func TestSnapshotPoller_NilProvidersIgnored(t *testing.T) {
	reg := prom.NewRegistry()
	poller, err := NewSnapshotPoller(reg, time.Millisecond)
	require.NoError(t, err)

	poller.AddPool("x", nil)
	poller.AddTimer("y", nil)

	assert.Empty(t, poller.pools)
	assert.Empty(t, poller.timers)
}

package prometheus

import (
	"context"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PoolSnapshotProvider exposes current pool counters. Satisfied by
// parallel.SimpleThreadPool.
type PoolSnapshotProvider interface {
	QueuedTaskCount() int
	ActiveTaskCount() int
	WorkerCount() int
	IsRunning() bool
}

// TimerSnapshotProvider exposes current timer counters. Satisfied by
// parallel.Timer.
type TimerSnapshotProvider interface {
	PendingTaskCount() int
	IsRunning() bool
}

// SnapshotPoller periodically exports pool and timer counters into
// Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	poolsMu sync.RWMutex
	pools   map[string]PoolSnapshotProvider

	timersMu sync.RWMutex
	timers   map[string]TimerSnapshotProvider

	poolQueued  *prom.GaugeVec
	poolActive  *prom.GaugeVec
	poolWorkers *prom.GaugeVec
	poolRunning *prom.GaugeVec

	timerPending *prom.GaugeVec
	timerRunning *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	poolQueued := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "parallel",
		Name:      "pool_queued",
		Help:      "Queued closures per pool.",
	}, []string{"pool"})
	poolActive := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "parallel",
		Name:      "pool_active",
		Help:      "Executing closures per pool.",
	}, []string{"pool"})
	poolWorkers := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "parallel",
		Name:      "pool_workers",
		Help:      "Worker count per pool.",
	}, []string{"pool"})
	poolRunning := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "parallel",
		Name:      "pool_running",
		Help:      "Pool running state (1=running, 0=stopped).",
	}, []string{"pool"})

	timerPending := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "parallel",
		Name:      "timer_pending",
		Help:      "Delayed tasks pending per timer.",
	}, []string{"timer"})
	timerRunning := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "parallel",
		Name:      "timer_running",
		Help:      "Timer running state (1=running, 0=stopped).",
	}, []string{"timer"})

	var err error
	if poolQueued, err = registerCollector(reg, poolQueued); err != nil {
		return nil, err
	}
	if poolActive, err = registerCollector(reg, poolActive); err != nil {
		return nil, err
	}
	if poolWorkers, err = registerCollector(reg, poolWorkers); err != nil {
		return nil, err
	}
	if poolRunning, err = registerCollector(reg, poolRunning); err != nil {
		return nil, err
	}
	if timerPending, err = registerCollector(reg, timerPending); err != nil {
		return nil, err
	}
	if timerRunning, err = registerCollector(reg, timerRunning); err != nil {
		return nil, err
	}

	return &SnapshotPoller{
		interval:     interval,
		pools:        make(map[string]PoolSnapshotProvider),
		timers:       make(map[string]TimerSnapshotProvider),
		poolQueued:   poolQueued,
		poolActive:   poolActive,
		poolWorkers:  poolWorkers,
		poolRunning:  poolRunning,
		timerPending: timerPending,
		timerRunning: timerRunning,
	}, nil
}

// AddPool adds or replaces a pool snapshot provider by name.
func (p *SnapshotPoller) AddPool(name string, provider PoolSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "pool")
	p.poolsMu.Lock()
	p.pools[name] = provider
	p.poolsMu.Unlock()
}

// AddTimer adds or replaces a timer snapshot provider by name.
func (p *SnapshotPoller) AddTimer(name string, provider TimerSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	name = normalizeLabel(name, "timer")
	p.timersMu.Lock()
	p.timers[name] = provider
	p.timersMu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.stateMu.Unlock()

	go p.loop(pollCtx)
}

// Stop stops periodic polling; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()
}

func (p *SnapshotPoller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.collectOnce()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.collectOnce()
		}
	}
}

func (p *SnapshotPoller) collectOnce() {
	p.poolsMu.RLock()
	for name, provider := range p.pools {
		p.poolQueued.WithLabelValues(name).Set(float64(provider.QueuedTaskCount()))
		p.poolActive.WithLabelValues(name).Set(float64(provider.ActiveTaskCount()))
		p.poolWorkers.WithLabelValues(name).Set(float64(provider.WorkerCount()))
		if provider.IsRunning() {
			p.poolRunning.WithLabelValues(name).Set(1)
		} else {
			p.poolRunning.WithLabelValues(name).Set(0)
		}
	}
	p.poolsMu.RUnlock()

	p.timersMu.RLock()
	for name, provider := range p.timers {
		p.timerPending.WithLabelValues(name).Set(float64(provider.PendingTaskCount()))
		if provider.IsRunning() {
			p.timerRunning.WithLabelValues(name).Set(1)
		} else {
			p.timerRunning.WithLabelValues(name).Set(0)
		}
	}
	p.timersMu.RUnlock()
}

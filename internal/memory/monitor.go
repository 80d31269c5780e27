package memory

import (
	"context"
	"runtime"
	"sync"
	"time"

	"imagelite/internal/logging"
	"imagelite/internal/metrics"
)

// MonitorConfig tunes a Monitor. Water marks are fractions of the limit.
type MonitorConfig struct {
	// LimitBytes defaults to the Go soft limit when zero.
	LimitBytes        int64
	HighWaterMark     float64
	CriticalWaterMark float64
	CheckInterval     time.Duration
}

// DefaultMonitorConfig pauses at 85% of the limit and resumes below 70%.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		HighWaterMark:     0.7,
		CriticalWaterMark: 0.85,
		CheckInterval:     time.Second,
	}
}

// Monitor samples heap usage and holds back batch renders while it is
// critical. A Monitor without a limit never blocks.
type Monitor struct {
	config MonitorConfig
	limit  int64

	mu      sync.Mutex
	current uint64
	paused  bool
	resume  chan struct{}

	// readAlloc is replaced in tests.
	readAlloc func() uint64
}

// NewMonitor creates a monitor. Call Run to start sampling.
func NewMonitor(config MonitorConfig) *Monitor {
	limit := config.LimitBytes
	if limit == 0 {
		limit = currentLimit()
	}
	if limit == 0 {
		logging.Debug("Memory monitor: no memory limit configured, backpressure disabled")
	}
	return &Monitor{
		config:    config,
		limit:     limit,
		resume:    make(chan struct{}),
		readAlloc: heapAlloc,
	}
}

func heapAlloc() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.Alloc
}

// Run samples memory until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	if m.limit == 0 {
		return
	}
	ticker := time.NewTicker(m.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.check()
		case <-ctx.Done():
			m.release()
			return
		}
	}
}

func (m *Monitor) check() {
	alloc := m.readAlloc()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = alloc
	if m.limit == 0 {
		return
	}

	usage := float64(alloc) / float64(m.limit)
	metrics.MemoryUsageRatio.Set(usage)

	switch {
	case usage >= m.config.CriticalWaterMark && !m.paused:
		logging.Warn("Memory critical (%.1f%% of limit), pausing renders", usage*100)
		m.paused = true
		metrics.MemoryPaused.Set(1)
		go runtime.GC()
	case usage < m.config.HighWaterMark && m.paused:
		logging.Info("Memory recovered (%.1f%% of limit), resuming renders", usage*100)
		m.paused = false
		metrics.MemoryPaused.Set(0)
		close(m.resume)
		m.resume = make(chan struct{})
	}
}

func (m *Monitor) release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.paused {
		m.paused = false
		metrics.MemoryPaused.Set(0)
		close(m.resume)
		m.resume = make(chan struct{})
	}
}

// Wait blocks while memory is critical. It returns ctx.Err() if ctx ends
// first.
func (m *Monitor) Wait(ctx context.Context) error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	if !m.paused {
		m.mu.Unlock()
		return nil
	}
	resume := m.resume
	m.mu.Unlock()

	select {
	case <-resume:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Usage returns the last sampled heap usage as a fraction of the limit.
func (m *Monitor) Usage() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.limit == 0 {
		return 0
	}
	return float64(m.current) / float64(m.limit)
}

// Paused reports whether renders are being held back.
func (m *Monitor) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

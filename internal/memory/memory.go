package memory

import (
	"context"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"photo-rater/internal/logging"
	"photo-rater/internal/metrics"
)

// Config holds the monitor thresholds.
type Config struct {
	// LimitBytes is the memory limit. Zero uses GOMEMLIMIT when set.
	LimitBytes int64

	// HighWaterMark is the usage below which a paused monitor resumes.
	HighWaterMark float64

	// CriticalWaterMark is the usage at which image processing pauses.
	CriticalWaterMark float64

	CheckInterval time.Duration
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		HighWaterMark:     0.7,
		CriticalWaterMark: 0.85,
		CheckInterval:     5 * time.Second,
	}
}

// Monitor samples heap usage and pauses image work while it is critical.
// It runs as a supervised service.
type Monitor struct {
	config Config
	limit  int64
	alloc  func() uint64

	mu      sync.RWMutex
	current uint64
	paused  bool
	resume  chan struct{}
}

// NewMonitor creates a monitor. Without a limit it never pauses.
func NewMonitor(config Config) *Monitor {
	limit := config.LimitBytes
	if limit == 0 {
		if goLimit := debug.SetMemoryLimit(-1); goLimit > 0 && goLimit < 1<<62 {
			limit = goLimit
		}
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = DefaultConfig().CheckInterval
	}

	if limit == 0 {
		logging.Info("Memory monitor: no memory limit configured, backpressure disabled")
	} else {
		logging.Info("Memory monitor using limit of %s", formatBytes(limit))
	}

	return &Monitor{
		config: config,
		limit:  limit,
		alloc:  heapAlloc,
		resume: make(chan struct{}),
	}
}

func heapAlloc() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.Alloc
}

// Serve samples memory until ctx is done.
func (m *Monitor) Serve(ctx context.Context) error {
	if m.limit == 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(m.config.CheckInterval)
	defer ticker.Stop()

	m.check()
	for {
		select {
		case <-ticker.C:
			m.check()
		case <-ctx.Done():
			m.release()
			return ctx.Err()
		}
	}
}

func (m *Monitor) String() string {
	return "memory-monitor"
}

func (m *Monitor) check() {
	alloc := m.alloc()
	usage := float64(alloc) / float64(m.limit)
	metrics.MemoryUsageRatio.Set(usage)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = alloc

	switch {
	case !m.paused && usage >= m.config.CriticalWaterMark:
		logging.Warn("Memory critical (%.1f%% of limit), pausing image processing", usage*100)
		m.paused = true
		metrics.MemoryPaused.Set(1)
		metrics.MemoryGCPauses.Inc()
		go runtime.GC()
	case m.paused && usage < m.config.HighWaterMark:
		logging.Info("Memory recovered (%.1f%% of limit), resuming image processing", usage*100)
		m.unpauseLocked()
	}
}

// release wakes waiters when the monitor stops.
func (m *Monitor) release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.paused {
		m.unpauseLocked()
	}
}

func (m *Monitor) unpauseLocked() {
	m.paused = false
	metrics.MemoryPaused.Set(0)
	close(m.resume)
	m.resume = make(chan struct{})
}

// WaitIfPaused blocks while processing is paused. It returns false if ctx
// ends first.
func (m *Monitor) WaitIfPaused(ctx context.Context) bool {
	m.mu.RLock()
	paused, resume := m.paused, m.resume
	m.mu.RUnlock()

	if !paused {
		return ctx.Err() == nil
	}

	select {
	case <-resume:
		return true
	case <-ctx.Done():
		return false
	}
}

// IsPaused reports whether processing is paused.
func (m *Monitor) IsPaused() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paused
}

// Usage returns the last sampled allocation as a fraction of the limit, or 0
// without a limit.
func (m *Monitor) Usage() float64 {
	if m.limit == 0 {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return float64(m.current) / float64(m.limit)
}

// Limit returns the limit in bytes, 0 when unset.
func (m *Monitor) Limit() int64 {
	return m.limit
}

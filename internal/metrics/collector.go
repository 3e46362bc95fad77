package metrics

import (
	"context"
	"time"

	"photo-rater/internal/logging"
)

// StatsProvider supplies the library state the Collector exports.
type StatsProvider interface {
	GetStats(ctx context.Context) (Stats, error)
}

// Stats is a point-in-time view of the image library.
type Stats struct {
	Partitions        int
	UnratedImages     int
	StatusUnrated     int
	StatusRated       int
	ServedOutstanding int
	OperationLogBytes int64
}

// Collector periodically refreshes the library gauges from a StatsProvider.
// It implements suture.Service.
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
	}
}

// Serve collects immediately and then on every interval until ctx is done.
func (c *Collector) Serve(ctx context.Context) error {
	c.collect(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// String names the service in supervisor events.
func (c *Collector) String() string {
	return "metrics-collector"
}

func (c *Collector) collect(ctx context.Context) {
	if c.statsProvider == nil {
		return
	}

	stats, err := c.statsProvider.GetStats(ctx)
	if err != nil {
		logging.Warn("Metrics collection failed: %v", err)
		return
	}

	PartitionsTotal.Set(float64(stats.Partitions))
	UnratedImagesTotal.Set(float64(stats.UnratedImages))
	StatusLogEntries.WithLabelValues("unrated").Set(float64(stats.StatusUnrated))
	StatusLogEntries.WithLabelValues("rated").Set(float64(stats.StatusRated))
	ServedOutstanding.Set(float64(stats.ServedOutstanding))
	OperationLogSizeBytes.Set(float64(stats.OperationLogBytes))

	logging.Debug("Metrics collected: partitions=%d, unrated=%d, rated=%d, outstanding=%d",
		stats.Partitions, stats.UnratedImages, stats.StatusRated, stats.ServedOutstanding)
}

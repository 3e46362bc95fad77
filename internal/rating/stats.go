package rating

import (
	"context"
	"errors"
	"os"

	"photo-rater/internal/media"
	"photo-rater/internal/metrics"
	"photo-rater/internal/statuslog"
)

// GetStats counts partitions, unrated files and status log entries. It
// implements metrics.StatsProvider.
func (s *Service) GetStats(ctx context.Context) (metrics.Stats, error) {
	var stats metrics.Stats

	partitions, err := s.partitions.Partitions()
	if err != nil {
		return stats, err
	}
	stats.Partitions = len(partitions)

	for _, n := range partitions {
		entries, err := os.ReadDir(s.partitions.Path(n))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return stats, err
		}
		for _, entry := range entries {
			if !entry.IsDir() && media.IsSupportedImage(entry.Name()) {
				stats.UnratedImages++
			}
		}
	}

	counts, err := s.statusLog.Counts(ctx)
	if err != nil {
		return stats, err
	}
	stats.StatusUnrated = counts[statuslog.StatusUnrated]
	stats.StatusRated = counts[statuslog.StatusRated]
	stats.ServedOutstanding = s.tracker.Outstanding()

	if s.operationLog != nil {
		if size, err := s.operationLog.Size(); err == nil {
			stats.OperationLogBytes = size
		}
	}
	return stats, nil
}

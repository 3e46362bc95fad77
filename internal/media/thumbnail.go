package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"photo-rater/internal/filesystem"
	"photo-rater/internal/logging"
	"photo-rater/internal/metrics"
	"photo-rater/internal/partition"
	"photo-rater/internal/workers"

	"github.com/disintegration/imaging"
)

// ThumbnailResult summarizes one thumbnail pass.
type ThumbnailResult struct {
	Partitions     int
	Generated      int64
	Existing       int64
	Failed         int64
	OrphansRemoved int
	Duration       time.Duration
}

// ThumbnailGenerator derives bounded-size previews into the <N>_thumb
// folder of every partition.
type ThumbnailGenerator struct {
	partitions   *partition.Manager
	maxDimension int
	workers      int
	gate         Gate
}

// Gate holds back decoding while memory is short. WaitIfPaused returns
// false when the caller should give up.
type Gate interface {
	WaitIfPaused(ctx context.Context) bool
}

// SetGate makes every encode wait on gate first.
func (g *ThumbnailGenerator) SetGate(gate Gate) {
	g.gate = gate
}

// NewThumbnailGenerator creates a generator. Thumbnails fit within
// maxDimension on their longest side; workers bounds parallel encodes.
func NewThumbnailGenerator(pm *partition.Manager, maxDimension, workers int) *ThumbnailGenerator {
	if workers < 1 {
		workers = 1
	}
	return &ThumbnailGenerator{
		partitions:   pm,
		maxDimension: maxDimension,
		workers:      workers,
	}
}

type thumbJob struct {
	src string
	dst string
}

// Run processes every partition, highest first. Per-file failures are
// logged and counted; only listing errors abort the pass.
func (g *ThumbnailGenerator) Run(ctx context.Context) (*ThumbnailResult, error) {
	start := time.Now()
	result := &ThumbnailResult{}

	removed, err := g.removeOrphans()
	if err != nil {
		logging.Warn("Thumbnail orphan cleanup failed: %v", err)
	}
	result.OrphansRemoved = removed

	partitions, err := g.partitions.Partitions()
	if err != nil {
		return nil, err
	}
	result.Partitions = len(partitions)

	var generated, existing, failed int64
	for _, n := range partitions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		jobs, skipped, err := g.pending(n)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				logging.Debug("Partition %d vanished during thumbnail pass", n)
				continue
			}
			logging.Warn("Failed to scan partition %d for thumbnails: %v", n, err)
			continue
		}
		existing += int64(skipped)
		metrics.ThumbnailGenerationsTotal.WithLabelValues("skipped").Add(float64(skipped))

		workers.ForEach(ctx, g.workers, jobs, func(ctx context.Context, job thumbJob) {
			if g.gate != nil && !g.gate.WaitIfPaused(ctx) {
				return
			}
			fileStart := time.Now()
			if err := g.Generate(job.src, job.dst); err != nil {
				atomic.AddInt64(&failed, 1)
				metrics.ThumbnailGenerationsTotal.WithLabelValues("error").Inc()
				logging.Warn("Thumbnail failed for %s: %v", job.src, err)
				return
			}
			atomic.AddInt64(&generated, 1)
			metrics.ThumbnailGenerationsTotal.WithLabelValues("success").Inc()
			metrics.ThumbnailGenerationDuration.Observe(time.Since(fileStart).Seconds())
		})
	}

	result.Generated = generated
	result.Existing = existing
	result.Failed = failed
	result.Duration = time.Since(start)

	logging.Info("Thumbnail pass complete: %d partitions, %d generated, %d existing, %d failed in %v",
		result.Partitions, result.Generated, result.Existing, result.Failed, result.Duration)
	return result, nil
}

// pending lists the images of partition n that have no thumbnail yet and
// ensures the thumbnail folder exists.
func (g *ThumbnailGenerator) pending(n int) ([]thumbJob, int, error) {
	srcDir := g.partitions.Path(n)
	entries, err := os.ReadDir(srcDir)
	if err != nil {
		return nil, 0, err
	}

	thumbDir := g.partitions.ThumbPath(n)
	if err := os.MkdirAll(thumbDir, 0o755); err != nil {
		return nil, 0, fmt.Errorf("failed to create %s: %w", thumbDir, err)
	}

	var jobs []thumbJob
	skipped := 0
	for _, entry := range entries {
		if entry.IsDir() || !IsSupportedImage(entry.Name()) {
			continue
		}
		dst := filepath.Join(thumbDir, entry.Name())
		if _, err := os.Stat(dst); err == nil {
			skipped++
			continue
		}
		jobs = append(jobs, thumbJob{src: filepath.Join(srcDir, entry.Name()), dst: dst})
	}
	return jobs, skipped, nil
}

// Generate writes a thumbnail of src to dst in the format implied by dst's
// extension. Images already within bounds are re-encoded, not upscaled.
// libvips decodes when initialized, imaging otherwise or when vips fails.
func (g *ThumbnailGenerator) Generate(src, dst string) error {
	format, err := imaging.FormatFromFilename(dst)
	if err != nil {
		return err
	}

	thumb, err := loadWithVips(src, g.maxDimension)
	if err != nil {
		if !errors.Is(err, errVipsUnavailable) {
			logging.Debug("Falling back to imaging for %s: %v", filepath.Base(src), err)
		}
		img, err := imaging.Open(src, imaging.AutoOrientation(true))
		if err != nil {
			return fmt.Errorf("failed to open image: %w", err)
		}
		thumb = imaging.Fit(img, g.maxDimension, g.maxDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, format, imaging.JPEGQuality(85)); err != nil {
		return fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	if err := filesystem.WriteFileAtomic(dst, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write thumbnail: %w", err)
	}
	logging.Debug("Thumbnail written: %s", dst)
	return nil
}

// removeOrphans deletes <N>_thumb folders whose partition no longer exists.
func (g *ThumbnailGenerator) removeOrphans() (int, error) {
	root := g.partitions.Root()
	entries, err := os.ReadDir(root)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var orphans []string
	for _, entry := range entries {
		if !entry.IsDir() || !partition.IsThumbDir(entry.Name()) {
			continue
		}
		n, err := partition.ParsePartition(strings.TrimSuffix(entry.Name(), partition.ThumbSuffix))
		if err != nil {
			continue
		}
		if _, err := os.Stat(g.partitions.Path(n)); errors.Is(err, os.ErrNotExist) {
			orphans = append(orphans, entry.Name())
		}
	}
	sort.Strings(orphans)

	removed := 0
	for _, name := range orphans {
		if err := os.RemoveAll(filepath.Join(root, name)); err != nil {
			logging.Warn("Failed to remove orphaned thumbnail folder %s: %v", name, err)
			continue
		}
		removed++
		metrics.ThumbnailOrphansRemovedTotal.Inc()
		logging.Info("Removed orphaned thumbnail folder %s", name)
	}
	return removed, nil
}

package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"photo-rater/internal/filesystem"
	"photo-rater/internal/logging"
	"photo-rater/internal/media"
	"photo-rater/internal/metrics"
	"photo-rater/internal/partition"
	"photo-rater/internal/statuslog"
)

// Result counts what one ingestion pass did with each intake file.
type Result struct {
	Moved      int
	Duplicates int
	Deferred   int
	Skipped    int
	Duration   time.Duration
}

// Ingester moves new images from the raw intake tree into partitions.
type Ingester struct {
	rawDir     string
	partitions *partition.Manager
	statusLog  *statuslog.Log
}

// New creates an Ingester reading from rawDir.
func New(rawDir string, pm *partition.Manager, log *statuslog.Log) *Ingester {
	return &Ingester{
		rawDir:     rawDir,
		partitions: pm,
		statusLog:  log,
	}
}

// Run performs one ingestion pass under the partition lock. Files already
// known to the status log are deleted from intake. A move or status log
// failure stops the pass; everything applied before it stays consistent.
func (in *Ingester) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	candidates, err := in.scan()
	if err != nil {
		return nil, err
	}

	result := &Result{}
	err = in.partitions.WithLock(func() error {
		for _, path := range candidates {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := in.ingestFile(ctx, path, result); err != nil {
				return err
			}
		}
		return nil
	})

	result.Duration = time.Since(start)
	metrics.IngestLastRunDuration.Set(result.Duration.Seconds())

	if err != nil {
		logging.Error("Ingestion aborted after %d moved, %d duplicates: %v", result.Moved, result.Duplicates, err)
		return result, err
	}

	if result.Moved > 0 || result.Duplicates > 0 || result.Deferred > 0 {
		logging.Info("Ingestion complete: %d moved, %d duplicates removed, %d deferred, %d skipped in %v",
			result.Moved, result.Duplicates, result.Deferred, result.Skipped, result.Duration)
	} else {
		logging.Debug("Ingestion complete: nothing new in %s", in.rawDir)
	}
	return result, nil
}

// scan lists supported images under the intake root in lexical order.
func (in *Ingester) scan() ([]string, error) {
	var files []string
	err := filepath.WalkDir(in.rawDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			if path != in.rawDir && d.Name()[0] == '.' {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && media.IsSupportedImage(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk intake directory: %w", err)
	}
	return files, nil
}

// ingestFile handles one candidate. The caller holds the partition lock.
func (in *Ingester) ingestFile(ctx context.Context, path string, result *Result) error {
	id, err := media.Identifier(path)
	if errors.Is(err, os.ErrNotExist) {
		logging.Warn("Intake file vanished before ingestion: %s", path)
		result.Skipped++
		metrics.IngestFilesTotal.WithLabelValues("skipped").Inc()
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to identify %s: %w", path, err)
	}

	_, known, err := in.statusLog.Lookup(ctx, id)
	if err != nil {
		return err
	}
	if known {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove duplicate %s: %w", path, err)
		}
		result.Duplicates++
		metrics.IngestFilesTotal.WithLabelValues("duplicate").Inc()
		logging.Info("Removed duplicate image %s (%s)", filepath.Base(path), id)
		return nil
	}

	n, err := in.partitions.AllocateSlot()
	if err != nil {
		return err
	}

	dst := filepath.Join(in.partitions.Path(n), filepath.Base(path))
	exists, err := filesystem.Exists(dst)
	if err != nil {
		return err
	}
	if exists {
		result.Deferred++
		metrics.IngestFilesTotal.WithLabelValues("deferred").Inc()
		logging.Warn("Deferred %s: partition %d already holds a file with that name", path, n)
		return nil
	}

	if err := filesystem.MoveFile(path, dst); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Warn("Intake file vanished before ingestion: %s", path)
			result.Skipped++
			metrics.IngestFilesTotal.WithLabelValues("skipped").Inc()
			return nil
		}
		return fmt.Errorf("failed to move %s into partition %d: %w", path, n, err)
	}

	entry := statuslog.Entry{Status: statuslog.StatusUnrated, Path: dst}
	if err := in.statusLog.Upsert(ctx, id, entry); err != nil {
		// leave intake as it was so the next pass retries this file
		if rbErr := filesystem.MoveFile(dst, path); rbErr != nil {
			logging.Error("Failed to return %s to intake after status log error: %v", dst, rbErr)
		}
		return fmt.Errorf("failed to record %s: %w", id, err)
	}

	result.Moved++
	metrics.IngestFilesTotal.WithLabelValues("moved").Inc()
	logging.Info("Moved %s to partition %d", filepath.Base(path), n)
	return nil
}

package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zip"

	"photo-rater/internal/logging"
	"photo-rater/internal/metrics"
)

// TimestampLayout formats the archive file name.
const TimestampLayout = "20060102_150405"

// Log is the live operation log. *logging.OperationLog implements it.
type Log interface {
	Size() (int64, error)
	Rotate(archive func(path string) error) error
}

// Result describes one archiver run.
type Result struct {
	Archived bool
	Path     string
	Size     int64 // live log size before rotation
}

// Archiver zips the operation log into the archive folder once it grows
// past a size threshold and truncates it.
type Archiver struct {
	log     Log
	dir     string
	maxSize int64
	now     func() time.Time
}

// New creates an Archiver rotating log into dir once it exceeds maxSize
// bytes.
func New(log Log, dir string, maxSize int64) *Archiver {
	return &Archiver{log: log, dir: dir, maxSize: maxSize, now: time.Now}
}

// Run rotates the log if it is over the threshold.
func (a *Archiver) Run(ctx context.Context) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	size, err := a.log.Size()
	if err != nil {
		return nil, fmt.Errorf("failed to size operation log: %w", err)
	}
	metrics.OperationLogSizeBytes.Set(float64(size))

	if size <= a.maxSize {
		logging.Debug("Operation log is %d bytes, below %d, not archiving", size, a.maxSize)
		return &Result{Size: size}, nil
	}

	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		metrics.ArchiveRotationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to create archive folder: %w", err)
	}

	dst := a.archivePath()
	// the log is write-locked while this runs, so it must not log
	err = a.log.Rotate(func(path string) error {
		return writeZip(dst, path, a.now())
	})
	if err != nil {
		metrics.ArchiveRotationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to archive operation log: %w", err)
	}

	metrics.ArchiveRotationsTotal.WithLabelValues("success").Inc()
	metrics.OperationLogSizeBytes.Set(0)
	logging.Info("Archived log file to %s", dst)
	logging.Info("Created a new log file after archiving.")
	return &Result{Archived: true, Path: dst, Size: size}, nil
}

// archivePath returns logs_archive/log_<timestamp>.zip, adding a counter if
// an archive with that second already exists.
func (a *Archiver) archivePath() string {
	stamp := a.now().Format(TimestampLayout)
	path := filepath.Join(a.dir, "log_"+stamp+".zip")
	for i := 1; ; i++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path
		}
		path = filepath.Join(a.dir, fmt.Sprintf("log_%s_%d.zip", stamp, i))
	}
}

// writeZip deflates src into a new zip at dst, via a temp file so a failed
// write never leaves a partial archive.
func writeZip(dst, src string, modified time.Time) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-"+filepath.Base(dst)+"-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	zw := zip.NewWriter(tmp)
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     filepath.Base(src),
		Method:   zip.Deflate,
		Modified: modified,
	})
	if err != nil {
		return err
	}
	if _, err = io.Copy(w, in); err != nil {
		return err
	}
	if err = zw.Close(); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, dst)
}

package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// OperationLog is the append-only, human-readable operation log.
// Writes and rotation are serialized by a single mutex.
type OperationLog struct {
	mu   sync.Mutex
	path string
	file *os.File
}

// OpenOperationLog opens (creating if needed) the operation log at path.
func OpenOperationLog(path string) (*OperationLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create operation log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open operation log: %w", err)
	}

	return &OperationLog{path: path, file: file}, nil
}

// Path returns the location of the live log file.
func (o *OperationLog) Path() string {
	return o.path
}

// Write implements io.Writer.
func (o *OperationLog) Write(p []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.file == nil {
		return 0, os.ErrClosed
	}
	return o.file.Write(p)
}

// Size returns the current size of the live log in bytes.
func (o *OperationLog) Size() (int64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.file == nil {
		return 0, os.ErrClosed
	}
	info, err := o.file.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Rotate calls archive with the log path while writes are blocked, then
// truncates the live log to empty. The log is left untouched if archive
// fails. archive must not log: the write lock is held while it runs.
func (o *OperationLog) Rotate(archive func(path string) error) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.file == nil {
		return os.ErrClosed
	}
	if err := o.file.Sync(); err != nil {
		return fmt.Errorf("failed to flush operation log: %w", err)
	}
	if err := archive(o.path); err != nil {
		return err
	}
	if err := o.file.Truncate(0); err != nil {
		return fmt.Errorf("failed to truncate operation log: %w", err)
	}
	return nil
}

// Close closes the underlying file. Further writes fail with os.ErrClosed.
func (o *OperationLog) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.file == nil {
		return nil
	}
	err := o.file.Close()
	o.file = nil
	return err
}

package partition

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"photo-rater/internal/logging"
	"photo-rater/internal/metrics"
)

// ThumbSuffix marks the thumbnail sibling of a partition folder.
const ThumbSuffix = "_thumb"

// ErrInvalidPartition is returned for names that are not a positive
// partition number.
var ErrInvalidPartition = errors.New("invalid partition")

// Manager owns the numbered partition folders under the unrated root and
// the lock shared by ingestion and rating.
type Manager struct {
	root string
	size int
	mu   sync.Mutex
}

// NewManager creates a manager for root with the given capacity per
// partition.
func NewManager(root string, size int) *Manager {
	return &Manager{root: root, size: size}
}

// Root returns the unrated root directory.
func (m *Manager) Root() string {
	return m.root
}

// Size returns the partition capacity.
func (m *Manager) Size() int {
	return m.size
}

// WithLock runs fn while holding the partition lock. Every sequence that
// inspects capacity, moves files and updates the status log must run inside
// it.
func (m *Manager) WithLock(fn func() error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn()
}

// Path returns the folder of partition n.
func (m *Manager) Path(n int) string {
	return filepath.Join(m.root, strconv.Itoa(n))
}

// ThumbPath returns the thumbnail folder mirroring partition n.
func (m *Manager) ThumbPath(n int) string {
	return filepath.Join(m.root, strconv.Itoa(n)+ThumbSuffix)
}

// IsThumbDir reports whether name is a thumbnail folder name.
func IsThumbDir(name string) bool {
	return strings.HasSuffix(name, ThumbSuffix)
}

// ParsePartition converts a folder name to a partition number. Thumbnail
// names, non-numeric and non-positive values are rejected.
func ParsePartition(name string) (int, error) {
	if name == "" || IsThumbDir(name) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPartition, name)
	}
	for _, r := range name {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidPartition, name)
		}
	}
	n, err := strconv.Atoi(name)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPartition, name)
	}
	return n, nil
}

// list returns the partition numbers present on disk, ascending.
func (m *Manager) list() ([]int, error) {
	entries, err := os.ReadDir(m.root)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list partitions: %w", err)
	}

	var partitions []int
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		n, err := ParsePartition(entry.Name())
		if err != nil {
			continue
		}
		partitions = append(partitions, n)
	}
	sort.Ints(partitions)
	return partitions, nil
}

// Partitions returns the partition numbers on disk, highest first.
func (m *Manager) Partitions() ([]int, error) {
	partitions, err := m.list()
	if err != nil {
		return nil, err
	}
	sort.Sort(sort.Reverse(sort.IntSlice(partitions)))
	return partitions, nil
}

// LargestPartition returns the highest partition number, or 0 if none exist.
func (m *Manager) LargestPartition() (int, error) {
	partitions, err := m.list()
	if err != nil || len(partitions) == 0 {
		return 0, err
	}
	return partitions[len(partitions)-1], nil
}

// Count returns the number of entries in partition n.
func (m *Manager) Count(n int) (int, error) {
	entries, err := os.ReadDir(m.Path(n))
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// AllocateSlot returns the partition the next image goes into. Only the
// highest partition accepts files; when it is full the next number is
// created. Gaps left by drained partitions are never reused. The caller must
// hold the lock.
func (m *Manager) AllocateSlot() (int, error) {
	highest, err := m.LargestPartition()
	if err != nil {
		return 0, err
	}

	if highest > 0 {
		count, err := m.Count(highest)
		if err != nil {
			return 0, fmt.Errorf("failed to inspect partition %d: %w", highest, err)
		}
		if count < m.size {
			return highest, nil
		}
	}

	next := highest + 1
	if err := os.MkdirAll(m.Path(next), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create partition %d: %w", next, err)
	}
	metrics.PartitionsCreatedTotal.Inc()
	logging.Info("Created partition %d", next)
	return next, nil
}

// RemoveIfEmpty deletes partition n and its thumbnail folder when the
// partition holds no files. It reports whether the partition was removed.
// The caller must hold the lock.
func (m *Manager) RemoveIfEmpty(n int) (bool, error) {
	count, err := m.Count(n)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	if err := os.Remove(m.Path(n)); err != nil {
		return false, fmt.Errorf("failed to remove partition %d: %w", n, err)
	}
	if err := os.RemoveAll(m.ThumbPath(n)); err != nil {
		logging.Warn("Failed to remove thumbnail folder for partition %d: %v", n, err)
	}
	metrics.PartitionsRemovedTotal.Inc()
	logging.Info("Removed empty partition %d", n)
	return true, nil
}

package served

import (
	"sort"
	"sync"
	"time"

	"photo-rater/internal/metrics"
)

// Tracker records which images each user has been handed and when, so the
// same image is not offered again until it is rated or goes stale. It is
// safe for concurrent use.
type Tracker struct {
	mu    sync.Mutex
	users map[string]map[string]time.Time
	total int
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{users: make(map[string]map[string]time.Time)}
}

// MarkServed records that filename was handed to user at now. Marking an
// already served image refreshes its timestamp.
func (t *Tracker) MarkServed(user, filename string, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	files, ok := t.users[user]
	if !ok {
		files = make(map[string]time.Time)
		t.users[user] = files
	}
	if _, seen := files[filename]; !seen {
		t.total++
	}
	files[filename] = now
	metrics.ServedOutstanding.Set(float64(t.total))
}

// IsServed reports whether filename is outstanding for user.
func (t *Tracker) IsServed(user, filename string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.users[user][filename]
	return ok
}

// Evict forgets filename for user. Unknown entries are ignored.
func (t *Tracker) Evict(user, filename string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.evictLocked(user, filename)
	metrics.ServedOutstanding.Set(float64(t.total))
}

// EvictAll forgets filename for every user, for an image that has left
// circulation.
func (t *Tracker) EvictAll(filename string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for user := range t.users {
		t.evictLocked(user, filename)
	}
	metrics.ServedOutstanding.Set(float64(t.total))
}

func (t *Tracker) evictLocked(user, filename string) {
	files, ok := t.users[user]
	if !ok {
		return
	}
	if _, ok := files[filename]; !ok {
		return
	}
	delete(files, filename)
	t.total--
	if len(files) == 0 {
		delete(t.users, user)
	}
}

// SweepStale removes entries served more than timeout before now, across all
// users, and returns how many were removed.
func (t *Tracker) SweepStale(now time.Time, timeout time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := now.Add(-timeout)
	removed := 0
	for user, files := range t.users {
		for filename, servedAt := range files {
			if servedAt.Before(cutoff) {
				delete(files, filename)
				removed++
			}
		}
		if len(files) == 0 {
			delete(t.users, user)
		}
	}

	t.total -= removed
	if removed > 0 {
		metrics.ServedStaleEvictionsTotal.Add(float64(removed))
	}
	metrics.ServedOutstanding.Set(float64(t.total))
	return removed
}

// Served returns the outstanding filenames for user, sorted.
func (t *Tracker) Served(user string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	names := make([]string, 0, len(t.users[user]))
	for filename := range t.users[user] {
		names = append(names, filename)
	}
	sort.Strings(names)
	return names
}

// Outstanding returns the number of served entries across all users.
func (t *Tracker) Outstanding() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

package served

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestMarkAndIsServed(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	tr.MarkServed("alice", "a.jpg", now)

	if !tr.IsServed("alice", "a.jpg") {
		t.Error("a.jpg should be served to alice")
	}
	if tr.IsServed("bob", "a.jpg") {
		t.Error("served records are per user")
	}
	if tr.IsServed("alice", "b.jpg") {
		t.Error("b.jpg was never served")
	}

	// re-marking does not double count
	tr.MarkServed("alice", "a.jpg", now.Add(time.Minute))
	if got := tr.Outstanding(); got != 1 {
		t.Errorf("Outstanding() = %d, want 1", got)
	}
}

func TestEvict(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	tr.MarkServed("alice", "a.jpg", now)
	tr.MarkServed("alice", "b.jpg", now)
	tr.MarkServed("bob", "a.jpg", now)

	tr.Evict("alice", "a.jpg")
	tr.Evict("alice", "missing.jpg")
	tr.Evict("nobody", "a.jpg")

	if tr.IsServed("alice", "a.jpg") {
		t.Error("a.jpg should be evicted for alice")
	}
	if !tr.IsServed("bob", "a.jpg") {
		t.Error("eviction must not affect other users")
	}
	if got := tr.Outstanding(); got != 2 {
		t.Errorf("Outstanding() = %d, want 2", got)
	}

	tr.EvictAll("a.jpg")
	if tr.IsServed("bob", "a.jpg") {
		t.Error("EvictAll should clear every user")
	}
	if got := tr.Outstanding(); got != 1 {
		t.Errorf("Outstanding() = %d, want 1", got)
	}
}

func TestSweepStale(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		age      time.Duration
		timeout  time.Duration
		expected int
	}{
		{"older than timeout", 31 * time.Minute, 30 * time.Minute, 1},
		{"exactly at timeout", 30 * time.Minute, 30 * time.Minute, 0},
		{"fresh", time.Minute, 30 * time.Minute, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker()
			tr.MarkServed("alice", "a.jpg", now.Add(-tt.age))

			if got := tr.SweepStale(now, tt.timeout); got != tt.expected {
				t.Errorf("SweepStale() = %d, want %d", got, tt.expected)
			}
			if tr.IsServed("alice", "a.jpg") == (tt.expected == 1) {
				t.Errorf("IsServed() after sweep inconsistent with %d removed", tt.expected)
			}
		})
	}
}

func TestSweepStaleAcrossUsers(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	tr.MarkServed("alice", "old.jpg", now.Add(-2*time.Hour))
	tr.MarkServed("bob", "old.jpg", now.Add(-2*time.Hour))
	tr.MarkServed("bob", "new.jpg", now)

	if got := tr.SweepStale(now, time.Hour); got != 2 {
		t.Errorf("SweepStale() = %d, want 2", got)
	}
	if got := tr.Served("alice"); len(got) != 0 {
		t.Errorf("Served(alice) = %v, want empty", got)
	}
	if got := tr.Served("bob"); len(got) != 1 || got[0] != "new.jpg" {
		t.Errorf("Served(bob) = %v, want [new.jpg]", got)
	}
	if got := tr.Outstanding(); got != 1 {
		t.Errorf("Outstanding() = %d, want 1", got)
	}
}

func TestServedSorted(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	for _, name := range []string{"c.jpg", "a.jpg", "b.jpg"} {
		tr.MarkServed("alice", name, now)
	}
	got := tr.Served("alice")
	want := []string{"a.jpg", "b.jpg", "c.jpg"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("Served() = %v, want %v", got, want)
	}
}

func TestConcurrentUse(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	var wg sync.WaitGroup
	for u := 0; u < 8; u++ {
		wg.Add(1)
		go func(u int) {
			defer wg.Done()
			user := fmt.Sprintf("user%d", u)
			for i := 0; i < 100; i++ {
				name := fmt.Sprintf("%d.jpg", i)
				tr.MarkServed(user, name, now)
				tr.IsServed(user, name)
				if i%2 == 0 {
					tr.Evict(user, name)
				}
			}
		}(u)
	}
	wg.Wait()

	if got := tr.Outstanding(); got != 8*50 {
		t.Errorf("Outstanding() = %d, want %d", got, 8*50)
	}
}

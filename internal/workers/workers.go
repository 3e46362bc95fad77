package workers

import (
	"context"
	"runtime"
	"sync"
)

// Count returns a worker count for a task type, based on GOMAXPROCS so
// container CPU limits are respected.
//
// The multiplier adjusts for task characteristics:
//   - 1.0 for CPU-bound tasks
//   - 2.0 for I/O-bound tasks
//   - 1.5 for mixed tasks
//
// limit caps the result; 0 means no cap. The result is at least 1.
func Count(multiplier float64, limit int) int {
	workers := int(float64(runtime.GOMAXPROCS(0)) * multiplier)

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}
	return workers
}

// ForMixed returns worker count for mixed tasks such as thumbnail
// generation (1.5 per CPU).
func ForMixed(limit int) int {
	return Count(1.5, limit)
}

// ForEach calls fn for every item using at most n goroutines and returns
// once all calls have finished. Items not yet started when ctx is canceled
// are skipped.
func ForEach[T any](ctx context.Context, n int, items []T, fn func(context.Context, T)) {
	if n < 1 {
		n = 1
	}
	if n > len(items) {
		n = len(items)
	}

	queue := make(chan T)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range queue {
				fn(ctx, item)
			}
		}()
	}

feed:
	for _, item := range items {
		select {
		case queue <- item:
		case <-ctx.Done():
			break feed
		}
	}
	close(queue)
	wg.Wait()
}

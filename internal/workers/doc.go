/*
Package workers sizes and runs bounded worker pools.

[Count] and the ForCPU/ForIO/ForMixed helpers derive a worker count from
runtime.GOMAXPROCS rather than runtime.NumCPU, so a container CPU limit is
respected:

	n := workers.ForMixed(8) // 1.5 per CPU, at most 8

[ForEach] fans a slice out over n goroutines and waits for all of them:

	workers.ForEach(ctx, n, files, func(ctx context.Context, path string) {
		generate(ctx, path)
	})

Errors are the callback's business; ForEach only stops feeding new items
once ctx is canceled.
*/
package workers

package parallel

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Chunks splits [0, items) into at most workers contiguous ranges and runs fn
// on each range concurrently. workers <= 0 uses one range per CPU. The first
// error cancels the context seen by the other ranges and is returned.
func Chunks(ctx context.Context, items, workers int, fn func(ctx context.Context, start, end int) error) error {
	if items == 0 {
		return nil
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, items)

	// ceiling division
	size := (items + workers - 1) / workers

	g, ctx := errgroup.WithContext(ctx)
	for start := 0; start < items; start += size {
		end := min(start+size, items)
		g.Go(func() error { return fn(ctx, start, end) })
	}
	return g.Wait()
}

// ChunksWithThreshold runs fn inline over the whole range when items does not
// exceed threshold and falls back to Chunks otherwise.
func ChunksWithThreshold(ctx context.Context, items, threshold, workers int, fn func(ctx context.Context, start, end int) error) error {
	if items <= threshold {
		return fn(ctx, 0, items)
	}
	return Chunks(ctx, items, workers, fn)
}

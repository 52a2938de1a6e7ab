package fn

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// BatchOptions configures RunBatches.
type BatchOptions struct {
	// Size is the number of items run concurrently in one batch. Values < 1 mean 1.
	Size int
	// OnBatchDone, if set, is called after each batch with the half-open item range [start, end).
	OnBatchDone func(start, end, total int)
}

// RunBatches partitions items into consecutive batches of opts.Size and runs f on every
// item of a batch concurrently. The next batch starts only after the whole previous batch
// finished, so at most opts.Size calls of f are in flight at any time.
//
// Each call writes only its own output slot; the returned slice is in input order.
func RunBatches[T, U any](ctx context.Context, items []T, opts BatchOptions, f func(context.Context, T) U) []U {
	size := opts.Size
	if size < 1 {
		size = 1
	}

	out := make([]U, len(items))
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				out[i] = f(ctx, items[i])
				return nil
			})
		}
		_ = g.Wait()

		if opts.OnBatchDone != nil {
			opts.OnBatchDone(start, end, len(items))
		}
	}
	return out
}

// Batches returns the batch boundaries RunBatches would use, as [start, end) pairs.
func Batches(n, size int) [][2]int {
	if size < 1 {
		size = 1
	}
	var out [][2]int
	for start := 0; start < n; start += size {
		out = append(out, [2]int{start, min(start+size, n)})
	}
	return out
}

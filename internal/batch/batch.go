// Package batch fans independent fetches out in fixed-size batches.
package batch

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultSize is the number of concurrent calls per batch.
const DefaultSize = 10

// Run calls fn for every item, size items at a time. Items of a batch run
// concurrently and the next batch starts once the previous one finished.
// Results keep the order of items.
//
// Run does not start a new batch after ctx is done or a call failed; the
// results gathered so far are returned with the error. A batch that already
// started always runs to completion.
func Run[T, R any](ctx context.Context, items []T, size int, fn func(context.Context, T) (R, error)) ([]R, error) {
	if size <= 0 {
		size = DefaultSize
	}
	results := make([]R, len(items))
	for start := 0; start < len(items); start += size {
		if err := ctx.Err(); err != nil {
			return results[:start], err
		}
		end := min(start+size, len(items))

		var g errgroup.Group
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				r, err := fn(ctx, items[i])
				if err != nil {
					return err
				}
				results[i] = r
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return results[:end], err
		}
	}
	return results, nil
}

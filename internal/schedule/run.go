package schedule

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Job computes the result for the job at index i.
type Job[T any] func(ctx context.Context, i int) (T, error)

// Run executes job for every index in [0, n) on at most workers goroutines
// and returns the results indexed by position. It blocks until every job has
// finished. Job failures are joined in index order; results of failed jobs
// are left at their zero value.
//
// Cancelling ctx stops workers from starting further jobs; Run then returns
// ctx.Err().
func Run[T any](ctx context.Context, n, workers int, job Job[T]) ([]T, error) {
	results := make([]T, n)
	if n == 0 {
		return results, nil
	}
	errs := make([]error, n)
	workers = max(1, min(workers, n))

	var next atomic.Int64
	var g errgroup.Group
	for range workers {
		g.Go(func() error {
			for {
				i := int(next.Add(1) - 1)
				if i >= n {
					return nil
				}
				if err := ctx.Err(); err != nil {
					return err
				}
				results[i], errs[i] = job(ctx, i)
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, errors.Join(errs...)
}

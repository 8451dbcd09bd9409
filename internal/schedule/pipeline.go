package schedule

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Pipeline runs jobs concurrently and emits their results in index order.
type Pipeline[T any] struct {
	// Workers bounds the number of concurrently running jobs.
	Workers int

	// Budget bounds the summed Weight of jobs that were dispatched but not yet
	// emitted. Zero disables the bound.
	Budget int64

	// Weight returns the budget cost of job i. Nil charges 1 per job.
	// Costs are clamped to Budget so a single large job can always run.
	Weight func(i int) int64

	// Job computes the result for index i.
	Job Job[T]

	// Emit receives each successful result, in index order, from a single
	// goroutine. An error from Emit aborts the pipeline immediately.
	Emit func(i int, v T) error
}

type task struct {
	index  int
	weight int64
}

type result[T any] struct {
	task
	value T
	err   error
}

// Run dispatches jobs for indices [0, n) in order and blocks until they
// complete. After the first job failure nothing further is emitted, but
// dispatched jobs still run; all job failures are returned joined in index
// order.
//
//nolint:gocognit // producer, workers and reordering consumer coordinate here
func (p *Pipeline[T]) Run(ctx context.Context, n int) error {
	if n == 0 {
		return nil
	}
	workers := max(1, min(p.Workers, n))

	var budget *semaphore.Weighted
	if p.Budget > 0 {
		budget = semaphore.NewWeighted(p.Budget)
	}
	release := func(w int64) {
		if budget != nil {
			budget.Release(w)
		}
	}

	taskCh := make(chan task)
	readyCh := make(chan result[T], workers)
	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		defer close(taskCh)
		for i := range n {
			t := task{index: i, weight: p.cost(i)}
			if budget != nil {
				if err := budget.Acquire(egCtx, t.weight); err != nil {
					return err
				}
			}
			select {
			case taskCh <- t:
			case <-egCtx.Done():
				release(t.weight)
				return egCtx.Err()
			}
		}
		return nil
	})

	var workerWg sync.WaitGroup
	workerWg.Add(workers)
	for range workers {
		eg.Go(func() error {
			defer workerWg.Done()
			for t := range taskCh {
				v, err := p.Job(egCtx, t.index)
				select {
				case readyCh <- result[T]{task: t, value: v, err: err}:
				case <-egCtx.Done():
					release(t.weight)
					return egCtx.Err()
				}
			}
			return nil
		})
	}

	go func() {
		workerWg.Wait()
		close(readyCh)
	}()

	eg.Go(func() error {
		next := 0
		pending := make(map[int]result[T], workers)
		var failures []error
		for res := range readyCh {
			pending[res.index] = res
			for {
				r, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				next++
				if r.err != nil {
					failures = append(failures, r.err)
				} else if len(failures) == 0 {
					if err := p.Emit(r.index, r.value); err != nil {
						release(r.weight)
						return err
					}
				}
				release(r.weight)
			}
		}
		if len(failures) > 0 {
			return errors.Join(failures...)
		}
		if next < n {
			if err := egCtx.Err(); err != nil {
				return err
			}
			return errors.New("schedule: pipeline ended unexpectedly")
		}
		return nil
	})

	return eg.Wait()
}

func (p *Pipeline[T]) cost(i int) int64 {
	w := int64(1)
	if p.Weight != nil {
		w = max(p.Weight(i), 0)
	}
	if p.Budget > 0 {
		w = min(w, p.Budget)
	}
	return w
}

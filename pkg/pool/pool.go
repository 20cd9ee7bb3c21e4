// Package pool provides a bounded worker pool used to parallelize the
// independent modular-exponentiation and proof-verification work that
// shows up in VSS verification, RBC echo checks, and Lagrange
// combination.
package pool

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Pool runs independent units of work with bounded concurrency. A nil
// *Pool is valid and runs everything sequentially, matching the
// teacher's convention that protocols accept an optional pool.
type Pool struct {
	workers int
}

// NewPool creates a pool with the given worker count. A count <= 0
// defaults to GOMAXPROCS.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Pool{workers: workers}
}

// Parallelize runs n independent tasks, calling fn(i) for each index in
// [0, n) and returning the first error encountered, if any. On the
// sequential path (nil pool, one worker, or n == 1) the first error
// stops the loop and later tasks are not run; on the parallel path every
// task still runs to completion, since modexp work has no useful
// cancellation point.
func (p *Pool) Parallelize(n int, fn func(i int) error) error {
	if n == 0 {
		return nil
	}
	workers := 1
	if p != nil {
		workers = p.workers
	}
	if workers <= 1 || n == 1 {
		for i := 0; i < n; i++ {
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	}

	g, _ := errgroup.WithContext(context.Background())
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			return fn(i)
		})
	}
	return g.Wait()
}

// Map runs fn(i) for every index in [0, n) and collects the results in
// order. If a call fails, Map returns its error and no results; which
// of the other calls still run follows Parallelize.
func Map[T any](p *Pool, n int, fn func(i int) (T, error)) ([]T, error) {
	out := make([]T, n)
	err := p.Parallelize(n, func(i int) error {
		v, err := fn(i)
		if err != nil {
			return err
		}
		out[i] = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Package workerpool bounds concurrent execution of a one-shot batch of
// tasks. It is adapted from the teacher repo's pkg/workerpool — which ran a
// persistent pool of goroutines fed by a task channel — but that shape does
// not fit the batcher: each dispatch needs to fan a single batch out to a
// known, small set of processors with an upper bound on how many run at
// once, not a long-lived queue. Using golang.org/x/sync/semaphore instead of
// the teacher's round-robin worker assignment removes the goroutine
// lifecycle bookkeeping that design needed and keeps the cap per-call.
package workerpool

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Task is one unit of bounded work.
type Task func(ctx context.Context) error

// RunBounded executes every task, allowing at most limit of them to run at
// once, and waits for all to complete before returning. The returned slice
// is index-aligned with tasks; an entry is nil if that task succeeded.
// limit <= 0 means "no bound" (len(tasks) concurrency).
func RunBounded(ctx context.Context, limit int, tasks []Task) []error {
	if len(tasks) == 0 {
		return nil
	}
	if limit <= 0 || limit > len(tasks) {
		limit = len(tasks)
	}

	sem := semaphore.NewWeighted(int64(limit))
	errs := make([]error, len(tasks))
	var wg sync.WaitGroup

	for i, task := range tasks {
		if err := sem.Acquire(ctx, 1); err != nil {
			errs[i] = err
			continue
		}
		wg.Add(1)
		go func(i int, task Task) {
			defer wg.Done()
			defer sem.Release(1)
			errs[i] = task(ctx)
		}(i, task)
	}

	wg.Wait()
	return errs
}

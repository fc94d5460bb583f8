package workerpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunBounded_AllTasksRun(t *testing.T) {
	var n int32
	tasks := make([]Task, 10)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) error {
			atomic.AddInt32(&n, 1)
			return nil
		}
	}
	errs := RunBounded(context.Background(), 3, tasks)
	assert.Len(t, errs, 10)
	assert.EqualValues(t, 10, n)
	for _, e := range errs {
		assert.NoError(t, e)
	}
}

func TestRunBounded_CapsConcurrency(t *testing.T) {
	const limit = 2
	var current, max int32
	tasks := make([]Task, 8)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) error {
			n := atomic.AddInt32(&current, 1)
			for {
				old := atomic.LoadInt32(&max)
				if n <= old || atomic.CompareAndSwapInt32(&max, old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&current, -1)
			return nil
		}
	}
	RunBounded(context.Background(), limit, tasks)
	assert.LessOrEqual(t, max, int32(limit))
}

func TestRunBounded_CollectsPerTaskErrors(t *testing.T) {
	errBoom := errors.New("boom")
	tasks := []Task{
		func(ctx context.Context) error { return nil },
		func(ctx context.Context) error { return errBoom },
	}
	errs := RunBounded(context.Background(), 2, tasks)
	assert.NoError(t, errs[0])
	assert.ErrorIs(t, errs[1], errBoom)
}

func TestRunBounded_EmptyIsNoop(t *testing.T) {
	assert.Nil(t, RunBounded(context.Background(), 2, nil))
}

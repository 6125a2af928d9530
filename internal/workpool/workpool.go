// Package workpool runs independent tasks as a fork-join group with a concurrency limit and a per-task timeout.
package workpool

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/huangsam/triad/schema"
	"golang.org/x/sync/errgroup"
)

// ErrTimedOut is the error recorded for a task that exceeded its timeout.
var ErrTimedOut = errors.New("task timed out")

// Task is one independent unit of work.
type Task[T any] struct {
	Name string
	Run  func(ctx context.Context) (T, error)
}

// Result is the outcome of one task. Value is the zero value unless Status is completed.
type Result[T any] struct {
	Name     string
	Value    T
	Err      error
	Status   schema.WorkerStatus
	Duration time.Duration
}

// Options controls how a group of tasks runs.
type Options struct {
	// Limit is the number of tasks running at once. Values below 1 mean one at a time.
	Limit int

	// Timeout applies to each task separately. Zero disables it.
	Timeout time.Duration

	// Progress is advanced once per finished task. Nil disables progress.
	Progress TaskProgress
}

// Run executes every task and waits for all of them. A failing task never cancels the others.
// Results are returned in task order.
func Run[T any](ctx context.Context, tasks []Task[T], opts Options) []Result[T] {
	results := make([]Result[T], len(tasks))
	if len(tasks) == 0 {
		return results
	}

	limit := opts.Limit
	if limit < 1 {
		limit = 1
	}

	g := new(errgroup.Group)
	g.SetLimit(limit)

	for i, task := range tasks {
		g.Go(func() error {
			results[i] = runOne(ctx, task, opts.Timeout)
			if opts.Progress != nil {
				opts.Progress.Describe(task.Name)
				opts.Progress.Increment(1)
			}
			return nil
		})
	}

	_ = g.Wait()
	return results
}

type outcome[T any] struct {
	value T
	err   error
}

// runOne runs a task in its own goroutine so that a task ignoring its context still times out.
func runOne[T any](ctx context.Context, task Task[T], timeout time.Duration) Result[T] {
	start := time.Now()
	res := Result[T]{Name: task.Name}

	taskCtx, cancel := ctx, context.CancelFunc(func() {})
	if timeout > 0 {
		taskCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	done := make(chan outcome[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome[T]{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		v, err := task.Run(taskCtx)
		done <- outcome[T]{value: v, err: err}
	}()

	select {
	case out := <-done:
		res.Duration = time.Since(start)
		switch {
		case out.err == nil:
			res.Value = out.value
			res.Status = schema.StatusCompleted
		case errors.Is(out.err, context.DeadlineExceeded) && taskCtx.Err() != nil && ctx.Err() == nil:
			res.Err = ErrTimedOut
			res.Status = schema.StatusTimedOut
		default:
			res.Err = out.err
			res.Status = schema.StatusErrored
		}
	case <-taskCtx.Done():
		res.Duration = time.Since(start)
		if ctx.Err() != nil {
			res.Err = ctx.Err()
			res.Status = schema.StatusErrored
		} else {
			res.Err = ErrTimedOut
			res.Status = schema.StatusTimedOut
		}
	}
	return res
}

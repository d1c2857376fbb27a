package executor

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"asrprep/internal/extract"
	"asrprep/internal/prep"
)

// Local runs jobs on at most workers goroutines. Submit blocks while every
// worker is busy.
type Local struct {
	run   extract.Runner
	group errgroup.Group
	limit int
}

// NewLocal builds a pool of workers goroutines (at least one).
func NewLocal(workers int, run extract.Runner) *Local {
	workers = max(workers, 1)
	l := &Local{run: run, limit: workers}
	l.group.SetLimit(workers)
	return l
}

// Workers returns the pool size.
func (l *Local) Workers() int { return l.limit }

func (l *Local) Submit(ctx context.Context, job extract.Job) Future {
	f := newFuture()
	l.group.Go(func() error {
		f.resolve(safeRun(ctx, l.run, job))
		return nil
	})
	return f
}

func (l *Local) External() bool { return false }

func (l *Local) Close() error {
	return l.group.Wait()
}

// Inline runs each job inside Submit.
type Inline struct {
	run extract.Runner
}

// NewInline builds a synchronous executor.
func NewInline(run extract.Runner) *Inline {
	return &Inline{run: run}
}

func (i *Inline) Submit(ctx context.Context, job extract.Job) Future {
	return resolved(safeRun(ctx, i.run, job))
}

func (i *Inline) External() bool { return false }

func (i *Inline) Close() error { return nil }

// safeRun converts a panicking job into a worker error.
func safeRun(ctx context.Context, run extract.Runner, job extract.Job) (result extract.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = prep.Wrap(prep.ErrWorker, "executor", "run job", fmt.Sprintf("job %d panicked: %v", job.Index, r), nil)
		}
	}()
	if err := ctx.Err(); err != nil {
		return extract.Result{}, err
	}
	return run(ctx, job)
}

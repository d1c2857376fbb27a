package executor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/klauspost/cpuid/v2"

	"asrprep/internal/config"
	"asrprep/internal/extract"
	"asrprep/internal/prep"
)

// Future is the pending outcome of a submitted job.
type Future interface {
	// Wait blocks until the job finishes.
	Wait() (extract.Result, error)
}

// Executor runs extraction jobs.
type Executor interface {
	Submit(ctx context.Context, job extract.Job) Future
	// External reports whether jobs leave this process.
	External() bool
	// Close waits for submitted jobs and releases resources.
	Close() error
}

// HardwareParallelism returns the number of logical cores available.
func HardwareParallelism() int {
	n := cpuid.CPU.LogicalCores
	if n <= 0 {
		n = runtime.NumCPU()
	}
	if procs := runtime.GOMAXPROCS(0); procs > 0 && procs < n {
		n = procs
	}
	return max(n, 1)
}

// JobCount returns how many chunks a partition is split into: the external
// chunking factor for external executors, otherwise numJobs clamped to the
// hardware parallelism.
func JobCount(ex Executor, numJobs, externalJobs int) int {
	if ex != nil && ex.External() {
		return max(externalJobs, 1)
	}
	return max(min(numJobs, HardwareParallelism()), 1)
}

// New builds the executor selected by cfg. Process executors re-invoke the
// running binary with workerArgs ahead of the worker subcommand.
func New(cfg config.Executor, logger *slog.Logger, workerArgs ...string) (Executor, error) {
	runner := extract.NewRunner(logger)
	switch cfg.Kind {
	case "", "local":
		return NewLocal(min(cfg.NumJobs, HardwareParallelism()), runner), nil
	case "inline":
		return NewInline(runner), nil
	case "process":
		binary, err := os.Executable()
		if err != nil {
			return nil, prep.Wrap(prep.ErrConfiguration, "executor", "resolve binary", "", err)
		}
		return NewProcess(ProcessOptions{
			Binary:       binary,
			Args:         workerArgs,
			MaxProcesses: cfg.MaxProcesses,
			Logger:       logger,
		}), nil
	default:
		return nil, prep.Wrap(prep.ErrConfiguration, "executor", "new", fmt.Sprintf("unsupported kind %q", cfg.Kind), nil)
	}
}

type future struct {
	done   chan struct{}
	result extract.Result
	err    error
}

func newFuture() *future {
	return &future{done: make(chan struct{})}
}

func (f *future) resolve(result extract.Result, err error) {
	f.result = result
	f.err = err
	close(f.done)
}

func (f *future) Wait() (extract.Result, error) {
	<-f.done
	return f.result, f.err
}

func resolved(result extract.Result, err error) Future {
	f := newFuture()
	f.resolve(result, err)
	return f
}

package executor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"asrprep/internal/extract"
	"asrprep/internal/logging"
	"asrprep/internal/manifest"
	"asrprep/internal/prep"
)

// ProcessOptions configures the child-process executor.
type ProcessOptions struct {
	// Binary is the asrprep executable to launch.
	Binary string
	// Args are placed before the worker subcommand.
	Args []string
	// Env is appended to the parent environment.
	Env []string
	// MaxProcesses bounds concurrent children; zero means hardware parallelism.
	MaxProcesses int
	// Stderr receives child stderr; nil means os.Stderr.
	Stderr io.Writer
	Logger *slog.Logger
}

// Process runs each job in its own worker process. Job specs and results
// travel through gzip JSON Lines files next to the job's archive.
type Process struct {
	opts   ProcessOptions
	logger *slog.Logger
	group  errgroup.Group
	mu     sync.Mutex
}

// NewProcess builds a process executor.
func NewProcess(opts ProcessOptions) *Process {
	if opts.MaxProcesses <= 0 {
		opts.MaxProcesses = HardwareParallelism()
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	p := &Process{opts: opts, logger: logging.NewComponentLogger(opts.Logger, "executor")}
	p.group.SetLimit(opts.MaxProcesses)
	return p
}

func (p *Process) Submit(ctx context.Context, job extract.Job) Future {
	f := newFuture()
	p.group.Go(func() error {
		f.resolve(p.runChild(ctx, job))
		return nil
	})
	return f
}

func (p *Process) External() bool { return true }

func (p *Process) Close() error {
	return p.group.Wait()
}

// JobDir returns the directory holding job specs for archives in featDir.
func JobDir(featDir string) string {
	return filepath.Join(featDir, ".jobs")
}

// JobFiles returns the job spec and result paths for job.
func JobFiles(job extract.Job) (string, string) {
	dir := JobDir(filepath.Dir(job.ArchivePath))
	return filepath.Join(dir, fmt.Sprintf("job-%04d.jsonl.gz", job.Index)),
		filepath.Join(dir, fmt.Sprintf("result-%04d.jsonl.gz", job.Index))
}

func (p *Process) runChild(ctx context.Context, job extract.Job) (extract.Result, error) {
	if err := ctx.Err(); err != nil {
		return extract.Result{}, err
	}
	jobPath, resultPath := JobFiles(job)
	defer func() {
		_ = os.Remove(jobPath)
		_ = os.Remove(resultPath)
	}()

	if err := manifest.WriteFile(jobPath, []extract.Job{job}); err != nil {
		return extract.Result{}, prep.Wrap(prep.ErrWorker, "executor", "write job", jobPath, err)
	}

	args := append(append([]string(nil), p.opts.Args...), "worker", "--job", jobPath, "--result", resultPath)
	cmd := exec.CommandContext(ctx, p.opts.Binary, args...)
	cmd.Env = append(os.Environ(), p.opts.Env...)
	tail := &tailBuffer{limit: 4096}
	cmd.Stderr = io.MultiWriter(p.lockedStderr(), tail)

	p.logger.Debug("starting worker process",
		logging.Int(logging.FieldJob, job.Index),
		logging.String(logging.FieldPartition, job.Partition),
		logging.Int("cuts", len(job.Cuts)))

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return extract.Result{}, ctxErr
		}
		detail := fmt.Sprintf("job %d", job.Index)
		if msg := strings.TrimSpace(tail.String()); msg != "" {
			detail += ": " + lastLine(msg)
		}
		return extract.Result{}, prep.Wrap(prep.ErrWorker, "executor", "worker process", detail, err)
	}

	results, err := manifest.ReadFile[extract.Result](resultPath)
	if err != nil {
		return extract.Result{}, prep.Wrap(prep.ErrWorker, "executor", "read result", resultPath, err)
	}
	if len(results) != 1 {
		return extract.Result{}, prep.Wrap(prep.ErrWorker, "executor", "read result",
			fmt.Sprintf("expected one result, found %d", len(results)), nil)
	}
	return results[0], nil
}

func (p *Process) lockedStderr() io.Writer {
	return writerFunc(func(b []byte) (int, error) {
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.opts.Stderr.Write(b)
	})
}

type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(b []byte) (int, error) { return f(b) }

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	limit int
	buf   bytes.Buffer
}

func (t *tailBuffer) Write(b []byte) (int, error) {
	t.buf.Write(b)
	if over := t.buf.Len() - t.limit; over > 0 {
		t.buf.Next(over)
	}
	return len(b), nil
}

func (t *tailBuffer) String() string { return t.buf.String() }

func lastLine(s string) string {
	if idx := strings.LastIndexByte(s, '\n'); idx >= 0 {
		return s[idx+1:]
	}
	return s
}

package executor

import (
	"context"
	"fmt"
	"log/slog"

	"asrprep/internal/extract"
	"asrprep/internal/manifest"
	"asrprep/internal/prep"
)

// RunWorker is the body of the "asrprep worker" subcommand: it reads one job
// spec, runs it, and atomically writes the result.
func RunWorker(ctx context.Context, jobPath, resultPath string, logger *slog.Logger) error {
	jobs, err := manifest.ReadFile[extract.Job](jobPath)
	if err != nil {
		return prep.Wrap(prep.ErrConfiguration, "worker", "read job", jobPath, err)
	}
	if len(jobs) != 1 {
		return prep.Wrap(prep.ErrConfiguration, "worker", "read job", fmt.Sprintf("expected one job, found %d", len(jobs)), nil)
	}
	result, err := extract.Run(ctx, jobs[0], logger)
	if err != nil {
		return err
	}
	if err := manifest.WriteFile(resultPath, []extract.Result{result}); err != nil {
		return prep.Wrap(prep.ErrWorker, "worker", "write result", resultPath, err)
	}
	return nil
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/google/uuid"

	"asrprep/internal/cache"
	"asrprep/internal/executor"
	"asrprep/internal/fileutil"
	"asrprep/internal/logging"
	"asrprep/internal/manifest"
	"asrprep/internal/prep"
)

// Partition outcomes reported in a Summary.
const (
	StatusExtracted = "extracted"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

// PartitionSummary describes what happened to one partition.
type PartitionSummary struct {
	Name      string
	Status    string
	InputCuts int
	Cuts      int
	Dropped   int
	Jobs      int
	Frames    int64
	Duration  float64
	Manifest  string
	Elapsed   time.Duration
	Err       error
}

// Summary is the outcome of Run.
type Summary struct {
	RunID      string
	Partitions []PartitionSummary
	Elapsed    time.Duration
}

// Failed returns the number of partitions that did not produce a manifest.
func (s Summary) Failed() int {
	n := 0
	for _, p := range s.Partitions {
		if p.Status == StatusFailed {
			n++
		}
	}
	return n
}

// Pipeline coordinates feature extraction over an injected executor.
type Pipeline struct {
	settings Settings
	executor executor.Executor
	logger   *slog.Logger
}

// New builds a pipeline. The executor is owned by the caller.
func New(settings Settings, ex executor.Executor, logger *slog.Logger) *Pipeline {
	if len(settings.PerturbFactors) == 0 {
		settings.PerturbFactors = []float64{0.9, 1.1}
	}
	return &Pipeline{
		settings: settings,
		executor: ex,
		logger:   logging.NewComponentLogger(logger, "pipeline"),
	}
}

// Run extracts features for every partition found in opts.SrcDir. Partitions
// that fail are reported in the summary and joined into the returned error;
// the remaining partitions are still processed.
func (p *Pipeline) Run(ctx context.Context, opts Options) (Summary, error) {
	if err := opts.validate(); err != nil {
		return Summary{}, err
	}
	if p.executor == nil {
		return Summary{}, prep.Wrap(prep.ErrConfiguration, "pipeline", "run", "executor is required", nil)
	}
	if info, err := os.Stat(opts.SrcDir); err != nil || !info.IsDir() {
		return Summary{}, prep.Wrap(prep.ErrConfiguration, "pipeline", "open source", opts.SrcDir, err)
	}

	summary := Summary{RunID: uuid.NewString()}
	ctx = prep.WithStage(prep.WithRunID(ctx, summary.RunID), "fbank")
	logger := logging.WithContext(ctx, p.logger)
	started := time.Now()

	logger.Info("computing fbank features",
		logging.String(logging.FieldEventType, "fbank_start"),
		logging.String("src_dir", opts.SrcDir),
		logging.String("output_dir", opts.OutputDir),
		logging.Bool("perturb_speed", opts.PerturbSpeed),
		logging.Int("num_mel_bins", opts.NumMelBins),
		logging.Int("num_jobs", opts.NumJobs),
		logging.Bool("external_executor", p.executor.External()))

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return Summary{}, prep.Wrap(prep.ErrConfiguration, "pipeline", "create output", opts.OutputDir, err)
	}
	lock, err := fileutil.LockDir(opts.OutputDir, LockName)
	if err != nil {
		return Summary{}, prep.Wrap(prep.ErrConfiguration, "pipeline", "lock output", opts.OutputDir, err)
	}
	defer func() { _ = lock.Unlock() }()

	src, err := cache.Open(p.settings.Cache, opts.SrcDir)
	if err != nil {
		return Summary{}, err
	}
	defer src.Close()
	out, err := cache.Open(p.settings.Cache, opts.OutputDir)
	if err != nil {
		return Summary{}, err
	}
	defer out.Close()

	names, err := src.List(ctx)
	if err != nil {
		return Summary{}, prep.Wrap(prep.ErrWorker, "pipeline", "list manifests", opts.SrcDir, err)
	}
	found := p.settings.Naming.Discover(names)
	for _, part := range excludeUnsplit(found.Incomplete) {
		logging.WarnWithContext(logger, "partition manifests incomplete; ignored", "partition_incomplete",
			logging.String(logging.FieldPartition, part),
			logging.String(logging.FieldErrorHint, "rerun prepare to write both recordings and supervisions"),
			logging.String(logging.FieldImpact, "no features computed for this partition"))
	}
	parts := selectPartitions(found.Parts)
	if len(parts) == 0 {
		return summary, prep.Wrap(prep.ErrConfiguration, "pipeline", "discover partitions",
			fmt.Sprintf("no complete manifests in %s; run asrprep prepare first", opts.SrcDir), nil)
	}
	if len(parts) == 1 && parts[0] == manifest.PartAll {
		logging.WarnWithContext(logger, "no split partitions; extracting the unsplit corpus", "partition_unsplit",
			logging.String("src_dir", opts.SrcDir),
			logging.String(logging.FieldErrorHint, "run asrprep prepare --split for train and test partitions"),
			logging.String(logging.FieldImpact, "no speed perturbation; all cuts in one partition"))
	}

	var errs []error
	for _, part := range parts {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		ps := p.runPartition(ctx, src, out, opts, part)
		summary.Partitions = append(summary.Partitions, ps)
		if ps.Err != nil {
			errs = append(errs, ps.Err)
		}
	}
	summary.Elapsed = time.Since(started)

	runErr := errors.Join(errs...)
	if runErr != nil {
		logging.ErrorWithContext(logger, "fbank features incomplete", "fbank_failed",
			logging.Int("partitions", len(summary.Partitions)),
			logging.Int("failed", summary.Failed()),
			logging.Duration("elapsed", summary.Elapsed),
			logging.Error(runErr),
			logging.String(logging.FieldErrorHint, "fix the failing partitions and rerun; finished partitions are skipped"))
		return summary, runErr
	}
	logger.Info("done computing fbank features",
		logging.String(logging.FieldEventType, "fbank_done"),
		logging.Int("partitions", len(summary.Partitions)),
		logging.Duration("elapsed", summary.Elapsed))
	return summary, nil
}

// selectPartitions returns the split partitions when any exist. The
// full-corpus manifests written by prepare are extracted only when nothing
// else was prepared, since their cuts already belong to train and test.
func selectPartitions(parts []string) []string {
	split := excludeUnsplit(parts)
	if len(split) > 0 {
		return split
	}
	if slices.Contains(parts, manifest.PartAll) {
		return []string{manifest.PartAll}
	}
	return nil
}

func excludeUnsplit(parts []string) []string {
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != manifest.PartAll {
			out = append(out, part)
		}
	}
	return out
}

func (p *Pipeline) manifestKey(part string) string {
	return p.settings.Naming.File(manifest.KindCuts, part)
}

package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"asrprep/internal/cache"
	"asrprep/internal/cutset"
	"asrprep/internal/executor"
	"asrprep/internal/extract"
	"asrprep/internal/featstore"
	"asrprep/internal/logging"
	"asrprep/internal/manifest"
	"asrprep/internal/prep"
)

// trainMarker selects the partitions that receive speed perturbation.
const trainMarker = "train"

func (p *Pipeline) runPartition(ctx context.Context, src, out cache.Backend, opts Options, part string) PartitionSummary {
	ctx = prep.WithPartition(ctx, part)
	logger := logging.WithContext(ctx, p.logger)
	started := time.Now()
	key := p.manifestKey(part)
	summary := PartitionSummary{Name: part, Manifest: out.Location(key)}

	fail := func(err error) PartitionSummary {
		summary.Status = StatusFailed
		summary.Err = err
		summary.Elapsed = time.Since(started)
		logging.ErrorWithContext(logger, "partition failed; no manifest written", "partition_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "rerun fbank after fixing the cause"),
			logging.String(logging.FieldImpact, "partition has no cut manifest"))
		return summary
	}

	exists, err := out.Exists(ctx, key)
	if err != nil {
		return fail(prep.Wrap(prep.ErrWorker, "pipeline", "probe output", key, err))
	}
	if exists {
		summary.Status = StatusSkipped
		logger.Info(fmt.Sprintf("%s already exists - skipping", key),
			logging.String(logging.FieldEventType, "partition_skipped"),
			logging.String("manifest", summary.Manifest))
		return summary
	}

	cuts, err := p.loadCuts(ctx, src, part)
	if err != nil {
		return fail(err)
	}
	if opts.PerturbSpeed && strings.Contains(part, trainMarker) {
		base := len(cuts)
		cuts = cutset.Augment(cuts, p.settings.PerturbFactors)
		logger.Info("speed perturbation applied",
			logging.String(logging.FieldEventType, "partition_perturbed"),
			logging.Int("original_cuts", base),
			logging.Int("cuts", len(cuts)),
			logging.String("factors", formatFactors(p.settings.PerturbFactors)))
	}
	manifest.SortCuts(cuts)
	summary.InputCuts = len(cuts)

	featDir := filepath.Join(opts.OutputDir, p.settings.Naming.FeatureDir(part))
	if err := os.MkdirAll(featDir, 0o755); err != nil {
		return fail(prep.Wrap(prep.ErrWorker, "pipeline", "create feature dir", featDir, err))
	}

	results, err := p.extract(ctx, logger, opts, part, featDir, cuts)
	_ = os.RemoveAll(executor.JobDir(featDir))
	summary.Jobs = len(results)
	if err != nil {
		return fail(err)
	}

	outCuts := make([]manifest.Cut, 0, len(cuts))
	for _, res := range results {
		outCuts = append(outCuts, res.Cuts...)
		summary.Dropped += len(res.Failures)
		summary.Frames += res.Frames
	}
	manifest.SortCuts(outCuts)
	if err := out.Commit(ctx, key, func(w io.Writer) error {
		return manifest.Encode(w, outCuts)
	}); err != nil {
		return fail(prep.Wrap(prep.ErrWorker, "pipeline", "write manifest", key, err))
	}

	summary.Status = StatusExtracted
	summary.Cuts = len(outCuts)
	summary.Duration = cutset.TotalDuration(outCuts)
	summary.Elapsed = time.Since(started)
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "partition_extracted"),
		logging.Int("cuts", summary.Cuts),
		logging.Int("failed_cuts", summary.Dropped),
		logging.Int("jobs", summary.Jobs),
		logging.Int64("frames", summary.Frames),
		logging.String("manifest", summary.Manifest),
		logging.Duration("elapsed", summary.Elapsed),
	}
	if summary.Dropped > 0 {
		logging.WarnWithContext(logger, "partition extracted with dropped cuts", "partition_extracted",
			append(attrs,
				logging.String(logging.FieldErrorHint, "see cut_extraction_failed warnings"),
				logging.String(logging.FieldImpact, "dropped cuts are absent from the manifest"))...)
	} else {
		logger.Info("partition extracted", logging.Args(attrs...)...)
	}
	return summary
}

func (p *Pipeline) loadCuts(ctx context.Context, src cache.Backend, part string) ([]manifest.Cut, error) {
	recKey := p.settings.Naming.File(manifest.KindRecordings, part)
	supKey := p.settings.Naming.File(manifest.KindSupervisions, part)
	recs, err := readManifest[manifest.Recording](ctx, src, recKey)
	if err != nil {
		return nil, err
	}
	sups, err := readManifest[manifest.Supervision](ctx, src, supKey)
	if err != nil {
		return nil, err
	}
	recordingSet, err := manifest.NewRecordingSet(recs)
	if err != nil {
		return nil, prep.Wrap(prep.ErrValidation, "pipeline", "load recordings", recKey, err)
	}
	supervisionSet, err := manifest.NewSupervisionSet(sups)
	if err != nil {
		return nil, prep.Wrap(prep.ErrValidation, "pipeline", "load supervisions", supKey, err)
	}
	return cutset.FromManifests(recordingSet, supervisionSet)
}

func readManifest[T any](ctx context.Context, b cache.Backend, key string) ([]T, error) {
	rc, err := b.Open(ctx, key)
	if err != nil {
		return nil, prep.Wrap(prep.ErrWorker, "pipeline", "open manifest", key, err)
	}
	defer rc.Close()
	items, err := manifest.Decode[T](rc)
	if err != nil {
		return nil, prep.Wrap(prep.ErrValidation, "pipeline", "decode manifest", key, err)
	}
	return items, nil
}

// extract submits one job per chunk and waits for all of them. The first job
// error cancels the jobs still running for this partition.
func (p *Pipeline) extract(ctx context.Context, logger *slog.Logger, opts Options, part, featDir string, cuts []manifest.Cut) ([]extract.Result, error) {
	numJobs := executor.JobCount(p.executor, opts.NumJobs, p.settings.ExternalJobs)
	chunks := cutset.Chunk(cuts, numJobs)

	features := p.settings.Features
	features.NumMelBins = opts.NumMelBins

	partCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	futures := make([]executor.Future, 0, len(chunks))
	for idx, chunk := range chunks {
		futures = append(futures, p.executor.Submit(partCtx, extract.Job{
			Index:       idx,
			Partition:   part,
			ArchivePath: filepath.Join(featDir, featstore.ArchiveName(idx)),
			ChunkFrames: p.settings.ChunkFrames,
			Features:    features,
			Cuts:        chunk,
		}))
	}
	logger.Info("extraction jobs submitted",
		logging.String(logging.FieldEventType, "partition_jobs_submitted"),
		logging.Int("cuts", len(cuts)),
		logging.Int("jobs", len(futures)))

	sampler := logging.NewProgressSampler(10)
	results := make([]extract.Result, 0, len(futures))
	var firstErr error
	for idx, f := range futures {
		res, err := f.Wait()
		if err != nil {
			if firstErr == nil {
				firstErr = prep.Wrap(prep.ErrWorker, "pipeline", "extract", fmt.Sprintf("%s job %d", part, idx), err)
				cancel()
			}
			continue
		}
		results = append(results, res)
		percent := float64(idx+1) * 100 / float64(len(futures))
		if sampler.ShouldLog(percent, "extract") {
			logger.Info("extraction progress",
				logging.String(logging.FieldEventType, "partition_progress"),
				logging.String("progress", fmt.Sprintf("%.0f%%", percent)),
				logging.Int("jobs_done", idx+1),
				logging.Int("jobs", len(futures)))
		}
	}
	if firstErr != nil {
		return results, firstErr
	}
	return results, nil
}

func formatFactors(factors []float64) string {
	parts := make([]string, len(factors))
	for i, f := range factors {
		parts[i] = manifest.FormatFactor(f)
	}
	return strings.Join(parts, ",")
}

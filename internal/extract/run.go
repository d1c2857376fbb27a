package extract

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"asrprep/internal/audio"
	"asrprep/internal/fbank"
	"asrprep/internal/featstore"
	"asrprep/internal/logging"
	"asrprep/internal/manifest"
	"asrprep/internal/prep"
)

// Runner executes a job. Executors call it in-process or in a child process.
type Runner func(ctx context.Context, job Job) (Result, error)

// NewRunner returns a Runner that logs through logger.
func NewRunner(logger *slog.Logger) Runner {
	logger = logging.NewComponentLogger(logger, "extract")
	return func(ctx context.Context, job Job) (Result, error) {
		return Run(ctx, job, logger)
	}
}

// Run processes every cut of job in order.
func Run(ctx context.Context, job Job, logger *slog.Logger) (Result, error) {
	ctx = prep.WithJob(prep.WithPartition(ctx, job.Partition), job.Index)
	logger = logging.WithContext(ctx, logger)

	extractor, err := fbank.NewExtractor(job.Features)
	if err != nil {
		return Result{}, prep.Wrap(prep.ErrConfiguration, "extract", "configure", "", err)
	}
	writer, err := featstore.Create(job.ArchivePath, job.ChunkFrames)
	if err != nil {
		return Result{}, prep.Wrap(prep.ErrWorker, "extract", "open archive", job.ArchivePath, err)
	}
	closed := false
	defer func() {
		if !closed {
			_ = writer.Close()
		}
	}()

	result := Result{Index: job.Index, Cuts: make([]manifest.Cut, 0, len(job.Cuts))}
	for _, cut := range job.Cuts {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		matrix, sampleRate, err := computeCut(extractor, cut)
		if err != nil {
			result.Failures = append(result.Failures, Failure{CutID: cut.ID, Error: err.Error()})
			logging.WarnWithContext(logger, "cut dropped", "cut_extraction_failed",
				logging.String(logging.FieldCutID, cut.ID),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the source audio file"),
				logging.String(logging.FieldImpact, "cut excluded from manifest"))
			continue
		}
		key, err := writer.Write(matrix)
		if err != nil {
			return Result{}, prep.Wrap(prep.ErrWorker, "extract", "write features", cut.ID, err)
		}
		out := cut
		out.Features = &manifest.Features{
			Type:         manifest.FeatureTypeFbank,
			NumFrames:    matrix.NumFrames,
			NumFeatures:  matrix.NumFeatures,
			FrameShift:   extractor.FrameShift(),
			SamplingRate: sampleRate,
			Start:        cut.Start,
			Duration:     cut.Duration,
			StorageType:  manifest.StorageTypeChunkedZstd,
			StoragePath:  job.ArchivePath,
			StorageKey:   key.String(),
			RecordingID:  cut.RecordingID(),
			Channels:     cut.Channel,
		}
		result.Cuts = append(result.Cuts, out)
		result.Frames += int64(matrix.NumFrames)
	}

	closed = true
	if err := writer.Close(); err != nil {
		return Result{}, prep.Wrap(prep.ErrWorker, "extract", "close archive", job.ArchivePath, err)
	}
	logger.Debug("job finished",
		logging.Int("cuts", len(result.Cuts)),
		logging.Int("failed_cuts", len(result.Failures)),
		logging.Int64("frames", result.Frames))
	return result, nil
}

func computeCut(extractor *fbank.Extractor, cut manifest.Cut) (fbank.Matrix, int, error) {
	if cut.Recording == nil {
		return fbank.Matrix{}, 0, fmt.Errorf("cut has no recording")
	}
	path := cut.Recording.Path()
	if path == "" {
		return fbank.Matrix{}, 0, fmt.Errorf("recording %s has no file source", cut.Recording.ID)
	}
	signal, err := audio.Load(path)
	if err != nil {
		return fbank.Matrix{}, 0, fmt.Errorf("decode %s: %w", path, err)
	}
	if factor := cut.Recording.SpeedFactor(); factor != 1 {
		signal = audio.Speed(signal, factor)
	}
	samples := span(signal, cut.Start, cut.Duration)
	matrix, err := extractor.Compute(samples, signal.SampleRate)
	if err != nil {
		return fbank.Matrix{}, 0, err
	}
	return matrix, signal.SampleRate, nil
}

func span(s audio.Signal, start, duration float64) []float64 {
	first := int(math.Round(start * float64(s.SampleRate)))
	last := int(math.Round((start + duration) * float64(s.SampleRate)))
	first = max(0, min(first, len(s.Samples)))
	last = max(first, min(last, len(s.Samples)))
	return s.Samples[first:last]
}

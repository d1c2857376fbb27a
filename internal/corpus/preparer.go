package corpus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"asrprep/internal/audio"
	"asrprep/internal/cache"
	"asrprep/internal/config"
	"asrprep/internal/fileutil"
	"asrprep/internal/logging"
	"asrprep/internal/manifest"
	"asrprep/internal/prep"
)

// LockName is the lock file taken in an output directory while it is written.
const LockName = ".asrprep.lock"

// Options controls corpus preparation.
type Options struct {
	Naming         manifest.Naming
	Extensions     []string
	TranscriptCase string
	Language       string
	SpanTolerance  float64
	Cache          config.Cache
	ProbeWorkers   int
}

// OptionsFromConfig maps the corpus and cache sections of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Naming:         manifest.Naming{Prefix: cfg.Corpus.Prefix, Suffix: cfg.Corpus.Suffix},
		Extensions:     cfg.Corpus.Extensions,
		TranscriptCase: cfg.Corpus.TranscriptCase,
		Language:       cfg.Corpus.Language,
		SpanTolerance:  cfg.Corpus.SpanTolerance,
		Cache:          cfg.Cache,
		ProbeWorkers:   runtime.NumCPU(),
	}
}

// Result is the outcome of Prepare.
type Result struct {
	Recordings   *manifest.RecordingSet
	Supervisions *manifest.SupervisionSet
	// Cached is true when both manifests were loaded from the output cache.
	Cached bool
	// Skipped counts corpus items dropped with a warning.
	Skipped int
}

// Preparer scans a corpus and maintains its cached manifests.
type Preparer struct {
	opts   Options
	logger *slog.Logger
}

// NewPreparer builds a preparer; a nil logger discards output.
func NewPreparer(opts Options, logger *slog.Logger) *Preparer {
	if opts.ProbeWorkers <= 0 {
		opts.ProbeWorkers = 1
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = []string{"wav", "flac"}
	}
	return &Preparer{opts: opts, logger: logging.NewComponentLogger(logger, "corpus")}
}

type prepared struct {
	recordings   *manifest.RecordingSet
	supervisions *manifest.SupervisionSet
	skipped      int
}

// Prepare returns the recording and supervision manifests of corpusDir,
// loading them from outputDir when both are already present there.
func (p *Preparer) Prepare(ctx context.Context, corpusDir, outputDir string) (Result, error) {
	ctx = prep.WithStage(ctx, "prepare")
	logger := logging.WithContext(ctx, p.logger)

	if err := checkCorpusRoot(corpusDir); err != nil {
		return Result{}, err
	}
	if strings.TrimSpace(outputDir) == "" {
		return Result{}, prep.Wrap(prep.ErrConfiguration, "corpus", "prepare", "output directory is required", nil)
	}

	lock, err := fileutil.LockDir(outputDir, LockName)
	if err != nil {
		return Result{}, prep.Wrap(prep.ErrConfiguration, "corpus", "lock output", outputDir, err)
	}
	defer func() { _ = lock.Unlock() }()

	backend, err := cache.Open(p.opts.Cache, outputDir)
	if err != nil {
		return Result{}, err
	}
	defer backend.Close()

	keys := []string{
		p.opts.Naming.File(manifest.KindRecordings, manifest.PartAll),
		p.opts.Naming.File(manifest.KindSupervisions, manifest.PartAll),
	}

	started := time.Now()
	value, hit, err := cache.LoadOrCompute(ctx, backend, logger, keys,
		func(ctx context.Context, open func(string) (io.ReadCloser, error)) (prepared, error) {
			return loadPrepared(open, keys)
		},
		func(ctx context.Context) (prepared, error) {
			return p.scan(ctx, logger, corpusDir)
		},
		func(ctx context.Context, commit func(string, func(io.Writer) error) error, value prepared) error {
			if err := commit(keys[0], func(w io.Writer) error {
				return manifest.Encode(w, value.recordings.All())
			}); err != nil {
				return err
			}
			return commit(keys[1], func(w io.Writer) error {
				return manifest.Encode(w, value.supervisions.All())
			})
		},
	)
	if err != nil {
		if errors.Is(err, prep.ErrValidation) || errors.Is(err, prep.ErrConfiguration) {
			return Result{}, err
		}
		return Result{}, prep.Wrap(prep.ErrWorker, "corpus", "prepare", "", err)
	}

	if hit {
		logger.Info("manifests loaded from cache",
			logging.String(logging.FieldEventType, "corpus_cache_hit"),
			logging.Int("recordings", value.recordings.Len()),
			logging.Int("supervisions", value.supervisions.Len()),
			logging.String("manifest", backend.Location(keys[0])))
	} else {
		logger.Info("corpus prepared",
			logging.String(logging.FieldEventType, "corpus_prepared"),
			logging.Int("recordings", value.recordings.Len()),
			logging.Int("supervisions", value.supervisions.Len()),
			logging.Int("skipped", value.skipped),
			logging.Duration("elapsed", time.Since(started)),
			logging.String("manifest", backend.Location(keys[0])))
	}

	return Result{
		Recordings:   value.recordings,
		Supervisions: value.supervisions,
		Cached:       hit,
		Skipped:      value.skipped,
	}, nil
}

func checkCorpusRoot(corpusDir string) error {
	if strings.TrimSpace(corpusDir) == "" {
		return prep.Wrap(prep.ErrConfiguration, "corpus", "prepare", "corpus directory is required", nil)
	}
	info, err := os.Stat(corpusDir)
	if err != nil {
		return prep.Wrap(prep.ErrConfiguration, "corpus", "open corpus", corpusDir, err)
	}
	if !info.IsDir() {
		return prep.Wrap(prep.ErrConfiguration, "corpus", "open corpus", corpusDir+" is not a directory", nil)
	}
	if _, err := os.ReadDir(corpusDir); err != nil {
		return prep.Wrap(prep.ErrConfiguration, "corpus", "open corpus", corpusDir, err)
	}
	return nil
}

func loadPrepared(open func(string) (io.ReadCloser, error), keys []string) (prepared, error) {
	recs, err := decodeKey[manifest.Recording](open, keys[0])
	if err != nil {
		return prepared{}, err
	}
	sups, err := decodeKey[manifest.Supervision](open, keys[1])
	if err != nil {
		return prepared{}, err
	}
	recordingSet, err := manifest.NewRecordingSet(recs)
	if err != nil {
		return prepared{}, prep.Wrap(prep.ErrValidation, "corpus", "load cache", keys[0], err)
	}
	supervisionSet, err := manifest.NewSupervisionSet(sups)
	if err != nil {
		return prepared{}, prep.Wrap(prep.ErrValidation, "corpus", "load cache", keys[1], err)
	}
	return prepared{recordings: recordingSet, supervisions: supervisionSet}, nil
}

func decodeKey[T any](open func(string) (io.ReadCloser, error), key string) ([]T, error) {
	rc, err := open(key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	items, err := manifest.Decode[T](rc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return items, nil
}

func (p *Preparer) scan(ctx context.Context, logger *slog.Logger, corpusDir string) (prepared, error) {
	assets, skippedFiles, err := Scan(corpusDir, p.opts.Extensions)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return prepared{}, prep.Wrap(prep.ErrConfiguration, "corpus", "scan", "missing data directory", err)
		}
		return prepared{}, prep.Wrap(prep.ErrConfiguration, "corpus", "scan", corpusDir, err)
	}
	for _, skip := range skippedFiles {
		logging.WarnWithContext(logger, "corpus file skipped", "corpus_item_skipped",
			logging.String("path", skip.Path),
			logging.String("reason", skip.Reason),
			logging.String(logging.FieldErrorHint, "rename or remove the file"),
			logging.String(logging.FieldImpact, "file excluded from manifests"))
	}

	meta, err := LoadSpeakerMeta(corpusDir)
	if err != nil {
		logging.WarnWithContext(logger, "speaker metadata unavailable", "corpus_meta_unreadable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check "+filepath.Join(corpusDir, "data", MetaFileName)),
			logging.String(logging.FieldImpact, "supervisions carry no gender or age"))
		meta = map[string]SpeakerMeta{}
	}

	infos, probeErrs, err := p.probeAll(ctx, assets)
	if err != nil {
		return prepared{}, err
	}

	recs := make([]manifest.Recording, 0, len(assets))
	sups := make([]manifest.Supervision, 0, len(assets))
	skipped := len(skippedFiles)
	for idx, asset := range assets {
		if probeErrs[idx] != nil {
			skipped++
			logging.WarnWithContext(logger, "audio header unreadable; item skipped", "corpus_item_skipped",
				logging.String("path", asset.Path),
				logging.Error(prep.Wrap(prep.ErrCorpus, "corpus", "probe", asset.ID(), probeErrs[idx])),
				logging.String(logging.FieldErrorHint, "re-download or remove the file"),
				logging.String(logging.FieldImpact, "recording excluded from manifests"))
			continue
		}
		rec, sup, err := p.build(asset, infos[idx], meta[asset.Speaker])
		if err != nil {
			skipped++
			logging.WarnWithContext(logger, "corpus item invalid; skipped", "corpus_item_skipped",
				logging.String("path", asset.Path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "recording excluded from manifests"))
			continue
		}
		recs = append(recs, rec)
		sups = append(sups, sup)
	}

	recordingSet, err := manifest.NewRecordingSet(recs)
	if err != nil {
		return prepared{}, prep.Wrap(prep.ErrValidation, "corpus", "build recordings", "", err)
	}
	supervisionSet, err := manifest.NewSupervisionSet(sups)
	if err != nil {
		return prepared{}, prep.Wrap(prep.ErrValidation, "corpus", "build supervisions", "", err)
	}
	if err := ValidateSpans(recordingSet, supervisionSet, p.opts.SpanTolerance); err != nil {
		return prepared{}, err
	}
	if recordingSet.Len() == 0 {
		logging.WarnWithContext(logger, "corpus contains no usable recordings", "corpus_empty",
			logging.String("path", corpusDir),
			logging.String(logging.FieldErrorHint, "expected data/<speaker>/<digit>_<speaker>_<index>.wav"),
			logging.String(logging.FieldImpact, "empty manifests written"))
	}
	return prepared{recordings: recordingSet, supervisions: supervisionSet, skipped: skipped}, nil
}

func (p *Preparer) probeAll(ctx context.Context, assets []Asset) ([]audio.Info, []error, error) {
	infos := make([]audio.Info, len(assets))
	errs := make([]error, len(assets))
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(p.opts.ProbeWorkers)
	for idx := range assets {
		group.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			infos[idx], errs[idx] = audio.Probe(assets[idx].Path)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, nil, err
	}
	return infos, errs, nil
}

func (p *Preparer) build(asset Asset, info audio.Info, meta SpeakerMeta) (manifest.Recording, manifest.Supervision, error) {
	if info.SampleRate <= 0 || info.NumSamples <= 0 || info.Channels <= 0 {
		return manifest.Recording{}, manifest.Supervision{}, prep.Wrap(prep.ErrCorpus, "corpus", "probe", asset.ID(), fmt.Errorf("empty or malformed audio (%d Hz, %d samples, %d channels)", info.SampleRate, info.NumSamples, info.Channels))
	}
	text, err := Transcript(asset.Digit, p.opts.TranscriptCase)
	if err != nil {
		return manifest.Recording{}, manifest.Supervision{}, prep.Wrap(prep.ErrConfiguration, "corpus", "transcript", asset.ID(), err)
	}
	path, err := filepath.Abs(asset.Path)
	if err != nil {
		path = asset.Path
	}
	channels := make([]int, info.Channels)
	for i := range channels {
		channels[i] = i
	}

	id := asset.ID()
	rec := manifest.Recording{
		ID:           id,
		Sources:      []manifest.AudioSource{{Type: "file", Channels: append([]int(nil), channels...), Source: path}},
		SamplingRate: info.SampleRate,
		NumSamples:   info.NumSamples,
		Duration:     info.Duration(),
		ChannelIDs:   channels,
	}
	sup := manifest.Supervision{
		ID:          id,
		RecordingID: id,
		Start:       0,
		Duration:    rec.Duration,
		Channel:     0,
		Text:        text,
		Language:    p.opts.Language,
		Speaker:     asset.Speaker,
		Gender:      meta.Gender,
		Custom:      meta.Custom(),
	}
	return rec, sup, nil
}

// ValidateSpans checks that every supervision references a known recording
// and ends within its duration plus tolerance.
func ValidateSpans(recs *manifest.RecordingSet, sups *manifest.SupervisionSet, tolerance float64) error {
	for _, sup := range sups.All() {
		rec, ok := recs.Get(sup.RecordingID)
		if !ok {
			return prep.Wrap(prep.ErrValidation, "corpus", "validate",
				fmt.Sprintf("supervision %q references unknown recording %q", sup.ID, sup.RecordingID), nil)
		}
		if sup.Start < 0 || sup.End() > rec.Duration+tolerance {
			return prep.Wrap(prep.ErrValidation, "corpus", "validate",
				fmt.Sprintf("supervision %q span [%.3f, %.3f] exceeds recording duration %.3f", sup.ID, sup.Start, sup.End(), rec.Duration), nil)
		}
	}
	return nil
}

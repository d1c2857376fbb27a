package corpus

import (
	"context"
	"io"

	"asrprep/internal/cache"
	"asrprep/internal/cutset"
	"asrprep/internal/fileutil"
	"asrprep/internal/logging"
	"asrprep/internal/manifest"
	"asrprep/internal/prep"
)

// Partition names produced by Split.
const (
	PartTrain = "train"
	PartTest  = "test"
)

// PartitionCounts summarizes one emitted partition.
type PartitionCounts struct {
	Name     string
	Cuts     int
	Duration float64
}

// SplitResult is the outcome of Split.
type SplitResult struct {
	Partitions []PartitionCounts
	// Cached is true when every split manifest already existed.
	Cached bool
}

// Split builds cuts from prepared manifests, orders them by orderKey, and
// writes the first ratio of them as the train partition and the rest as
// test. Each partition gets recordings, supervisions, and cuts manifests.
func (p *Preparer) Split(ctx context.Context, res Result, outputDir string, ratio float64, orderKey string) (SplitResult, error) {
	ctx = prep.WithStage(ctx, "split")
	logger := logging.WithContext(ctx, p.logger)

	key, err := cutset.KeyByName(orderKey)
	if err != nil {
		return SplitResult{}, err
	}

	lock, err := fileutil.LockDir(outputDir, LockName)
	if err != nil {
		return SplitResult{}, prep.Wrap(prep.ErrConfiguration, "corpus", "lock output", outputDir, err)
	}
	defer func() { _ = lock.Unlock() }()

	backend, err := cache.Open(p.opts.Cache, outputDir)
	if err != nil {
		return SplitResult{}, err
	}
	defer backend.Close()

	var keys []string
	for _, part := range []string{PartTrain, PartTest} {
		for _, kind := range []manifest.Kind{manifest.KindRecordings, manifest.KindSupervisions, manifest.KindCuts} {
			keys = append(keys, p.opts.Naming.File(kind, part))
		}
	}
	_, missing, err := cache.Probe(ctx, backend, keys)
	if err != nil {
		return SplitResult{}, prep.Wrap(prep.ErrWorker, "corpus", "split", "probe outputs", err)
	}
	if len(missing) == 0 {
		logger.Info("split manifests already exist - skipping",
			logging.String(logging.FieldEventType, "split_skipped"),
			logging.String("manifest", backend.Location(keys[2])))
		return SplitResult{Cached: true}, nil
	}

	cuts, err := cutset.FromManifests(res.Recordings, res.Supervisions)
	if err != nil {
		return SplitResult{}, err
	}
	train, test, err := cutset.SplitPositional(cuts, ratio, key)
	if err != nil {
		return SplitResult{}, err
	}

	out := SplitResult{}
	for _, part := range []struct {
		name string
		cuts []manifest.Cut
	}{{PartTrain, train}, {PartTest, test}} {
		if err := p.writePartition(ctx, backend, part.name, part.cuts); err != nil {
			return SplitResult{}, err
		}
		counts := PartitionCounts{Name: part.name, Cuts: len(part.cuts), Duration: cutset.TotalDuration(part.cuts)}
		out.Partitions = append(out.Partitions, counts)
		logger.Info("partition written",
			logging.String(logging.FieldEventType, "split_partition_written"),
			logging.String(logging.FieldPartition, part.name),
			logging.Int("cuts", counts.Cuts),
			logging.Float64("hours", counts.Duration/3600),
			logging.String("manifest", backend.Location(p.opts.Naming.File(manifest.KindCuts, part.name))))
	}
	return out, nil
}

func (p *Preparer) writePartition(ctx context.Context, backend cache.Backend, part string, cuts []manifest.Cut) error {
	recs, sups, err := cutset.Manifests(cuts)
	if err != nil {
		return err
	}
	writes := []struct {
		key   string
		write func(io.Writer) error
	}{
		{p.opts.Naming.File(manifest.KindRecordings, part), func(w io.Writer) error { return manifest.Encode(w, recs.All()) }},
		{p.opts.Naming.File(manifest.KindSupervisions, part), func(w io.Writer) error { return manifest.Encode(w, sups.All()) }},
		{p.opts.Naming.File(manifest.KindCuts, part), func(w io.Writer) error { return manifest.Encode(w, cuts) }},
	}
	for _, entry := range writes {
		if err := backend.Commit(ctx, entry.key, entry.write); err != nil {
			return prep.Wrap(prep.ErrWorker, "corpus", "write partition", entry.key, err)
		}
	}
	return nil
}

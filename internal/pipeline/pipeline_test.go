package pipeline_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/goleak"

	"asrprep/internal/config"
	"asrprep/internal/corpus"
	"asrprep/internal/executor"
	"asrprep/internal/extract"
	"asrprep/internal/featstore"
	"asrprep/internal/logging"
	"asrprep/internal/manifest"
	"asrprep/internal/pipeline"
	"asrprep/internal/prep"
	"asrprep/internal/testsupport"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// prepareSplit writes a synthetic corpus and its train/test manifests.
func prepareSplit(t *testing.T, n int, opts ...testsupport.ConfigOption) *config.Config {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	testsupport.WriteCorpus(t, cfg.Paths.CorpusDir, testsupport.DefaultCorpusSpec(n))
	p := corpus.NewPreparer(corpus.OptionsFromConfig(cfg), logging.NewNop())
	res, err := p.Prepare(context.Background(), cfg.Paths.CorpusDir, cfg.Paths.ManifestDir)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if _, err := p.Split(context.Background(), res, cfg.Paths.ManifestDir, cfg.Split.Ratio, cfg.Split.OrderKey); err != nil {
		t.Fatalf("Split: %v", err)
	}
	return cfg
}

func runPipeline(t *testing.T, cfg *config.Config, ex executor.Executor) (pipeline.Summary, error) {
	t.Helper()
	if ex == nil {
		var err error
		ex, err = executor.New(cfg.Executor, logging.NewNop())
		if err != nil {
			t.Fatalf("executor: %v", err)
		}
		defer ex.Close()
	}
	p := pipeline.New(pipeline.SettingsFromConfig(cfg), ex, logging.NewNop())
	return p.Run(context.Background(), pipeline.OptionsFromConfig(cfg))
}

func readCuts(t *testing.T, cfg *config.Config, part string) []manifest.Cut {
	t.Helper()
	name := manifest.Naming{Prefix: cfg.Corpus.Prefix, Suffix: cfg.Corpus.Suffix}.File(manifest.KindCuts, part)
	cuts, err := manifest.ReadFile[manifest.Cut](filepath.Join(cfg.Paths.FbankDir, name))
	if err != nil {
		t.Fatalf("read %s cuts: %v", part, err)
	}
	return cuts
}

func cutsPath(cfg *config.Config, part string) string {
	name := manifest.Naming{Prefix: cfg.Corpus.Prefix, Suffix: cfg.Corpus.Suffix}.File(manifest.KindCuts, part)
	return filepath.Join(cfg.Paths.FbankDir, name)
}

func speakerOf(id string) string {
	speaker, _, _ := strings.Cut(id, "_")
	return speaker
}

func TestRunHundredRecordingCorpus(t *testing.T) {
	cfg := prepareSplit(t, 100)

	summary, err := runPipeline(t, cfg, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.RunID == "" || len(summary.Partitions) != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	test := readCuts(t, cfg, corpus.PartTest)
	train := readCuts(t, cfg, corpus.PartTrain)
	if len(train) != 240 || len(test) != 20 {
		t.Fatalf("expected 240 train / 20 test cuts, got %d / %d", len(train), len(test))
	}

	perturbed := map[string]int{}
	trainSpeakers := map[string]bool{}
	for _, cut := range train {
		switch {
		case strings.HasSuffix(cut.ID, "_sp0.9"):
			perturbed["0.9"]++
		case strings.HasSuffix(cut.ID, "_sp1.1"):
			perturbed["1.1"]++
		default:
			perturbed["1.0"]++
		}
		trainSpeakers[speakerOf(cut.ID)] = true
	}
	if perturbed["0.9"] != 80 || perturbed["1.1"] != 80 || perturbed["1.0"] != 80 {
		t.Fatalf("expected 80 cuts per speed, got %v", perturbed)
	}
	for _, cut := range test {
		if trainSpeakers[speakerOf(cut.ID)] {
			t.Fatalf("speaker of %s appears in both partitions", cut.ID)
		}
		if strings.Contains(cut.ID, "_sp") {
			t.Fatalf("test partition must not be perturbed: %s", cut.ID)
		}
	}

	for i := 1; i < len(train); i++ {
		if train[i-1].ID >= train[i].ID {
			t.Fatalf("train cuts not sorted at %d: %s >= %s", i, train[i-1].ID, train[i].ID)
		}
	}
}

func TestRunWritesReadableFeatures(t *testing.T) {
	cfg := prepareSplit(t, 20)
	if _, err := runPipeline(t, cfg, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}

	reader, err := featstore.NewReader()
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer reader.Close()

	for _, part := range []string{corpus.PartTrain, corpus.PartTest} {
		for _, cut := range readCuts(t, cfg, part) {
			if !cut.HasFeatures() {
				t.Fatalf("%s has no features", cut.ID)
			}
			if cut.Recording == nil || len(cut.Supervisions) != 1 || cut.Supervisions[0].RecordingID != cut.Recording.ID {
				t.Fatalf("%s references are inconsistent", cut.ID)
			}
			if sup := cut.Supervisions[0]; sup.End() > cut.Recording.Duration {
				t.Fatalf("%s supervision ends at %.6f past recording duration %.6f", cut.ID, sup.End(), cut.Recording.Duration)
			}
			f := cut.Features
			if f.RecordingID != cut.Recording.ID || f.NumFeatures != cfg.Features.NumMelBins {
				t.Fatalf("%s feature header mismatch: %+v", cut.ID, f)
			}
			wantDir := filepath.Join(cfg.Paths.FbankDir, "audio_mnist_feats_"+part)
			if filepath.Dir(f.StoragePath) != wantDir {
				t.Fatalf("%s archive outside %s: %s", cut.ID, wantDir, f.StoragePath)
			}
			key, err := featstore.ParseKey(f.StorageKey)
			if err != nil {
				t.Fatalf("%s: %v", cut.ID, err)
			}
			m, err := reader.Read(f.StoragePath, key, f.NumFrames, f.NumFeatures)
			if err != nil {
				t.Fatalf("%s: read features: %v", cut.ID, err)
			}
			if m.NumFrames != f.NumFrames || len(m.Data) != f.NumFrames*f.NumFeatures {
				t.Fatalf("%s: unexpected matrix shape %dx%d", cut.ID, m.NumFrames, m.NumFeatures)
			}
		}
	}

	if _, err := os.Stat(executor.JobDir(filepath.Join(cfg.Paths.FbankDir, "audio_mnist_feats_train"))); !os.IsNotExist(err) {
		t.Fatalf("job spool should be removed, stat err = %v", err)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	cfg := prepareSplit(t, 20)
	if _, err := runPipeline(t, cfg, nil); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	before := map[string][]byte{}
	for _, part := range []string{corpus.PartTrain, corpus.PartTest} {
		data, err := os.ReadFile(cutsPath(cfg, part))
		if err != nil {
			t.Fatal(err)
		}
		before[part] = data
	}

	summary, err := runPipeline(t, cfg, nil)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	for _, ps := range summary.Partitions {
		if ps.Status != pipeline.StatusSkipped {
			t.Fatalf("partition %s: expected skipped, got %s", ps.Name, ps.Status)
		}
	}
	for part, data := range before {
		after, err := os.ReadFile(cutsPath(cfg, part))
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(data, after) {
			t.Fatalf("%s manifest changed on rerun", part)
		}
	}
}

func TestRunWithoutPerturbation(t *testing.T) {
	cfg := prepareSplit(t, 20, testsupport.WithPerturbSpeed(false))
	if _, err := runPipeline(t, cfg, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	train := readCuts(t, cfg, corpus.PartTrain)
	if len(train) != 16 {
		t.Fatalf("expected 16 unperturbed train cuts, got %d", len(train))
	}
	for _, cut := range train {
		if strings.Contains(cut.ID, "_sp") {
			t.Fatalf("unexpected perturbed cut %s", cut.ID)
		}
	}
}

func TestRunDropsUndecodableCut(t *testing.T) {
	cfg := prepareSplit(t, 20)
	// 02_9_0 lands in the test partition; corrupt it after manifests exist.
	bad := filepath.Join(cfg.Paths.CorpusDir, "data", "02", "9_02_0.wav")
	if err := os.WriteFile(bad, []byte("not a wav file"), 0o644); err != nil {
		t.Fatal(err)
	}

	summary, err := runPipeline(t, cfg, nil)
	if err != nil {
		t.Fatalf("per-cut failures must not fail the run: %v", err)
	}
	test := readCuts(t, cfg, corpus.PartTest)
	if len(test) != 3 {
		t.Fatalf("expected 3 of 4 test cuts, got %d", len(test))
	}
	for _, cut := range test {
		if cut.ID == "02_9_0" {
			t.Fatal("corrupt cut must be dropped")
		}
	}
	for _, ps := range summary.Partitions {
		if ps.Name == corpus.PartTest && (ps.Dropped != 1 || ps.Status != pipeline.StatusExtracted) {
			t.Fatalf("unexpected test summary: %+v", ps)
		}
	}
}

func TestRunJobFailureLeavesNoManifest(t *testing.T) {
	cfg := prepareSplit(t, 20)
	boom := errors.New("archive device gone")
	run := extract.NewRunner(logging.NewNop())
	ex := executor.NewLocal(2, func(ctx context.Context, job extract.Job) (extract.Result, error) {
		if job.Partition == corpus.PartTrain && job.Index == 0 {
			return extract.Result{}, boom
		}
		return run(ctx, job)
	})
	defer ex.Close()

	summary, err := runPipeline(t, cfg, ex)
	if !errors.Is(err, prep.ErrWorker) || !errors.Is(err, boom) {
		t.Fatalf("expected worker error wrapping job failure, got %v", err)
	}
	if summary.Failed() != 1 {
		t.Fatalf("expected one failed partition, got %+v", summary.Partitions)
	}
	if _, err := os.Stat(cutsPath(cfg, corpus.PartTrain)); !os.IsNotExist(err) {
		t.Fatalf("failed partition must not have a manifest, stat err = %v", err)
	}
	if len(readCuts(t, cfg, corpus.PartTest)) != 4 {
		t.Fatal("other partitions must still be written")
	}
}

func TestRunIgnoresIncompletePartition(t *testing.T) {
	cfg := prepareSplit(t, 20)
	naming := manifest.Naming{Prefix: cfg.Corpus.Prefix, Suffix: cfg.Corpus.Suffix}
	if err := os.Remove(filepath.Join(cfg.Paths.ManifestDir, naming.File(manifest.KindSupervisions, corpus.PartTest))); err != nil {
		t.Fatal(err)
	}

	summary, err := runPipeline(t, cfg, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	names := make([]string, 0, len(summary.Partitions))
	for _, ps := range summary.Partitions {
		names = append(names, ps.Name)
	}
	if strings.Join(names, ",") != "train" {
		t.Fatalf("unexpected partitions processed: %v", names)
	}
	if _, err := os.Stat(cutsPath(cfg, corpus.PartTest)); !os.IsNotExist(err) {
		t.Fatal("incomplete partition must not be extracted")
	}
}

func TestRunRejectsMissingSource(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	_, err := runPipeline(t, cfg, nil)
	if !errors.Is(err, prep.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRunWithLocalExecutor(t *testing.T) {
	cfg := prepareSplit(t, 20, testsupport.WithExecutor("local", 3))
	summary, err := runPipeline(t, cfg, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, ps := range summary.Partitions {
		if ps.Status != pipeline.StatusExtracted || ps.Jobs == 0 {
			t.Fatalf("unexpected partition summary %+v", ps)
		}
	}
	if len(readCuts(t, cfg, corpus.PartTrain)) != 48 {
		t.Fatal("expected 48 perturbed train cuts")
	}
}

func TestRunExtractsUnsplitCorpus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteCorpus(t, cfg.Paths.CorpusDir, testsupport.DefaultCorpusSpec(20))
	p := corpus.NewPreparer(corpus.OptionsFromConfig(cfg), logging.NewNop())
	if _, err := p.Prepare(context.Background(), cfg.Paths.CorpusDir, cfg.Paths.ManifestDir); err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	summary, err := runPipeline(t, cfg, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(summary.Partitions) != 1 || summary.Partitions[0].Name != manifest.PartAll {
		t.Fatalf("expected only the unsplit partition, got %+v", summary.Partitions)
	}
	cuts := readCuts(t, cfg, manifest.PartAll)
	if len(cuts) != 20 {
		t.Fatalf("expected 20 unperturbed cuts, got %d", len(cuts))
	}
	for _, cut := range cuts {
		if !cut.HasFeatures() {
			t.Fatalf("cut %s has no features", cut.ID)
		}
	}
}

func TestRunSplitPartitionsShadowUnsplit(t *testing.T) {
	cfg := prepareSplit(t, 20)
	summary, err := runPipeline(t, cfg, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, ps := range summary.Partitions {
		if ps.Name == manifest.PartAll {
			t.Fatal("unsplit partition must not be extracted next to train and test")
		}
	}
	if _, err := os.Stat(cutsPath(cfg, manifest.PartAll)); !os.IsNotExist(err) {
		t.Fatal("unexpected unsplit cut manifest")
	}
}

func TestRunWithoutManifestsFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := os.MkdirAll(cfg.Paths.ManifestDir, 0o755); err != nil {
		t.Fatal(err)
	}
	_, err := runPipeline(t, cfg, nil)
	if !errors.Is(err, prep.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if _, statErr := os.Stat(cutsPath(cfg, manifest.PartAll)); !os.IsNotExist(statErr) {
		t.Fatal("no manifest should be written")
	}
}

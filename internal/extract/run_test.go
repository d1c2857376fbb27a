package extract_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"asrprep/internal/cutset"
	"asrprep/internal/extract"
	"asrprep/internal/fbank"
	"asrprep/internal/featstore"
	"asrprep/internal/logging"
	"asrprep/internal/manifest"
	"asrprep/internal/testsupport"
)

func cutFor(t *testing.T, dir, id string, samples int) manifest.Cut {
	t.Helper()
	path := filepath.Join(dir, id+".wav")
	testsupport.WriteTone(t, path, 8000, samples, 440)
	rec := manifest.Recording{
		ID:           id,
		Sources:      []manifest.AudioSource{{Type: "file", Channels: []int{0}, Source: path}},
		SamplingRate: 8000,
		NumSamples:   int64(samples),
		Duration:     float64(samples) / 8000,
		ChannelIDs:   []int{0},
	}
	return manifest.Cut{
		ID: id, Type: manifest.CutTypeMono, Duration: rec.Duration, Recording: &rec,
		Supervisions: []manifest.Supervision{{ID: id, RecordingID: id, Duration: rec.Duration, Text: "ONE"}},
	}
}

func testJob(dir string, cuts []manifest.Cut) extract.Job {
	return extract.Job{
		Index:       2,
		Partition:   "train",
		ArchivePath: filepath.Join(dir, "feats", featstore.ArchiveName(2)),
		ChunkFrames: 8,
		Features: fbank.Options{
			NumMelBins: 23, FrameLengthMs: 25, FrameShiftMs: 10, Preemphasis: 0.97,
			LowFreq: 20, EnergyFloor: 1e-10, RemoveDCOffset: true, Window: "povey",
		},
		Cuts: cuts,
	}
}

func TestRunAttachesReadableFeatures(t *testing.T) {
	dir := t.TempDir()
	base := []manifest.Cut{cutFor(t, dir, "a", 2400), cutFor(t, dir, "b", 1600)}
	cuts := cutset.Augment(base, []float64{0.9})

	res, err := extract.Run(context.Background(), testJob(dir, cuts), logging.NewNop())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Cuts) != 4 || len(res.Failures) != 0 || res.Index != 2 {
		t.Fatalf("unexpected result: %d cuts, %v failures", len(res.Cuts), res.Failures)
	}

	reader, err := featstore.NewReader()
	if err != nil {
		t.Fatal(err)
	}
	defer reader.Close()
	for _, cut := range res.Cuts {
		f := cut.Features
		if f == nil || f.NumFeatures != 23 || f.RecordingID != cut.RecordingID() {
			t.Fatalf("cut %s: bad features %+v", cut.ID, f)
		}
		key, err := featstore.ParseKey(f.StorageKey)
		if err != nil {
			t.Fatal(err)
		}
		m, err := reader.Read(f.StoragePath, key, f.NumFrames, f.NumFeatures)
		if err != nil {
			t.Fatalf("read %s: %v", cut.ID, err)
		}
		if m.NumFrames != f.NumFrames {
			t.Fatalf("frame mismatch for %s", cut.ID)
		}
	}
	// 2400 samples at 0.9x speed become 2667 samples, 33 frames at 80-sample shift.
	if got := res.Cuts[2].Features.NumFrames; got != 33 {
		t.Fatalf("expected perturbed cut to have 33 frames, got %d", got)
	}
}

func TestRunDropsCorruptCut(t *testing.T) {
	dir := t.TempDir()
	good := cutFor(t, dir, "good", 2400)
	bad := cutFor(t, dir, "bad", 2400)
	if err := os.WriteFile(bad.Recording.Path(), []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	short := cutFor(t, dir, "short", 10)

	res, err := extract.Run(context.Background(), testJob(dir, []manifest.Cut{bad, good, short}), logging.NewNop())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Cuts) != 1 || res.Cuts[0].ID != "good" {
		t.Fatalf("expected only the good cut, got %+v", res.Cuts)
	}
	if len(res.Failures) != 2 || res.Failures[0].CutID != "bad" || res.Failures[1].CutID != "short" {
		t.Fatalf("unexpected failures %+v", res.Failures)
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := extract.Run(ctx, testJob(dir, []manifest.Cut{cutFor(t, dir, "a", 2400)}), logging.NewNop()); err == nil {
		t.Fatal("expected cancellation error")
	}
}

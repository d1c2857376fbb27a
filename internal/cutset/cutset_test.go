package cutset_test

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"asrprep/internal/cutset"
	"asrprep/internal/manifest"
	"asrprep/internal/prep"
)

// corpus builds n recordings with one supervision each. Ids follow the
// <speaker>_<digit>_<index> scheme with five recordings per speaker.
func corpus(t *testing.T, n int) (*manifest.RecordingSet, *manifest.SupervisionSet) {
	t.Helper()
	recs := make([]manifest.Recording, 0, n)
	sups := make([]manifest.Supervision, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("%02d_%d_%d", i/5+1, i%10, i%5)
		recs = append(recs, manifest.Recording{
			ID:           id,
			Sources:      []manifest.AudioSource{{Type: "file", Channels: []int{0}, Source: "/c/" + id + ".wav"}},
			SamplingRate: 8000,
			NumSamples:   4000,
			Duration:     0.5,
			ChannelIDs:   []int{0},
		})
		sups = append(sups, manifest.Supervision{ID: id, RecordingID: id, Duration: 0.5, Text: "ZERO", Speaker: id[:2]})
	}
	rs, err := manifest.NewRecordingSet(recs)
	if err != nil {
		t.Fatal(err)
	}
	ss, err := manifest.NewSupervisionSet(sups)
	if err != nil {
		t.Fatal(err)
	}
	return rs, ss
}

func TestFromManifestsJoinsOneCutPerRecording(t *testing.T) {
	recs, sups := corpus(t, 12)
	cuts, err := cutset.FromManifests(recs, sups)
	if err != nil {
		t.Fatalf("FromManifests: %v", err)
	}
	if len(cuts) != 12 {
		t.Fatalf("expected 12 cuts, got %d", len(cuts))
	}
	for i, cut := range cuts {
		if i > 0 && cuts[i-1].ID >= cut.ID {
			t.Fatalf("cuts not ordered at %d", i)
		}
		if cut.Recording == nil || cut.Recording.ID != cut.ID || len(cut.Supervisions) != 1 {
			t.Fatalf("cut %s not joined: %+v", cut.ID, cut)
		}
	}
	if err := cutset.Validate(cuts, 1e-3); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestFromManifestsRejectsDanglingSupervision(t *testing.T) {
	recs, _ := corpus(t, 2)
	sups, _ := manifest.NewSupervisionSet([]manifest.Supervision{{ID: "x", RecordingID: "missing"}})
	if _, err := cutset.FromManifests(recs, sups); !errors.Is(err, prep.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAugmentTriplesAndTags(t *testing.T) {
	recs, sups := corpus(t, 10)
	cuts, _ := cutset.FromManifests(recs, sups)

	out := cutset.Augment(cuts, []float64{0.9, 1.1})
	if len(out) != 30 {
		t.Fatalf("expected 3x cuts, got %d", len(out))
	}
	ids := map[string]bool{}
	for _, cut := range out {
		if ids[cut.ID] {
			t.Fatalf("duplicate id %s", cut.ID)
		}
		ids[cut.ID] = true
	}

	slow := out[10]
	if !strings.HasSuffix(slow.ID, "_sp0.9") || slow.Perturbation == nil || slow.Perturbation.Factor != 0.9 {
		t.Fatalf("unexpected perturbed cut: %+v", slow)
	}
	if slow.Perturbation.SourceID != cuts[0].ID {
		t.Fatalf("provenance should point at %s, got %s", cuts[0].ID, slow.Perturbation.SourceID)
	}
	if math.Abs(slow.Duration-0.5/0.9) > 1e-4 {
		t.Fatalf("expected retimed duration, got %v", slow.Duration)
	}
	if slow.Recording.NumSamples != 4444 || slow.Recording.SpeedFactor() != 0.9 {
		t.Fatalf("unexpected perturbed recording: %+v", slow.Recording)
	}
	if slow.Supervisions[0].RecordingID != slow.Recording.ID {
		t.Fatalf("supervision not retargeted: %+v", slow.Supervisions[0])
	}
	if cuts[0].Perturbation != nil || strings.Contains(cuts[0].ID, "_sp") {
		t.Fatal("input cuts must not be mutated")
	}
	if err := cutset.Validate(out, 1e-3); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	again := cutset.Augment(cuts, []float64{0.9, 1.1})
	for i := range out {
		if out[i].ID != again[i].ID || out[i].Duration != again[i].Duration {
			t.Fatalf("augmentation not deterministic at %d", i)
		}
	}
}

func TestSplitPositionalSizesAndDisjointness(t *testing.T) {
	for _, n := range []int{0, 1, 7, 100, 101} {
		recs, sups := corpus(t, n)
		cuts, _ := cutset.FromManifests(recs, sups)
		// Shuffle deterministically to show input order does not matter.
		reversed := make([]manifest.Cut, len(cuts))
		for i := range cuts {
			reversed[len(cuts)-1-i] = cuts[i]
		}
		train, test, err := cutset.SplitPositional(reversed, 0.8, cutset.ByID)
		if err != nil {
			t.Fatalf("SplitPositional(%d): %v", n, err)
		}
		wantTrain := int(math.Floor(0.8 * float64(n)))
		if len(train) != wantTrain || len(test) != n-wantTrain {
			t.Fatalf("n=%d: got %d/%d", n, len(train), len(test))
		}
		seen := map[string]bool{}
		for _, c := range train {
			seen[c.ID] = true
		}
		for _, c := range test {
			if seen[c.ID] {
				t.Fatalf("cut %s in both partitions", c.ID)
			}
		}
		if n > 0 && len(train) > 0 && len(test) > 0 && train[len(train)-1].ID >= test[0].ID {
			t.Fatal("train must precede test in key order")
		}
	}
}

func TestSplitPositionalRejectsBadArguments(t *testing.T) {
	if _, _, err := cutset.SplitPositional(nil, 1, cutset.ByID); !errors.Is(err, prep.ErrConfiguration) {
		t.Fatalf("expected configuration error for ratio, got %v", err)
	}
	if _, _, err := cutset.SplitPositional(nil, 0.8, nil); !errors.Is(err, prep.ErrConfiguration) {
		t.Fatalf("expected configuration error for nil key, got %v", err)
	}
	if _, err := cutset.KeyByName("random"); err == nil {
		t.Fatal("expected unknown key error")
	}
}

func TestHundredRecordingScenario(t *testing.T) {
	recs, sups := corpus(t, 100)
	cuts, _ := cutset.FromManifests(recs, sups)
	train, test, err := cutset.SplitPositional(cuts, 0.8, cutset.ByID)
	if err != nil {
		t.Fatal(err)
	}
	augmented := cutset.Augment(train, []float64{0.9, 1.1})
	if len(augmented) != 240 || len(test) != 20 {
		t.Fatalf("expected 240 train / 20 test, got %d / %d", len(augmented), len(test))
	}
}

func TestChunkContiguousAndBalanced(t *testing.T) {
	recs, sups := corpus(t, 17)
	cuts, _ := cutset.FromManifests(recs, sups)
	chunks := cutset.Chunk(cuts, 5)
	if len(chunks) != 5 {
		t.Fatalf("expected 5 chunks, got %d", len(chunks))
	}
	total := 0
	for i, chunk := range chunks {
		if len(chunk) < 3 || len(chunk) > 4 {
			t.Fatalf("chunk %d has %d cuts", i, len(chunk))
		}
		if chunk[0].ID != cuts[total].ID {
			t.Fatalf("chunk %d not contiguous", i)
		}
		total += len(chunk)
	}
	if total != 17 {
		t.Fatalf("chunks lost cuts: %d", total)
	}
	if got := cutset.Chunk(cuts[:2], 80); len(got) != 2 {
		t.Fatalf("expected chunk count capped at cut count, got %d", len(got))
	}
	if cutset.Chunk(nil, 4) != nil {
		t.Fatal("expected nil for empty input")
	}
}

func TestManifestsCollectsDistinctRecordings(t *testing.T) {
	recs, sups := corpus(t, 4)
	cuts, _ := cutset.FromManifests(recs, sups)
	gotRecs, gotSups, err := cutset.Manifests(cuts[:3])
	if err != nil {
		t.Fatal(err)
	}
	if gotRecs.Len() != 3 || gotSups.Len() != 3 {
		t.Fatalf("unexpected sizes %d/%d", gotRecs.Len(), gotSups.Len())
	}
}

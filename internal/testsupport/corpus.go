package testsupport

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"asrprep/internal/audio"
)

// CorpusSpec describes a synthetic AudioMNIST-layout corpus.
type CorpusSpec struct {
	Recordings int
	// PerSpeaker is the number of recordings per speaker directory.
	PerSpeaker int
	SampleRate int
	// Samples is the length of each recording.
	Samples int
	// WithMeta writes audioMNIST_meta.txt.
	WithMeta bool
}

// DefaultCorpusSpec is a short 8 kHz corpus with ten recordings per speaker.
func DefaultCorpusSpec(n int) CorpusSpec {
	return CorpusSpec{Recordings: n, PerSpeaker: 10, SampleRate: 8000, Samples: 2400, WithMeta: true}
}

// WriteCorpus creates root/data/<speaker>/<digit>_<speaker>_<index>.wav
// files and returns their recording ids in sorted order.
func WriteCorpus(t testing.TB, root string, spec CorpusSpec) []string {
	t.Helper()
	if spec.PerSpeaker <= 0 {
		spec.PerSpeaker = 10
	}

	speakers := map[string]struct{}{}
	ids := make([]string, 0, spec.Recordings)
	for i := 0; i < spec.Recordings; i++ {
		speaker := fmt.Sprintf("%02d", i/spec.PerSpeaker+1)
		digit := i % 10
		index := (i % spec.PerSpeaker) / 10
		dir := filepath.Join(root, "data", speaker)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
		path := filepath.Join(dir, fmt.Sprintf("%d_%s_%d.wav", digit, speaker, index))
		WriteTone(t, path, spec.SampleRate, spec.Samples, 200+float64(digit)*100)
		ids = append(ids, fmt.Sprintf("%s_%d_%d", speaker, digit, index))
		speakers[speaker] = struct{}{}
	}

	if spec.WithMeta {
		names := make([]string, 0, len(speakers))
		for speaker := range speakers {
			names = append(names, speaker)
		}
		sort.Strings(names)
		meta := "{\n"
		for i, speaker := range names {
			gender := "male"
			if i%2 == 1 {
				gender = "female"
			}
			meta += fmt.Sprintf(`    "%s": {"accent": "german", "age": "%d", "gender": "%s", "native speaker": "no"}`, speaker, 20+i, gender)
			if i < len(names)-1 {
				meta += ","
			}
			meta += "\n"
		}
		meta += "}\n"
		if err := os.WriteFile(filepath.Join(root, "data", "audioMNIST_meta.txt"), []byte(meta), 0o644); err != nil {
			t.Fatalf("write meta: %v", err)
		}
	}

	sort.Strings(ids)
	return ids
}

// WriteTone writes a 16-bit mono sine wave.
func WriteTone(t testing.TB, path string, sampleRate, n int, freq float64) {
	t.Helper()
	samples := make([]int, n)
	for i := range samples {
		samples[i] = int(6000 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}
	if err := audio.WriteWAV(path, sampleRate, 16, samples); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

package audio_test

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"asrprep/internal/audio"
)

func writeTone(t *testing.T, path string, sampleRate, n int) []int {
	t.Helper()
	samples := make([]int, n)
	for i := range samples {
		samples[i] = int(8000 * math.Sin(2*math.Pi*440*float64(i)/float64(sampleRate)))
	}
	if err := audio.WriteWAV(path, sampleRate, 16, samples); err != nil {
		t.Fatalf("WriteWAV: %v", err)
	}
	return samples
}

func TestProbeAndLoadWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "3_01_0.wav")
	samples := writeTone(t, path, 8000, 4000)

	info, err := audio.Probe(path)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if info.SampleRate != 8000 || info.NumSamples != 4000 || info.Channels != 1 || info.BitDepth != 16 {
		t.Fatalf("unexpected info: %+v", info)
	}
	if math.Abs(info.Duration()-0.5) > 1e-9 {
		t.Fatalf("unexpected duration %v", info.Duration())
	}

	sig, err := audio.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(sig.Samples) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(sig.Samples))
	}
	for i := 0; i < 50; i++ {
		want := float64(samples[i]) / 32768
		if math.Abs(sig.Samples[i]-want) > 1e-9 {
			t.Fatalf("sample %d: got %v want %v", i, sig.Samples[i], want)
		}
	}
}

func TestProbeRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.wav")
	if err := os.WriteFile(bad, []byte("not a wav file at all"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := audio.Probe(bad); err == nil {
		t.Fatal("expected error for invalid wav")
	}
	if _, err := audio.Probe(filepath.Join(dir, "x.mp3")); err == nil {
		t.Fatal("expected error for missing file")
	}
	other := filepath.Join(dir, "x.ogg")
	if err := os.WriteFile(other, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := audio.Load(other); !errors.Is(err, audio.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestSpeedChangesLength(t *testing.T) {
	sig := audio.Signal{SampleRate: 8000, Samples: make([]float64, 9000)}
	for i := range sig.Samples {
		sig.Samples[i] = float64(i)
	}
	slow := audio.Speed(sig, 0.9)
	fast := audio.Speed(sig, 1.1)
	if len(slow.Samples) != 10000 {
		t.Fatalf("expected 10000 samples at 0.9, got %d", len(slow.Samples))
	}
	if got := int64(len(fast.Samples)); got != audio.PerturbedLength(9000, 1.1) {
		t.Fatalf("length mismatch at 1.1: %d", got)
	}
	if math.Abs(fast.Samples[4000]-4400) > 1e-6 {
		t.Fatalf("expected interpolated ramp value 4400, got %v", fast.Samples[4000])
	}
	if same := audio.Speed(sig, 1); len(same.Samples) != 9000 {
		t.Fatal("identity factor should not resample")
	}
}

func toneEnergy(samples []float64, margin int) float64 {
	var sum float64
	for _, v := range samples[margin : len(samples)-margin] {
		sum += v * v
	}
	return sum / float64(len(samples)-2*margin)
}

func sine(sampleRate int, freq float64, n int) audio.Signal {
	sig := audio.Signal{SampleRate: sampleRate, Samples: make([]float64, n)}
	for i := range sig.Samples {
		sig.Samples[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return sig
}

func TestSpeedUpRemovesContentAboveNewNyquist(t *testing.T) {
	// At 1.1x a 23 kHz tone would move to 25.3 kHz, above the 24 kHz Nyquist.
	high := sine(48000, 23000, 48000)
	fast := audio.Speed(high, 1.1)
	ratio := toneEnergy(fast.Samples, 200) / toneEnergy(high.Samples, 200)
	if ratio > 1e-3 {
		t.Fatalf("expected near-Nyquist tone to be filtered out, energy ratio %v", ratio)
	}

	low := sine(48000, 1000, 48000)
	kept := toneEnergy(audio.Speed(low, 1.1).Samples, 200) / toneEnergy(low.Samples, 200)
	if kept < 0.95 || kept > 1.05 {
		t.Fatalf("expected passband tone to keep its energy, ratio %v", kept)
	}
}

func TestLowPassKeepsDCAndIgnoresBadCutoff(t *testing.T) {
	flat := []float64{0.25, 0.25, 0.25, 0.25, 0.25}
	for i, v := range audio.LowPass(flat, 0.2) {
		if math.Abs(v-0.25) > 1e-12 {
			t.Fatalf("sample %d: expected DC to pass unchanged, got %v", i, v)
		}
	}
	if got := audio.LowPass(flat, 0.5); &got[0] != &flat[0] {
		t.Fatal("expected cutoff at Nyquist to leave samples untouched")
	}
}

func TestLoadEightBitWAVIsCentred(t *testing.T) {
	path := filepath.Join(t.TempDir(), "5_02_1.wav")
	if err := audio.WriteWAV(path, 8000, 8, []int{128, 255, 0, 192}); err != nil {
		t.Fatalf("WriteWAV: %v", err)
	}
	sig, err := audio.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []float64{0, 127.0 / 128, -1, 0.5}
	if len(sig.Samples) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(sig.Samples))
	}
	for i, w := range want {
		if math.Abs(sig.Samples[i]-w) > 1e-12 {
			t.Fatalf("sample %d: got %v want %v", i, sig.Samples[i], w)
		}
	}
}

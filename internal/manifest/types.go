package manifest

import (
	"math"
	"strconv"
)

const (
	// CutTypeMono is the only cut kind produced: one channel, one recording.
	CutTypeMono = "MonoCut"
	// FeatureTypeFbank identifies log-mel filterbank features.
	FeatureTypeFbank = "kaldi-fbank"
	// StorageTypeChunkedZstd identifies chunked, zstd-compressed archives.
	StorageTypeChunkedZstd = "chunked_zstd_archive"
	// PerturbationSpeed is the provenance kind of speed-perturbed cuts.
	PerturbationSpeed = "speed"
)

// AudioSource points at the bytes backing a recording.
type AudioSource struct {
	Type     string `json:"type"`
	Channels []int  `json:"channels"`
	Source   string `json:"source"`
}

// Transform is an audio transform applied when a recording is loaded.
type Transform struct {
	Name   string  `json:"name"`
	Factor float64 `json:"factor,omitempty"`
}

// Recording describes one audio asset.
type Recording struct {
	ID           string        `json:"id"`
	Sources      []AudioSource `json:"sources"`
	SamplingRate int           `json:"sampling_rate"`
	NumSamples   int64         `json:"num_samples"`
	Duration     float64       `json:"duration"`
	ChannelIDs   []int         `json:"channel_ids"`
	Transforms   []Transform   `json:"transforms,omitempty"`
}

// Path returns the first file source, or "" when the recording has none.
func (r Recording) Path() string {
	for _, src := range r.Sources {
		if src.Type == "file" {
			return src.Source
		}
	}
	return ""
}

// SpeedFactor returns the product of every speed transform, or 1.
func (r Recording) SpeedFactor() float64 {
	factor := 1.0
	for _, tr := range r.Transforms {
		if tr.Name == PerturbationSpeed && tr.Factor > 0 {
			factor *= tr.Factor
		}
	}
	return factor
}

// Supervision is a labeled time span within a recording.
type Supervision struct {
	ID          string            `json:"id"`
	RecordingID string            `json:"recording_id"`
	Start       float64           `json:"start"`
	Duration    float64           `json:"duration"`
	Channel     int               `json:"channel"`
	Text        string            `json:"text"`
	Language    string            `json:"language,omitempty"`
	Speaker     string            `json:"speaker,omitempty"`
	Gender      string            `json:"gender,omitempty"`
	Custom      map[string]string `json:"custom,omitempty"`
}

// End returns start + duration.
func (s Supervision) End() float64 {
	return s.Start + s.Duration
}

// Features references a feature matrix stored elsewhere.
type Features struct {
	Type         string  `json:"type"`
	NumFrames    int     `json:"num_frames"`
	NumFeatures  int     `json:"num_features"`
	FrameShift   float64 `json:"frame_shift"`
	SamplingRate int     `json:"sampling_rate"`
	Start        float64 `json:"start"`
	Duration     float64 `json:"duration"`
	StorageType  string  `json:"storage_type"`
	StoragePath  string  `json:"storage_path"`
	StorageKey   string  `json:"storage_key"`
	RecordingID  string  `json:"recording_id"`
	Channels     int     `json:"channels"`
}

// Perturbation records how a cut was derived from its source.
type Perturbation struct {
	Kind     string  `json:"kind"`
	Factor   float64 `json:"factor"`
	SourceID string  `json:"source_id"`
}

// Cut is the unit of training data: one recording span with its
// supervisions and, after extraction, its features.
type Cut struct {
	ID           string            `json:"id"`
	Type         string            `json:"type"`
	Start        float64           `json:"start"`
	Duration     float64           `json:"duration"`
	Channel      int               `json:"channel"`
	Supervisions []Supervision     `json:"supervisions"`
	Recording    *Recording        `json:"recording,omitempty"`
	Features     *Features         `json:"features,omitempty"`
	Perturbation *Perturbation     `json:"perturbation,omitempty"`
	Custom       map[string]string `json:"custom,omitempty"`
}

// RecordingID returns the id of the backing recording.
func (c Cut) RecordingID() string {
	if c.Recording != nil {
		return c.Recording.ID
	}
	if len(c.Supervisions) > 0 {
		return c.Supervisions[0].RecordingID
	}
	return ""
}

// HasFeatures reports whether a feature reference is attached.
func (c Cut) HasFeatures() bool {
	return c.Features != nil
}

// SpeedSuffix returns the id suffix used for a speed-perturbed copy.
func SpeedSuffix(factor float64) string {
	return "_sp" + FormatFactor(factor)
}

// FormatFactor renders a factor with the fewest digits that round-trip,
// keeping at least one decimal ("1.0", "0.9", "1.25").
func FormatFactor(factor float64) string {
	s := strconv.FormatFloat(factor, 'f', -1, 64)
	if factor == math.Trunc(factor) {
		s += ".0"
	}
	return s
}

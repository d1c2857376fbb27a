package corpus

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// MetaFileName is the per-speaker metadata file inside <root>/data.
const MetaFileName = "audioMNIST_meta.txt"

// SpeakerMeta holds the recorded attributes of one speaker.
type SpeakerMeta struct {
	Accent        string `json:"accent"`
	Age           string `json:"age"`
	Gender        string `json:"gender"`
	NativeSpeaker string `json:"native speaker"`
	Origin        string `json:"origin"`
	RecordingDate string `json:"recordingdate"`
	RecordingRoom string `json:"recordingroom"`
}

// LoadSpeakerMeta reads the metadata file. A missing file yields an empty
// map and no error.
func LoadSpeakerMeta(root string) (map[string]SpeakerMeta, error) {
	path := filepath.Join(root, "data", MetaFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]SpeakerMeta{}, nil
		}
		return nil, fmt.Errorf("read speaker metadata: %w", err)
	}
	raw := map[string]map[string]any{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse speaker metadata: %w", err)
	}
	out := make(map[string]SpeakerMeta, len(raw))
	for speaker, fields := range raw {
		out[speaker] = SpeakerMeta{
			Accent:        field(fields, "accent"),
			Age:           field(fields, "age"),
			Gender:        normalizeGender(field(fields, "gender")),
			NativeSpeaker: field(fields, "native speaker"),
			Origin:        field(fields, "origin"),
			RecordingDate: field(fields, "recordingdate"),
			RecordingRoom: field(fields, "recordingroom"),
		}
	}
	return out, nil
}

// Custom returns the attributes carried on supervisions besides gender.
func (m SpeakerMeta) Custom() map[string]string {
	out := map[string]string{}
	for key, value := range map[string]string{
		"accent":         m.Accent,
		"age":            m.Age,
		"native_speaker": m.NativeSpeaker,
	} {
		if value != "" {
			out[key] = value
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func field(fields map[string]any, key string) string {
	switch v := fields[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strings.TrimSuffix(fmt.Sprintf("%g", v), ".0")
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func normalizeGender(v string) string {
	switch strings.ToLower(v) {
	case "male", "m":
		return "m"
	case "female", "f":
		return "f"
	default:
		return strings.ToLower(v)
	}
}

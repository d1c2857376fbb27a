package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned for extensions without a decoder.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Info is the header-level description of an audio file.
type Info struct {
	SampleRate int
	NumSamples int64
	Channels   int
	BitDepth   int
	Format     string
}

// Duration returns the length in seconds.
func (i Info) Duration() float64 {
	if i.SampleRate <= 0 {
		return 0
	}
	return float64(i.NumSamples) / float64(i.SampleRate)
}

// Signal is decoded mono audio normalized to [-1, 1).
type Signal struct {
	SampleRate int
	Samples    []float64
}

// Duration returns the length in seconds.
func (s Signal) Duration() float64 {
	if s.SampleRate <= 0 {
		return 0
	}
	return float64(len(s.Samples)) / float64(s.SampleRate)
}

// Probe reads only the header of path.
func Probe(path string) (Info, error) {
	file, err := os.Open(path)
	if err != nil {
		return Info{}, err
	}
	defer file.Close()

	switch formatOf(path) {
	case "wav":
		return probeWAV(file)
	case "flac":
		return probeFLAC(file)
	default:
		return Info{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Load decodes channel 0 of path.
func Load(path string) (Signal, error) {
	file, err := os.Open(path)
	if err != nil {
		return Signal{}, err
	}
	defer file.Close()

	switch formatOf(path) {
	case "wav":
		return decodeWAV(file)
	case "flac":
		return decodeFLAC(file)
	default:
		return Signal{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Supported reports whether path has a decodable extension.
func Supported(path string) bool {
	return formatOf(path) != ""
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return "wav"
	case ".flac":
		return "flac"
	default:
		return ""
	}
}

func sampleDivisor(bitDepth int) (float64, error) {
	switch bitDepth {
	case 8, 16, 24, 32:
		return float64(int64(1) << (bitDepth - 1)), nil
	default:
		return 0, fmt.Errorf("unsupported bit depth: %d", bitDepth)
	}
}

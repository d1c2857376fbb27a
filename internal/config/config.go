package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the default directories used by the commands.
type Paths struct {
	CorpusDir   string `toml:"corpus_dir"`
	ManifestDir string `toml:"manifest_dir"`
	FbankDir    string `toml:"fbank_dir"`
	LogDir      string `toml:"log_dir"`
}

// Corpus contains configuration for corpus scanning and manifest naming.
type Corpus struct {
	Prefix         string   `toml:"prefix"`
	Suffix         string   `toml:"suffix"`
	TranscriptCase string   `toml:"transcript_case"`
	Extensions     []string `toml:"extensions"`
	Language       string   `toml:"language"`
	// SpanTolerance is the slack in seconds allowed when checking that a
	// supervision fits inside its recording.
	SpanTolerance float64 `toml:"span_tolerance"`
}

// Split contains configuration for the positional train/test split.
type Split struct {
	Enabled bool    `toml:"enabled"`
	Ratio   float64 `toml:"ratio"`
	// OrderKey names the deterministic sort key applied before splitting.
	OrderKey string `toml:"order_key"`
}

// Features contains fbank extraction and storage parameters.
type Features struct {
	NumMelBins     int     `toml:"num_mel_bins"`
	FrameLengthMs  float64 `toml:"frame_length_ms"`
	FrameShiftMs   float64 `toml:"frame_shift_ms"`
	Preemphasis    float64 `toml:"preemphasis"`
	LowFreq        float64 `toml:"low_freq"`
	HighFreq       float64 `toml:"high_freq"`
	EnergyFloor    float64 `toml:"energy_floor"`
	RemoveDCOffset bool    `toml:"remove_dc_offset"`
	Window         string  `toml:"window"`
	ChunkFrames    int     `toml:"chunk_frames"`
}

// Perturb contains speed perturbation settings for train partitions.
type Perturb struct {
	Speed   bool      `toml:"speed"`
	Factors []float64 `toml:"factors"`
}

// Executor contains worker pool sizing.
type Executor struct {
	// Kind selects the execution backend: "local", "inline", or "process".
	Kind         string `toml:"kind"`
	NumJobs      int    `toml:"num_jobs"`
	ExternalJobs int    `toml:"external_jobs"`
	MaxProcesses int    `toml:"max_processes"`
}

// Cache contains the manifest cache backend selection.
type Cache struct {
	Backend    string `toml:"backend"`
	SQLitePath string `toml:"sqlite_path"`
}

// Preflight contains checks run before expensive work starts.
type Preflight struct {
	MinFreeGiB float64 `toml:"min_free_gib"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for asrprep.
//
// Configuration sections by subsystem:
//   - Paths: corpus, manifest, fbank, and log directories
//   - Corpus: manifest prefix/suffix and transcript normalization
//   - Split: positional train/test split
//   - Features: fbank parameters and archive chunking
//   - Perturb: speed perturbation of train partitions
//   - Executor: worker pool kind and sizing
//   - Cache: where manifests are looked up and committed
//   - Preflight: free-space floor
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Corpus    Corpus    `toml:"corpus"`
	Split     Split     `toml:"split"`
	Features  Features  `toml:"features"`
	Perturb   Perturb   `toml:"perturb"`
	Executor  Executor  `toml:"executor"`
	Cache     Cache     `toml:"cache"`
	Preflight Preflight `toml:"preflight"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/asrprep/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// Finalize normalizes and validates a config that was built or mutated in
// code, such as after CLI flag overrides.
func (c *Config) Finalize() error {
	if err := c.normalize(); err != nil {
		return err
	}
	return c.Validate()
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("asrprep.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}

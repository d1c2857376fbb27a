package pipeline

import (
	"fmt"
	"strings"

	"asrprep/internal/config"
	"asrprep/internal/fbank"
	"asrprep/internal/manifest"
	"asrprep/internal/prep"
)

// LockName is the lock file taken in the output directory during a run.
const LockName = ".asrprep.lock"

// Options are the per-run arguments of the fbank command.
type Options struct {
	SrcDir       string
	OutputDir    string
	PerturbSpeed bool
	NumMelBins   int
	NumJobs      int
}

func (o Options) validate() error {
	if strings.TrimSpace(o.SrcDir) == "" {
		return prep.Wrap(prep.ErrConfiguration, "pipeline", "validate", "source directory is required", nil)
	}
	if strings.TrimSpace(o.OutputDir) == "" {
		return prep.Wrap(prep.ErrConfiguration, "pipeline", "validate", "output directory is required", nil)
	}
	if o.NumMelBins <= 0 {
		return prep.Wrap(prep.ErrConfiguration, "pipeline", "validate", fmt.Sprintf("num mel bins must be positive (got %d)", o.NumMelBins), nil)
	}
	if o.NumJobs <= 0 {
		return prep.Wrap(prep.ErrConfiguration, "pipeline", "validate", fmt.Sprintf("num jobs must be positive (got %d)", o.NumJobs), nil)
	}
	return nil
}

// Settings are the configuration-derived parameters shared by every run.
type Settings struct {
	Naming         manifest.Naming
	Cache          config.Cache
	Features       fbank.Options
	ChunkFrames    int
	PerturbFactors []float64
	ExternalJobs   int
}

// SettingsFromConfig maps cfg onto pipeline settings.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		Naming:         manifest.Naming{Prefix: cfg.Corpus.Prefix, Suffix: cfg.Corpus.Suffix},
		Cache:          cfg.Cache,
		Features:       fbank.OptionsFromConfig(cfg.Features),
		ChunkFrames:    cfg.Features.ChunkFrames,
		PerturbFactors: append([]float64(nil), cfg.Perturb.Factors...),
		ExternalJobs:   cfg.Executor.ExternalJobs,
	}
}

// OptionsFromConfig returns run options populated from cfg defaults.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		SrcDir:       cfg.Paths.ManifestDir,
		OutputDir:    cfg.Paths.FbankDir,
		PerturbSpeed: cfg.Perturb.Speed,
		NumMelBins:   cfg.Features.NumMelBins,
		NumJobs:      cfg.Executor.NumJobs,
	}
}

package testsupport

import (
	"path/filepath"
	"testing"

	"asrprep/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Extraction runs inline with small chunks so tests stay fast.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.CorpusDir = filepath.Join(base, "corpus")
	cfgVal.Paths.ManifestDir = filepath.Join(base, "manifests")
	cfgVal.Paths.FbankDir = filepath.Join(base, "fbank")
	cfgVal.Paths.LogDir = ""
	cfgVal.Executor.Kind = "inline"
	cfgVal.Executor.NumJobs = 2
	cfgVal.Features.NumMelBins = 23
	cfgVal.Features.ChunkFrames = 16
	cfgVal.Preflight.MinFreeGiB = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.Finalize(); err != nil {
		t.Fatalf("finalize test config: %v", err)
	}
	return builder.cfg
}

// WithExecutor selects the executor kind and job count.
func WithExecutor(kind string, jobs int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Executor.Kind = kind
		b.cfg.Executor.NumJobs = jobs
	}
}

// WithCacheBackend selects the manifest cache backend.
func WithCacheBackend(backend string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cache.Backend = backend
	}
}

// WithPerturbSpeed toggles speed perturbation.
func WithPerturbSpeed(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Perturb.Speed = enabled
	}
}

// WithLogDir enables the JSON log file under the test base directory.
func WithLogDir() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.LogDir = filepath.Join(b.baseDir, "logs")
	}
}

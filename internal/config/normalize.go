package config

import (
	"fmt"
	"slices"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCorpus()
	c.normalizeSplit()
	c.normalizeFeatures()
	c.normalizePerturb()
	c.normalizeExecutor()
	if err := c.normalizeCache(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.CorpusDir, err = expandPath(strings.TrimSpace(c.Paths.CorpusDir)); err != nil {
		return fmt.Errorf("paths.corpus_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ManifestDir) == "" {
		c.Paths.ManifestDir = defaultManifestDir
	}
	if c.Paths.ManifestDir, err = expandPath(strings.TrimSpace(c.Paths.ManifestDir)); err != nil {
		return fmt.Errorf("paths.manifest_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.FbankDir) == "" {
		c.Paths.FbankDir = defaultFbankDir
	}
	if c.Paths.FbankDir, err = expandPath(strings.TrimSpace(c.Paths.FbankDir)); err != nil {
		return fmt.Errorf("paths.fbank_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCorpus() {
	c.Corpus.Prefix = strings.TrimSpace(c.Corpus.Prefix)
	if c.Corpus.Prefix == "" {
		c.Corpus.Prefix = defaultPrefix
	}
	c.Corpus.Suffix = strings.TrimPrefix(strings.TrimSpace(c.Corpus.Suffix), ".")
	if c.Corpus.Suffix == "" {
		c.Corpus.Suffix = defaultSuffix
	}
	c.Corpus.TranscriptCase = strings.ToLower(strings.TrimSpace(c.Corpus.TranscriptCase))
	if c.Corpus.TranscriptCase == "" {
		c.Corpus.TranscriptCase = defaultTranscriptCase
	}
	exts := make([]string, 0, len(c.Corpus.Extensions))
	for _, ext := range c.Corpus.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if !slices.Contains(exts, ext) {
			exts = append(exts, ext)
		}
	}
	if len(exts) == 0 {
		exts = append(exts, defaultExtensions...)
	}
	c.Corpus.Extensions = exts
	if strings.TrimSpace(c.Corpus.Language) == "" {
		c.Corpus.Language = defaultLanguage
	}
	if c.Corpus.SpanTolerance < 0 {
		c.Corpus.SpanTolerance = 0
	}
}

func (c *Config) normalizeSplit() {
	if c.Split.Ratio == 0 {
		c.Split.Ratio = defaultSplitRatio
	}
	c.Split.OrderKey = strings.ToLower(strings.TrimSpace(c.Split.OrderKey))
	if c.Split.OrderKey == "" {
		c.Split.OrderKey = defaultSplitOrderKey
	}
}

func (c *Config) normalizeFeatures() {
	if c.Features.NumMelBins == 0 {
		c.Features.NumMelBins = defaultNumMelBins
	}
	if c.Features.FrameLengthMs == 0 {
		c.Features.FrameLengthMs = defaultFrameLengthMs
	}
	if c.Features.FrameShiftMs == 0 {
		c.Features.FrameShiftMs = defaultFrameShiftMs
	}
	if c.Features.EnergyFloor <= 0 {
		c.Features.EnergyFloor = defaultEnergyFloor
	}
	c.Features.Window = strings.ToLower(strings.TrimSpace(c.Features.Window))
	if c.Features.Window == "" {
		c.Features.Window = defaultWindow
	}
	if c.Features.ChunkFrames <= 0 {
		c.Features.ChunkFrames = defaultChunkFrames
	}
}

func (c *Config) normalizePerturb() {
	factors := make([]float64, 0, len(c.Perturb.Factors))
	for _, f := range c.Perturb.Factors {
		if f == 1 || slices.Contains(factors, f) {
			continue
		}
		factors = append(factors, f)
	}
	c.Perturb.Factors = factors
}

func (c *Config) normalizeExecutor() {
	c.Executor.Kind = strings.ToLower(strings.TrimSpace(c.Executor.Kind))
	if c.Executor.Kind == "" {
		c.Executor.Kind = defaultExecutorKind
	}
	if c.Executor.NumJobs == 0 {
		c.Executor.NumJobs = defaultNumJobs
	}
	if c.Executor.ExternalJobs == 0 {
		c.Executor.ExternalJobs = defaultExternalJobs
	}
	if c.Executor.MaxProcesses < 0 {
		c.Executor.MaxProcesses = 0
	}
}

func (c *Config) normalizeCache() error {
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	if c.Cache.Backend == "" {
		c.Cache.Backend = defaultCacheBackend
	}
	var err error
	if c.Cache.SQLitePath, err = expandPath(strings.TrimSpace(c.Cache.SQLitePath)); err != nil {
		return fmt.Errorf("cache.sqlite_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

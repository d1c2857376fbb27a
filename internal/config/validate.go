package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCorpus(); err != nil {
		return err
	}
	if err := c.validateSplit(); err != nil {
		return err
	}
	if err := c.validateFeatures(); err != nil {
		return err
	}
	if err := c.validatePerturb(); err != nil {
		return err
	}
	if err := c.validateExecutor(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if c.Preflight.MinFreeGiB < 0 {
		return errors.New("preflight.min_free_gib must be >= 0")
	}
	return nil
}

func (c *Config) validateCorpus() error {
	switch c.Corpus.TranscriptCase {
	case "upper", "lower", "digit":
	default:
		return fmt.Errorf("corpus.transcript_case must be one of upper, lower, digit (got %q)", c.Corpus.TranscriptCase)
	}
	if strings.ContainsAny(c.Corpus.Prefix, `/\`) {
		return errors.New("corpus.prefix must not contain path separators")
	}
	return nil
}

func (c *Config) validateSplit() error {
	if c.Split.Ratio <= 0 || c.Split.Ratio >= 1 {
		return errors.New("split.ratio must be between 0 and 1 (exclusive)")
	}
	switch c.Split.OrderKey {
	case "id", "recording_id":
	default:
		return fmt.Errorf("split.order_key must be id or recording_id (got %q)", c.Split.OrderKey)
	}
	return nil
}

func (c *Config) validateFeatures() error {
	f := c.Features
	if f.NumMelBins <= 0 || f.NumMelBins > maxSupportedMelBins {
		return fmt.Errorf("features.num_mel_bins must be between 1 and %d", maxSupportedMelBins)
	}
	if f.FrameLengthMs < minSupportedFrameLength {
		return errors.New("features.frame_length_ms must be at least 1")
	}
	if f.FrameShiftMs <= 0 || f.FrameShiftMs > f.FrameLengthMs {
		return errors.New("features.frame_shift_ms must be positive and no larger than frame_length_ms")
	}
	if f.Preemphasis < 0 || f.Preemphasis >= 1 {
		return errors.New("features.preemphasis must be in [0, 1)")
	}
	if f.LowFreq < 0 {
		return errors.New("features.low_freq must be >= 0")
	}
	if f.HighFreq > 0 && f.HighFreq <= f.LowFreq {
		return errors.New("features.high_freq must be 0 (nyquist), negative (offset from nyquist), or above low_freq")
	}
	switch f.Window {
	case "povey", "hann", "hamming", "rectangular":
	default:
		return fmt.Errorf("features.window: unsupported value %q", f.Window)
	}
	return nil
}

func (c *Config) validatePerturb() error {
	for _, factor := range c.Perturb.Factors {
		if factor <= 0 || factor > 2 {
			return fmt.Errorf("perturb.factors: %v must be in (0, 2]", factor)
		}
	}
	return nil
}

func (c *Config) validateExecutor() error {
	switch c.Executor.Kind {
	case "local", "inline", "process":
	default:
		return fmt.Errorf("executor.kind must be local, inline, or process (got %q)", c.Executor.Kind)
	}
	if c.Executor.NumJobs < 1 {
		return errors.New("executor.num_jobs must be positive")
	}
	if c.Executor.ExternalJobs < 1 {
		return errors.New("executor.external_jobs must be positive")
	}
	return nil
}

func (c *Config) validateCache() error {
	switch c.Cache.Backend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("cache.backend must be file or sqlite (got %q)", c.Cache.Backend)
	}
	return nil
}

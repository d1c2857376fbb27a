package config

const (
	defaultCorpusDir        = "data/AudioMNIST"
	defaultManifestDir      = "data/manifests"
	defaultFbankDir         = "data/fbank"
	defaultPrefix           = "audio_mnist"
	defaultSuffix           = "jsonl.gz"
	defaultTranscriptCase   = "upper"
	defaultLanguage         = "English"
	defaultSpanTolerance    = 1e-3
	defaultSplitRatio       = 0.8
	defaultSplitOrderKey    = "id"
	defaultNumMelBins       = 80
	defaultFrameLengthMs    = 25.0
	defaultFrameShiftMs     = 10.0
	defaultPreemphasis      = 0.97
	defaultLowFreq          = 20.0
	defaultEnergyFloor      = 1e-10
	defaultWindow           = "povey"
	defaultChunkFrames      = 100
	defaultExecutorKind     = "local"
	defaultNumJobs          = 15
	defaultExternalJobs     = 80
	defaultCacheBackend     = "file"
	defaultMinFreeGiB       = 1.0
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultPerturbSpeed     = true
	defaultRemoveDCOffset   = true
	maxSupportedMelBins     = 256
	minSupportedFrameLength = 1.0
)

var defaultPerturbFactors = []float64{0.9, 1.1}

var defaultExtensions = []string{".wav", ".flac"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			CorpusDir:   defaultCorpusDir,
			ManifestDir: defaultManifestDir,
			FbankDir:    defaultFbankDir,
		},
		Corpus: Corpus{
			Prefix:         defaultPrefix,
			Suffix:         defaultSuffix,
			TranscriptCase: defaultTranscriptCase,
			Extensions:     append([]string(nil), defaultExtensions...),
			Language:       defaultLanguage,
			SpanTolerance:  defaultSpanTolerance,
		},
		Split: Split{
			Ratio:    defaultSplitRatio,
			OrderKey: defaultSplitOrderKey,
		},
		Features: Features{
			NumMelBins:     defaultNumMelBins,
			FrameLengthMs:  defaultFrameLengthMs,
			FrameShiftMs:   defaultFrameShiftMs,
			Preemphasis:    defaultPreemphasis,
			LowFreq:        defaultLowFreq,
			EnergyFloor:    defaultEnergyFloor,
			RemoveDCOffset: defaultRemoveDCOffset,
			Window:         defaultWindow,
			ChunkFrames:    defaultChunkFrames,
		},
		Perturb: Perturb{
			Speed:   defaultPerturbSpeed,
			Factors: append([]float64(nil), defaultPerturbFactors...),
		},
		Executor: Executor{
			Kind:         defaultExecutorKind,
			NumJobs:      defaultNumJobs,
			ExternalJobs: defaultExternalJobs,
		},
		Cache: Cache{
			Backend: defaultCacheBackend,
		},
		Preflight: Preflight{
			MinFreeGiB: defaultMinFreeGiB,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

package fbank

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"asrprep/internal/config"
)

// ErrTooShort is returned when a signal yields no frames.
var ErrTooShort = errors.New("signal shorter than one frame shift")

// Options are the extraction parameters.
type Options struct {
	NumMelBins     int
	FrameLengthMs  float64
	FrameShiftMs   float64
	Preemphasis    float64
	LowFreq        float64
	HighFreq       float64
	EnergyFloor    float64
	RemoveDCOffset bool
	Window         string
}

// OptionsFromConfig copies the feature section of cfg.
func OptionsFromConfig(f config.Features) Options {
	return Options{
		NumMelBins:     f.NumMelBins,
		FrameLengthMs:  f.FrameLengthMs,
		FrameShiftMs:   f.FrameShiftMs,
		Preemphasis:    f.Preemphasis,
		LowFreq:        f.LowFreq,
		HighFreq:       f.HighFreq,
		EnergyFloor:    f.EnergyFloor,
		RemoveDCOffset: f.RemoveDCOffset,
		Window:         f.Window,
	}
}

// Matrix is a frames x bins feature matrix stored row-major.
type Matrix struct {
	NumFrames   int
	NumFeatures int
	Data        []float32
}

// Row returns frame i.
func (m Matrix) Row(i int) []float32 {
	return m.Data[i*m.NumFeatures : (i+1)*m.NumFeatures]
}

// Extractor computes features for one sample rate at a time. It caches the
// window, FFT plan, and mel bank, so a single Extractor must not be shared
// between goroutines.
type Extractor struct {
	opts Options

	sampleRate int
	windowSize int
	shift      int
	padded     int
	window     []float64
	bank       [][]melWeight
	fft        *fourier.FFT
	frame      []float64
}

type melWeight struct {
	bin    int
	weight float64
}

// NewExtractor validates opts.
func NewExtractor(opts Options) (*Extractor, error) {
	if opts.NumMelBins <= 0 {
		return nil, fmt.Errorf("num mel bins must be positive (got %d)", opts.NumMelBins)
	}
	if opts.FrameLengthMs <= 0 || opts.FrameShiftMs <= 0 {
		return nil, fmt.Errorf("frame length and shift must be positive")
	}
	if opts.EnergyFloor <= 0 {
		opts.EnergyFloor = math.SmallestNonzeroFloat32
	}
	return &Extractor{opts: opts}, nil
}

// Options returns the extraction parameters.
func (e *Extractor) Options() Options {
	return e.opts
}

// FrameShift returns the frame shift in seconds.
func (e *Extractor) FrameShift() float64 {
	return e.opts.FrameShiftMs / 1000
}

// NumFrames returns the frame count for numSamples at sampleRate.
func (e *Extractor) NumFrames(numSamples int64, sampleRate int) int {
	shift := int64(math.Round(float64(sampleRate) * e.opts.FrameShiftMs / 1000))
	if shift <= 0 {
		return 0
	}
	return int((numSamples + shift/2) / shift)
}

// Compute returns the log-mel features of samples.
func (e *Extractor) Compute(samples []float64, sampleRate int) (Matrix, error) {
	if sampleRate <= 0 {
		return Matrix{}, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	if err := e.prepare(sampleRate); err != nil {
		return Matrix{}, err
	}
	numFrames := e.NumFrames(int64(len(samples)), sampleRate)
	if numFrames == 0 || len(samples) == 0 {
		return Matrix{}, ErrTooShort
	}

	bins := e.opts.NumMelBins
	out := Matrix{NumFrames: numFrames, NumFeatures: bins, Data: make([]float32, numFrames*bins)}
	logFloor := math.Log(e.opts.EnergyFloor)
	for i := 0; i < numFrames; i++ {
		e.fillFrame(samples, i)
		coeffs := e.fft.Coefficients(nil, e.frame)
		row := out.Row(i)
		for b, weights := range e.bank {
			var energy float64
			for _, w := range weights {
				c := coeffs[w.bin]
				energy += w.weight * (real(c)*real(c) + imag(c)*imag(c))
			}
			if energy < e.opts.EnergyFloor {
				row[b] = float32(logFloor)
			} else {
				row[b] = float32(math.Log(energy))
			}
		}
	}
	return out, nil
}

func (e *Extractor) prepare(sampleRate int) error {
	if e.sampleRate == sampleRate {
		return nil
	}
	windowSize := int(math.Round(float64(sampleRate) * e.opts.FrameLengthMs / 1000))
	shift := int(math.Round(float64(sampleRate) * e.opts.FrameShiftMs / 1000))
	if windowSize < 2 || shift < 1 {
		return fmt.Errorf("sample rate %d too low for %.1f ms frames", sampleRate, e.opts.FrameLengthMs)
	}
	padded := 1
	for padded < windowSize {
		padded <<= 1
	}
	bank, err := melBank(e.opts, sampleRate, padded)
	if err != nil {
		return err
	}
	e.sampleRate = sampleRate
	e.windowSize = windowSize
	e.shift = shift
	e.padded = padded
	e.window = windowFunction(e.opts.Window, windowSize)
	e.bank = bank
	e.fft = fourier.NewFFT(padded)
	e.frame = make([]float64, padded)
	return nil
}

// fillFrame extracts frame i, centered at i*shift + shift/2, into e.frame
// and applies DC removal, pre-emphasis, and the window.
func (e *Extractor) fillFrame(samples []float64, i int) {
	start := i*e.shift + e.shift/2 - e.windowSize/2
	n := len(samples)
	frame := e.frame
	for k := 0; k < e.windowSize; k++ {
		frame[k] = samples[reflect(start+k, n)]
	}
	for k := e.windowSize; k < e.padded; k++ {
		frame[k] = 0
	}
	w := frame[:e.windowSize]

	if e.opts.RemoveDCOffset {
		var mean float64
		for _, v := range w {
			mean += v
		}
		mean /= float64(len(w))
		for k := range w {
			w[k] -= mean
		}
	}
	if coeff := e.opts.Preemphasis; coeff != 0 {
		for k := len(w) - 1; k > 0; k-- {
			w[k] -= coeff * w[k-1]
		}
		w[0] -= coeff * w[0]
	}
	for k := range w {
		w[k] *= e.window[k]
	}
}

func reflect(idx, n int) int {
	if n == 1 {
		return 0
	}
	for idx < 0 || idx >= n {
		if idx < 0 {
			idx = -idx - 1
		} else {
			idx = 2*n - 1 - idx
		}
	}
	return idx
}

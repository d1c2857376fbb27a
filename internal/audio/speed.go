package audio

import (
	"math"

	"gonum.org/v1/gonum/dsp/window"
)

// lowPassTaps is the length of the anti-alias filter applied before speeding
// up. Odd so the kernel is centred on a sample.
const lowPassTaps = 129

// lowPassMargin keeps the filter cutoff below the new Nyquist frequency so
// the transition band ends before it.
const lowPassMargin = 0.9

// PerturbedLength returns the sample count after changing speed by factor.
func PerturbedLength(numSamples int64, factor float64) int64 {
	if factor <= 0 || factor == 1 {
		return numSamples
	}
	return int64(math.Round(float64(numSamples) / factor))
}

// Speed resamples s so it plays factor times faster at the same sample rate.
// Pitch shifts with tempo. Speeding up first band-limits the signal to the
// Nyquist frequency divided by factor; samples are then linearly
// interpolated.
func Speed(s Signal, factor float64) Signal {
	if factor <= 0 || factor == 1 || len(s.Samples) == 0 {
		return s
	}
	src := s.Samples
	if factor > 1 {
		src = LowPass(src, lowPassMargin*0.5/factor)
	}
	n := int(PerturbedLength(int64(len(src)), factor))
	out := make([]float64, n)
	last := len(src) - 1
	for i := range out {
		pos := float64(i) * factor
		lo := int(pos)
		if lo >= last {
			out[i] = src[last]
			continue
		}
		frac := pos - float64(lo)
		out[i] = src[lo]*(1-frac) + src[lo+1]*frac
	}
	return Signal{SampleRate: s.SampleRate, Samples: out}
}

// LowPass filters samples with a Blackman-windowed sinc kernel. cutoff is in
// cycles per sample and must lie in (0, 0.5). Edges repeat the first and last
// sample.
func LowPass(samples []float64, cutoff float64) []float64 {
	if cutoff <= 0 || cutoff >= 0.5 || len(samples) == 0 {
		return samples
	}
	kernel := lowPassKernel(cutoff, lowPassTaps)
	half := len(kernel) / 2
	last := len(samples) - 1
	out := make([]float64, len(samples))
	for i := range samples {
		var acc float64
		for k, w := range kernel {
			j := min(max(i+k-half, 0), last)
			acc += w * samples[j]
		}
		out[i] = acc
	}
	return out
}

func lowPassKernel(cutoff float64, taps int) []float64 {
	kernel := make([]float64, taps)
	mid := taps / 2
	for i := range kernel {
		x := float64(i - mid)
		if x == 0 {
			kernel[i] = 2 * cutoff
			continue
		}
		kernel[i] = math.Sin(2*math.Pi*cutoff*x) / (math.Pi * x)
	}
	window.Blackman(kernel)
	var sum float64
	for _, w := range kernel {
		sum += w
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

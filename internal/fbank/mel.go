package fbank

import (
	"fmt"
	"math"
)

func melScale(hz float64) float64 {
	return 1127 * math.Log(1+hz/700)
}

// melBank builds triangular filters over the first padded/2 FFT bins.
func melBank(opts Options, sampleRate, padded int) ([][]melWeight, error) {
	nyquist := float64(sampleRate) / 2
	low := opts.LowFreq
	high := opts.HighFreq
	if high <= 0 {
		high += nyquist
	}
	if low < 0 || low >= nyquist || high <= low || high > nyquist {
		return nil, fmt.Errorf("invalid mel range [%.1f, %.1f] for sample rate %d", low, high, sampleRate)
	}

	numBins := opts.NumMelBins
	numFFTBins := padded / 2
	binWidth := float64(sampleRate) / float64(padded)
	melLow := melScale(low)
	melHigh := melScale(high)
	delta := (melHigh - melLow) / float64(numBins+1)

	bank := make([][]melWeight, numBins)
	for b := 0; b < numBins; b++ {
		left := melLow + float64(b)*delta
		center := left + delta
		right := center + delta
		for i := 0; i < numFFTBins; i++ {
			mel := melScale(binWidth * float64(i))
			if mel <= left || mel >= right {
				continue
			}
			var weight float64
			if mel <= center {
				weight = (mel - left) / (center - left)
			} else {
				weight = (right - mel) / (right - center)
			}
			bank[b] = append(bank[b], melWeight{bin: i, weight: weight})
		}
	}
	return bank, nil
}

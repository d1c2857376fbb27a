package fbank

import "math"

func windowFunction(kind string, n int) []float64 {
	w := make([]float64, n)
	a := 2 * math.Pi / float64(n-1)
	for i := range w {
		x := float64(i)
		switch kind {
		case "hann":
			w[i] = 0.5 - 0.5*math.Cos(a*x)
		case "hamming":
			w[i] = 0.54 - 0.46*math.Cos(a*x)
		case "rectangular":
			w[i] = 1
		default:
			w[i] = math.Pow(0.5-0.5*math.Cos(a*x), 0.85)
		}
	}
	return w
}

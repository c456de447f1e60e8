// Package biquad implements the second order IIR filter sections used by
// the percussion synthesizer. Coefficients follow the Audio EQ Cookbook
// (Robert Bristow-Johnson) formulas.
package biquad

import "math"

// ButterworthQ is the Q of a maximally flat second order section.
const ButterworthQ = 0.7071067811865476

// Filter is a direct form 1 biquad. Construct one with Lowpass, Highpass or
// Bandpass; it cannot be retuned afterwards.
type Filter struct {
	b0, b1, b2 float64
	a1, a2     float64

	x1, x2 float64
	y1, y2 float64
}

func Lowpass(sampleRate int, cutoff, q float64) *Filter {
	cosw0, alpha := coeffs(sampleRate, cutoff, q)
	b1 := 1 - cosw0
	return newFilter(b1/2, b1, b1/2, 1+alpha, -2*cosw0, 1-alpha)
}

func Highpass(sampleRate int, cutoff, q float64) *Filter {
	cosw0, alpha := coeffs(sampleRate, cutoff, q)
	b1 := 1 + cosw0
	return newFilter(b1/2, -b1, b1/2, 1+alpha, -2*cosw0, 1-alpha)
}

// Bandpass is the constant 0 dB peak gain variant.
func Bandpass(sampleRate int, center, q float64) *Filter {
	cosw0, alpha := coeffs(sampleRate, center, q)
	return newFilter(alpha, 0, -alpha, 1+alpha, -2*cosw0, 1-alpha)
}

func coeffs(sampleRate int, freq, q float64) (cosw0, alpha float64) {
	w0 := 2 * math.Pi * freq / float64(sampleRate)
	return math.Cos(w0), math.Sin(w0) / (2 * q)
}

func newFilter(b0, b1, b2, a0, a1, a2 float64) *Filter {
	return &Filter{
		b0: b0 / a0, b1: b1 / a0, b2: b2 / a0,
		a1: a1 / a0, a2: a2 / a0,
	}
}

// Process runs one sample through the filter.
func (f *Filter) Process(x float64) float64 {
	y := f.b0*x + f.b1*f.x1 + f.b2*f.x2 - f.a1*f.y1 - f.a2*f.y2
	f.x2, f.x1 = f.x1, x
	f.y2, f.y1 = f.y1, y
	return y
}

// Reset clears the filter history without touching the coefficients.
func (f *Filter) Reset() {
	f.x1, f.x2 = 0, 0
	f.y1, f.y2 = 0, 0
}

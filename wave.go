package chipstep

import (
	"math"
	"math/cmplx"

	"github.com/maddyblue/go-dsp/fft"
)

const (
	// tableSize is the length of every oscillator wavetable. Power of two
	// so the oscillator can wrap with a mask.
	tableSize = 2048

	// numHarmonics is the number of partials summed into a pulse table.
	numHarmonics = 64
)

// Oscillator phase is 16.16 fixed point with the table index in the top
// bits, the same layout the sample mixer uses.
const (
	phaseFrac = 16
	phaseMask = tableSize<<phaseFrac - 1
)

// pulseSpectrum returns the cosine and sine coefficients of a pulse wave
// with the given duty cycle. Index 0 is the empty DC slot.
func pulseSpectrum(duty float64) (re, im []float64) {
	re = make([]float64, numHarmonics+1)
	im = make([]float64, numHarmonics+1)
	for n := 1; n <= numHarmonics; n++ {
		w := 2 * math.Pi * float64(n) * duty
		re[n] = math.Sin(w) / (float64(n) * math.Pi)
		im[n] = (1 - math.Cos(w)) / (float64(n) * math.Pi)
	}
	return re, im
}

// newPulseTable renders the pulse spectrum for duty into a single cycle
// wavetable, normalized to unit peak.
func newPulseTable(duty float64) []float32 {
	re, im := pulseSpectrum(duty)

	// Pack the harmonics into a conjugate symmetric spectrum so the
	// inverse transform comes out purely real. The N/2 factor undoes the
	// 1/N in the inverse transform, leaving each bin contributing
	// re*cos + im*sin at unit amplitude.
	spec := make([]complex128, tableSize)
	for n := 1; n <= numHarmonics; n++ {
		c := complex(re[n], -im[n]) * (tableSize / 2)
		spec[n] = c
		spec[tableSize-n] = cmplx.Conj(c)
	}
	wave := fft.IFFT(spec)

	table := make([]float32, tableSize)
	var peak float64
	for i, c := range wave {
		v := real(c)
		table[i] = float32(v)
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	if peak > 0 {
		scale := float32(1 / peak)
		for i := range table {
			table[i] *= scale
		}
	}
	return table
}

// newTriangleTable renders one cycle of a triangle wave.
func newTriangleTable() []float32 {
	table := make([]float32, tableSize)
	for i := range table {
		p := float64(i) / tableSize
		table[i] = float32(2*math.Abs(2*p-1) - 1)
	}
	return table
}

// osc is a wavetable oscillator.
type osc struct {
	table []float32
	pos   int // 16.16 fixed point phase
	dr    int // 16.16 fixed point increment per output sample
}

// retune points the oscillator at freq without resetting its phase.
func (o *osc) retune(freq float64, sampleRate int) {
	o.dr = int(freq * tableSize / float64(sampleRate) * (1 << phaseFrac))
}

// next returns the current sample and advances one step.
func (o *osc) next() float32 {
	v := o.table[o.pos>>phaseFrac]
	o.pos = (o.pos + o.dr) & phaseMask
	return v
}

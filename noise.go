package chipstep

import (
	"math"
	"math/rand/v2"

	"github.com/wavegen/chipstep/internal/biquad"
)

// noiseSeconds is the length of the shared noise buffer that every
// percussion voice reads from.
const noiseSeconds = 2

// newNoiseBuffer fills a noiseSeconds long buffer with uniform white noise.
func newNoiseBuffer(sampleRate int, rng *rand.Rand) []float32 {
	buf := make([]float32, noiseSeconds*sampleRate)
	for i := range buf {
		buf[i] = rng.Float32()*2 - 1
	}
	return buf
}

type filterShape uint8

const (
	shapeLowpass filterShape = iota
	shapeBandpass
	shapeHighpass
)

type drumParams struct {
	shape  filterShape
	cutoff float64 // Hz
	q      float64
	gain   float64
	decay  float64 // seconds to fall 60 dB
}

var drumTable = map[DrumKind]drumParams{
	DrumKick:      {shapeLowpass, 180, biquad.ButterworthQ, 2.5, 0.150},
	DrumSnare:     {shapeBandpass, 1200, 0.8, 1.8, 0.100},
	DrumHatClosed: {shapeHighpass, 8000, biquad.ButterworthQ, 0.9, 0.040},
	DrumHatOpen:   {shapeHighpass, 6000, biquad.ButterworthQ, 1.0, 0.180},
}

// drumVoice is a one shot percussion voice reading the shared noise buffer
// through its filter. It disposes itself once the envelope has run out.
type drumVoice struct {
	noise  []float32
	pos    int
	filter *biquad.Filter

	level  float64 // current envelope value, starts at the drum gain
	fall   float64 // envelope multiplier per sample
	remain int     // samples left before the voice is done

	startAt int64 // engine clock sample at which the voice begins
}

// newDrumVoice spawns one hit. vol is the track's noise channel volume,
// multiplied into the drum's own peak gain.
func newDrumVoice(kind DrumKind, sampleRate int, noise []float32, offset int, startAt int64, vol float64) *drumVoice {
	p := drumTable[kind]

	var f *biquad.Filter
	switch p.shape {
	case shapeLowpass:
		f = biquad.Lowpass(sampleRate, p.cutoff, p.q)
	case shapeBandpass:
		f = biquad.Bandpass(sampleRate, p.cutoff, p.q)
	case shapeHighpass:
		f = biquad.Highpass(sampleRate, p.cutoff, p.q)
	}

	n := int(p.decay * float64(sampleRate))
	return &drumVoice{
		noise:   noise,
		pos:     offset,
		filter:  f,
		level:   p.gain * vol,
		fall:    math.Exp(math.Log(0.001) / float64(n)),
		remain:  n,
		startAt: startAt,
	}
}

// render adds the voice into out, whose first sample sits at engine clock
// position at. Reports true while the voice still has audio to produce.
func (d *drumVoice) render(out []float32, at int64) bool {
	if d.remain <= 0 {
		return false
	}
	i := 0
	if d.startAt > at {
		i = int(d.startAt - at)
		if i >= len(out) {
			return true
		}
	}
	for ; i < len(out) && d.remain > 0; i++ {
		s := d.filter.Process(float64(d.noise[d.pos]))
		d.pos++
		if d.pos == len(d.noise) {
			d.pos = 0
		}
		out[i] += float32(s * d.level)
		d.level *= d.fall
		d.remain--
	}
	return d.remain > 0
}

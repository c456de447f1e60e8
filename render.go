package chipstep

import (
	"encoding/binary"
	"math"

	"github.com/viterin/vek/vek32"
)

// renderChunk bounds how many samples are mixed between scheduler pumps.
// 1024 samples is about 23 ms at the default rate, which puts the control
// tick cadence comfortably inside the lookahead window.
const renderChunk = 1024

// RenderAudio fills out with the next mono samples and advances the audio
// clock. It never blocks; an engine with nothing to play yields silence.
// This is the single pull point: the step scheduler is pumped here, so
// sequencing and audio share one clock and cannot drift apart no matter
// how irregularly the driver calls.
func (e *Engine) RenderAudio(out []float32) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	clear(out)
	for off := 0; off < len(out); {
		n := len(out) - off
		if n > renderChunk {
			n = renderChunk
		}
		e.renderChunkLocked(out[off : off+n])
		off += n
	}
	return len(out)
}

func (e *Engine) renderChunkLocked(out []float32) {
	s := e.session
	if s != nil && !e.stopping {
		s.sched.pump(e.nowLocked(), func(step int, at float64) {
			e.scheduleStepLocked(s, step, at)
		})
	}
	if s != nil {
		for _, v := range s.voices {
			v.render(out, e.clock)
		}
	}
	if len(e.drums) > 0 {
		live := e.drums[:0]
		for _, d := range e.drums {
			if d.render(out, e.clock) {
				live = append(live, d)
			}
		}
		e.drums = live
	}

	// Master automation. The track fade and the declicked volume are
	// independent factors, so a mute toggle cannot disturb a fade in
	// progress.
	if e.fade.done() && e.master.done() {
		switch g := float32(e.fade.value * e.master.value); g {
		case 1:
		case 0:
			clear(out)
		default:
			vek32.MulNumber_Inplace(out, g)
		}
	} else {
		for i := range out {
			out[i] *= float32(e.fade.next() * e.master.next())
		}
	}

	for i, v := range out {
		out[i] = softSat(v)
	}

	e.clock += int64(len(out))

	// Deferred teardown: the session outlives Stop until its fade out has
	// fully rendered.
	if e.stopping && e.fade.done() {
		e.teardownLocked()
	}
}

// scheduleStepLocked enqueues one step's events at their exact timestamp.
// A positive tonal value is a note on, retuning the oscillator and
// restarting the attack; zero is a rest; the sustain marker leaves the
// voice alone. A drum hit spawns an independent one shot voice reading
// the shared noise buffer from a random offset.
func (e *Engine) scheduleStepLocked(s *session, step int, at float64) {
	when := int64(math.Round(at * float64(e.rate)))
	for ch := ChanPulseA; ch < ChanNoise; ch++ {
		v := s.voices[ch]
		switch f := s.track.tonal(ch)[step]; {
		case f > 0:
			v.retuneAt(f, when)
			v.triggerAt(when)
		case f == 0:
			v.silenceAt(when)
		}
	}
	if d := s.track.Noise[step]; d != DrumNone && !e.chanMute[ChanNoise] {
		off := e.rng.IntN(len(e.noise))
		vol := s.track.Volumes[ChanNoise]
		e.drums = append(e.drums, newDrumVoice(d, e.rate, e.noise, off, when, vol))
	}

	select {
	case e.StepCh <- StepEvent{Track: s.track.Name, Step: step, At: at}:
	default:
	}
}

// softSat bends the summed channels smoothly into [-1, 1] instead of
// hard clipping them.
func softSat(x float32) float32 {
	if x > 1 {
		return 1 - 0.5/x
	}
	if x < -1 {
		return -1 + 0.5/-x
	}
	return x - x*x*x/3
}

// Read implements io.Reader over the engine's output, encoded as little
// endian float32, the stream format the audio driver consumes. It always
// fills p and never returns an error. Only the driver goroutine calls it;
// it is not safe for concurrent use with itself.
func (e *Engine) Read(p []byte) (int, error) {
	n := 0
	if len(e.pend) > 0 {
		c := copy(p, e.pend)
		e.pend = e.pend[c:]
		n += c
	}
	for n < len(p) {
		want := (len(p) - n) / 4
		if want == 0 {
			// Less than one sample of room left. Render a single sample
			// and carry the unsent bytes into the next call.
			e.renderScratch(1)
			binary.LittleEndian.PutUint32(e.pendBuf[:], math.Float32bits(e.scratch[0]))
			c := copy(p[n:], e.pendBuf[:])
			e.pend = e.pendBuf[c:]
			n += c
			break
		}
		if want > renderChunk {
			want = renderChunk
		}
		e.renderScratch(want)
		for _, v := range e.scratch {
			binary.LittleEndian.PutUint32(p[n:], math.Float32bits(v))
			n += 4
		}
	}
	return n, nil
}

func (e *Engine) renderScratch(n int) {
	if cap(e.scratch) < n {
		e.scratch = make([]float32, renderChunk)
	}
	e.scratch = e.scratch[:n]
	e.RenderAudio(e.scratch)
}

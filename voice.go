package chipstep

// Gain ramp lengths for click free note edges.
const (
	attackSeconds  = 0.005
	releaseSeconds = 0.003
)

type eventKind uint8

const (
	eventRetune eventKind = iota
	eventTrigger
	eventSilence
)

// voiceEvent is one scheduled parameter change, timestamped in engine
// clock samples.
type voiceEvent struct {
	at   int64
	kind eventKind
	freq float64 // eventRetune only
}

// voice is one continuously running tonal channel. The sequencer enqueues
// timestamped events well ahead of real time; render applies them on their
// exact sample while mixing into the output.
type voice struct {
	osc  osc
	rate int
	vol  float64 // configured channel volume

	events []voiceEvent

	env    float64 // current gain, 0..1
	target float64

	attackStep  float64
	releaseStep float64

	muted bool
}

func newVoice(table []float32, vol float64, sampleRate int) *voice {
	return &voice{
		osc:         osc{table: table},
		rate:        sampleRate,
		vol:         vol,
		attackStep:  1 / (attackSeconds * float64(sampleRate)),
		releaseStep: 1 / (releaseSeconds * float64(sampleRate)),
	}
}

// retuneAt schedules a frequency change without restarting the envelope.
func (v *voice) retuneAt(freq float64, at int64) {
	v.events = append(v.events, voiceEvent{at: at, kind: eventRetune, freq: freq})
}

// triggerAt schedules a hard note onset: the gain snaps to zero and ramps
// back up over the attack time.
func (v *voice) triggerAt(at int64) {
	v.events = append(v.events, voiceEvent{at: at, kind: eventTrigger})
}

// silenceAt schedules a release to zero gain.
func (v *voice) silenceAt(at int64) {
	v.events = append(v.events, voiceEvent{at: at, kind: eventSilence})
}

// cancelPending drops every event that has not applied yet, so a voice
// about to be disposed cannot receive a late parameter change.
func (v *voice) cancelPending() {
	v.events = v.events[:0]
}

func (v *voice) apply(ev voiceEvent) {
	switch ev.kind {
	case eventRetune:
		v.osc.retune(ev.freq, v.rate)
	case eventTrigger:
		v.env = 0
		v.target = 1
	case eventSilence:
		v.target = 0
	}
}

// render adds len(out) samples into out, whose first sample sits at engine
// clock position at. A muted voice keeps advancing its oscillator and
// envelope so unmuting rejoins mid phrase without a phase jump.
func (v *voice) render(out []float32, at int64) {
	i := 0
	for i < len(out) {
		// Stop at the next due event, or take the rest of the chunk.
		n := len(out)
		for len(v.events) > 0 {
			ev := v.events[0]
			if ev.at > at+int64(i) {
				if end := int(ev.at - at); end < n {
					n = end
				}
				break
			}
			v.apply(ev)
			v.events = v.events[1:]
		}
		for ; i < n; i++ {
			s := v.osc.next()
			if v.env < v.target {
				if v.env += v.attackStep; v.env > v.target {
					v.env = v.target
				}
			} else if v.env > v.target {
				if v.env -= v.releaseStep; v.env < v.target {
					v.env = v.target
				}
			}
			if !v.muted {
				out[i] += s * float32(v.env*v.vol)
			}
		}
	}
}

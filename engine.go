// Package chipstep is a procedural chiptune engine: four fixed synthesis
// channels (two duty cycle pulses, a triangle and filtered noise
// percussion) driven by a lookahead step sequencer against the audio
// clock. Tracks are declarative step tables, loaded from YAML or compiled
// in; nothing is sampled from disk.
package chipstep

import (
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"sync"
)

// DefaultSampleRate is used when NewEngine is given a non positive rate.
const DefaultSampleRate = 44100

// Transport gain ramp lengths.
const (
	fadeInSeconds  = 0.400
	fadeOutSeconds = 0.300
	declickSeconds = 0.005
)

// AudioDriver is the output sink the engine streams into. Start begins
// pulling mono little endian float32 samples from src on the driver's own
// cadence and keeps doing so until Close. The oto subpackage has the real
// one; tests and offline rendering run without any.
type AudioDriver interface {
	Start(src io.Reader) error
	Close() error
}

// ramp is a linear per sample gain smoother. The slope is full scale over
// the ramp length, so a ramp retargeted mid flight finishes early rather
// than stretching.
type ramp struct {
	value  float64
	target float64
	step   float64
}

func (r *ramp) set(target, seconds float64, sampleRate int) {
	r.target = target
	if seconds <= 0 {
		r.value = target
		return
	}
	r.step = 1 / (seconds * float64(sampleRate))
}

func (r *ramp) next() float64 {
	if r.value < r.target {
		if r.value += r.step; r.value > r.target {
			r.value = r.target
		}
	} else if r.value > r.target {
		if r.value -= r.step; r.value < r.target {
			r.value = r.target
		}
	}
	return r.value
}

func (r *ramp) done() bool { return r.value == r.target }

// session is the playback state for one selected track, replaced
// wholesale on every switch. The noise channel has no persistent voice
// here; percussion voices are owned by the engine so they can outlive the
// session that spawned them.
type session struct {
	track  *Track
	sched  *scheduler
	voices [ChanNoise]*voice
}

// StepEvent is posted on Engine.StepCh as each step is scheduled. At is
// the audio clock time the step will sound, which is up to a lookahead
// window after the event is posted.
type StepEvent struct {
	Track string
	Step  int
	At    float64
}

// Engine synthesizes and sequences the four channel output. One instance
// owns the audio driver, the shared noise buffer and the active session.
// All exported methods are safe for concurrent use.
type Engine struct {
	mu sync.Mutex

	rate   int
	bank   *Bank
	logger *log.Logger
	rng    *rand.Rand

	// StepCh receives step boundary events for UIs and renderers. Sends
	// never block; events are dropped if the reader falls behind.
	StepCh chan StepEvent

	driver      AudioDriver
	initialized bool
	initErr     error
	inert       bool

	noise []float32

	session  *session
	stopping bool
	drums    []*drumVoice

	clock int64 // samples rendered since creation

	volume   float64
	muted    bool
	master   ramp // declicked effective volume, 0 while muted
	fade     ramp // track fade in / stop fade out
	chanMute [NumChannels]bool

	// Read side staging, touched only by the driver goroutine.
	scratch []float32
	pend    []byte
	pendBuf [4]byte
}

// NewEngine creates an engine over the given track bank. A non positive
// sampleRate selects DefaultSampleRate. The engine stays silent until
// Initialize establishes an output.
func NewEngine(bank *Bank, sampleRate int) *Engine {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	if bank == nil {
		bank = &Bank{}
	}
	e := &Engine{
		rate:   sampleRate,
		bank:   bank,
		logger: log.Default(),
		rng:    rand.New(rand.NewPCG(0x6368697073746570, 0)),
		StepCh: make(chan StepEvent, 64),
		volume: 1,
	}
	e.master.value, e.master.target = 1, 1
	return e
}

// SetLogger redirects the engine's diagnostics, which go to the standard
// logger by default.
func (e *Engine) SetLogger(l *log.Logger) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if l != nil {
		e.logger = l
	}
}

// Initialize establishes the audio output and generates the shared noise
// buffer. It is idempotent and its first result is sticky. A nil driver
// leaves the engine in offline mode, where the caller pulls samples
// through Read or RenderAudio. If the driver cannot start, the engine
// turns inert: every later call is a harmless no-op and the host keeps
// running without audio.
func (e *Engine) Initialize(driver AudioDriver) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.initialized {
		return e.initErr
	}
	e.initialized = true
	e.noise = newNoiseBuffer(e.rate, e.rng)
	if driver == nil {
		return nil
	}
	if err := driver.Start(e); err != nil {
		e.inert = true
		e.initErr = fmt.Errorf("cannot start audio driver: %w", err)
		e.logger.Printf("audio unavailable, running silent: %v", err)
		return e.initErr
	}
	e.driver = driver
	return nil
}

func (e *Engine) readyLocked() bool {
	return e.initialized && !e.inert
}

// Play selects a track by name and starts it from step zero with a fade
// in. Unknown names are logged and ignored. Calling Play for the track
// that is already playing is a no-op; any other track replaces the
// session wholesale. In-flight percussion is left to decay.
func (e *Engine) Play(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.readyLocked() {
		return
	}
	if e.session != nil && !e.stopping && e.session.track.Name == name {
		return
	}
	t := e.bank.Track(name)
	if t == nil {
		e.logger.Printf("unknown track %q", name)
		return
	}
	e.teardownLocked()
	e.session = e.newSessionLocked(t)
	e.fade.value = 0
	e.fade.set(1, fadeInSeconds, e.rate)
}

// newSessionLocked builds the voice bank for t. The pulse tables are
// rendered here, once per track load, from the track's duty cycles.
func (e *Engine) newSessionLocked(t *Track) *session {
	s := &session{track: t, sched: newScheduler(t, e.nowLocked())}
	s.voices[ChanPulseA] = newVoice(newPulseTable(t.DutyA), t.Volumes[ChanPulseA], e.rate)
	s.voices[ChanPulseB] = newVoice(newPulseTable(t.DutyB), t.Volumes[ChanPulseB], e.rate)
	s.voices[ChanTriangle] = newVoice(newTriangleTable(), t.Volumes[ChanTriangle], e.rate)
	for ch, v := range s.voices {
		v.muted = e.chanMute[ch]
	}
	return s
}

// teardownLocked disposes the current session. Pending automation is
// cancelled first so a disposed voice can never receive a late event.
func (e *Engine) teardownLocked() {
	if e.session == nil {
		return
	}
	for _, v := range e.session.voices {
		v.cancelPending()
	}
	e.session = nil
	e.stopping = false
}

// Stop fades the output down and defers the session teardown until the
// fade completes, so the tail stays audible and no voice is disposed
// while a gain ramp is in flight.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.readyLocked() || e.session == nil || e.stopping {
		return
	}
	e.stopping = true
	e.fade.set(0, fadeOutSeconds, e.rate)
}

// StopImmediate cuts everything now: the session, its pending automation
// and in-flight percussion.
func (e *Engine) StopImmediate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.readyLocked() {
		return
	}
	e.teardownLocked()
	e.drums = nil
	e.fade.value, e.fade.target = 0, 0
}

// SetVolume sets the master volume, clamped to [0, 1]. While muted the
// value is remembered but not audible.
func (e *Engine) SetVolume(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !(v >= 0) {
		v = 0
	} else if v > 1 {
		v = 1
	}
	e.volume = v
	e.applyGainLocked()
}

// applyGainLocked retargets the master ramp to the effective volume. The
// few millisecond declick slope stands in for an instant jump; the fade
// is a separate factor and is never disturbed.
func (e *Engine) applyGainLocked() {
	g := e.volume
	if e.muted {
		g = 0
	}
	e.master.set(g, declickSeconds, e.rate)
}

// ToggleMute flips the mute state and reports the new value.
func (e *Engine) ToggleMute() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.muted = !e.muted
	e.applyGainLocked()
	return e.muted
}

// IsMuted reports whether the output is muted.
func (e *Engine) IsMuted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.muted
}

// IsPlaying reports whether a track is playing and not fading out.
func (e *Engine) IsPlaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session != nil && !e.stopping
}

// CurrentTrack returns the name of the selected track, or "" once the
// session is gone.
func (e *Engine) CurrentTrack() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return ""
	}
	return e.session.track.Name
}

// SetChannelMute silences one synthesis channel without stopping it. A
// muted tonal voice keeps advancing so unmuting rejoins mid phrase; a
// muted noise channel stops spawning hits while in-flight ones decay.
func (e *Engine) SetChannelMute(ch Channel, mute bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ch < 0 || ch >= NumChannels {
		return
	}
	e.chanMute[ch] = mute
	if e.session != nil && ch < ChanNoise {
		e.session.voices[ch].muted = mute
	}
}

// EngineState is a snapshot of the transport and the audible step,
// sampled under the engine lock for UIs to poll.
type EngineState struct {
	Track   string
	Step    int // audible step within the loop, -1 when nothing plays
	Steps   int
	Playing bool
	Muted   bool
	Volume  float64
	Notes   [NumChannels]string // audible step's values in display form
}

// State returns the engine's current position and channel activity.
func (e *Engine) State() EngineState {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := EngineState{
		Step:    -1,
		Playing: e.session != nil && !e.stopping,
		Muted:   e.muted,
		Volume:  e.volume,
	}
	s := e.session
	if s == nil {
		return st
	}
	st.Track = s.track.Name
	st.Steps = s.track.Steps()
	st.Step = e.audibleStepLocked(s)

	for ch := ChanPulseA; ch < ChanNoise; ch++ {
		switch f := s.track.tonal(ch)[st.Step]; {
		case f > 0:
			st.Notes[ch] = NoteName(f)
		case f == StepSustain:
			st.Notes[ch] = "~~~"
		default:
			st.Notes[ch] = "..."
		}
	}
	if d := s.track.Noise[st.Step]; d != DrumNone {
		st.Notes[ChanNoise] = d.String()
	} else {
		st.Notes[ChanNoise] = "..."
	}
	return st
}

// audibleStepLocked converts the audio clock into the loop step currently
// reaching the output.
func (e *Engine) audibleStepLocked(s *session) int {
	el := e.nowLocked() - s.sched.base
	if el <= 0 {
		return 0
	}
	return int(el/s.track.StepSeconds()) % s.track.Steps()
}

// nowLocked is the audio clock in seconds.
func (e *Engine) nowLocked() float64 {
	return float64(e.clock) / float64(e.rate)
}

// Close releases the audio driver. The engine is not usable afterwards.
func (e *Engine) Close() error {
	e.mu.Lock()
	e.teardownLocked()
	e.drums = nil
	d := e.driver
	e.driver = nil
	e.mu.Unlock()
	if d == nil {
		return nil
	}
	return d.Close()
}

package chipstep

import (
	"io"
	"log"
	"testing"
)

const testRate = 44100

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// newTestTrack returns a valid 8 step track at 150 bpm whose pulse A line
// is the note / rest / sustain scenario most tests poke at. Channels a
// test does not care about hold a rest on every step.
func newTestTrack(name string) *Track {
	return &Track{
		Name:     name,
		Tempo:    150,
		DutyA:    0.125,
		DutyB:    0.25,
		Volumes:  []float64{0.5, 0.5, 0.5, 0.5},
		PulseA:   []float64{440, 0, StepSustain, 440, 0, 0, 0, 0},
		PulseB:   make([]float64, 8),
		Triangle: make([]float64, 8),
		Noise:    make([]DrumKind, 8),
	}
}

// newTestEngine builds an engine over the given tracks in offline mode, so
// tests pull audio through RenderAudio and control the clock exactly.
func newTestEngine(t *testing.T, tracks ...*Track) *Engine {
	t.Helper()

	bank := &Bank{Tracks: tracks}
	if err := bank.Validate(); err != nil {
		t.Fatalf("Could not validate test bank: %v", err)
	}
	bank.index()

	e := NewEngine(bank, testRate)
	e.SetLogger(testLogger())
	if err := e.Initialize(nil); err != nil {
		t.Fatalf("Could not initialize test engine: %v", err)
	}
	return e
}

// renderSeconds pulls secs worth of audio out of the engine, advancing its
// clock, and returns the samples.
func renderSeconds(e *Engine, secs float64) []float32 {
	out := make([]float32, int(secs*float64(e.rate)))
	e.RenderAudio(out)
	return out
}

func peak(buf []float32) float64 {
	var p float64
	for _, s := range buf {
		if v := float64(s); v > p {
			p = v
		} else if -v > p {
			p = -v
		}
	}
	return p
}

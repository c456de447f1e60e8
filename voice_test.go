package chipstep

import "testing"

// flatVoice returns a voice whose table is all ones, so its output is the
// envelope value directly.
func flatVoice(vol float64) *voice {
	table := make([]float32, tableSize)
	for i := range table {
		table[i] = 1
	}
	return newVoice(table, vol, testRate)
}

func TestVoiceEventSampleAccuracy(t *testing.T) {
	v := flatVoice(1)
	v.retuneAt(440, 0)
	v.triggerAt(0)
	v.silenceAt(500)

	out := make([]float32, 1000)
	v.render(out, 0)

	// Attack is 5ms (220.5 samples), so the envelope is fully open well
	// before the silence event lands.
	if out[400] != 1 {
		t.Errorf("Expected open envelope at sample 400, got %v", out[400])
	}
	if out[499] != 1 {
		t.Errorf("Release applied early, sample 499 is %v", out[499])
	}
	if out[500] >= 1 {
		t.Errorf("Release not applied on its exact sample, got %v", out[500])
	}
	// Release is 3ms (132.3 samples) from sample 500.
	if out[700] != 0 {
		t.Errorf("Expected closed envelope at sample 700, got %v", out[700])
	}
}

func TestVoiceCancelPending(t *testing.T) {
	v := flatVoice(1)
	v.triggerAt(100)
	v.cancelPending()

	out := make([]float32, 500)
	v.render(out, 0)
	for i, s := range out {
		if s != 0 {
			t.Fatalf("Cancelled trigger still fired, sample %d is %v", i, s)
		}
	}
}

// A muted voice renders nothing but keeps its envelope and phase moving,
// so unmuting rejoins mid phrase.
func TestVoiceMutedAdvances(t *testing.T) {
	v := flatVoice(1)
	v.muted = true
	v.retuneAt(440, 0)
	v.triggerAt(0)

	out := make([]float32, 500)
	v.render(out, 0)
	if p := peak(out); p != 0 {
		t.Errorf("Muted voice produced output, peak %v", p)
	}
	if v.env != 1 {
		t.Errorf("Muted voice envelope did not advance, got %v", v.env)
	}

	v.muted = false
	clear(out)
	v.render(out, 500)
	if out[0] != 1 {
		t.Errorf("Unmuted voice should be audible at once, got %v", out[0])
	}
}

// envAt plays the track from the start and returns the pulse A envelope
// after rendering to the given time.
func envAt(t *testing.T, tr *Track, secs float64) float64 {
	t.Helper()
	e := newTestEngine(t, tr)
	e.Play(tr.Name)
	renderSeconds(e, secs)
	return e.session.voices[ChanPulseA].env
}

// The distilled scenario: [440, 0, ~, 440, 0, 0, 0, 0] at 150 bpm. Note on
// at step 0, silence at 1, sustained silence at 2, note on at 3, silence
// through the rest, loop note on again at 1.6s.
func TestStepSemantics(t *testing.T) {
	cases := []struct {
		name string
		at   float64
		want float64
	}{
		{"note open after attack", 0.010, 1},
		{"rest closes step 1", 0.210, 0},
		{"sustain of silence stays closed", 0.410, 0},
		{"step 3 retriggers", 0.610, 1},
		{"rest closes step 4", 0.810, 0},
		{"loop note on at 1.6s", 1.610, 1},
	}
	for _, c := range cases {
		if env := envAt(t, newTestTrack("s"), c.at); env != c.want {
			t.Errorf("%s: envelope %v, want %v", c.name, env, c.want)
		}
	}
}

// A sustain step must not re-run the attack: the envelope stays fully
// open across the step boundary.
func TestSustainDoesNotRetrigger(t *testing.T) {
	tr := newTestTrack("s")
	tr.PulseA = []float64{440, StepSustain, StepSustain, StepSustain, StepSustain, StepSustain, StepSustain, StepSustain}

	// 2ms past the boundary: a retrigger would leave the attack mid-ramp.
	if env := envAt(t, tr, 0.202); env != 1 {
		t.Errorf("Sustain re-ran the attack, envelope %v", env)
	}
}

// A rest silences the channel within the release time.
func TestRestSilencesWithinRelease(t *testing.T) {
	tr := newTestTrack("s")
	tr.PulseA = []float64{440, 0, 0, 0, 0, 0, 0, 0}

	if env := envAt(t, tr, 0.206); env != 0 {
		t.Errorf("Rest did not silence within the release, envelope %v", env)
	}
}

// A sustain on step 0 continues the previous loop iteration's note across
// the seam; on the very first pass there is nothing to continue and the
// step is silent.
func TestSustainAcrossLoopSeam(t *testing.T) {
	tr := newTestTrack("s")
	tr.PulseA = []float64{StepSustain, 440, StepSustain, StepSustain,
		StepSustain, StepSustain, StepSustain, StepSustain}

	// First pass: step 0 has nothing to continue.
	if env := envAt(t, tr, 0.190); env != 0 {
		t.Errorf("Opening sustain should be silent on the first pass, got %v", env)
	}

	// Second pass: step 0 at 1.6s continues the note held since step 1.
	if env := envAt(t, tr, 1.610); env != 1 {
		t.Errorf("Sustain across the loop seam dropped the note, envelope %v", env)
	}
}

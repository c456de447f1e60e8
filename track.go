package chipstep

import (
	"fmt"
	"math"

	clone "github.com/huandu/go-clone/generic"
	"gopkg.in/yaml.v3"
)

const (
	// StepSustain in a tonal sequence means "continue whatever the previous
	// step produced", including silence. A sustain on step 0 continues the
	// final step of the previous loop iteration; on the very first pass
	// there is nothing to continue and the step is silent.
	StepSustain = -1

	// Channel volumes, one per channel in Channel order.
	numVolumes = 4

	maxFrequency = 12000 // Hz, highest note a track may ask for
)

// Channel identifies one of the four fixed synthesis channels.
type Channel int

const (
	ChanPulseA Channel = iota
	ChanPulseB
	ChanTriangle
	ChanNoise

	NumChannels = 4
)

func (c Channel) String() string {
	switch c {
	case ChanPulseA:
		return "pulseA"
	case ChanPulseB:
		return "pulseB"
	case ChanTriangle:
		return "triangle"
	case ChanNoise:
		return "noise"
	}
	return fmt.Sprintf("channel(%d)", int(c))
}

// DrumKind is a percussive hit on the noise channel. The zero value is
// silence.
type DrumKind uint8

const (
	DrumNone DrumKind = iota
	DrumKick
	DrumSnare
	DrumHatClosed
	DrumHatOpen
)

var drumNames = map[DrumKind]string{
	DrumNone:      ".",
	DrumKick:      "kick",
	DrumSnare:     "snare",
	DrumHatClosed: "hat",
	DrumHatOpen:   "openhat",
}

func (d DrumKind) String() string {
	if s, ok := drumNames[d]; ok {
		return s
	}
	return fmt.Sprintf("drum(%d)", int(d))
}

// UnmarshalYAML decodes the noise step tokens used in bank files: "." or ""
// for silence, otherwise kick, snare, hat or openhat.
func (d *DrumKind) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	switch s {
	case "", ".", "-":
		*d = DrumNone
	case "kick":
		*d = DrumKick
	case "snare":
		*d = DrumSnare
	case "hat":
		*d = DrumHatClosed
	case "openhat":
		*d = DrumHatOpen
	default:
		return fmt.Errorf("unknown noise step %q", s)
	}
	return nil
}

func (d DrumKind) MarshalYAML() (interface{}, error) {
	s, ok := drumNames[d]
	if !ok {
		return nil, fmt.Errorf("unknown drum kind %d", int(d))
	}
	return s, nil
}

// Track is the immutable definition of one piece of music: a name, a tempo
// and four equal-length step sequences on a fixed eighth-note grid. Tonal
// steps hold a frequency in Hz to trigger, 0 to rest or StepSustain to hold.
type Track struct {
	Name  string `yaml:"name"`
	Tempo int    `yaml:"tempo"` // in beats per minute

	// Duty cycles for the two pulse channels, in (0,1). Classic chip
	// ratios are 0.125, 0.25 and 0.5.
	DutyA float64 `yaml:"duty_a"`
	DutyB float64 `yaml:"duty_b"`

	// Per-channel volumes in [0,1], in Channel order:
	// pulseA, pulseB, triangle, noise.
	Volumes []float64 `yaml:"volumes,flow"`

	PulseA   []float64  `yaml:"pulse_a,flow"`
	PulseB   []float64  `yaml:"pulse_b,flow"`
	Triangle []float64  `yaml:"triangle,flow"`
	Noise    []DrumKind `yaml:"noise,flow"`
}

// Steps returns the loop length in steps.
func (t *Track) Steps() int {
	return len(t.PulseA)
}

// StepSeconds returns the duration of one step. The grid is fixed at eighth
// notes, so a step lasts 60/tempo/2 seconds.
func (t *Track) StepSeconds() float64 {
	return 60.0 / float64(t.Tempo) / 2.0
}

// Clone returns a deep copy of the track. The engine clones a track into
// every playback session so later changes to a bank cannot reach into
// running audio.
func (t *Track) Clone() *Track {
	return clone.Clone(t)
}

// tonal returns the step sequence for a tonal channel.
func (t *Track) tonal(ch Channel) []float64 {
	switch ch {
	case ChanPulseA:
		return t.PulseA
	case ChanPulseB:
		return t.PulseB
	case ChanTriangle:
		return t.Triangle
	}
	return nil
}

// Validate checks the track definition against the structural invariants:
// equal sequence lengths, a positive tempo, volumes in [0,1], duty cycles in
// (0,1) and well-formed step values.
func (t *Track) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("track has no name")
	}
	if t.Tempo <= 0 {
		return fmt.Errorf("track %q: tempo must be positive, got %d", t.Name, t.Tempo)
	}
	n := len(t.PulseA)
	if n == 0 {
		return fmt.Errorf("track %q: empty step sequences", t.Name)
	}
	if len(t.PulseB) != n || len(t.Triangle) != n || len(t.Noise) != n {
		return fmt.Errorf("track %q: sequence lengths differ: pulseA %d, pulseB %d, triangle %d, noise %d",
			t.Name, n, len(t.PulseB), len(t.Triangle), len(t.Noise))
	}
	if len(t.Volumes) != numVolumes {
		return fmt.Errorf("track %q: expected %d channel volumes, got %d", t.Name, numVolumes, len(t.Volumes))
	}
	for i, v := range t.Volumes {
		if v < 0 || v > 1 || math.IsNaN(v) {
			return fmt.Errorf("track %q: %s volume %v out of range [0,1]", t.Name, Channel(i), v)
		}
	}
	for i, d := range []float64{t.DutyA, t.DutyB} {
		if d <= 0 || d >= 1 || math.IsNaN(d) {
			return fmt.Errorf("track %q: duty cycle %c must be in (0,1), got %v", t.Name, 'A'+i, d)
		}
	}
	for _, ch := range []Channel{ChanPulseA, ChanPulseB, ChanTriangle} {
		for i, v := range t.tonal(ch) {
			switch {
			case v == StepSustain || v == 0:
			case v > 0 && v <= maxFrequency:
			default:
				return fmt.Errorf("track %q: %s step %d: invalid value %v", t.Name, ch, i, v)
			}
		}
	}
	for i, d := range t.Noise {
		if _, ok := drumNames[d]; !ok {
			return fmt.Errorf("track %q: noise step %d: unknown drum kind %d", t.Name, i, int(d))
		}
	}
	return nil
}

// Bank is a named collection of tracks, typically loaded from a YAML asset
// with NewBankFromBytes.
type Bank struct {
	Tracks []*Track `yaml:"tracks"`

	byName map[string]*Track
}

// Validate checks every track and that track names are unique.
func (b *Bank) Validate() error {
	if len(b.Tracks) == 0 {
		return fmt.Errorf("bank contains no tracks")
	}
	seen := make(map[string]bool, len(b.Tracks))
	for _, t := range b.Tracks {
		if err := t.Validate(); err != nil {
			return err
		}
		if seen[t.Name] {
			return fmt.Errorf("duplicate track name %q", t.Name)
		}
		seen[t.Name] = true
	}
	return nil
}

// Track returns a deep copy of the named track, or nil if the bank has no
// track of that name.
func (b *Bank) Track(name string) *Track {
	t := b.lookup(name)
	if t == nil {
		return nil
	}
	return t.Clone()
}

// Names returns the track names in bank order.
func (b *Bank) Names() []string {
	names := make([]string, len(b.Tracks))
	for i, t := range b.Tracks {
		names[i] = t.Name
	}
	return names
}

func (b *Bank) lookup(name string) *Track {
	return b.byName[name]
}

func (b *Bank) index() {
	b.byName = make(map[string]*Track, len(b.Tracks))
	for _, t := range b.Tracks {
		b.byName[t.Name] = t
	}
}

package chipstep

import (
	_ "embed"
	"fmt"
	"io"
	"math"

	"gopkg.in/yaml.v3"
)

// Built-in bank. Games that want their own music load a bank asset through
// NewBankFromBytes instead.
//
//go:embed tracks.yaml
var defaultBankBytes []byte

var dumpW io.Writer = nil

// SetDumpWriter directs a human-readable dump of every bank parsed after the
// call to w. Used by the chipdump tool.
func SetDumpWriter(w io.Writer) { dumpW = w }

// NewBankFromBytes parses a YAML track bank and validates every track
// against the structural invariants (equal sequence lengths, volume and
// duty ranges, known drum kinds).
func NewBankFromBytes(data []byte) (*Bank, error) {
	bank := &Bank{}
	if err := yaml.Unmarshal(data, bank); err != nil {
		return nil, fmt.Errorf("cannot parse track bank: %w", err)
	}
	if err := bank.Validate(); err != nil {
		return nil, err
	}
	bank.index()

	for _, t := range bank.Tracks {
		dumpTrack(t)
	}

	return bank, nil
}

// DefaultBank returns the bank of tracks compiled into the library.
func DefaultBank() (*Bank, error) {
	return NewBankFromBytes(defaultBankBytes)
}

func dumpf(format string, a ...interface{}) {
	if dumpW == nil {
		return
	}

	fmt.Fprintf(dumpW, format, a...)
}

func dumpTrack(t *Track) {
	dumpf("Track:\t\t%s\n", t.Name)
	dumpf("Tempo:\t\t%d bpm (%.4fs per step)\n", t.Tempo, t.StepSeconds())
	dumpf("Steps:\t\t%d (loop %.4fs)\n", t.Steps(), float64(t.Steps())*t.StepSeconds())
	dumpf("Duty:\t\t%.3f / %.3f\n", t.DutyA, t.DutyB)
	dumpf("Volumes:\t%v\n", t.Volumes)

	for i := 0; i < t.Steps(); i++ {
		dumpf("%02X: ", i)
		for _, ch := range []Channel{ChanPulseA, ChanPulseB, ChanTriangle} {
			v := t.tonal(ch)[i]
			switch {
			case v == StepSustain:
				dumpf("%12s", "~")
			case v == 0:
				dumpf("%12s", ".")
			default:
				dumpf("%7.2f(%s)", v, NoteName(v))
			}
			dumpf("|")
		}
		if t.Noise[i] == DrumNone {
			dumpf("%8s", ".")
		} else {
			dumpf("%8s", t.Noise[i])
		}
		dumpf("\n")
	}
	dumpf("\n")
}

// Literal notes
var noteNames = []string{
	"C-", "C#", "D-", "D#", "E-", "F-", "F#", "G-", "G#", "A-", "A#", "B-",
}

// NoteName returns the nearest note to a frequency in name-octave form,
// e.g. 440 -> "A-4". Returns three dots for anything below the note range.
func NoteName(freq float64) string {
	if freq <= 0 {
		return "..."
	}
	// A-4 is 440Hz and MIDI note 69; octaves are numbered so that MIDI 60
	// is C-4.
	n := int(math.Round(12*math.Log2(freq/440.0))) + 69
	if n < 0 {
		return "..."
	}
	return fmt.Sprintf("%s%d", noteNames[n%12], n/12-1)
}

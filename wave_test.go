package chipstep

import (
	"math"
	"testing"
)

func TestPulseTableNormalized(t *testing.T) {
	for _, duty := range []float64{0.125, 0.25, 0.5} {
		table := newPulseTable(duty)
		if len(table) != tableSize {
			t.Fatalf("Duty %v: table has %d samples", duty, len(table))
		}
		if p := peak(table); math.Abs(p-1) > 1e-3 {
			t.Errorf("Duty %v: peak %v, want unit", duty, p)
		}
	}
}

// A 50% duty pulse is a square: positive through the first half cycle,
// negative through the second, ringing at the edges aside.
func TestPulseTableSquareShape(t *testing.T) {
	table := newPulseTable(0.5)
	for i := tableSize / 8; i < 3*tableSize/8; i++ {
		if table[i] < 0.5 {
			t.Fatalf("Sample %d of the high half is %v", i, table[i])
		}
	}
	for i := 5 * tableSize / 8; i < 7*tableSize/8; i++ {
		if table[i] > -0.5 {
			t.Fatalf("Sample %d of the low half is %v", i, table[i])
		}
	}
}

// The fraction of the cycle spent above zero tracks the duty parameter.
// With the DC term dropped the high portion sits at 1-d and the low at -d,
// so the zero crossings land on the duty boundaries.
func TestPulseTableDutyFraction(t *testing.T) {
	for _, duty := range []float64{0.125, 0.25} {
		table := newPulseTable(duty)
		pos := 0
		for _, v := range table {
			if v > 0 {
				pos++
			}
		}
		want := int(duty * tableSize)
		if pos < want-40 || pos > want+40 {
			t.Errorf("Duty %v: %d positive samples, want about %d", duty, pos, want)
		}
	}
}

// The rendered table must match the additive series it is defined by:
// sum of re[n]·cos + im[n]·sin over the 64 harmonics, to unit peak.
func TestPulseTableMatchesSeries(t *testing.T) {
	const duty = 0.25
	re, im := pulseSpectrum(duty)

	want := make([]float64, tableSize)
	var pk float64
	for i := range want {
		x := float64(i) / tableSize
		var s float64
		for n := 1; n <= numHarmonics; n++ {
			w := 2 * math.Pi * float64(n) * x
			s += re[n]*math.Cos(w) + im[n]*math.Sin(w)
		}
		want[i] = s
		if a := math.Abs(s); a > pk {
			pk = a
		}
	}

	table := newPulseTable(duty)
	for i := range want {
		if diff := math.Abs(float64(table[i]) - want[i]/pk); diff > 1e-3 {
			t.Fatalf("Table sample %d is %v, series gives %v", i, table[i], want[i]/pk)
		}
	}
}

func TestTriangleTable(t *testing.T) {
	table := newTriangleTable()
	checks := []struct {
		i    int
		want float32
	}{
		{0, 1},
		{tableSize / 4, 0},
		{tableSize / 2, -1},
		{3 * tableSize / 4, 0},
	}
	for _, c := range checks {
		if table[c.i] != c.want {
			t.Errorf("Triangle sample %d is %v, want %v", c.i, table[c.i], c.want)
		}
	}
}

func TestOscRetune(t *testing.T) {
	o := osc{table: newTriangleTable()}

	// testRate/64 Hz steps the table by exactly 32 entries per sample, so
	// one period is 64 samples and the phase lands back on zero.
	o.retune(float64(testRate)/64, testRate)
	for i := 0; i < 64; i++ {
		o.next()
	}
	if o.pos != 0 {
		t.Errorf("Phase %d after one exact period, want 0", o.pos)
	}

	// Retuning must not reset the phase.
	o.next()
	before := o.pos
	o.retune(440, testRate)
	if o.pos != before {
		t.Error("Retune reset the oscillator phase")
	}
}

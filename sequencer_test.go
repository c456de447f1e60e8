package chipstep

import (
	"math"
	"testing"
)

// Step timestamps are derived arithmetically from the session start, so
// the grid must not drift over any number of steps.
func TestSchedulerNoDrift(t *testing.T) {
	tr := newTestTrack("drift")
	s := newScheduler(tr, 0)
	step := tr.StepSeconds()

	var k int64
	now := 0.0
	for k < 10000 {
		s.pump(now, func(st int, at float64) {
			want := float64(k) * step
			if math.Abs(at-want) > 1e-9 {
				t.Fatalf("Step %d scheduled at %v, want %v", k, at, want)
			}
			if st != int(k%8) {
				t.Fatalf("Step %d has loop position %d, want %d", k, st, k%8)
			}
			k++
		})
		now += 0.025 // the coarse control tick
	}
}

// pump must fill exactly the lookahead window: everything due before
// now+lookahead is emitted, nothing beyond it.
func TestSchedulerLookaheadBound(t *testing.T) {
	tr := newTestTrack("bound")
	s := newScheduler(tr, 0)

	now := 3.7 // an uneven wakeup, as if earlier ticks were delayed
	s.pump(now, func(st int, at float64) {
		if at >= now+lookaheadSeconds {
			t.Errorf("Event at %v emitted beyond the lookahead horizon", at)
		}
	})
	if nt := s.nextTime(); nt < now+lookaheadSeconds {
		t.Errorf("Next step at %v still inside the window after pump", nt)
	}
}

// An 8 step loop at 150 bpm wraps exactly at 1.6s: the ninth emitted step
// is loop position 0 again at 8 * (60/150/2).
func TestSchedulerLoopWrap(t *testing.T) {
	tr := newTestTrack("wrap")
	s := newScheduler(tr, 0)

	type ev struct {
		step int
		at   float64
	}
	var got []ev
	for now := 0.0; len(got) < 9; now += 0.025 {
		s.pump(now, func(st int, at float64) {
			got = append(got, ev{st, at})
		})
	}

	last := got[8]
	if last.step != 0 {
		t.Errorf("Ninth event has loop position %d, want 0", last.step)
	}
	if math.Abs(last.at-1.6) > 1e-9 {
		t.Errorf("Loop restarts at %v, want 1.6", last.at)
	}
}

// A session started mid-clock anchors its grid at the start time.
func TestSchedulerBaseOffset(t *testing.T) {
	tr := newTestTrack("base")
	s := newScheduler(tr, 2.5)

	var first float64 = -1
	s.pump(2.5, func(st int, at float64) {
		if first < 0 {
			first = at
		}
	})
	if first != 2.5 {
		t.Errorf("First step at %v, want the session base 2.5", first)
	}
}

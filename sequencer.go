package chipstep

// lookaheadSeconds is how far ahead of the audio clock the scheduler keeps
// events queued. It must stay wider than the worst expected gap between
// pump calls, which arrive once per render chunk.
const lookaheadSeconds = 0.120

// scheduler walks a track's step grid against the audio clock, keeping
// every event inside the lookahead window queued ahead of real time. Step
// timestamps are computed arithmetically from the session start, so the
// grid cannot drift no matter how unevenly pump is called.
type scheduler struct {
	track *Track
	base  float64 // clock seconds at which the first step plays
	count int64   // steps scheduled since the session started
}

func newScheduler(track *Track, start float64) *scheduler {
	return &scheduler{track: track, base: start}
}

// step is the loop position of the next unscheduled step.
func (s *scheduler) step() int {
	return int(s.count % int64(s.track.Steps()))
}

// nextTime is the clock time at which the next unscheduled step plays.
func (s *scheduler) nextTime() float64 {
	return s.base + float64(s.count)*s.track.StepSeconds()
}

// pump schedules every step due before now plus the lookahead window. emit
// receives the loop step index and its exact timestamp. Work per call is
// bounded by the window width over the step duration.
func (s *scheduler) pump(now float64, emit func(step int, at float64)) {
	horizon := now + lookaheadSeconds
	for s.nextTime() < horizon {
		emit(s.step(), s.nextTime())
		s.count++
	}
}

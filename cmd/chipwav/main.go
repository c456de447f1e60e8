// Renders a chipstep track to a WAV file (16-bit, mono). The engine runs
// in offline mode so rendering is much faster than real time.

package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/wavegen/chipstep"
	"github.com/wavegen/chipstep/wav"
)

var (
	flagWav   = flag.String("wav", "", "output WAVE file")
	flagHz    = flag.Int("hz", 44100, "output hz")
	flagVol   = flag.Float64("vol", 1.0, "master volume between 0 and 1")
	flagTrack = flag.String("track", "", "track to render, first in the bank if empty")
	flagLoops = flag.Int("loops", 1, "number of times through the loop")
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("chipwav: ")
	flag.Parse()

	if *flagWav == "" {
		log.Fatal("No -wav option provided")
	}

	var (
		bank *chipstep.Bank
		err  error
	)
	if flag.NArg() > 0 {
		var data []byte
		if data, err = os.ReadFile(flag.Arg(0)); err != nil {
			log.Fatal(err)
		}
		bank, err = chipstep.NewBankFromBytes(data)
	} else {
		bank, err = chipstep.DefaultBank()
	}
	if err != nil {
		log.Fatal(err)
	}

	name := *flagTrack
	if name == "" {
		name = bank.Names()[0]
	}
	track := bank.Track(name)
	if track == nil {
		log.Fatalf("no track %q in bank", name)
	}

	engine := chipstep.NewEngine(bank, *flagHz)
	engine.SetVolume(*flagVol)
	if err := engine.Initialize(nil); err != nil {
		log.Fatal(err)
	}
	engine.Play(name)

	wavF, err := os.Create(*flagWav)
	if err != nil {
		log.Fatal(err)
	}
	defer wavF.Close()

	wavW, err := wav.NewWriter(wavF, *flagHz, 1)
	if err != nil {
		log.Fatal(err)
	}
	defer wavW.Finish()

	loops := max(*flagLoops, 1)
	go func() {
		n := 0
		for ev := range engine.StepCh {
			if ev.Step == 0 {
				n++
				fmt.Printf("%d/%d\n", n, loops)
			}
		}
	}()

	loopSamples := int(float64(track.Steps()) * track.StepSeconds() * float64(*flagHz))
	remain := loopSamples * loops

	audioOut := make([]float32, 2048)
	frames := make([]int16, 2048)

	write := func(n int) {
		engine.RenderAudio(audioOut[:n])
		for i, s := range audioOut[:n] {
			frames[i] = int16(s * 32767)
		}
		if err := wavW.WriteFrames(frames[:n]); err != nil {
			wavF.Close()
			log.Fatal(err)
		}
	}

	for remain > 0 {
		n := min(remain, len(audioOut))
		write(n)
		remain -= n
	}

	// Render the stop fade so the file does not end on a hard cut. The
	// session tears itself down once the fade has fully rendered.
	engine.Stop()
	for engine.State().Track != "" {
		write(len(audioOut))
	}
}

package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"atomicgo.dev/keyboard"
	"atomicgo.dev/keyboard/keys"
	"github.com/fatih/color"
	"github.com/wavegen/chipstep"
)

var (
	white   = color.New(color.FgWhite).SprintfFunc()
	cyan    = color.New(color.FgCyan).SprintfFunc()
	magenta = color.New(color.FgMagenta).SprintfFunc()
	yellow  = color.New(color.FgYellow).SprintfFunc()
	blue    = color.New(color.FgHiBlue).SprintFunc()
	green   = color.New(color.FgGreen).SprintfFunc()
)

const (
	escape     = "\x1b["
	hideCursor = escape + "?25l"
	showCursor = escape + "?25h"
)

func play(engine *chipstep.Engine, bank *chipstep.Bank, driver chipstep.AudioDriver, track string) {
	if err := engine.Initialize(driver); err != nil {
		log.Fatal(err)
	}
	engine.Play(track)

	var uiw io.Writer = os.Stdout
	if *flagNoUI {
		uiw = io.Discard
	}

	stopFn := func() {
		engine.Stop()
		// Let the stop fade render before tearing the driver down.
		time.Sleep(400 * time.Millisecond)
		engine.Close()

		fmt.Fprint(uiw, showCursor)
		os.Exit(0)
	}

	sigch := make(chan os.Signal, 5)
	signal.Notify(sigch, syscall.SIGINT)
	go func() {
		for {
			sig := <-sigch
			if sig == syscall.SIGINT {
				stopFn()
			}
		}
	}()

	names := bank.Names()

	// Hide the cursor
	fmt.Fprint(uiw, hideCursor)

	// Print the status line, then a step grid with the 4 steps either side
	// of the audible one:
	// overworld    step 05/10 tempo 150 vol 1.00
	//
	//     pulseA  |pulseB  |triangle|noise
	//     A-4     |...     |~~~     |kick
	// >>> C-5     |E-4     |A-2     |...      <<<

	uiSelectedChannel := 0
	var muted [chipstep.NumChannels]bool
	for ch := 0; ch < chipstep.NumChannels; ch++ {
		muted[ch] = *flagMute&(1<<uint(ch)) != 0
	}

	go func() {
		keyboard.Listen(func(key keys.Key) (stop bool, err error) {
			switch key.Code {
			case keys.CtrlC, keys.Escape:
				stopFn()
			case keys.Left:
				uiSelectedChannel = max(uiSelectedChannel-1, 0)
			case keys.Right:
				uiSelectedChannel = min(uiSelectedChannel+1, chipstep.NumChannels-1)
			case keys.Up:
				engine.SetVolume(engine.State().Volume + 0.05)
			case keys.Down:
				engine.SetVolume(engine.State().Volume - 0.05)
			case keys.RuneKey:
				switch r := key.Runes[0]; {
				case r == 'q':
					ch := chipstep.Channel(uiSelectedChannel)
					muted[ch] = !muted[ch]
					engine.SetChannelMute(ch, muted[ch])
				case r == 'm':
					engine.ToggleMute()
				case r >= '1' && r <= '9':
					if i := int(r - '1'); i < len(names) {
						engine.Play(names[i])
					}
				}
			}
			return false, nil
		})
	}()

	var last chipstep.EngineState
	for engine.IsPlaying() {
		time.Sleep(25 * time.Millisecond)

		state := engine.State()
		if last.Track == state.Track && last.Step == state.Step &&
			last.Muted == state.Muted && last.Volume == state.Volume {
			continue
		}
		last = state

		trk := bank.Track(state.Track)
		if trk == nil || state.Steps == 0 {
			continue
		}

		ms := "     "
		if state.Muted {
			ms = magenta("MUTED")
		}
		fmt.Fprintf(uiw, "%s %s %02X/%02X %s %3d %s %.2f %s\n",
			cyan("%-12s", state.Track), blue("step"), state.Step, state.Steps,
			blue("tempo"), trk.Tempo, blue("vol"), state.Volume, ms)
		fmt.Fprintln(uiw)

		// Print the channel header
		fmt.Fprint(uiw, "    ")
		for ch := 0; ch < chipstep.NumChannels; ch++ {
			name := chipstep.Channel(ch).String()
			if muted[ch] {
				name += "*"
			}
			const chanstr = "%-8s"
			if ch == uiSelectedChannel {
				fmt.Fprint(uiw, green(chanstr, name))
			} else {
				fmt.Fprintf(uiw, chanstr, name)
			}
			if ch < chipstep.NumChannels-1 {
				fmt.Fprint(uiw, "|")
			}
		}
		fmt.Fprintln(uiw)

		for i := -4; i <= 4; i++ {
			row := ((state.Step+i)%state.Steps + state.Steps) % state.Steps
			if i == 0 {
				fmt.Fprint(uiw, ">>> ")
			} else {
				fmt.Fprint(uiw, "    ")
			}

			fmt.Fprint(uiw, white("%-8s", noteCell(trk.PulseA[row])), "|")
			fmt.Fprint(uiw, white("%-8s", noteCell(trk.PulseB[row])), "|")
			fmt.Fprint(uiw, white("%-8s", noteCell(trk.Triangle[row])), "|")
			drum := "..."
			if d := trk.Noise[row]; d != chipstep.DrumNone {
				drum = d.String()
			}
			fmt.Fprint(uiw, yellow("%-8s", drum))

			if i == 0 {
				fmt.Fprint(uiw, " <<<")
			}
			fmt.Fprintln(uiw)
		}
		fmt.Fprintf(uiw, escape+"%dF", 12) // move cursor back to the status line
	}

	// Show the cursor
	fmt.Fprint(uiw, showCursor)
}

func noteCell(v float64) string {
	switch {
	case v > 0:
		return chipstep.NoteName(v)
	case v == chipstep.StepSustain:
		return "~~~"
	default:
		return "..."
	}
}

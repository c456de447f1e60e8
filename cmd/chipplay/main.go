package main

import (
	"flag"
	"log"
	"os"

	"github.com/wavegen/chipstep"
	"github.com/wavegen/chipstep/cmd/internal/config"
)

var (
	flagHz     = flag.Int("hz", 44100, "output hz")
	flagVol    = flag.Float64("vol", 1.0, "master volume between 0 and 1")
	flagDriver = flag.String("driver", "oto", "audio driver, choose from oto or none")
	flagBank   = flag.String("bank", "", "YAML track bank, uses the built in bank if empty")
	flagMute   = flag.Uint("mute", 0, "bitmask of muted channels, pulse A in LSB, set bit to mute channel")
	flagNoUI   = flag.Bool("noui", false, "turn off all UI, mostly useful in development")
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("chipplay: ")
	flag.Parse()

	var (
		bank *chipstep.Bank
		err  error
	)
	if *flagBank != "" {
		var data []byte
		if data, err = os.ReadFile(*flagBank); err != nil {
			log.Fatal(err)
		}
		bank, err = chipstep.NewBankFromBytes(data)
	} else {
		bank, err = chipstep.DefaultBank()
	}
	if err != nil {
		log.Fatal(err)
	}

	names := bank.Names()
	track := flag.Arg(0)
	if track == "" {
		track = names[0]
	}

	engine := chipstep.NewEngine(bank, *flagHz)
	engine.SetVolume(*flagVol)
	for ch := chipstep.ChanPulseA; ch < chipstep.NumChannels; ch++ {
		if *flagMute&(1<<uint(ch)) != 0 {
			engine.SetChannelMute(ch, true)
		}
	}

	driver, err := config.DriverFromFlag(*flagDriver, *flagHz)
	if err != nil {
		log.Fatal(err)
	}

	play(engine, bank, driver, track)
}

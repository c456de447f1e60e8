package main

import (
	"log"
	"os"

	"github.com/wavegen/chipstep"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("chipdump: ")

	chipstep.SetDumpWriter(os.Stdout)

	if len(os.Args) <= 1 {
		// No bank given, dump the built-in one.
		if _, err := chipstep.DefaultBank(); err != nil {
			log.Fatal(err)
		}
		return
	}

	for _, fname := range os.Args[1:] {
		data, err := os.ReadFile(fname)
		if err != nil {
			log.Fatal(err)
		}
		if _, err := chipstep.NewBankFromBytes(data); err != nil {
			log.Fatal(err)
		}
	}
}

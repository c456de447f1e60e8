package config

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/wavegen/chipstep"
	"github.com/wavegen/chipstep/oto"
)

// NullDriver implements chipstep.AudioDriver but sends the audio nowhere.
// It still pulls from the source on a device-like cadence so the engine's
// clock and sequencing advance in real time.
type NullDriver struct {
	sampleRate int
	done       chan struct{}
	once       sync.Once
}

var _ chipstep.AudioDriver = &NullDriver{}

// NewNullDriver creates a new instance of NullDriver
func NewNullDriver(sampleRate int) *NullDriver {
	return &NullDriver{
		sampleRate: sampleRate,
		done:       make(chan struct{}),
	}
}

func (d *NullDriver) Start(src io.Reader) error {
	// Pull one tick's worth of samples every 25ms, like a device would.
	const tick = 25 * time.Millisecond
	buf := make([]byte, 4*(d.sampleRate/40))

	go func() {
		t := time.NewTicker(tick)
		defer t.Stop()
		for {
			select {
			case <-d.done:
				return
			case <-t.C:
				io.ReadFull(src, buf)
			}
		}
	}()
	return nil
}

func (d *NullDriver) Close() error {
	d.once.Do(func() { close(d.done) })
	return nil
}

// DriverFromFlag initializes an audio driver according to the command line
// flag value.
func DriverFromFlag(driver string, sampleRate int) (d chipstep.AudioDriver, err error) {
	switch driver {
	case "oto":
		d = oto.New(sampleRate)
	case "none":
		// No device (silent real time playback)
		d = NewNullDriver(sampleRate)
	default:
		err = fmt.Errorf("unrecognized driver setting %q", driver)
	}

	return d, err
}

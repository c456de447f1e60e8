// Package oto adapts the ebitengine oto output to the engine's
// AudioDriver interface.
package oto

import (
	"fmt"
	"io"

	"github.com/ebitengine/oto/v3"
)

// Driver streams a mono float32 source to the platform audio device.
type Driver struct {
	sampleRate int
	ctx        *oto.Context
	player     *oto.Player
}

// New returns an unstarted driver. Nothing touches the platform until
// Start, so construction cannot fail on machines without audio.
func New(sampleRate int) *Driver {
	return &Driver{sampleRate: sampleRate}
}

// Start opens the audio device and begins pulling samples from src.
func (d *Driver) Start(src io.Reader) error {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   d.sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
	})
	if err != nil {
		return fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	d.ctx = ctx
	d.player = ctx.NewPlayer(src)
	d.player.Play()
	return nil
}

// Close stops playback and drops the device player. The oto context
// itself is process wide and has no close.
func (d *Driver) Close() error {
	if d.player == nil {
		return nil
	}
	err := d.player.Close()
	d.player = nil
	return err
}

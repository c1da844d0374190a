package main

import (
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/pkg/errors"

	"github.com/cwbudde/algo-polysynth/render"
)

// output plays a renderer on the default audio device.
type output struct {
	ctx    *oto.Context
	player *oto.Player
}

func openOutput(r *render.Renderer, sampleRate int, bufferSize time.Duration) (*output, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
		BufferSize:   bufferSize,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, errors.Wrap(err, "oto context")
	}
	<-ready

	player := ctx.NewPlayer(render.NewStream(r))
	player.Play()
	return &output{ctx: ctx, player: player}, nil
}

func (o *output) Close() error {
	if o.player == nil {
		return nil
	}
	err := o.player.Close()
	o.player = nil
	return err
}

package ebitenhost

import (
	"sync"

	"github.com/ebitengine/oto/v3"

	"github.com/tuboc/chip8vm/frontend"
)

// Speaker streams the square wave through oto while the tone is on.
type Speaker struct {
	ctx    *oto.Context
	player *oto.Player
	mutex  sync.Mutex
}

func NewSpeaker(sampleRate int) (*Speaker, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatFloat32LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-ready

	wave := frontend.NewSquareWave(frontend.ToneFrequency, sampleRate, frontend.ToneVolume)
	player := ctx.NewPlayer(wave)
	// Keep the buffer short so the tone stops close to the sound timer.
	player.SetBufferSize(4 * sampleRate / 30)
	return &Speaker{ctx: ctx, player: player}, nil
}

func (s *Speaker) SetTone(on bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	switch {
	case on && !s.player.IsPlaying():
		s.player.Play()
	case !on && s.player.IsPlaying():
		s.player.Pause()
	}
}

func (s *Speaker) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.player.Close()
}

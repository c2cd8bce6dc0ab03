package frontend

import (
	"bufio"
	"io"

	"github.com/tuboc/chip8vm/emulator"
)

// Headless is a backend without window or audio. It keeps the last frame
// and stops after MaxPolls event polls (zero means never).
type Headless struct {
	MaxPolls uint64
	// OnPoll, if set, is called before each poll with the poll number,
	// starting at 1. It lets tests inject input.
	OnPoll func(n uint64, h EventHandler)

	Frames      int
	ToneChanges int
	Tone        bool
	Title       string
	Last        emulator.Framebuffer

	polls uint64
}

func NewHeadless(maxPolls uint64) *Headless {
	return &Headless{MaxPolls: maxPolls}
}

func (h *Headless) Draw(fb *emulator.Framebuffer, _ Palette) error {
	h.Frames++
	h.Last = *fb
	return nil
}

func (h *Headless) SetTone(on bool) {
	if on != h.Tone {
		h.ToneChanges++
		h.Tone = on
	}
}

func (h *Headless) PollEvents(eh EventHandler) bool {
	h.polls++
	if h.MaxPolls > 0 && h.polls > h.MaxPolls {
		return false
	}
	if h.OnPoll != nil {
		h.OnPoll(h.polls, eh)
	}
	return true
}

func (h *Headless) SetTitle(title string) {
	h.Title = title
}

func (h *Headless) Close() error {
	return nil
}

// Dump writes the last frame as text, '#' for lit pixels.
func (h *Headless) Dump(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for y := 0; y < emulator.DisplayH; y++ {
		for x := 0; x < emulator.DisplayW; x++ {
			c := byte('.')
			if h.Last.At(x, y) {
				c = '#'
			}
			_ = bw.WriteByte(c)
		}
		_ = bw.WriteByte('\n')
	}
	return bw.Flush()
}

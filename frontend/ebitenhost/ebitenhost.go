package ebitenhost

import (
	"context"
	"errors"
	"image/color"
	"log/slog"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"golang.org/x/image/font/basicfont"

	"github.com/tuboc/chip8vm/emulator"
	"github.com/tuboc/chip8vm/frontend"
)

// Steps run per tick when no target frequency is set.
const unthrottledSteps = 10000

var panelColor = color.RGBA{32, 32, 32, 255}

// Host runs the machine inside an ebiten game loop. Ebiten calls Update and
// Draw on the same goroutine, so the frame needs no locking.
type Host struct {
	scale    int
	panel    func() frontend.Panel
	panelH   int
	log      *slog.Logger
	speaker  *Speaker
	runner   *frontend.Runner
	ctx      context.Context
	steps    int
	display  *ebiten.Image
	pixels   []byte
	redraw   bool
	panelImg *ebiten.Image
}

type Option func(*Host)

// WithPanel draws the debug panel below the display, refreshed from fn.
func WithPanel(fn func() frontend.Panel) Option {
	return func(h *Host) { h.panel = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(h *Host) { h.log = l }
}

// New prepares the window and audio. frequency is the target instruction
// rate; zero runs a fixed large batch every tick.
func New(scale int, frequency uint, opts ...Option) (*Host, error) {
	h := &Host{
		scale: scale,
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.panel != nil {
		h.panelH = h.panel().Lines() * frontend.PanelLineHeight
	}

	h.steps = unthrottledSteps
	if frequency > 0 {
		h.steps = max(1, int(frequency)/ebiten.TPS())
	}

	speaker, err := NewSpeaker(frontend.SampleRate)
	if err != nil {
		h.log.Warn("audio unavailable", "err", err)
	}
	h.speaker = speaker
	return h, nil
}

// Run blocks in the ebiten loop until the window closes, ctx is cancelled
// or the machine faults.
func (h *Host) Run(ctx context.Context, r *frontend.Runner) error {
	h.ctx = ctx
	h.runner = r

	w, ht := h.Layout(0, 0)
	ebiten.SetWindowSize(w, ht)
	ebiten.SetWindowTitle("CHIP-8")
	ebiten.SetRunnableOnUnfocused(true)

	err := ebiten.RunGame(game{h})
	if errors.Is(err, ebiten.Termination) {
		return nil
	}
	return err
}

func (h *Host) Update() error {
	if h.ctx.Err() != nil || ebiten.IsWindowBeingClosed() {
		return ebiten.Termination
	}
	if !h.pollInput(h.runner) {
		return ebiten.Termination
	}
	h.runner.SetFocus(ebiten.IsFocused())

	if _, err := h.runner.Advance(h.steps); err != nil {
		return err
	}
	if title, ok := h.runner.FrequencyTitle(); ok {
		h.SetTitle(title)
	}
	return nil
}

func (h *Host) pollInput(eh frontend.EventHandler) bool {
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyEscape):
		return false
	case inpututil.IsKeyJustPressed(ebiten.KeyF5):
		eh.Reset()
	case inpututil.IsKeyJustPressed(ebiten.KeySpace):
		eh.StepMode()
	case inpututil.IsKeyJustPressed(ebiten.KeyEnter):
		eh.Resume()
	}
	for k, r := range keypad {
		if inpututil.IsKeyJustPressed(k) {
			eh.KeyDown(r)
		}
		if inpututil.IsKeyJustReleased(k) {
			eh.KeyUp(r)
		}
	}
	return true
}

// Draw stores the frame for the next ebiten Draw.
func (h *Host) Draw(fb *emulator.Framebuffer, p frontend.Palette) error {
	h.pixels = p.Pixels(fb)
	h.redraw = true
	return nil
}

func (h *Host) drawScreen(screen *ebiten.Image) {
	if h.display == nil {
		h.display = ebiten.NewImage(emulator.DisplayW, emulator.DisplayH)
	}
	if h.redraw {
		h.display.WritePixels(h.pixels)
		h.redraw = false
	}

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(h.scale), float64(h.scale))
	screen.DrawImage(h.display, op)

	if h.panel != nil {
		h.drawPanel(screen)
	}
}

func (h *Host) drawPanel(screen *ebiten.Image) {
	w := emulator.DisplayW * h.scale
	top := emulator.DisplayH * h.scale
	if h.panelImg == nil {
		h.panelImg = ebiten.NewImage(w, h.panelH)
		h.panelImg.Fill(panelColor)
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(0, float64(top))
	screen.DrawImage(h.panelImg, op)

	p := h.panel()
	face := basicfont.Face7x13
	for i, line := range p.History {
		text.Draw(screen, line, face, 2, top+(i+1)*frontend.PanelLineHeight-3, color.White)
	}
	for i, line := range p.Registers {
		text.Draw(screen, line, face, w/2, top+(i+1)*frontend.PanelLineHeight-3, color.White)
	}
}

func (h *Host) Layout(_, _ int) (int, int) {
	return emulator.DisplayW * h.scale, emulator.DisplayH*h.scale + h.panelH
}

func (h *Host) SetTone(on bool) {
	if h.speaker != nil {
		h.speaker.SetTone(on)
	}
}

func (h *Host) SetTitle(title string) {
	ebiten.SetWindowTitle(title)
}

func (h *Host) Close() error {
	if h.speaker != nil {
		return h.speaker.Close()
	}
	return nil
}

// game adapts Host to ebiten.Game; Host.Draw is taken by frontend.Renderer.
type game struct{ *Host }

func (g game) Draw(screen *ebiten.Image) {
	g.drawScreen(screen)
}

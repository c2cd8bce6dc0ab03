package sdlhost

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/tuboc/chip8vm/emulator"
	"github.com/tuboc/chip8vm/frontend"
)

const (
	frameInterval = time.Second / 60
	audioSamples  = 512
	// Queued audio above this many bytes is enough to cover one frame.
	audioLowWater = 4 * 2 * audioSamples
)

// Host is the SDL2 window, audio device and event source.
type Host struct {
	window   *sdl.Window
	renderer *sdl.Renderer
	audio    sdl.AudioDeviceID
	wave     *frontend.SquareWave
	log      *slog.Logger

	scale   int32
	panel   func() frontend.Panel
	panelH  int32
	fb      emulator.Framebuffer
	palette frontend.Palette
	dirty   bool
	drawnAt time.Time
	tone    bool
}

type Option func(*Host)

// WithPanel shows the debug panel below the display, refreshed from fn.
func WithPanel(fn func() frontend.Panel) Option {
	return func(h *Host) { h.panel = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(h *Host) { h.log = l }
}

func New(scale int, opts ...Option) (*Host, error) {
	h := &Host{
		scale: int32(scale),
		wave:  frontend.NewSquareWave(frontend.ToneFrequency, frontend.SampleRate, frontend.ToneVolume),
		log:   slog.Default(),
		dirty: true,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.panel != nil {
		h.panelH = int32(h.panel().Lines() * frontend.PanelLineHeight)
	}

	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_AUDIO | sdl.INIT_EVENTS); err != nil {
		return nil, fmt.Errorf("sdl init: %w", err)
	}
	if err := h.initRenderer(); err != nil {
		sdl.Quit()
		return nil, err
	}
	if err := h.initAudio(); err != nil {
		// Run silently rather than refuse to start.
		h.log.Warn("audio unavailable", "err", err)
	}
	return h, nil
}

func (h *Host) width() int32 {
	return emulator.DisplayW * h.scale
}

func (h *Host) initRenderer() error {
	window, err := sdl.CreateWindow("CHIP-8", sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		h.width(), emulator.DisplayH*h.scale+h.panelH, sdl.WINDOW_SHOWN)
	if err != nil {
		return fmt.Errorf("create window: %w", err)
	}
	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		window.Destroy()
		return fmt.Errorf("create renderer: %w", err)
	}

	// workaround for https://bugzilla.libsdl.org/show_bug.cgi?id=4272
	window.Hide()
	sdl.PumpEvents()
	window.Show()

	h.window = window
	h.renderer = renderer
	return nil
}

func (h *Host) initAudio() error {
	want := &sdl.AudioSpec{
		Freq:     frontend.SampleRate,
		Format:   sdl.AUDIO_F32LSB,
		Channels: 1,
		Samples:  audioSamples,
	}
	have := &sdl.AudioSpec{}
	audio, err := sdl.OpenAudioDevice("", false, want, have, 0)
	if err != nil {
		return err
	}
	sdl.PauseAudioDevice(audio, false)
	h.audio = audio
	return nil
}

// Draw keeps the frame; it is presented by PollEvents at most once per
// frameInterval.
func (h *Host) Draw(fb *emulator.Framebuffer, p frontend.Palette) error {
	h.fb = *fb
	h.palette = p
	h.dirty = true
	return nil
}

func (h *Host) present() {
	bg, fg := h.palette.Background, h.palette.Foreground
	h.renderer.SetDrawColor(bg.R, bg.G, bg.B, 255)
	h.renderer.Clear()

	h.renderer.SetDrawColor(fg.R, fg.G, fg.B, 255)
	for y := int32(0); y < emulator.DisplayH; y++ {
		for x := int32(0); x < emulator.DisplayW; x++ {
			if h.fb.At(int(x), int(y)) {
				h.renderer.FillRect(&sdl.Rect{X: x * h.scale, Y: y * h.scale, W: h.scale, H: h.scale})
			}
		}
	}

	if h.panel != nil {
		h.drawPanel()
	}

	h.renderer.Present()
}

func (h *Host) drawPanel() {
	top := emulator.DisplayH * h.scale
	h.renderer.SetDrawColor(32, 32, 32, 255)
	h.renderer.FillRect(&sdl.Rect{X: 0, Y: top, W: h.width(), H: h.panelH})

	mask := h.panel().Mask(int(h.width()))
	h.renderer.SetDrawColor(220, 220, 220, 255)
	b := mask.Bounds()
	for y := b.Min.Y; y < b.Max.Y && int32(y) < h.panelH; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if mask.AlphaAt(x, y).A > 0x7F {
				h.renderer.DrawPoint(int32(x), top+int32(y))
			}
		}
	}
}

// SetTone keeps the audio queue topped up while the tone is on and drops
// it when the tone stops.
func (h *Host) SetTone(on bool) {
	if h.audio == 0 {
		return
	}
	if !on {
		if h.tone {
			sdl.ClearQueuedAudio(h.audio)
			h.tone = false
		}
		return
	}
	h.tone = true
	if sdl.GetQueuedAudioSize(h.audio) < audioLowWater {
		if err := sdl.QueueAudio(h.audio, h.wave.Samples(audioSamples)); err != nil {
			h.log.Warn("queue audio", "err", err)
		}
	}
}

func (h *Host) PollEvents(eh frontend.EventHandler) bool {
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch ev := event.(type) {
		case *sdl.QuitEvent:
			return false
		case *sdl.KeyboardEvent:
			if !h.handleKey(ev, eh) {
				return false
			}
		case *sdl.WindowEvent:
			switch ev.Event {
			case sdl.WINDOWEVENT_FOCUS_LOST:
				eh.SetFocus(false)
			case sdl.WINDOWEVENT_FOCUS_GAINED:
				eh.SetFocus(true)
			case sdl.WINDOWEVENT_EXPOSED:
				h.dirty = true
			}
		}
	}

	if (h.dirty || h.panel != nil) && time.Since(h.drawnAt) >= frameInterval {
		h.present()
		h.dirty = false
		h.drawnAt = time.Now()
	}
	return true
}

func (h *Host) handleKey(ev *sdl.KeyboardEvent, eh frontend.EventHandler) bool {
	sym := ev.Keysym.Sym
	switch ev.Type {
	case sdl.KEYDOWN:
		switch sym {
		case sdl.K_ESCAPE:
			return false
		case sdl.K_F5:
			eh.Reset()
		case sdl.K_SPACE:
			eh.StepMode()
		case sdl.K_RETURN:
			eh.Resume()
		default:
			if ev.Repeat == 0 {
				eh.KeyDown(emulator.Key(rune(sym)))
			}
		}
	case sdl.KEYUP:
		eh.KeyUp(emulator.Key(rune(sym)))
	}
	return true
}

func (h *Host) SetTitle(title string) {
	h.window.SetTitle(title)
}

func (h *Host) Close() error {
	if h.audio != 0 {
		sdl.CloseAudioDevice(h.audio)
	}
	h.renderer.Destroy()
	h.window.Destroy()
	sdl.Quit()
	return nil
}

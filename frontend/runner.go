package frontend

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tuboc/chip8vm/emulator"
)

const (
	perfWindow = 500 * time.Millisecond
	idleDelay  = 5 * time.Millisecond
	maxLag     = 100 * time.Millisecond
)

// Renderer presents a frame with the given palette.
type Renderer interface {
	Draw(fb *emulator.Framebuffer, p Palette) error
}

// Speaker plays the machine tone. SetTone is called once per host step.
type Speaker interface {
	SetTone(on bool)
}

// EventHandler receives input decoded by a backend.
type EventHandler interface {
	KeyDown(k emulator.Key)
	KeyUp(k emulator.Key)
	Reset()
	StepMode()
	Resume()
	SetFocus(focused bool)
}

// Backend is a host platform that owns window, audio and input.
type Backend interface {
	Renderer
	Speaker
	// PollEvents forwards pending input to h. It reports false once the
	// user asked to quit.
	PollEvents(h EventHandler) bool
	SetTitle(title string)
	Close() error
}

// Runner is the host loop around a Chip8. It decides the instruction
// cadence, forwards the display and sound outputs and implements the
// debugger hotkeys.
type Runner struct {
	vm       *emulator.Chip8
	renderer Renderer
	speaker  Speaker
	palette  Palette
	period   time.Duration
	log      *slog.Logger
	now      func() time.Time
	reload   <-chan []byte

	stepMode bool
	stepReq  bool
	focus    bool
	cycles   uint64

	perfStart time.Time
	perfCount uint64
}

type RunnerOption func(*Runner)

func WithPalette(p Palette) RunnerOption {
	return func(r *Runner) { r.palette = p }
}

// WithFrequency throttles execution to hz instructions per second. Zero
// runs unthrottled.
func WithFrequency(hz uint) RunnerOption {
	return func(r *Runner) {
		if hz == 0 {
			r.period = 0
			return
		}
		r.period = time.Second / time.Duration(hz)
	}
}

func WithRunnerLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) { r.log = l }
}

// WithStepMode starts the runner paused in single-step mode.
func WithStepMode(on bool) RunnerOption {
	return func(r *Runner) { r.stepMode = on }
}

// WithReload loads every program received from ch, replacing the running
// one.
func WithReload(ch <-chan []byte) RunnerOption {
	return func(r *Runner) { r.reload = ch }
}

func NewRunner(vm *emulator.Chip8, renderer Renderer, speaker Speaker, opts ...RunnerOption) *Runner {
	r := &Runner{
		vm:       vm,
		renderer: renderer,
		speaker:  speaker,
		palette:  palettes[DefaultPalette],
		log:      slog.Default(),
		now:      time.Now,
		focus:    true,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.perfStart = r.now()
	return r
}

// Step executes one instruction and publishes the outputs it produced.
func (r *Runner) Step() error {
	if err := r.vm.Cycle(); err != nil {
		r.speaker.SetTone(false)
		r.dump(err)
		return err
	}
	r.cycles++
	r.perfCount++
	r.speaker.SetTone(r.vm.SoundActive())
	return r.present()
}

// Advance runs up to n steps, honouring focus and step mode. It returns the
// number of instructions executed.
func (r *Runner) Advance(n int) (int, error) {
	select {
	case program, ok := <-r.reload:
		if !ok {
			r.reload = nil
			break
		}
		if err := r.vm.LoadProgram(program); err != nil {
			r.log.Error("reload program", "err", err)
			break
		}
		r.log.Info("program reloaded", "bytes", len(program))
	default:
	}

	done := 0
	for ; done < n; done++ {
		if !r.focus {
			break
		}
		if r.stepMode {
			if !r.stepReq {
				break
			}
			r.stepReq = false
		}
		if err := r.Step(); err != nil {
			return done, err
		}
		if r.stepMode {
			r.logStep()
		}
	}
	if done == 0 {
		r.speaker.SetTone(false)
		if err := r.present(); err != nil {
			return 0, err
		}
	}
	return done, nil
}

// Run drives the machine until ctx is cancelled, the backend reports a quit
// or the machine faults.
func (r *Runner) Run(ctx context.Context, b Backend) error {
	next := r.now()
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if !b.PollEvents(r) {
			return nil
		}
		done, err := r.Advance(1)
		if err != nil {
			return err
		}
		if title, ok := r.FrequencyTitle(); ok {
			b.SetTitle(title)
		}

		switch {
		case done == 0:
			time.Sleep(idleDelay)
			next = r.now()
		case r.period > 0:
			next = next.Add(r.period)
			now := r.now()
			if d := next.Sub(now); d > 0 {
				time.Sleep(d)
			} else if -d > maxLag {
				next = now
			}
		}
	}
}

// Cycles returns the number of instructions executed by this runner.
func (r *Runner) Cycles() uint64 {
	return r.cycles
}

// Machine returns the driven VM.
func (r *Runner) Machine() *emulator.Chip8 {
	return r.vm
}

func (r *Runner) Palette() Palette {
	return r.palette
}

func (r *Runner) Stepping() bool {
	return r.stepMode
}

func (r *Runner) present() error {
	if !r.vm.Dirty() {
		return nil
	}
	fb := r.vm.Framebuffer()
	if err := r.renderer.Draw(&fb, r.palette); err != nil {
		return fmt.Errorf("draw frame: %w", err)
	}
	r.vm.ClearDirty()
	return nil
}

// FrequencyTitle returns a window title with the measured clock rate once per
// perfWindow.
func (r *Runner) FrequencyTitle() (string, bool) {
	elapsed := r.now().Sub(r.perfStart)
	if elapsed < perfWindow {
		return "", false
	}
	freq := float64(r.perfCount) / elapsed.Seconds()
	r.perfCount = 0
	r.perfStart = r.now()

	title := "CHIP-8 | " + FormatFrequency(freq)
	if r.stepMode {
		title += " | step"
	}
	return title, true
}

func (r *Runner) logStep() {
	h := r.vm.History()
	if len(h) == 0 {
		return
	}
	s := r.vm.Registers()
	r.log.Info("step",
		"instr", h[len(h)-1],
		"v", fmt.Sprintf("% X", s.V[:]),
		"i", fmt.Sprintf("%03X", s.I),
		"dt", s.DT,
		"st", s.ST,
	)
}

func (r *Runner) dump(err error) {
	s := r.vm.Registers()
	r.log.Error("machine halted",
		"err", err,
		"pc", fmt.Sprintf("%03X", s.PC),
		"i", fmt.Sprintf("%03X", s.I),
		"v", fmt.Sprintf("% X", s.V[:]),
		"sp", s.StackDepth,
		"history", strings.Join(r.vm.History(), " | "),
	)
}

func (r *Runner) KeyDown(k emulator.Key) {
	r.vm.KeyDown(k)
}

func (r *Runner) KeyUp(k emulator.Key) {
	r.vm.KeyUp(k)
}

func (r *Runner) Reset() {
	r.vm.Reset()
	r.log.Info("machine reset")
}

// StepMode pauses execution, or executes one instruction when already
// paused.
func (r *Runner) StepMode() {
	if r.stepMode {
		r.stepReq = true
		return
	}
	r.stepMode = true
	r.log.Info("step mode on")
}

func (r *Runner) Resume() {
	if r.stepMode {
		r.stepMode = false
		r.stepReq = false
		r.log.Info("step mode off")
	}
}

func (r *Runner) SetFocus(focused bool) {
	r.focus = focused
}

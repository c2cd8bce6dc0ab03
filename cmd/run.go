package cmd

import (
	"context"
	"io"
	"os"

	"github.com/tuboc/chip8vm/config"
	"github.com/tuboc/chip8vm/frontend"
	"github.com/tuboc/chip8vm/frontend/ebitenhost"
	"github.com/tuboc/chip8vm/frontend/sdlhost"
	"github.com/tuboc/chip8vm/frontend/termhost"
	"github.com/tuboc/chip8vm/logger"
	"github.com/tuboc/chip8vm/watch"
)

// run executes rom on the configured backend until the user quits, ctx is
// cancelled or the headless cycle budget is spent.
func run(ctx context.Context, cfg *config.Config, rom []byte, out io.Writer) error {
	log := logger.GetLogger()
	vm, err := newMachine(cfg, rom)
	if err != nil {
		return err
	}

	runnerOpts := []frontend.RunnerOption{
		frontend.WithPalette(frontend.ResolvePalette(cfg.Palette, log)),
		frontend.WithFrequency(cfg.Frequency),
		frontend.WithRunnerLogger(log.With("component", "runner")),
		frontend.WithStepMode(cfg.StepMode),
	}
	if cfg.Watch {
		reload, err := watch.Program(ctx, cfg.ProgramPath, log.With("component", "watch"))
		if err != nil {
			return err
		}
		runnerOpts = append(runnerOpts, frontend.WithReload(reload))
	}
	var panel func() frontend.Panel
	if cfg.Verbosity > 0 {
		panel = func() frontend.Panel { return frontend.DebugPanel(vm) }
	}
	log.Debug("starting backend", "backend", cfg.Backend, "frequency", cfg.Frequency)

	switch cfg.Backend {
	case "headless":
		h := frontend.NewHeadless(cfg.Cycles)
		runner := frontend.NewRunner(vm, h, h, runnerOpts...)
		if err := runner.Run(ctx, h); err != nil {
			return err
		}
		log.Info("headless run finished", "cycles", runner.Cycles(), "frames", h.Frames)
		return h.Dump(out)

	case "term":
		h, err := termhost.New(os.Stdin, out, termhost.WithLogger(log.With("component", "term")))
		if err != nil {
			return err
		}
		defer h.Close()
		return frontend.NewRunner(vm, h, h, runnerOpts...).Run(ctx, h)

	case "ebiten":
		hostOpts := []ebitenhost.Option{ebitenhost.WithLogger(log.With("component", "ebiten"))}
		if panel != nil {
			hostOpts = append(hostOpts, ebitenhost.WithPanel(panel))
		}
		h, err := ebitenhost.New(cfg.Scale, cfg.Frequency, hostOpts...)
		if err != nil {
			return err
		}
		defer h.Close()
		return h.Run(ctx, frontend.NewRunner(vm, h, h, runnerOpts...))

	default:
		hostOpts := []sdlhost.Option{sdlhost.WithLogger(log.With("component", "sdl"))}
		if panel != nil {
			hostOpts = append(hostOpts, sdlhost.WithPanel(panel))
		}
		h, err := sdlhost.New(cfg.Scale, hostOpts...)
		if err != nil {
			return err
		}
		defer h.Close()
		return frontend.NewRunner(vm, h, h, runnerOpts...).Run(ctx, h)
	}
}

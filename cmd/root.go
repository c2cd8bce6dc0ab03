package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tuboc/chip8vm/config"
	"github.com/tuboc/chip8vm/emulator"
	"github.com/tuboc/chip8vm/logger"
)

// NewRootCommand builds the chip8vm command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "chip8vm [flags] <program>",
		Short: "CHIP-8 virtual machine",
		Long: `chip8vm runs a CHIP-8 program in a window, a terminal or headless.

Keypad: 1 2 3 4 / q w e r / a s d f / z x c v
Hotkeys: Esc quit, F5 reset, Space step mode, Enter resume.

Settings can also come from CHIP8_* environment variables (CHIP8_PALETTE,
CHIP8_BACKEND, LOG_LEVEL, ...) or a config file given with --config.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load(cmd, args)
			if err != nil {
				return err
			}
			rom, err := os.ReadFile(cfg.ProgramPath)
			if err != nil {
				return fmt.Errorf("read program: %w", err)
			}
			if cfg.Disasm {
				return emulator.ListProgram(cmd.OutOrStdout(), rom)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, rom, cmd.OutOrStdout())
		},
	}
	config.AddMachineFlags(root.PersistentFlags())
	config.AddRunFlags(root.Flags())

	root.AddCommand(newMonitorCommand())
	return root
}

// load resolves the configuration for cmd and installs the logger.
func load(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := config.Load(config.NewViper(), cmd.Flags(), args)
	if err != nil {
		return nil, err
	}
	if err := logger.InitLogger(cfg.LogLevel, cfg.Verbosity, cfg.LogFile); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newMachine builds a machine with cfg's quirks, seed and tracing and
// loads rom into it.
func newMachine(cfg *config.Config, rom []byte) (*emulator.Chip8, error) {
	log := logger.GetLogger()
	opts := []emulator.Option{
		emulator.WithQuirks(cfg.Quirks),
		emulator.WithTrace(cfg.Verbosity),
		emulator.WithLogger(log.With("component", "vm")),
	}
	if cfg.Seed != 0 {
		opts = append(opts, emulator.WithSeed(cfg.Seed))
	}
	vm := emulator.New(opts...)
	if err := vm.LoadProgram(rom); err != nil {
		return nil, fmt.Errorf("load %s: %w", cfg.ProgramPath, err)
	}
	log.Info("program loaded",
		"path", cfg.ProgramPath,
		"bytes", len(rom),
		"quirks", cfg.Quirks.String(),
	)
	return vm, nil
}

// Execute runs the command line in args and reports errors on stderr.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "chip8vm: %v\n", err)
		return 1
	}
	return 0
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tuboc/chip8vm/logger"
	"github.com/tuboc/chip8vm/monitor"
)

func newMonitorCommand() *cobra.Command {
	var eval []string
	cmd := &cobra.Command{
		Use:   "monitor [flags] <program>",
		Short: "Debug a program from an interactive shell",
		Long: `monitor loads a program without a display and opens a shell to step
through it, set breakpoints and inspect registers and memory.

With --eval the commands are run in order and the shell is not opened.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load(cmd, args)
			if err != nil {
				return err
			}
			rom, err := os.ReadFile(cfg.ProgramPath)
			if err != nil {
				return fmt.Errorf("read program: %w", err)
			}
			vm, err := newMachine(cfg, rom)
			if err != nil {
				return err
			}

			m := monitor.New(vm, cmd.OutOrStdout(),
				monitor.WithLogger(logger.GetLogger().With("component", "monitor")))
			if len(eval) > 0 {
				for _, line := range eval {
					if !m.Exec(line) {
						break
					}
				}
				return nil
			}
			m.Run()
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&eval, "eval", "e", nil, "run a monitor command instead of opening the shell (repeatable)")
	return cmd
}

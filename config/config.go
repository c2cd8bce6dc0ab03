package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tuboc/chip8vm/emulator"
)

const (
	DefaultScale   = 20
	DefaultBackend = "sdl"
	EnvPrefix      = "CHIP8"
)

var backends = []string{"sdl", "ebiten", "term", "headless"}

// Config holds the resolved run settings.
type Config struct {
	ProgramPath string
	Frequency   uint
	Verbosity   int
	Palette     string
	Backend     string
	Scale       int
	Seed        uint64
	Quirks      emulator.Quirks
	Disasm      bool
	Cycles      uint64
	StepMode    bool
	Watch       bool
	LogLevel    string
	LogFile     string
}

// NewViper returns a viper instance reading CHIP8_* environment variables.
// LOG_LEVEL is honoured without the prefix.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("colour", EnvPrefix+"_PALETTE", EnvPrefix+"_COLOUR")
	_ = v.BindEnv("log-level", EnvPrefix+"_LOG_LEVEL", "LOG_LEVEL")
	v.SetDefault("backend", DefaultBackend)
	v.SetDefault("scale", DefaultScale)
	v.SetDefault("log-level", "info")
	return v
}

// AddMachineFlags registers the flags shared by every command that builds
// a machine.
func AddMachineFlags(fs *pflag.FlagSet) {
	fs.Uint64("seed", 0, "random seed (0 = time based)")
	fs.String("quirks", "", "comma-separated quirks: shift-in-place, keep-flag-on-logic, static-index, no-index-overflow-flag")
	fs.CountP("verbose", "v", "increase verbosity, repeatable (-vv also logs registers)")
	fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.String("log-file", "", "write logs to a rotated file instead of stderr")
	fs.String("config", "", "config file (yaml, toml or json)")
}

// AddRunFlags registers the flags of the emulator command.
func AddRunFlags(fs *pflag.FlagSet) {
	fs.UintP("frequency", "f", 0, "target instructions per second (0 = unthrottled)")
	fs.StringP("colour", "c", "", "palette: mono, amber, pride, moneybags")
	fs.String("backend", DefaultBackend, "host backend: "+strings.Join(backends, ", "))
	fs.Int("scale", DefaultScale, "window pixels per CHIP-8 pixel")
	fs.Bool("disasm", false, "print a program listing and exit")
	fs.Uint64("cycles", 0, "stop after this many host steps (0 = never)")
	fs.BoolP("step", "s", false, "start in step mode")
	fs.Bool("watch", false, "reload the program when the file changes")
}

// Load resolves the settings. Flags set on the command line win over
// environment variables, which win over the config file and then the flag
// defaults.
func Load(v *viper.Viper, fs *pflag.FlagSet, args []string) (*Config, error) {
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		Frequency: v.GetUint("frequency"),
		Verbosity: v.GetInt("verbose"),
		Palette:   v.GetString("colour"),
		Backend:   strings.ToLower(v.GetString("backend")),
		Scale:     v.GetInt("scale"),
		Seed:      v.GetUint64("seed"),
		Disasm:    v.GetBool("disasm"),
		Cycles:    v.GetUint64("cycles"),
		StepMode:  v.GetBool("step"),
		Watch:     v.GetBool("watch"),
		LogLevel:  strings.ToLower(v.GetString("log-level")),
		LogFile:   v.GetString("log-file"),
	}
	if !validBackend(cfg.Backend) {
		return nil, fmt.Errorf("invalid backend: %s (must be one of %s)", cfg.Backend, strings.Join(backends, ", "))
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", cfg.LogLevel)
	}
	if cfg.Scale < 1 {
		return nil, fmt.Errorf("scale must be positive, got %d", cfg.Scale)
	}
	q, err := emulator.ParseQuirks(v.GetString("quirks"))
	if err != nil {
		return nil, err
	}
	cfg.Quirks = q

	switch len(args) {
	case 0:
		return nil, fmt.Errorf("missing program path")
	case 1:
		cfg.ProgramPath = args[0]
	default:
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(args[1:], " "))
	}
	return cfg, nil
}

func validBackend(name string) bool {
	for _, b := range backends {
		if b == name {
			return true
		}
	}
	return false
}

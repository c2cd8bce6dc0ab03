package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

var globalLogger *slog.Logger

// ParseLevel maps a level name to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s", level)
	}
}

// New builds a text logger writing to w. Any verbosity above zero lowers
// the level to debug so instruction traces become visible.
func New(w io.Writer, level string, verbosity int) (*slog.Logger, error) {
	slogLevel, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if verbosity > 0 {
		slogLevel = slog.LevelDebug
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: slogLevel,
	})
	return slog.New(handler), nil
}

// Output returns stderr, or a size-rotated log file when file is set.
func Output(file string) io.Writer {
	if file == "" {
		return os.Stderr
	}
	return &lumberjack.Logger{
		Filename:   file,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
	}
}

// InitLogger installs the process default logger. An empty file logs to
// stderr.
func InitLogger(level string, verbosity int, file string) error {
	l, err := New(Output(file), level, verbosity)
	if err != nil {
		return err
	}
	globalLogger = l
	slog.SetDefault(globalLogger)
	return nil
}

// GetLogger returns the installed logger, or slog.Default before InitLogger.
func GetLogger() *slog.Logger {
	if globalLogger == nil {
		return slog.Default()
	}
	return globalLogger
}

// Package logging wires up the fuzzer's root logger: a terminal handler on
// stderr (colorized when stderr is a tty), or a rotating file handler when a
// file path is configured, matching the handler-selection idiom the teacher's CLI entry
// point (cmd/simulator/main) uses for go-ethereum's slog-based log package.
package logging

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ethereum/go-ethereum/log"
	colorable "github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the root logger.
type Options struct {
	// Level is one of "trace", "debug", "info", "warn", "error", "crit".
	Level string

	// FilePath, if set, rotates log lines into this file via lumberjack
	// instead of writing to the terminal.
	FilePath string
}

// Setup installs a root logger per Options and returns the resolved level
// so callers can gate expensive log-argument construction.
func Setup(opts Options) (slog.Level, error) {
	lvl, err := parseLevel(orDefault(opts.Level, "info"))
	if err != nil {
		return 0, err
	}

	var handler slog.Handler
	if opts.FilePath != "" {
		writer := &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    50, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
		handler = log.NewTerminalHandlerWithLevel(writer, lvl, false)
	} else {
		useColor := isatty.IsTerminal(os.Stderr.Fd())
		out := colorable.NewColorable(os.Stderr)
		handler = log.NewTerminalHandlerWithLevel(out, lvl, useColor)
	}

	log.SetDefault(log.NewLogger(handler))
	return lvl, nil
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "trace":
		return log.LevelTrace, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	case "crit":
		return log.LevelCrit, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

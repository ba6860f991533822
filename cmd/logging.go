package cmd

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/lepinkainen/humanlog"
	"github.com/mattn/go-isatty"
)

// initLogging installs the default logger: human-readable on a terminal,
// JSON otherwise. Every line carries the run ID.
func initLogging(w io.Writer, level string, forceJSON bool) *slog.Logger {
	lvl := parseLevel(level)

	var handler slog.Handler
	if forceJSON || !isTerminal(w) {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	} else {
		handler = humanlog.NewHandler(w, &humanlog.Options{
			Level: lvl,
		})
	}

	logger := slog.New(handler).With("run_id", uuid.NewString())
	slog.SetDefault(logger)
	return logger
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Package logging builds the run logger. Output goes to stderr so every
// emit mode keeps stdout machine-readable.
package logging

import (
	"log/slog"
	"os"
)

// New creates a text slog.Logger at info level, or debug when verbose.
func New(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

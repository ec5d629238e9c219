// Package logging sets up the global slog logger. All diagnostics go to
// stderr: stdout is reserved for the GeoJSON result.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Setup initialises the default logger at the given level
// ("debug", "info", "warn", or "error"; default "info").
func Setup(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}

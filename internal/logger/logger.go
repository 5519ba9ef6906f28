// ABOUTME: Structured logging configuration using log/slog.
// ABOUTME: Routes logs to stderr for commands or to a debug log file for the TUI.

package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// DebugLogName is the file written under the config dir while the TUI runs.
const DebugLogName = "debug.log"

// Init configures the default slog logger based on environment variables.
// LOG_LEVEL: debug, info, warn, error (default: info)
// LOG_FORMAT: text, json (default: text)
func Init(w io.Writer) {
	slog.SetDefault(New(w, os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT")))
}

// New builds a logger writing to w with the given level and format names.
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// InitFile points the default logger at <configDir>/debug.log so nothing is
// written over a full-screen terminal UI. If configDir is empty, logs are
// discarded. The returned func closes the file.
func InitFile(configDir string) (func(), error) {
	if configDir == "" {
		slog.SetDefault(New(io.Discard, "", ""))
		return func() {}, nil
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return func() {}, err
	}

	f, err := os.OpenFile(filepath.Join(configDir, DebugLogName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return func() {}, err
	}

	Init(f)
	return func() { f.Close() }, nil
}

// parseLevel converts a string log level to slog.Level.
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

// Package logger holds the process-wide structured logger used by the heap
// packages and heapctl. It discards everything until Init enables it.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// L is the process-wide logger. It discards until Init enables it.
var L = slog.New(slog.DiscardHandler)

// AllocTraceEnv enables per-operation allocator tracing when set to any
// non-empty value.
const AllocTraceEnv = "FWHEAP_LOG_ALLOC"

const (
	logPrefix     = "heapctl-"
	logSuffix     = ".log"
	retentionDays = 30
)

// Options configures the logger initialization.
type Options struct {
	Enabled bool       // If false, all logging is discarded
	Level   slog.Level // Minimum log level. Default: LevelInfo when enabled
	JSON    bool       // Emit JSON records instead of text

	// Writer receives log records. When nil, records go to a dated file in
	// LogDir (default ~/.fwheap/logs).
	Writer io.Writer
	LogDir string
}

// Init configures logging. Call from main() before any log calls.
// If opts.Enabled is false, all log output is discarded.
func Init(opts Options) error {
	if !opts.Enabled {
		L = slog.New(slog.DiscardHandler)
		return nil
	}

	w := opts.Writer
	if w == nil {
		f, err := openLogFile(opts.LogDir)
		if err != nil {
			return err
		}
		w = f
	}

	level := opts.Level
	if level == 0 {
		level = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	if opts.JSON {
		L = slog.New(slog.NewJSONHandler(w, handlerOpts))
	} else {
		L = slog.New(slog.NewTextHandler(w, handlerOpts))
	}
	return nil
}

// AllocTracing reports whether FWHEAP_LOG_ALLOC requests allocator tracing.
func AllocTracing() bool {
	return os.Getenv(AllocTraceEnv) != ""
}

// ParseLevel maps a flag value (debug, info, warn, error) to a slog level.
// Unknown values fall back to info.
func ParseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

const dateLayout = "2006-01-02"

// openLogFile appends to today's file in logDir (default ~/.fwheap/logs),
// pruning files past the retention window first.
func openLogFile(logDir string) (*os.File, error) {
	if logDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		logDir = filepath.Join(home, ".fwheap", "logs")
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, err
	}
	pruneLogs(logDir, time.Now().AddDate(0, 0, -retentionDays))

	name := logPrefix + time.Now().Format(dateLayout) + logSuffix
	return os.OpenFile(filepath.Join(logDir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

// pruneLogs removes heapctl-YYYY-MM-DD.log files dated before cutoff.
// Failures are ignored.
func pruneLogs(logDir string, cutoff time.Time) {
	entries, err := os.ReadDir(logDir)
	if err != nil {
		return
	}
	for _, e := range entries {
		date, ok := strings.CutPrefix(e.Name(), logPrefix)
		if !ok {
			continue
		}
		if date, ok = strings.CutSuffix(date, logSuffix); !ok {
			continue
		}
		if day, err := time.Parse(dateLayout, date); err == nil && day.Before(cutoff) {
			_ = os.Remove(filepath.Join(logDir, e.Name()))
		}
	}
}

// Debug logs a debug message with optional key-value pairs.
func Debug(msg string, args ...any) { L.Debug(msg, args...) }

// Info logs an info message with optional key-value pairs.
func Info(msg string, args ...any) { L.Info(msg, args...) }

// Warn logs a warning message with optional key-value pairs.
func Warn(msg string, args ...any) { L.Warn(msg, args...) }

// Error logs an error message with optional key-value pairs.
func Error(msg string, args ...any) { L.Error(msg, args...) }

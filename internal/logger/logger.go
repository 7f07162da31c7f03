// Package logger provides leveled logging for the slack-archive CLI.
//
// Console output goes to stderr and shows warnings and errors only, unless
// verbose mode is enabled via the --verbose flag, in which case debug and
// info messages are printed too. A rotating log file can be attached with
// SetFile; it receives JSON records at its own level regardless of verbosity.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
	console           = newConsole(os.Stderr, false)
	file    *slog.Logger
)

func newConsole(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Console lines are read by people; timestamps live in the log file.
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	}))
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	console = newConsole(output, verbose)
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for console logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	console = newConsole(output, verbose)
}

// SetFile attaches a size-rotated JSON log file at the given level.
// An empty path detaches the current file. The returned closer releases
// the file handle.
func SetFile(path, level string) (io.Closer, error) {
	mu.Lock()
	defer mu.Unlock()

	if path == "" {
		file = nil
		return io.NopCloser(nil), nil
	}

	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[1:])
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	sink := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}
	file = slog.New(slog.NewJSONHandler(sink, &slog.HandlerOptions{
		Level: ParseLevel(level),
	}))
	return sink, nil
}

// ParseLevel converts a level name to slog.Level. Unknown names map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func log(level slog.Level, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()

	ctx := context.Background()
	consoleOn := console.Enabled(ctx, level)
	fileOn := file != nil && file.Enabled(ctx, level)
	if !consoleOn && !fileOn {
		return
	}

	msg := fmt.Sprintf(format, args...)
	if consoleOn {
		console.Log(ctx, level, msg)
	}
	if fileOn {
		file.Log(ctx, level, msg)
	}
}

// Debug logs a message at debug level.
func Debug(format string, args ...any) {
	log(slog.LevelDebug, format, args...)
}

// Info logs an informational message.
func Info(format string, args ...any) {
	log(slog.LevelInfo, format, args...)
}

// Warn logs a warning. Warnings reach the console even without verbose mode.
func Warn(format string, args ...any) {
	log(slog.LevelWarn, format, args...)
}

// Error logs an error.
func Error(format string, args ...any) {
	log(slog.LevelError, format, args...)
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Package logger provides the process-wide structured logger. It wraps
// log/slog with runtime level and format switching and a compact
// console handler for interactive use.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Config selects the log level, output format and destination.
type Config struct {
	Level  string // DEBUG, INFO, WARN or ERROR
	Format string // text or json
	Output string // stdout, stderr or a file path
}

var (
	mu       sync.Mutex
	minLevel slog.LevelVar
	jsonOut  bool
	out      io.Writer = os.Stdout
	color    bool
	active   atomic.Pointer[slog.Logger]
)

func init() {
	color = writerIsTerminal(out)
	rebuild()
}

func writerIsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isTerminal(f.Fd())
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug, true
	case "INFO":
		return slog.LevelInfo, true
	case "WARN":
		return slog.LevelWarn, true
	case "ERROR":
		return slog.LevelError, true
	}
	return 0, false
}

// rebuild installs a handler for the current output and format. Callers
// must hold mu; init is the only exception since nothing else runs yet.
func rebuild() {
	var h slog.Handler
	if jsonOut {
		h = slog.NewJSONHandler(out, &slog.HandlerOptions{Level: &minLevel})
	} else {
		h = newConsoleHandler(out, &minLevel, color)
	}
	active.Store(slog.New(h))
}

// Init applies cfg to the process-wide logger. An empty field leaves the
// corresponding setting unchanged.
func Init(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	if cfg.Output != "" {
		switch strings.ToLower(cfg.Output) {
		case "stdout":
			out = os.Stdout
		case "stderr":
			out = os.Stderr
		default:
			f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				return fmt.Errorf("failed to open log file %q: %w", cfg.Output, err)
			}
			out = f
		}
		color = writerIsTerminal(out)
	}

	if cfg.Level != "" {
		if lvl, ok := parseLevel(cfg.Level); ok {
			minLevel.Set(lvl)
		}
	}
	if cfg.Format != "" {
		applyFormat(cfg.Format)
	}

	rebuild()
	return nil
}

// InitWithWriter points the logger at an arbitrary writer. Tests use
// this to capture output.
func InitWithWriter(w io.Writer, level, format string, enableColor bool) {
	mu.Lock()
	defer mu.Unlock()

	out = w
	color = enableColor
	if level != "" {
		if lvl, ok := parseLevel(level); ok {
			minLevel.Set(lvl)
		}
	}
	if format != "" {
		applyFormat(format)
	}
	rebuild()
}

func applyFormat(format string) {
	switch strings.ToLower(format) {
	case "json":
		jsonOut = true
	case "text":
		jsonOut = false
	}
}

// SetLevel changes the minimum level. Unknown names are ignored.
func SetLevel(level string) {
	if lvl, ok := parseLevel(level); ok {
		minLevel.Set(lvl)
	}
}

// SetFormat switches between text and json output. Unknown formats are
// ignored.
func SetFormat(format string) {
	f := strings.ToLower(format)
	if f != "text" && f != "json" {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	jsonOut = f == "json"
	rebuild()
}

// Debug logs at debug level. Args are slog key/value pairs or Attrs.
func Debug(msg string, args ...any) {
	active.Load().Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	active.Load().Info(msg, args...)
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	active.Load().Warn(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	active.Load().Error(msg, args...)
}

// DebugCtx logs at debug level, prepending fields from any LogContext
// carried by ctx.
func DebugCtx(ctx context.Context, msg string, args ...any) {
	active.Load().Debug(msg, withContextFields(ctx, args)...)
}

// InfoCtx logs at info level with context fields.
func InfoCtx(ctx context.Context, msg string, args ...any) {
	active.Load().Info(msg, withContextFields(ctx, args)...)
}

// WarnCtx logs at warn level with context fields.
func WarnCtx(ctx context.Context, msg string, args ...any) {
	active.Load().Warn(msg, withContextFields(ctx, args)...)
}

// ErrorCtx logs at error level with context fields.
func ErrorCtx(ctx context.Context, msg string, args ...any) {
	active.Load().Error(msg, withContextFields(ctx, args)...)
}

func withContextFields(ctx context.Context, args []any) []any {
	lc := FromContext(ctx)
	if lc == nil {
		return args
	}

	merged := make([]any, 0, 4+len(args))
	if lc.Queue != "" {
		merged = append(merged, KeyQueue, lc.Queue)
	}
	if lc.Operation != "" {
		merged = append(merged, KeyOperation, lc.Operation)
	}
	return append(merged, args...)
}

// With returns a slog.Logger carrying the given attributes.
func With(args ...any) *slog.Logger {
	return active.Load().With(args...)
}

// Duration returns the time elapsed since start in milliseconds.
func Duration(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

// Debugf logs a printf-formatted message at debug level.
func Debugf(format string, v ...any) {
	active.Load().Debug(fmt.Sprintf(format, v...))
}

// Infof logs a printf-formatted message at info level.
func Infof(format string, v ...any) {
	active.Load().Info(fmt.Sprintf(format, v...))
}

// Warnf logs a printf-formatted message at warn level.
func Warnf(format string, v ...any) {
	active.Load().Warn(fmt.Sprintf(format, v...))
}

// Errorf logs a printf-formatted message at error level.
func Errorf(format string, v ...any) {
	active.Load().Error(fmt.Sprintf(format, v...))
}

// Package log provides structured logging for the light client. It wraps
// Go's log/slog with per-module child loggers.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with per-module context.
type Logger struct {
	inner *slog.Logger
}

// defaultLogger is the process-wide logger used by the package-level
// convenience functions.
var defaultLogger *Logger

func init() {
	defaultLogger = New(slog.LevelInfo)
}

// New creates a Logger that writes JSON to stderr at the given level.
func New(level slog.Level) *Logger {
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{inner: slog.New(h)}
}

// NewWithHandler creates a Logger backed by the supplied slog.Handler. This
// is useful for testing or for writing to a custom destination.
func NewWithHandler(h slog.Handler) *Logger {
	return &Logger{inner: slog.New(h)}
}

// SetDefault replaces the package-level default logger.
func SetDefault(l *Logger) {
	if l != nil {
		defaultLogger = l
	}
}

// Default returns the current package-level default logger.
func Default() *Logger {
	return defaultLogger
}

// Module returns a child logger with an additional "module" attribute. This
// is how a subsystem obtains its own contextual logger; the driver loop
// (module "driver") is the one that does so.
func (l *Logger) Module(name string) *Logger {
	return &Logger{inner: l.inner.With("module", name)}
}

// WithHeight returns a child logger annotated with the light client height a
// log line concerns -- the one piece of context nearly every verifier and
// driver log line carries.
func (l *Logger) WithHeight(height uint64) *Logger {
	return l.With("height", height)
}

// With returns a child logger with additional key-value context.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{inner: l.inner.With(args...)}
}

// Debug logs at LevelDebug.
func (l *Logger) Debug(msg string, args ...any) { l.inner.Debug(msg, args...) }

// Info logs at LevelInfo.
func (l *Logger) Info(msg string, args ...any) { l.inner.Info(msg, args...) }

// Warn logs at LevelWarn.
func (l *Logger) Warn(msg string, args ...any) { l.inner.Warn(msg, args...) }

// Error logs at LevelError.
func (l *Logger) Error(msg string, args ...any) { l.inner.Error(msg, args...) }

// ---------------------------------------------------------------------------
// Package-level convenience functions -- delegate to defaultLogger.
// ---------------------------------------------------------------------------

// Debug logs at LevelDebug using the default logger.
func Debug(msg string, args ...any) { defaultLogger.Debug(msg, args...) }

// Info logs at LevelInfo using the default logger.
func Info(msg string, args ...any) { defaultLogger.Info(msg, args...) }

// Warn logs at LevelWarn using the default logger.
func Warn(msg string, args ...any) { defaultLogger.Warn(msg, args...) }

// Error logs at LevelError using the default logger.
func Error(msg string, args ...any) { defaultLogger.Error(msg, args...) }

// ---------------------------------------------------------------------------
// Human-readable output mode -- bridges LogFormatter to slog.Handler so the
// CLI's --log-format flag can pick a terminal-friendly rendering instead of
// the default JSON handler, without the rest of the stack (which only ever
// logs through *Logger) knowing the difference.
// ---------------------------------------------------------------------------

// FormattingHandler adapts a LogFormatter to slog.Handler.
type FormattingHandler struct {
	formatter LogFormatter
	out       io.Writer
	minLevel  slog.Level
	attrs     []slog.Attr
}

// NewFormattingHandler builds a slog.Handler that renders every record
// through formatter instead of as JSON.
func NewFormattingHandler(formatter LogFormatter, out io.Writer, minLevel slog.Level) *FormattingHandler {
	return &FormattingHandler{formatter: formatter, out: out, minLevel: minLevel}
}

// Enabled reports whether level meets this handler's minimum.
func (h *FormattingHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.minLevel
}

// Handle renders r through the configured LogFormatter.
func (h *FormattingHandler) Handle(_ context.Context, r slog.Record) error {
	fields := make(map[string]interface{}, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		fields[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		fields[a.Key] = a.Value.Any()
		return true
	})
	entry := LogEntry{
		Timestamp: r.Time,
		Level:     slogLevelToLogLevel(r.Level),
		Message:   r.Message,
		Fields:    fields,
	}
	_, err := fmt.Fprintln(h.out, h.formatter.Format(entry))
	return err
}

// WithAttrs returns a handler carrying attrs forward into every future
// Handle call, matching Module/With's per-logger context.
func (h *FormattingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &FormattingHandler{formatter: h.formatter, out: h.out, minLevel: h.minLevel, attrs: merged}
}

// WithGroup is a no-op: LogEntry.Fields is a flat map, and nothing in this
// module's logging ever opens an slog group.
func (h *FormattingHandler) WithGroup(_ string) slog.Handler {
	return h
}

func slogLevelToLogLevel(l slog.Level) LogLevel {
	switch {
	case l < slog.LevelInfo:
		return DEBUG
	case l < slog.LevelWarn:
		return INFO
	case l < slog.LevelError:
		return WARN
	default:
		return ERROR
	}
}

func logLevelToSlogLevel(l LogLevel) slog.Level {
	switch l {
	case DEBUG:
		return slog.LevelDebug
	case WARN:
		return slog.LevelWarn
	case ERROR, FATAL:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewFormatted builds a Logger for the CLI's --log-format flag: "json" (the
// default) keeps the plain slog JSON handler every other caller gets from
// New, while "text"/"color" route through TextFormatter/ColorFormatter for
// an operator watching an interactive terminal.
func NewFormatted(format string, level LogLevel) (*Logger, error) {
	slogLevel := logLevelToSlogLevel(level)
	switch format {
	case "", "json":
		return New(slogLevel), nil
	case "text":
		return NewWithHandler(NewFormattingHandler(&TextFormatter{}, os.Stderr, slogLevel)), nil
	case "color":
		return NewWithHandler(NewFormattingHandler(&ColorFormatter{}, os.Stderr, slogLevel)), nil
	default:
		return nil, fmt.Errorf("log: unknown format %q", format)
	}
}

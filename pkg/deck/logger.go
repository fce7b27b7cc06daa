package deck

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

type Fields map[string]interface{}

// Logger is a small printf-style facade over slog
type Logger struct {
	handler slog.Handler
	level   *slog.LevelVar
	attrs   []slog.Attr
	format  string
}

// LogOptions configures NewLogger
type LogOptions struct {
	// Level is one of debug, info, warn, error or off
	Level string
	// Format is console, json or auto (console on a terminal, json otherwise)
	Format string
}

var (
	globalLogger   *Logger
	globalLoggerMu sync.RWMutex
)

func init() {
	cfg := GetGlobalConfig()
	globalLogger = NewLogger(os.Stderr, LogOptions{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
}

// NewLogger builds a logger writing to w
func NewLogger(w io.Writer, opts LogOptions) *Logger {
	if w == nil {
		w = io.Discard
	}
	level := new(slog.LevelVar)
	level.Set(parseLogLevel(opts.Level))
	handlerOpts := &slog.HandlerOptions{Level: level}

	format := resolveLogFormat(opts.Format, w)
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(w, handlerOpts)
	default:
		handler = slog.NewTextHandler(w, handlerOpts)
	}
	return &Logger{handler: handler, level: level, format: format}
}

func resolveLogFormat(format string, w io.Writer) string {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "console" || format == "json" {
		return format
	}
	if f, ok := w.(*os.File); ok {
		fd := f.Fd()
		if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
			return "console"
		}
		return "json"
	}
	return "console"
}

// levelOff sits above every level slog emits
const levelOff = slog.Level(100)

func parseLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "off":
		return levelOff
	default:
		return slog.LevelInfo
	}
}

// SetLevel changes the minimum level
func (l *Logger) SetLevel(level string) {
	l.level.Set(parseLogLevel(level))
}

// IsDebugMode reports whether debug messages are emitted
func (l *Logger) IsDebugMode() bool {
	return l.level.Level() <= slog.LevelDebug
}

func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.WithFields(Fields{key: value})
}

func (l *Logger) WithFields(fields Fields) *Logger {
	attrs := make([]slog.Attr, 0, len(l.attrs)+len(fields))
	attrs = append(attrs, l.attrs...)
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, fields[k]))
	}
	return &Logger{handler: l.handler, level: l.level, attrs: attrs, format: l.format}
}

// Slog exposes the logger as a *slog.Logger for libraries that take one
func (l *Logger) Slog() *slog.Logger {
	return slog.New(l.handler.WithAttrs(l.attrs))
}

func (l *Logger) log(level slog.Level, format string, args ...interface{}) {
	ctx := context.Background()
	if !l.handler.Enabled(ctx, level) {
		return
	}
	l.Slog().Log(ctx, level, fmt.Sprintf(format, args...))
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(slog.LevelDebug, format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.log(slog.LevelInfo, format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(slog.LevelWarn, format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.log(slog.LevelError, format, args...)
}

// Global logging functions
func SetLogger(logger *Logger) {
	globalLoggerMu.Lock()
	defer globalLoggerMu.Unlock()
	globalLogger = logger
}

func GetLogger() *Logger {
	globalLoggerMu.RLock()
	defer globalLoggerMu.RUnlock()
	return globalLogger
}

func Debug(format string, args ...interface{}) {
	GetLogger().Debug(format, args...)
}

func Info(format string, args ...interface{}) {
	GetLogger().Info(format, args...)
}

func Warn(format string, args ...interface{}) {
	GetLogger().Warn(format, args...)
}

func Error(format string, args ...interface{}) {
	GetLogger().Error(format, args...)
}

func WithField(key string, value interface{}) *Logger {
	return GetLogger().WithField(key, value)
}

func WithFields(fields Fields) *Logger {
	return GetLogger().WithFields(fields)
}

// UpdateLoggerFromConfig applies the global configuration's logging section.
// A changed format replaces the global logger with a new stderr logger.
func UpdateLoggerFromConfig() {
	cfg := GetGlobalConfig().Logging
	logger := GetLogger()
	if resolveLogFormat(cfg.Format, os.Stderr) != logger.format {
		SetLogger(NewLogger(os.Stderr, LogOptions{Level: cfg.Level, Format: cfg.Format}))
		return
	}
	logger.SetLevel(cfg.Level)
}

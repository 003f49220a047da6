package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger defines the counters logging contract.
// Implementations should support standard log levels and be safe for concurrent use.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Debug(msg string, args ...any)
}

// Options selects where and how log lines are written.
type Options struct {
	Level      string // debug, info, warn, error
	Format     string // console or json
	File       string // optional; rotated with lumberjack when set
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// ZeroLogger adapts zerolog to the counters logging contract.
type ZeroLogger struct {
	zlog zerolog.Logger
}

// New creates a ZeroLogger that writes to stderr and, if configured, a
// rotating log file.
func New(opts Options) *ZeroLogger {
	var out io.Writer = os.Stderr
	if opts.Format != "json" {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	if opts.File != "" {
		out = zerolog.MultiLevelWriter(out, &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
		})
	}
	return NewWithWriter(out, opts.Level)
}

// NewWithWriter creates a ZeroLogger emitting JSON lines to w.
func NewWithWriter(w io.Writer, level string) *ZeroLogger {
	zlog := zerolog.New(w).With().Timestamp().Logger().Level(ParseLevel(level))
	return &ZeroLogger{zlog: zlog}
}

// ParseLevel maps a level name to zerolog, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// With returns a child logger that tags every line with component.
func (l *ZeroLogger) With(component string) *ZeroLogger {
	return &ZeroLogger{zlog: l.zlog.With().Str("component", component).Logger()}
}

func (l *ZeroLogger) Info(msg string, args ...any) {
	l.zlog.Info().Msgf(msg, args...)
}

func (l *ZeroLogger) Warn(msg string, args ...any) {
	l.zlog.Warn().Msgf(msg, args...)
}

func (l *ZeroLogger) Error(msg string, args ...any) {
	l.zlog.Error().Msgf(msg, args...)
}

func (l *ZeroLogger) Debug(msg string, args ...any) {
	l.zlog.Debug().Msgf(msg, args...)
}

// Default provides a global default logger instance writing to stderr.
var Default Logger = New(Options{Level: "info"})

package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LogLevel tags the kind of entry written, on top of the zerolog level
type LogLevel string

const (
	LogLevelInfo    LogLevel = "INFO"
	LogLevelWarning LogLevel = "WARN"
	LogLevelError   LogLevel = "ERROR"
	LogLevelTrade   LogLevel = "TRADE"
	LogLevelStatus  LogLevel = "STATUS"
)

// Options control where a Logger writes
type Options struct {
	Dir     string // log directory, empty disables the file sink
	Level   string // zerolog level name, defaults to info
	Console bool   // mirror to stderr with the console writer
}

// Logger is the session logger shared by all components
type Logger struct {
	name    string
	logDir  string
	logFile *os.File
	zl      zerolog.Logger
	mu      *sync.Mutex
	root    bool
}

// NewLogger creates a session logger writing JSON lines to <dir>/<name>_<date>.log
func NewLogger(name string, opts Options) (*Logger, error) {
	var writers []io.Writer
	var file *os.File

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		path := filepath.Join(opts.Dir, fmt.Sprintf("%s_%s.log", name, time.Now().Format("2006-01-02")))
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		file = f
		writers = append(writers, f)
	}
	if opts.Console {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05"})
	}

	var out io.Writer = io.Discard
	if len(writers) == 1 {
		out = writers[0]
	} else if len(writers) > 1 {
		out = zerolog.MultiLevelWriter(writers...)
	}

	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}

	l := &Logger{
		name:    name,
		logDir:  opts.Dir,
		logFile: file,
		zl:      zerolog.New(out).Level(level).With().Timestamp().Str("session", name).Logger(),
		mu:      &sync.Mutex{},
		root:    true,
	}

	l.zl.Info().Str("kind", string(LogLevelStatus)).Msg("session started")
	return l, nil
}

// NewWriterLogger builds a logger over an arbitrary writer, mainly for tests
func NewWriterLogger(name string, w io.Writer) *Logger {
	return &Logger{
		name: name,
		zl:   zerolog.New(w).With().Timestamp().Str("session", name).Logger(),
		mu:   &sync.Mutex{},
		root: true,
	}
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{name: "nop", zl: zerolog.Nop(), mu: &sync.Mutex{}}
}

// With returns a child logger tagged with a component name
func (l *Logger) With(component string) *Logger {
	return l.WithField("component", component)
}

// WithField returns a child logger carrying one extra field
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{
		name:    l.name,
		logDir:  l.logDir,
		logFile: l.logFile,
		zl:      l.zl.With().Interface(key, value).Logger(),
		mu:      l.mu,
	}
}

// Zerolog exposes the underlying logger for structured events
func (l *Logger) Zerolog() *zerolog.Logger {
	return &l.zl
}

// Log writes a formatted log entry with the specified level
func (l *Logger) Log(level LogLevel, format string, args ...interface{}) {
	var ev *zerolog.Event
	switch level {
	case LogLevelWarning:
		ev = l.zl.Warn()
	case LogLevelError:
		ev = l.zl.Error()
	default:
		ev = l.zl.Info()
	}
	if level == LogLevelTrade || level == LogLevelStatus {
		ev = ev.Str("kind", string(level))
	}
	ev.Msgf(format, args...)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.Log(LogLevelInfo, format, args...)
}

// Warning logs a warning message
func (l *Logger) Warning(format string, args ...interface{}) {
	l.Log(LogLevelWarning, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.Log(LogLevelError, format, args...)
}

// Trade logs a position open or close
func (l *Logger) Trade(format string, args ...interface{}) {
	l.Log(LogLevelTrade, format, args...)
}

// Status logs cycle and portfolio status
func (l *Logger) Status(format string, args ...interface{}) {
	l.Log(LogLevelStatus, format, args...)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.zl.Debug().Msgf(format, args...)
}

// LogError logs error with context
func (l *Logger) LogError(context string, err error) {
	l.zl.Error().Err(err).Msg(context)
}

// LogWarning logs warning with context
func (l *Logger) LogWarning(context string, message string, args ...interface{}) {
	l.Warning("%s: %s", context, fmt.Sprintf(message, args...))
}

// Close writes the session footer and closes the log file; children are no-ops
func (l *Logger) Close() error {
	if !l.root {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.zl.Info().Str("kind", string(LogLevelStatus)).Msg("session ended")
	if l.logFile != nil {
		err := l.logFile.Close()
		l.logFile = nil
		return err
	}
	return nil
}

// GetLogPath returns the current log file path
func (l *Logger) GetLogPath() string {
	if l.logDir == "" {
		return ""
	}
	return filepath.Join(l.logDir, fmt.Sprintf("%s_%s.log", l.name, time.Now().Format("2006-01-02")))
}

package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/parley-chat/parley/pkg/config"
)

// LogLevel orders message severities; messages below the configured
// threshold are dropped.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var levelTags = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

func (l LogLevel) String() string {
	if l < LevelDebug || l > LevelFatal {
		return "UNKNOWN"
	}
	return levelTags[l]
}

// parseLevel maps a config string to a threshold, defaulting to info.
func parseLevel(name string) LogLevel {
	switch name {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	case "fatal":
		return LevelFatal
	}
	return LevelInfo
}

// Logger writes leveled messages to a log file. Errors and above are
// mirrored to stderr so failures stay visible on the terminal.
type Logger struct {
	min  LogLevel
	sink *log.Logger
	file *os.File
}

var defaultLogger *Logger

// Init builds the default logger from the loaded configuration. Calling it
// again is a no-op.
func Init() error {
	if defaultLogger != nil {
		return nil
	}

	settings := config.Get().Logging
	l, err := New(parseLevel(settings.Level), settings.LogFile, settings.Preserve)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	defaultLogger = l
	return nil
}

// New opens logFile and returns a logger filtering below level. A relative
// path is resolved inside the settings directory. preserve appends to an
// existing file instead of truncating it.
func New(level LogLevel, logFile string, preserve bool) (*Logger, error) {
	path := logFile
	if !filepath.IsAbs(path) {
		path = config.BuildSettingsPath(filepath.Base(path))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	mode := os.O_CREATE | os.O_WRONLY
	if preserve {
		mode |= os.O_APPEND
	} else {
		mode |= os.O_TRUNC
	}
	file, err := os.OpenFile(path, mode, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return &Logger{
		min:  level,
		sink: log.New(file, "", log.LstdFlags),
		file: file,
	}, nil
}

// Close closes the log file.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

func (l *Logger) write(level LogLevel, format string, args ...any) {
	if level < l.min {
		return
	}
	line := fmt.Sprintf("[%s] %s", level, fmt.Sprintf(format, args...))
	l.sink.Print(line)
	if level >= LevelError {
		fmt.Fprintln(os.Stderr, line)
	}
}

func (l *Logger) Debug(format string, args ...any) { l.write(LevelDebug, format, args...) }
func (l *Logger) Info(format string, args ...any)  { l.write(LevelInfo, format, args...) }
func (l *Logger) Warn(format string, args ...any)  { l.write(LevelWarn, format, args...) }
func (l *Logger) Error(format string, args ...any) { l.write(LevelError, format, args...) }

// Fatal logs the message and exits.
func (l *Logger) Fatal(format string, args ...any) {
	l.write(LevelFatal, format, args...)
	os.Exit(1)
}

// Package-level functions log through the default logger and are no-ops
// until Init has run, so library code can log unconditionally.

func Debug(format string, args ...any) {
	if defaultLogger != nil {
		defaultLogger.Debug(format, args...)
	}
}

func Info(format string, args ...any) {
	if defaultLogger != nil {
		defaultLogger.Info(format, args...)
	}
}

func Warn(format string, args ...any) {
	if defaultLogger != nil {
		defaultLogger.Warn(format, args...)
	}
}

func Error(format string, args ...any) {
	if defaultLogger != nil {
		defaultLogger.Error(format, args...)
	}
}

func Fatal(format string, args ...any) {
	if defaultLogger == nil {
		os.Exit(1)
	}
	defaultLogger.Fatal(format, args...)
}

// Close closes the default logger's file.
func Close() error {
	if defaultLogger == nil {
		return nil
	}
	return defaultLogger.Close()
}

package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"motioncam/internal/config"

	"github.com/rs/zerolog"
)

// Logger provides leveled logging (debug/info/warning/error) to files and the console.
type Logger struct {
	debugLog   zerolog.Logger
	infoLog    zerolog.Logger
	warningLog zerolog.Logger
	errorLog   zerolog.Logger
	logDir     string
	mu         *sync.Mutex
}

// NewLogger creates a Logger and ensures the log directory exists.
func NewLogger(config *config.Config) *Logger {
	if err := os.MkdirAll(config.LogDirectory, 0755); err != nil {
		log.Fatalf("Failed to create log directory: %v", err)
	}

	logger := &Logger{
		logDir: config.LogDirectory,
		mu:     &sync.Mutex{},
	}

	logger.setupLoggers(os.Stdout, os.Stderr, parseLevel(config.LogLevel))
	return logger
}

// NewWriterLogger logs every level to w only. Used by tools and tests.
func NewWriterLogger(w io.Writer) *Logger {
	base := zerolog.New(w).With().Timestamp().Logger()
	return &Logger{
		debugLog:   base.Level(zerolog.DebugLevel),
		infoLog:    base,
		warningLog: base,
		errorLog:   base,
		mu:         &sync.Mutex{},
	}
}

// Nop discards everything.
func Nop() *Logger {
	return NewWriterLogger(io.Discard)
}

// setupLoggers initializes writers and per-level loggers.
func (l *Logger) setupLoggers(stdout, stderr io.Writer, level zerolog.Level) {
	infoFileHandle := l.openLogFile(filepath.Join(l.logDir, "info.log"))
	warningFileHandle := l.openLogFile(filepath.Join(l.logDir, "warning.log"))
	errorFileHandle := l.openLogFile(filepath.Join(l.logDir, "error.log"))

	console := func(out io.Writer) io.Writer {
		return zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	l.debugLog = zerolog.New(console(stdout)).Level(level).With().Timestamp().Logger()
	l.infoLog = zerolog.New(zerolog.MultiLevelWriter(console(stdout), infoFileHandle)).
		Level(level).With().Timestamp().Logger()
	l.warningLog = zerolog.New(zerolog.MultiLevelWriter(console(stdout), warningFileHandle)).
		Level(level).With().Timestamp().Logger()
	l.errorLog = zerolog.New(zerolog.MultiLevelWriter(console(stderr), errorFileHandle)).
		Level(level).With().Timestamp().Logger()
}

// openLogFile opens or creates a log file for appending.
func (l *Logger) openLogFile(filename string) *os.File {
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file %s: %v", filename, err)
	}
	return file
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// Named returns a child logger tagging every entry with a component field.
func (l *Logger) Named(component string) *Logger {
	if component == "" {
		return l
	}
	return &Logger{
		debugLog:   l.debugLog.With().Str("component", component).Logger(),
		infoLog:    l.infoLog.With().Str("component", component).Logger(),
		warningLog: l.warningLog.With().Str("component", component).Logger(),
		errorLog:   l.errorLog.With().Str("component", component).Logger(),
		logDir:     l.logDir,
		mu:         l.mu,
	}
}

// Debug writes a formatted debug-level log entry.
func (l *Logger) Debug(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debugLog.Debug().Msg(fmt.Sprintf(format, v...))
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infoLog.Info().Msg(fmt.Sprintf(format, v...))
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warningLog.Warn().Msg(fmt.Sprintf(format, v...))
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errorLog.Error().Msg(fmt.Sprintf(format, v...))
}

// CleanLogs truncates the specified log file.
func (l *Logger) CleanLogs(fileName string) error {
	filePath := filepath.Join(l.logDir, filepath.Base(fileName))
	file, err := os.OpenFile(filePath, os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		l.Error("Error opening file: %v", err)
		return err
	}
	defer file.Close()

	l.Info("File content has been cleared.")
	return nil
}

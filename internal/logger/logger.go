package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	constants "pulsepc/config"
)

// Level represents log level
type Level string

const (
	LevelInfo    Level = "INFO"
	LevelWarning Level = "WARNING"
	LevelError   Level = "ERROR"
	LevelSuccess Level = "SUCCESS"
	LevelDebug   Level = "DEBUG"
)

var severity = map[Level]int{
	LevelDebug:   0,
	LevelInfo:    1,
	LevelSuccess: 1,
	LevelWarning: 2,
	LevelError:   3,
}

// ParseLevel maps a config value such as "debug" to a Level
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warning", "warn":
		return LevelWarning, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Logger handles centralized logging to file
type Logger struct {
	filePath string
	out      io.Writer
	closer   io.Closer
	min      Level
	mu       sync.Mutex
}

func toStdout() bool {
	return os.Getenv(constants.ENV_PREFIX+"_LOG_STDOUT") != ""
}

// New creates a new logger instance
func New(filePath string) *Logger {
	logger := &Logger{filePath: filePath, min: LevelInfo}

	if toStdout() {
		logger.out = os.Stdout
		return logger
	}
	if filePath != "" {
		logFile, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err == nil {
			logger.out = logFile
			logger.closer = logFile
		}
	}

	return logger
}

// NewWriter creates a logger writing to w
func NewWriter(w io.Writer) *Logger {
	return &Logger{out: w, min: LevelInfo}
}

// Default returns a logger with default settings
func Default() *Logger {
	return New(constants.LOG_FILE)
}

// SetLevel drops messages below level
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	l.min = level
	l.mu.Unlock()
}

func (l *Logger) write(level Level, message string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.out == nil || severity[level] < severity[l.min] {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	formattedMsg := fmt.Sprintf(message, args...)
	fmt.Fprintf(l.out, "[%s] %s: %s\n", timestamp, level, formattedMsg)
}

// Close closes the log file
func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closer != nil {
		l.closer.Close()
		l.closer = nil
		l.out = nil
	}
}

// Info logs an informational message
func (l *Logger) Info(message string, args ...interface{}) {
	l.write(LevelInfo, message, args...)
}

// Warning logs a warning message
func (l *Logger) Warning(message string, args ...interface{}) {
	l.write(LevelWarning, message, args...)
}

// Error logs an error message
func (l *Logger) Error(message string, args ...interface{}) {
	l.write(LevelError, message, args...)
}

// Success logs a success message
func (l *Logger) Success(message string, args ...interface{}) {
	l.write(LevelSuccess, message, args...)
}

// Debug logs a debug message
func (l *Logger) Debug(message string, args ...interface{}) {
	l.write(LevelDebug, message, args...)
}

var (
	defaultMu     sync.RWMutex
	defaultLogger = Default()
)

func current() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// Configure replaces the default logger with one writing to filePath at level
func Configure(filePath, level string) error {
	lvl, err := ParseLevel(level)
	l := New(filePath)
	l.SetLevel(lvl)
	SetDefault(l)
	return err
}

// SetDefault replaces the default logger and closes the previous one
func SetDefault(l *Logger) {
	defaultMu.Lock()
	prev := defaultLogger
	defaultLogger = l
	defaultMu.Unlock()
	if prev != nil && prev != l {
		prev.Close()
	}
}

// Info logs an informational message using the default logger
func Info(message string, args ...interface{}) {
	current().Info(message, args...)
}

// Warning logs a warning message using the default logger
func Warning(message string, args ...interface{}) {
	current().Warning(message, args...)
}

// Error logs an error message using the default logger
func Error(message string, args ...interface{}) {
	current().Error(message, args...)
}

// Success logs a success message using the default logger
func Success(message string, args ...interface{}) {
	current().Success(message, args...)
}

// Debug logs a debug message using the default logger
func Debug(message string, args ...interface{}) {
	current().Debug(message, args...)
}

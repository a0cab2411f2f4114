package logger

import (
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"
)

// Log levels
const (
	LogDebug    = 10
	LogInfo     = 20
	LogWarning  = 30
	LogError    = 40
	LogReminder = 45
	LogSuccess  = 50
)

// Global log level setting with thread-safe access
var (
	currentLogLevel = LogInfo
	logMutex        sync.RWMutex
	backend         = newBackend(os.Stderr)
)

func newBackend(w io.Writer) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           log.DebugLevel,
	})
}

// SetOutput redirects all log output to w.
func SetOutput(w io.Writer) {
	logMutex.Lock()
	defer logMutex.Unlock()
	backend = newBackend(w)
}

// SetLogLevel sets the minimum log level that will be displayed
func SetLogLevel(level int) {
	logMutex.Lock()
	defer logMutex.Unlock()
	currentLogLevel = level
}

// GetLogLevel returns the current log level
func GetLogLevel() int {
	logMutex.RLock()
	defer logMutex.RUnlock()
	return currentLogLevel
}

// Logger writes message if level is at or above the current log level.
func Logger(message string, level int) {
	logMutex.RLock()
	shouldLog := level >= currentLogLevel
	l := backend
	logMutex.RUnlock()

	if !shouldLog {
		return
	}

	switch level {
	case LogDebug:
		l.Debug(message)
	case LogInfo:
		l.Info(message)
	case LogWarning:
		l.Warn(message)
	case LogError:
		l.Error(message)
	case LogReminder:
		l.Warn(message, "reminder", true)
	case LogSuccess:
		l.Info(message, "success", true)
	default:
		l.Print(message)
	}
}

// Debug logs a debug message
func Debug(message string) {
	Logger(message, LogDebug)
}

// Info logs an info message
func Info(message string) {
	Logger(message, LogInfo)
}

// Warning logs a warning message
func Warning(message string) {
	Logger(message, LogWarning)
}

// Error logs an error message
func Error(message string) {
	Logger(message, LogError)
}

// Reminder logs something the user has to finish by hand in a generated recipe.
func Reminder(message string) {
	Logger(message, LogReminder)
}

// Success logs a success message
func Success(message string) {
	Logger(message, LogSuccess)
}

// ParseLevel maps a level name to its value, defaulting to LogInfo.
func ParseLevel(name string) int {
	switch name {
	case "DEBUG", "debug":
		return LogDebug
	case "INFO", "info":
		return LogInfo
	case "WARNING", "warning", "WARN", "warn":
		return LogWarning
	case "ERROR", "error":
		return LogError
	case "REMINDER", "reminder":
		return LogReminder
	case "SUCCESS", "success":
		return LogSuccess
	default:
		return LogInfo
	}
}

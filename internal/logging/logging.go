package logging

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"
)

// LogLevel orders message severities. Comparisons rely on the declaration
// order: anything at or above the configured level is emitted.
type LogLevel int32

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[LogLevel]string{
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warn",
	LevelError: "error",
}

func (l LogLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int32(l))
}

// ParseLevel maps a level name onto a LogLevel. The second return is
// false for names it does not know.
func ParseLevel(s string) (LogLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, true
	case "info":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error":
		return LevelError, true
	}
	return LevelInfo, false
}

var threshold atomic.Int32

func init() {
	threshold.Store(int32(levelFromEnv()))
}

// levelFromEnv resolves the startup level. DEBUG wins over LOG_LEVEL so a
// quick `DEBUG=1` works without touching other settings.
func levelFromEnv() LogLevel {
	switch strings.ToLower(os.Getenv("DEBUG")) {
	case "1", "true", "yes", "on":
		return LevelDebug
	}
	if lvl, ok := ParseLevel(os.Getenv("LOG_LEVEL")); ok {
		return lvl
	}
	return LevelInfo
}

// GetLevel returns the active level.
func GetLevel() LogLevel {
	return LogLevel(threshold.Load())
}

// SetLevel changes the active level at runtime. Safe for concurrent use.
func SetLevel(l LogLevel) {
	threshold.Store(int32(l))
}

// IsDebugEnabled reports whether debug messages are being emitted. Callers
// use it to skip building expensive debug output.
func IsDebugEnabled() bool {
	return GetLevel() <= LevelDebug
}

func emit(l LogLevel, tag, format string, args []interface{}) {
	if GetLevel() > l {
		return
	}
	log.Printf(tag+format, args...)
}

// Debug logs a verbose tracing message.
func Debug(format string, args ...interface{}) {
	emit(LevelDebug, "[DEBUG] ", format, args)
}

// Info logs an operational message.
func Info(format string, args ...interface{}) {
	emit(LevelInfo, "[INFO] ", format, args)
}

// Warn logs a recoverable problem.
func Warn(format string, args ...interface{}) {
	emit(LevelWarn, "[WARN] ", format, args)
}

// Error logs a failure.
func Error(format string, args ...interface{}) {
	emit(LevelError, "[ERROR] ", format, args)
}

// Fatal logs the message and terminates the process.
func Fatal(format string, args ...interface{}) {
	log.Fatalf("[FATAL] "+format, args...)
}

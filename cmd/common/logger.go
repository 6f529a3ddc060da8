package common

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// LogLevel represents different logging levels
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// Logger provides console logging for CLI applications. Messages go to Out,
// which defaults to stderr so that report output on stdout stays clean.
type Logger struct {
	Level      LogLevel
	ShowEmojis bool
	SilentMode bool
	Out        io.Writer
}

// NewLogger creates a new logger with default settings
func NewLogger() *Logger {
	return &Logger{
		Level:      LogLevelInfo,
		ShowEmojis: true,
		Out:        os.Stderr,
	}
}

// SetSilentMode enables or disables silent mode
func (l *Logger) SetSilentMode(silent bool) {
	l.SilentMode = silent
}

func (l *Logger) print(emoji, plain, format string, args ...interface{}) {
	prefix := emoji
	if !l.ShowEmojis {
		prefix = plain
	}
	fmt.Fprintf(l.Out, "%s %s\n", prefix, fmt.Sprintf(format, args...))
}

// Header prints a formatted header
func (l *Logger) Header(title string) {
	if l.SilentMode {
		return
	}
	l.print("🎯", "***", "%s", strings.ToUpper(title))
	fmt.Fprintln(l.Out, strings.Repeat("=", len(title)+5))
}

// Info prints an info message
func (l *Logger) Info(format string, args ...interface{}) {
	if l.SilentMode || l.Level < LogLevelInfo {
		return
	}
	l.print("ℹ️ ", "[INFO]", format, args...)
}

// Error prints an error message; silent mode does not suppress errors
func (l *Logger) Error(format string, args ...interface{}) {
	l.print("❌", "[ERROR]", format, args...)
}

// Success prints a success message
func (l *Logger) Success(format string, args ...interface{}) {
	if l.SilentMode {
		return
	}
	l.print("✅", "[SUCCESS]", format, args...)
}

// Warn prints a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.Level < LogLevelWarn {
		return
	}
	l.print("⚠️ ", "[WARN]", format, args...)
}

// Debug prints a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.Level < LogLevelDebug {
		return
	}
	l.print("🔍", "[DEBUG]", format, args...)
}

// Progress prints a progress message
func (l *Logger) Progress(format string, args ...interface{}) {
	if l.SilentMode {
		return
	}
	l.print("🔄", "[PROGRESS]", format, args...)
}

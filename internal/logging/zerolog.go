// Package logging provides the loxrelay.Logger implementation used
// throughout the bridge: structured, leveled logging over zerolog.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// ZeroLogger implements loxrelay.Logger over a zerolog.Logger.
type ZeroLogger struct {
	logger zerolog.Logger
}

// New creates a ZeroLogger writing to w with RFC3339 timestamps. level sets
// the minimum severity emitted, case-insensitively ("debug", "info",
// "warn"/"warning", "error", "critical" as zerolog's fatal, or any value
// zerolog.ParseLevel accepts); an unrecognized level falls back to info.
func New(w io.Writer, level string) *ZeroLogger {
	level = strings.ToLower(level)
	switch level {
	case "warning":
		level = "warn"
	case "critical":
		level = "fatal"
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	l := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	return &ZeroLogger{logger: l}
}

// NewDefault creates a ZeroLogger writing to stderr at info level.
func NewDefault() *ZeroLogger {
	return New(os.Stderr, "info")
}

func (l *ZeroLogger) log(event *zerolog.Event, msg string, keysAndValues ...interface{}) {
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprintf("%v", keysAndValues[i])
		if i+1 < len(keysAndValues) {
			event.Interface(key, keysAndValues[i+1])
		} else {
			event.Interface(key, nil)
		}
	}
	event.Msg(msg)
}

// Debug logs a debug-level message with structured key/value pairs.
func (l *ZeroLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.log(l.logger.Debug(), msg, keysAndValues...)
}

// Info logs an info-level message with structured key/value pairs.
func (l *ZeroLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log(l.logger.Info(), msg, keysAndValues...)
}

// Warn logs a warning-level message with structured key/value pairs.
func (l *ZeroLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log(l.logger.Warn(), msg, keysAndValues...)
}

// Error logs an error-level message with structured key/value pairs.
func (l *ZeroLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log(l.logger.Error(), msg, keysAndValues...)
}

// Nop is a Logger that discards everything; handy for tests.
type Nop struct{}

func (Nop) Debug(string, ...interface{}) {}
func (Nop) Info(string, ...interface{})  {}
func (Nop) Warn(string, ...interface{})  {}
func (Nop) Error(string, ...interface{}) {}

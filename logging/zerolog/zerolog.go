// Package zerolog adapts a zerolog logger to the reqmesh logging.Logger interface.
package zerolog

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hupe1980/reqmesh/logging"
)

// Logger wraps zerolog.Logger. Alternating key/value arguments are attached
// as event fields; a trailing value without a key is logged under "arg".
type Logger struct {
	L zerolog.Logger
}

// New wraps an existing zerolog.Logger.
func New(l zerolog.Logger) *Logger {
	return &Logger{L: l}
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...any) { emit(l.L.Debug(), msg, args) }

// Info logs an informational message.
func (l *Logger) Info(msg string, args ...any) { emit(l.L.Info(), msg, args) }

// Warn logs a warning message.
func (l *Logger) Warn(msg string, args ...any) { emit(l.L.Warn(), msg, args) }

// Error logs an error message.
func (l *Logger) Error(msg string, args ...any) { emit(l.L.Error(), msg, args) }

func emit(ev *zerolog.Event, msg string, args []any) {
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		ev = ev.Interface(key, args[i+1])
	}
	if len(args)%2 == 1 {
		ev = ev.Interface("arg", args[len(args)-1])
	}
	ev.Msg(msg)
}

var _ logging.Logger = (*Logger)(nil)

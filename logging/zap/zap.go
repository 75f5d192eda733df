// Package zap adapts a zap logger to the reqmesh logging.Logger interface.
package zap

import (
	"go.uber.org/zap"

	"github.com/hupe1980/reqmesh/logging"
)

// Logger wraps *zap.SugaredLogger. The slog-style alternating key/value
// arguments map directly onto zap's loosely typed sugared methods.
type Logger struct {
	S *zap.SugaredLogger
}

// New wraps an existing *zap.Logger.
func New(l *zap.Logger) *Logger {
	return &Logger{S: l.Sugar()}
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...any) { l.S.Debugw(msg, args...) }

// Info logs an informational message.
func (l *Logger) Info(msg string, args ...any) { l.S.Infow(msg, args...) }

// Warn logs a warning message.
func (l *Logger) Warn(msg string, args ...any) { l.S.Warnw(msg, args...) }

// Error logs an error message.
func (l *Logger) Error(msg string, args ...any) { l.S.Errorw(msg, args...) }

var _ logging.Logger = (*Logger)(nil)

// Package logging provides the small leveled-logger interface used across
// the tpx3pipe pipeline to surface protocol-soft-anomaly warnings (trigger
// counter wraps, backward time jumps, large forward time jumps) without
// aborting a run, alongside normal progress/info output.
package logging

import (
	"fmt"
	"log/slog"
	"os"
)

// Logger is the minimal interface pipeline stages depend on. Production
// code should not import log/slog directly; it should accept a Logger so
// callers can plug in their own sink (test capture, a no-op logger, etc).
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// slogLogger adapts a *slog.Logger to the Logger interface.
type slogLogger struct {
	l *slog.Logger
}

// NewDefault returns a Logger backed by slog, writing leveled text records
// to stderr, for callers that do not supply their own sink.
func NewDefault() Logger {
	return &slogLogger{l: slog.New(slog.NewTextHandler(os.Stderr, nil))}
}

// New wraps an existing *slog.Logger.
func New(l *slog.Logger) Logger {
	return &slogLogger{l: l}
}

func (s *slogLogger) Infof(format string, args ...any) {
	s.l.Info(fmt.Sprintf(format, args...))
}

func (s *slogLogger) Warnf(format string, args ...any) {
	s.l.Warn(fmt.Sprintf(format, args...))
}

func (s *slogLogger) Errorf(format string, args ...any) {
	s.l.Error(fmt.Sprintf(format, args...))
}

// NoOp returns a Logger that discards everything, for tests and for
// callers that don't care about progress/warning output.
func NoOp() Logger {
	return noOpLogger{}
}

type noOpLogger struct{}

func (noOpLogger) Infof(string, ...any)  {}
func (noOpLogger) Warnf(string, ...any)  {}
func (noOpLogger) Errorf(string, ...any) {}

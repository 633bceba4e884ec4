// Package logging builds the process logger and adapts it to the Temporal
// SDK's logger interface so workers and workflows share one sink.
package logging

import (
	"go.temporal.io/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New constructs the process logger. level accepts zap level names; empty or
// unknown means info. In dev mode output is console-formatted.
func New(level string, dev bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if dev {
		cfg = zap.NewDevelopmentConfig()
	}
	var lvl zapcore.Level
	if err := lvl.Set(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return cfg.Build()
}

// TemporalAdapter exposes a zap sugared logger through Temporal's log.Logger.
type TemporalAdapter struct {
	s *zap.SugaredLogger
}

func NewTemporalAdapter(l *zap.Logger) *TemporalAdapter {
	return &TemporalAdapter{s: l.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

func (a *TemporalAdapter) Debug(msg string, keyvals ...interface{}) { a.s.Debugw(msg, keyvals...) }
func (a *TemporalAdapter) Info(msg string, keyvals ...interface{})  { a.s.Infow(msg, keyvals...) }
func (a *TemporalAdapter) Warn(msg string, keyvals ...interface{})  { a.s.Warnw(msg, keyvals...) }
func (a *TemporalAdapter) Error(msg string, keyvals ...interface{}) { a.s.Errorw(msg, keyvals...) }

var _ log.Logger = (*TemporalAdapter)(nil)

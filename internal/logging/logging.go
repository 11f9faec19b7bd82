// Package logging builds the zap-backed logr.Logger used across the server.
package logging

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Verbosity levels passed to logger.V.
const (
	INFO  = 0
	DEBUG = 1
	TRACE = 2
)

// New returns a logger that emits entries up to the given verbosity. Development
// loggers write human readable console output; production loggers write JSON.
func New(level int, development bool) (logr.Logger, error) {
	if level < 0 {
		return logr.Discard(), fmt.Errorf("log level %d must not be negative", level)
	}
	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	// logr V(n) maps onto zap level -n.
	cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(-level))

	z, err := cfg.Build()
	if err != nil {
		return logr.Discard(), fmt.Errorf("building zap logger: %w", err)
	}
	return zapr.NewLogger(z), nil
}

// NewTestLogger returns a development logger at TRACE verbosity that writes to
// stderr. Suites call it once from their bootstrap.
func NewTestLogger() logr.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(-TRACE))
	cfg.OutputPaths = []string{"stderr"}
	z, err := cfg.Build()
	if err != nil {
		return logr.Discard()
	}
	return zapr.NewLogger(z)
}

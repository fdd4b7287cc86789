// Package logging configures the process-wide structured logger.
//
// Output is JSON encoded with RFC3339 timestamps and split between stdout
// (info and below) and stderr (error and above) so operators can separate
// training progress from failures.
package logging

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger *zap.Logger
	once   sync.Once
)

// L returns the shared logger, constructing it on first use.
func L() *zap.Logger {
	once.Do(func() {
		logger = build(zapcore.InfoLevel)
	})
	return logger
}

// SetVerbose lowers the logging floor to debug. Intended to be called once
// during startup before any component logs.
func SetVerbose() {
	once.Do(func() {})
	logger = build(zapcore.DebugLevel)
}

func build(floor zapcore.Level) *zap.Logger {
	isErrorLevel := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= zapcore.ErrorLevel
	})
	isInfoLevel := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= floor && lvl < zapcore.ErrorLevel
	})
	stdoutWriter := zapcore.Lock(os.Stdout)
	stderrWriter := zapcore.Lock(os.Stderr)

	config := zap.NewProductionEncoderConfig()
	config.EncodeTime = zapcore.RFC3339TimeEncoder
	encoder := zapcore.NewJSONEncoder(config)

	core := zapcore.NewTee(
		zapcore.NewCore(encoder, stderrWriter, isErrorLevel),
		zapcore.NewCore(encoder, stdoutWriter, isInfoLevel),
	)
	return zap.New(core, zap.AddCaller())
}

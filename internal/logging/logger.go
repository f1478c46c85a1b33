// Package logging wires a process-wide zap logger. Components fetch named
// children with L("component") so every line carries its origin.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu   sync.RWMutex
	root = zap.NewNop()
)

// Init builds the global logger. level is one of debug/info/warn/error;
// anything unrecognized falls back to info. When verbose is set, a
// development-style console encoder is used instead of JSON.
func Init(level string, verbose bool) error {
	var lvl zapcore.Level
	if err := lvl.Set(level); err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true

	logger, err := cfg.Build()
	if err != nil {
		return err
	}

	mu.Lock()
	root = logger
	mu.Unlock()
	return nil
}

// L returns a named child of the global logger.
func L(name string) *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root.Named(name)
}

// S returns a named sugared child of the global logger.
func S(name string) *zap.SugaredLogger {
	return L(name).Sugar()
}

// Sync flushes buffered log entries. Safe to call on a nop logger.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = root.Sync()
}

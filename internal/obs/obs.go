// Package obs builds the process-wide structured logger (SPEC_FULL.md
// "Logging"), grounded on blinklabs-io/shai's internal/logging package:
// a package-level Configure() driven by Config.Logging.Level, and an
// L() accessor that lazily configures a default the first time a
// caller logs before Configure runs.
package obs

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ammsim/pkg/config"
)

var (
	mu     sync.Mutex
	global *zap.SugaredLogger
)

// Configure (re)builds the global logger from cfg.Logging.Level.
// Unrecognized levels fall back to info, matching the teacher's
// lenient level-parsing style.
func Configure(cfg *config.Config) {
	mu.Lock()
	defer mu.Unlock()
	global = build(cfg.Logging.Level)
}

func build(level string) *zap.SugaredLogger {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := zcfg.Build()
	if err != nil {
		// Fall back to a logger that never errors building.
		logger = zap.NewNop()
	}
	return logger.Sugar()
}

// L returns the process-wide logger, configuring a default at info
// level if nothing has called Configure yet.
func L() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	if global == nil {
		global = build("info")
	}
	return global
}

// Sync flushes any buffered log entries. Callers should defer this in
// main(); errors are expected and ignored when stderr is a console
// (zap's own documented caveat on Linux/macOS).
func Sync() {
	mu.Lock()
	l := global
	mu.Unlock()
	if l != nil {
		_ = l.Sync()
	}
}

// Package logging provides categorized zap loggers for warden. Before Init
// the package hands out no-op loggers, so library code and tests can log
// unconditionally.
package logging

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category names a subsystem in log output.
type Category string

const (
	CategoryPipeline Category = "pipeline"
	CategoryGates    Category = "gates"
	CategoryAudit    Category = "audit"
	CategoryHITL     Category = "hitl"
	CategoryDocgen   Category = "docgen"
	CategoryBench    Category = "bench"
	CategoryWatch    Category = "watch"
)

var (
	mu   sync.RWMutex
	root = zap.NewNop()
)

// Init builds the root logger. level is one of debug/info/warn/error; json
// selects JSON over console encoding.
func Init(level string, json bool) error {
	var lvl zapcore.Level
	switch level {
	case "debug":
		lvl = zapcore.DebugLevel
	case "", "info":
		lvl = zapcore.InfoLevel
	case "warn", "warning":
		lvl = zapcore.WarnLevel
	case "error":
		lvl = zapcore.ErrorLevel
	default:
		return fmt.Errorf("unknown log level %q", level)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	if !json {
		cfg.Encoding = "console"
	}

	logger, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	mu.Lock()
	root = logger
	mu.Unlock()
	return nil
}

// Get returns a sugared logger scoped to the category.
func Get(cat Category) *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return root.Sugar().Named(string(cat))
}

// Sync flushes buffered log entries.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = root.Sync()
}

// SetLogger replaces the root logger. Tests use this with zaptest loggers.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	if l == nil {
		l = zap.NewNop()
	}
	root = l
}

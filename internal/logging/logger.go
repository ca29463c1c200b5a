// Package logging provides config-driven categorized logging for the eLCS engine.
// Each subsystem logs through its own category; categories can be toggled
// individually and everything is a no-op until Initialize is called.
package logging

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot        Category = "boot"        // Startup, config load
	CategoryGeneration  Category = "generation"  // Code fragment synthesis
	CategoryCovering    Category = "covering"    // Covering new classifiers
	CategoryOperators   Category = "operators"   // Crossover and mutation
	CategorySubsumption Category = "subsumption" // Subsumption checks
	CategoryLibrary     Category = "library"     // Fragment pool loading and publishing
	CategoryStore       Category = "store"       // Population snapshot storage
	CategoryCuration    Category = "curation"    // Offline fragment curation
	CategoryPopulation  Category = "population"  // Match sets, export/import
)

// Config mirrors config.LoggingConfig to avoid an import cycle.
type Config struct {
	DebugMode  bool
	Level      string
	Format     string // json, console
	File       string
	Categories map[string]bool
}

// Logger is a category-scoped handle over the shared zap logger.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	base      *zap.Logger
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex
	config    Config
	configMu  sync.RWMutex
)

// Initialize builds the zap backend from cfg. Calling it again replaces the backend.
func Initialize(cfg Config) error {
	level := zap.NewAtomicLevelAt(parseLevel(cfg.Level))

	zcfg := zap.NewProductionConfig()
	if cfg.Format == "console" || cfg.Format == "text" {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = level
	zcfg.EncoderConfig.TimeKey = "ts"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if cfg.File != "" {
		zcfg.OutputPaths = []string{cfg.File}
	} else {
		zcfg.OutputPaths = []string{"stderr"}
	}

	logger, err := zcfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	Use(logger, cfg)

	Get(CategoryBoot).Debug("logging initialized: level=%s format=%s file=%q", cfg.Level, cfg.Format, cfg.File)
	return nil
}

// Use installs an already-built zap logger, e.g. the CLI's root logger or zaptest in tests.
func Use(logger *zap.Logger, cfg Config) {
	configMu.Lock()
	config = cfg
	configMu.Unlock()

	loggersMu.Lock()
	if base != nil {
		_ = base.Sync()
	}
	base = logger
	loggers = make(map[Category]*Logger)
	loggersMu.Unlock()
}

func parseLevel(s string) zapcore.Level {
	switch s {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// IsDebugMode returns whether debug logging is enabled
func IsDebugMode() bool {
	configMu.RLock()
	defer configMu.RUnlock()
	return config.DebugMode
}

// IsCategoryEnabled returns whether a specific category is enabled.
// Categories not listed are enabled.
func IsCategoryEnabled(category Category) bool {
	configMu.RLock()
	defer configMu.RUnlock()

	if config.Categories == nil {
		return true
	}
	enabled, exists := config.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if logging is uninitialized or the category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	b := base
	loggersMu.RUnlock()

	if b == nil {
		return &Logger{category: category}
	}

	loggersMu.Lock()
	defer loggersMu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	l := &Logger{
		category: category,
		sugar:    b.Named(string(category)).Sugar(),
	}
	loggers[category] = l
	return l
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Debugf(format, args...)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Infof(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Errorf(format, args...)
}

// With returns a logger carrying structured key/value fields.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	if l.sugar == nil {
		return l
	}
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// Sync flushes buffered entries (call at shutdown)
func Sync() {
	loggersMu.RLock()
	defer loggersMu.RUnlock()
	if base != nil {
		_ = base.Sync()
	}
}

// Reset drops the backend; every logger becomes a no-op again.
func Reset() {
	loggersMu.Lock()
	base = nil
	loggers = make(map[Category]*Logger)
	loggersMu.Unlock()

	configMu.Lock()
	config = Config{}
	configMu.Unlock()
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Info(format, args...)
}

// GenerationDebug logs debug to the generation category
func GenerationDebug(format string, args ...interface{}) {
	Get(CategoryGeneration).Debug(format, args...)
}

// CoveringDebug logs debug to the covering category
func CoveringDebug(format string, args ...interface{}) {
	Get(CategoryCovering).Debug(format, args...)
}

// CoveringWarn logs warning to the covering category
func CoveringWarn(format string, args ...interface{}) {
	Get(CategoryCovering).Warn(format, args...)
}

// OperatorsDebug logs debug to the operators category
func OperatorsDebug(format string, args ...interface{}) {
	Get(CategoryOperators).Debug(format, args...)
}

// Library logs to the library category
func Library(format string, args ...interface{}) {
	Get(CategoryLibrary).Info(format, args...)
}

// LibraryWarn logs warning to the library category
func LibraryWarn(format string, args ...interface{}) {
	Get(CategoryLibrary).Warn(format, args...)
}

// Store logs to the store category
func Store(format string, args ...interface{}) {
	Get(CategoryStore).Info(format, args...)
}

// StoreError logs error to the store category
func StoreError(format string, args ...interface{}) {
	Get(CategoryStore).Error(format, args...)
}

// Curation logs to the curation category
func Curation(format string, args ...interface{}) {
	Get(CategoryCuration).Info(format, args...)
}

// PopulationDebug logs debug to the population category
func PopulationDebug(format string, args ...interface{}) {
	Get(CategoryPopulation).Debug(format, args...)
}

// =============================================================================
// TIMING HELPERS - For performance logging
// =============================================================================

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{
		category: category,
		op:       operation,
		start:    time.Now(),
	}
}

// Stop ends the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs warning if duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}

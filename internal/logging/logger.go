// Package logging provides config-driven categorised logging for xreply.
// Every category is a named child of one zap root logger; categories can be
// switched off individually in the logging section of xreply.yaml.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"xreply/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot     Category = "boot"     // Process start, config
	CategoryBrowser  Category = "browser"  // Browser launch, session state
	CategoryScraper  Category = "scraper"  // Search, extraction, profile lookups
	CategorySelector Category = "selector" // Keyword selection
	CategoryDrafter  Category = "drafter"  // Reply drafting
	CategoryStore    Category = "store"    // Proposal persistence
	CategoryExecutor Category = "executor" // Reply + like execution
	CategoryPipeline Category = "pipeline" // Request orchestration
	CategoryAPI      Category = "api"      // HTTP boundary
)

var (
	mu      sync.RWMutex
	root    = zap.NewNop()
	cfg     config.LoggingConfig
	loggers = make(map[Category]*zap.Logger)
)

// Initialize builds the root logger from the logging config. verbose forces
// debug level regardless of the configured level.
func Initialize(c config.LoggingConfig, verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Format == "console" || c.Format == "text" {
		zc = zap.NewDevelopmentConfig()
	}

	level, err := parseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	if c.File != "" {
		if err := os.MkdirAll(filepath.Dir(c.File), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		zc.OutputPaths = append(zc.OutputPaths, c.File)
	}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	mu.Lock()
	root = logger
	cfg = c
	loggers = make(map[Category]*zap.Logger)
	mu.Unlock()

	return logger, nil
}

// Use installs an existing logger as root, e.g. zaptest loggers in tests.
func Use(logger *zap.Logger, c config.LoggingConfig) {
	if logger == nil {
		logger = zap.NewNop()
	}
	mu.Lock()
	defer mu.Unlock()
	root = logger
	cfg = c
	loggers = make(map[Category]*zap.Logger)
}

func parseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("invalid log level: %s", s)
	}
}

// Root returns the root logger.
func Root() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root
}

// IsCategoryEnabled reports whether category logs are emitted.
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	return cfg.IsCategoryEnabled(string(category))
}

// Get returns the logger for a category. Disabled categories get a no-op logger.
func Get(category Category) *zap.Logger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	l := zap.NewNop()
	if cfg.IsCategoryEnabled(string(category)) {
		l = root.Named(string(category))
	}
	loggers[category] = l
	return l
}

// Sync flushes buffered entries (call at shutdown).
func Sync() {
	_ = Root().Sync()
}

// Boot logs to the boot category.
func Boot(msg string, fields ...zap.Field) {
	Get(CategoryBoot).Info(msg, fields...)
}

// BootWarn logs a warning to the boot category.
func BootWarn(msg string, fields ...zap.Field) {
	Get(CategoryBoot).Warn(msg, fields...)
}

package config

import "elcs/internal/logging"

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level"`      // debug, info, warn, error
	Format     string          `yaml:"format"`     // json, console
	File       string          `yaml:"file"`       // empty = stderr
	DebugMode  bool            `yaml:"debug_mode"` // forces debug level
	Categories map[string]bool `yaml:"categories"` // per-category toggles
}

// IsCategoryEnabled returns whether logging is enabled for a category.
// Categories not listed are enabled.
func (c *LoggingConfig) IsCategoryEnabled(category string) bool {
	if c.Categories == nil {
		return true
	}
	enabled, exists := c.Categories[category]
	if !exists {
		return true
	}
	return enabled
}

// ToLogging converts to the logging package's configuration.
func (c *LoggingConfig) ToLogging() logging.Config {
	level := c.Level
	if c.DebugMode {
		level = "debug"
	}
	return logging.Config{
		DebugMode:  c.DebugMode,
		Level:      level,
		Format:     c.Format,
		File:       c.File,
		Categories: c.Categories,
	}
}

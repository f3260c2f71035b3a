package config

// LoggingConfig configures the categorized file logger.
// The yaml tags here must line up with what internal/logging reads from
// .graft/config.yaml; keep the two in sync.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"`
	JSONFormat bool            `yaml:"json_format"`
}

// IsCategoryEnabled reports whether logging is enabled for a category.
// All categories are off when debug_mode is false, and on by default
// when it is true.
func (c *LoggingConfig) IsCategoryEnabled(category string) bool {
	if !c.DebugMode {
		return false
	}
	if c.Categories == nil {
		return true
	}
	enabled, exists := c.Categories[category]
	if !exists {
		return true
	}
	return enabled
}

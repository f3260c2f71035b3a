// Package config loads and validates graft configuration.
// Settings come from .graft/config.yaml in the workspace, with a user-level
// file at ~/.graft/config.yaml underneath it and environment variables on top.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all graft configuration.
type Config struct {
	// Agent identity, substituted into the system prompt
	AgentName string `yaml:"agent_name"`
	Version   string `yaml:"version"`

	// LLM configuration
	LLM LLMConfig `yaml:"llm"`

	// Agent loop settings
	Agent AgentConfig `yaml:"agent"`

	// Workspace write safety
	Workspace WorkspaceConfig `yaml:"workspace"`

	// File bundling
	Bundling BundlingConfig `yaml:"bundling"`

	// Session persistence
	Sessions SessionConfig `yaml:"sessions"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the model client.
type LLMConfig struct {
	Provider  string `yaml:"provider"` // zai, anthropic, openai, gemini, xai
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	Timeout   string `yaml:"timeout"`
	Streaming bool   `yaml:"streaming"`
}

// AgentConfig configures the round loop and apply behavior.
type AgentConfig struct {
	MaxRounds         int     `yaml:"max_rounds"`
	AutoApply         bool    `yaml:"auto_apply"`
	CreateBackups     bool    `yaml:"create_backups"`
	ContextWindow     int     `yaml:"context_window"`
	WarningThreshold  float64 `yaml:"warning_threshold"`
	CriticalThreshold float64 `yaml:"critical_threshold"`
}

// WorkspaceConfig restricts where the apply engine may write.
type WorkspaceConfig struct {
	Root                 string   `yaml:"root"`
	AllowedWriteRoots    []string `yaml:"allowed_write_roots"`
	BlockedWritePatterns []string `yaml:"blocked_write_patterns"`
}

// SessionConfig configures session persistence.
type SessionConfig struct {
	Dir          string `yaml:"dir"`
	DatabasePath string `yaml:"database_path"`
	MaxSaved     int    `yaml:"max_saved"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		AgentName: "graft",
		Version:   "0.4.0",

		LLM: LLMConfig{
			Provider:  "zai",
			Model:     "GLM-4.6",
			Timeout:   "120s",
			Streaming: true,
		},

		Agent: AgentConfig{
			MaxRounds:         5,
			AutoApply:         false,
			CreateBackups:     true,
			ContextWindow:     128000,
			WarningThreshold:  0.80,
			CriticalThreshold: 0.95,
		},

		Workspace: WorkspaceConfig{
			Root:              ".",
			AllowedWriteRoots: []string{"."},
			BlockedWritePatterns: []string{
				"**/.env",
				"**/*.pem",
				"**/*.key",
				"**/*.secret*",
			},
		},

		Bundling: DefaultBundlingConfig(),

		Sessions: SessionConfig{
			Dir:          ".graft/sessions",
			DatabasePath: ".graft/sessions.db",
			MaxSaved:     50,
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration, merging the user file and then the given path
// over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if home, err := os.UserHomeDir(); err == nil {
		userPath := filepath.Join(home, ".graft", "config.yaml")
		if err := mergeFile(cfg, userPath); err != nil {
			return nil, err
		}
	}

	if err := mergeFile(cfg, path); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	// API keys in priority order; later checks win
	if key := os.Getenv("ZAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		if c.LLM.Provider == "" {
			c.LLM.Provider = "zai"
		}
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "anthropic"
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "openai"
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "gemini"
	}
	if key := os.Getenv("XAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "xai"
	}

	if url := os.Getenv("GRAFT_API_BASE_URL"); url != "" {
		c.LLM.BaseURL = url
	}
	if model := os.Getenv("GRAFT_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if v := os.Getenv("GRAFT_AUTO_APPLY"); v == "true" || v == "false" {
		c.Agent.AutoApply = v == "true"
	}
	if path := os.Getenv("GRAFT_SESSION_DB"); path != "" {
		c.Sessions.DatabasePath = path
	}
}

// GetLLMTimeout returns the LLM timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// ValidProviders lists all supported LLM providers.
var ValidProviders = []string{"zai", "anthropic", "openai", "gemini", "xai"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("LLM API key not configured (set ANTHROPIC_API_KEY, OPENAI_API_KEY, GEMINI_API_KEY, XAI_API_KEY, or ZAI_API_KEY)")
	}

	validProvider := false
	for _, p := range ValidProviders {
		if c.LLM.Provider == p {
			validProvider = true
			break
		}
	}
	if !validProvider {
		return fmt.Errorf("invalid LLM provider: %s (valid: %v)", c.LLM.Provider, ValidProviders)
	}

	if c.Agent.MaxRounds < 1 {
		return fmt.Errorf("agent max_rounds must be at least 1, got %d", c.Agent.MaxRounds)
	}
	if c.Agent.WarningThreshold <= 0 || c.Agent.WarningThreshold >= 1 {
		return fmt.Errorf("warning_threshold must be in (0, 1), got %v", c.Agent.WarningThreshold)
	}
	if c.Agent.CriticalThreshold <= c.Agent.WarningThreshold || c.Agent.CriticalThreshold > 1 {
		return fmt.Errorf("critical_threshold must be in (warning_threshold, 1], got %v", c.Agent.CriticalThreshold)
	}

	return nil
}

// DefaultConfigPath returns the workspace config path.
func DefaultConfigPath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return filepath.Join(".graft", "config.yaml")
	}
	return filepath.Join(cwd, ".graft", "config.yaml")
}

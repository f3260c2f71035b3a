package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.AgentName != "graft" {
		t.Errorf("expected AgentName=graft, got %s", cfg.AgentName)
	}
	if cfg.LLM.Provider != "zai" {
		t.Errorf("expected Provider=zai, got %s", cfg.LLM.Provider)
	}
	if cfg.Agent.MaxRounds != 5 {
		t.Errorf("expected MaxRounds=5, got %d", cfg.Agent.MaxRounds)
	}
	if cfg.Agent.AutoApply {
		t.Error("expected AutoApply=false by default")
	}
	if !cfg.Agent.CreateBackups {
		t.Error("expected CreateBackups=true by default")
	}
	if cfg.Sessions.MaxSaved != 50 {
		t.Errorf("expected MaxSaved=50, got %d", cfg.Sessions.MaxSaved)
	}
	if len(cfg.Workspace.AllowedWriteRoots) != 1 || cfg.Workspace.AllowedWriteRoots[0] != "." {
		t.Errorf("expected AllowedWriteRoots=[.], got %v", cfg.Workspace.AllowedWriteRoots)
	}
	if _, ok := cfg.Bundling.Types["python"]; !ok {
		t.Error("expected python bundle type in defaults")
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	// Ensure no env vars interfere
	t.Setenv("ZAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("XAI_API_KEY", "")
	t.Setenv("HOME", t.TempDir())

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")

	cfg := DefaultConfig()
	cfg.LLM.Provider = "anthropic"
	cfg.LLM.APIKey = "sk-test"
	cfg.Agent.MaxRounds = 8

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.LLM.Provider != "anthropic" {
		t.Errorf("expected Provider=anthropic, got %s", loaded.LLM.Provider)
	}
	if loaded.LLM.APIKey != "sk-test" {
		t.Errorf("expected APIKey=sk-test, got %s", loaded.LLM.APIKey)
	}
	if loaded.Agent.MaxRounds != 8 {
		t.Errorf("expected MaxRounds=8, got %d", loaded.Agent.MaxRounds)
	}
}

func TestConfig_LoadMissingFile(t *testing.T) {
	t.Setenv("ZAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("XAI_API_KEY", "")
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load of missing file should use defaults, got error: %v", err)
	}
	if cfg.Agent.MaxRounds != 5 {
		t.Errorf("expected defaults for missing file, got MaxRounds=%d", cfg.Agent.MaxRounds)
	}
}

func TestConfig_LoadPartialFile(t *testing.T) {
	t.Setenv("ZAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("XAI_API_KEY", "")
	t.Setenv("HOME", t.TempDir())

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	partial := "agent:\n  max_rounds: 3\n"
	if err := os.WriteFile(path, []byte(partial), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Agent.MaxRounds != 3 {
		t.Errorf("expected MaxRounds=3 from file, got %d", cfg.Agent.MaxRounds)
	}
	// Unspecified fields keep defaults
	if cfg.Sessions.MaxSaved != 50 {
		t.Errorf("expected default MaxSaved=50, got %d", cfg.Sessions.MaxSaved)
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	// Default has no API key
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for missing API key")
	}

	cfg.LLM.APIKey = "test-key"
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got error: %v", err)
	}

	cfg.LLM.Provider = "invalid-provider"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for invalid provider")
	}

	cfg.LLM.Provider = "zai"
	cfg.Agent.MaxRounds = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for max_rounds=0")
	}

	cfg.Agent.MaxRounds = 5
	cfg.Agent.CriticalThreshold = 0.5
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for critical_threshold below warning")
	}
}

func TestConfig_Helpers(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.GetLLMTimeout() != 120*time.Second {
		t.Errorf("GetLLMTimeout=%v, want 120s", cfg.GetLLMTimeout())
	}

	cfg.LLM.Timeout = "bogus"
	if cfg.GetLLMTimeout() != 120*time.Second {
		t.Error("GetLLMTimeout should fall back to 120s on parse error")
	}

	cfg.LLM.Timeout = "45s"
	if cfg.GetLLMTimeout() != 45*time.Second {
		t.Errorf("GetLLMTimeout=%v, want 45s", cfg.GetLLMTimeout())
	}
}

func TestLoggingConfig_IsCategoryEnabled(t *testing.T) {
	off := &LoggingConfig{DebugMode: false}
	if off.IsCategoryEnabled("agent") {
		t.Error("categories must be disabled when debug_mode is false")
	}

	on := &LoggingConfig{DebugMode: true}
	if !on.IsCategoryEnabled("agent") {
		t.Error("nil category map should enable all categories in debug mode")
	}

	partial := &LoggingConfig{
		DebugMode:  true,
		Categories: map[string]bool{"llm": false},
	}
	if partial.IsCategoryEnabled("llm") {
		t.Error("explicitly disabled category should be off")
	}
	if !partial.IsCategoryEnabled("apply") {
		t.Error("unlisted category should default to enabled")
	}
}

func TestBundlingConfig_TypeNames(t *testing.T) {
	b := DefaultBundlingConfig()
	names := b.TypeNames()
	found := map[string]bool{}
	for _, n := range names {
		found[n] = true
	}
	for _, want := range []string{"python", "go", "web", "docs"} {
		if !found[want] {
			t.Errorf("TypeNames missing %q", want)
		}
	}
}

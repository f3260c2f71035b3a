package main

import (
	"os"
	"path/filepath"
	"testing"

	"graft/internal/apply"
	"graft/internal/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func TestLoadConfigDefaults(t *testing.T) {
	logger = zap.NewNop()

	ws := t.TempDir()
	workspace = ws
	configPath = ""
	defer func() { workspace = ""; configPath = "" }()

	cfg, gotWS, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if gotWS != ws {
		t.Errorf("workspace = %q, want %q", gotWS, ws)
	}
	if cfg.Agent.MaxRounds != 5 {
		t.Errorf("MaxRounds = %d, want default 5", cfg.Agent.MaxRounds)
	}
	if !cfg.Agent.CreateBackups {
		t.Error("CreateBackups should default to true")
	}
}

func TestConfigInitCmd(t *testing.T) {
	logger = zap.NewNop()

	ws := t.TempDir()
	workspace = ws
	configPath = ""
	defer func() { workspace = ""; configPath = "" }()

	cmd := &cobra.Command{}
	if err := configInitCmd.RunE(cmd, nil); err != nil {
		t.Fatalf("config init failed: %v", err)
	}

	path := filepath.Join(ws, ".graft", "config.yaml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatal("config.yaml was not created")
	}

	// Running it again should overwrite, not fail.
	if err := configInitCmd.RunE(cmd, nil); err != nil {
		t.Errorf("config init second run failed: %v", err)
	}

	// The written file should load back cleanly.
	cfg, _, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig after init failed: %v", err)
	}
	if cfg.AgentName == "" {
		t.Error("loaded config has empty agent name")
	}
}

func TestApplyMode(t *testing.T) {
	cfg := config.DefaultConfig()

	tests := []struct {
		name       string
		dryRun     bool
		auto       bool
		configAuto bool
		want       apply.Mode
	}{
		{"default confirms", false, false, false, apply.ModeConfirm},
		{"auto flag", false, true, false, apply.ModeAuto},
		{"config auto_apply", false, false, true, apply.ModeAuto},
		{"dry-run beats auto", true, true, true, apply.ModeDryRun},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runDryRun = tt.dryRun
			runAuto = tt.auto
			cfg.Agent.AutoApply = tt.configAuto
			defer func() { runDryRun = false; runAuto = false }()

			if got := applyMode(cfg); got != tt.want {
				t.Errorf("applyMode = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestResolveWorkspace(t *testing.T) {
	ws := t.TempDir()
	workspace = ws
	defer func() { workspace = "" }()

	got := resolveWorkspace()
	if !filepath.IsAbs(got) {
		t.Errorf("resolveWorkspace returned relative path %q", got)
	}

	workspace = ""
	got = resolveWorkspace()
	cwd, _ := os.Getwd()
	if got != cwd {
		t.Errorf("resolveWorkspace = %q, want cwd %q", got, cwd)
	}
}

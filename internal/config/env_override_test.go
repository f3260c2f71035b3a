package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvOverrides_LLM(t *testing.T) {
	t.Run("ZAI_API_KEY sets provider if empty", func(t *testing.T) {
		t.Setenv("ZAI_API_KEY", "zai-key")
		// Ensure others are unset
		t.Setenv("ANTHROPIC_API_KEY", "")
		t.Setenv("OPENAI_API_KEY", "")
		t.Setenv("GEMINI_API_KEY", "")
		t.Setenv("XAI_API_KEY", "")

		cfg := &Config{}
		cfg.applyEnvOverrides()

		assert.Equal(t, "zai-key", cfg.LLM.APIKey)
		assert.Equal(t, "zai", cfg.LLM.Provider)
	})

	t.Run("ZAI_API_KEY does not override existing provider", func(t *testing.T) {
		t.Setenv("ZAI_API_KEY", "zai-key")
		t.Setenv("ANTHROPIC_API_KEY", "")
		t.Setenv("OPENAI_API_KEY", "")
		t.Setenv("GEMINI_API_KEY", "")
		t.Setenv("XAI_API_KEY", "")

		cfg := &Config{
			LLM: LLMConfig{Provider: "custom"},
		}
		cfg.applyEnvOverrides()

		assert.Equal(t, "zai-key", cfg.LLM.APIKey)
		assert.Equal(t, "custom", cfg.LLM.Provider)
	})

	t.Run("ANTHROPIC_API_KEY overrides provider", func(t *testing.T) {
		t.Setenv("ANTHROPIC_API_KEY", "ant-key")
		t.Setenv("OPENAI_API_KEY", "")
		t.Setenv("GEMINI_API_KEY", "")
		t.Setenv("XAI_API_KEY", "")

		cfg := &Config{
			LLM: LLMConfig{Provider: "initial"},
		}
		cfg.applyEnvOverrides()

		assert.Equal(t, "ant-key", cfg.LLM.APIKey)
		assert.Equal(t, "anthropic", cfg.LLM.Provider)
	})

	t.Run("Precedence chain", func(t *testing.T) {
		// 1. All set -> XAI wins
		t.Run("All Set -> XAI", func(t *testing.T) {
			setAllLLMKeys(t)
			cfg := &Config{}
			cfg.applyEnvOverrides()
			assert.Equal(t, "xai", cfg.LLM.APIKey)
			assert.Equal(t, "xai", cfg.LLM.Provider)
		})

		// 2. No XAI -> Gemini wins
		t.Run("No XAI -> Gemini", func(t *testing.T) {
			setAllLLMKeys(t)
			t.Setenv("XAI_API_KEY", "")
			cfg := &Config{}
			cfg.applyEnvOverrides()
			assert.Equal(t, "gem", cfg.LLM.APIKey)
			assert.Equal(t, "gemini", cfg.LLM.Provider)
		})

		// 3. No Gemini -> OpenAI wins
		t.Run("No Gemini -> OpenAI", func(t *testing.T) {
			setAllLLMKeys(t)
			t.Setenv("XAI_API_KEY", "")
			t.Setenv("GEMINI_API_KEY", "")
			cfg := &Config{}
			cfg.applyEnvOverrides()
			assert.Equal(t, "oa", cfg.LLM.APIKey)
			assert.Equal(t, "openai", cfg.LLM.Provider)
		})

		// 4. No OpenAI -> Anthropic wins
		t.Run("No OpenAI -> Anthropic", func(t *testing.T) {
			setAllLLMKeys(t)
			t.Setenv("XAI_API_KEY", "")
			t.Setenv("GEMINI_API_KEY", "")
			t.Setenv("OPENAI_API_KEY", "")
			cfg := &Config{}
			cfg.applyEnvOverrides()
			assert.Equal(t, "ant", cfg.LLM.APIKey)
			assert.Equal(t, "anthropic", cfg.LLM.Provider)
		})

		// 5. No Anthropic -> ZAI wins
		t.Run("No Anthropic -> ZAI", func(t *testing.T) {
			setAllLLMKeys(t)
			t.Setenv("XAI_API_KEY", "")
			t.Setenv("GEMINI_API_KEY", "")
			t.Setenv("OPENAI_API_KEY", "")
			t.Setenv("ANTHROPIC_API_KEY", "")
			cfg := &Config{}
			cfg.applyEnvOverrides()
			assert.Equal(t, "zai", cfg.LLM.APIKey)
			assert.Equal(t, "zai", cfg.LLM.Provider)
		})
	})
}

func setAllLLMKeys(t *testing.T) {
	t.Setenv("ZAI_API_KEY", "zai")
	t.Setenv("ANTHROPIC_API_KEY", "ant")
	t.Setenv("OPENAI_API_KEY", "oa")
	t.Setenv("GEMINI_API_KEY", "gem")
	t.Setenv("XAI_API_KEY", "xai")
}

func TestEnvOverrides_AgentAndSession(t *testing.T) {
	t.Run("GRAFT_MODEL overrides model", func(t *testing.T) {
		t.Setenv("GRAFT_MODEL", "glm-4.7")

		cfg := &Config{}
		cfg.applyEnvOverrides()

		assert.Equal(t, "glm-4.7", cfg.LLM.Model)
	})

	t.Run("GRAFT_API_BASE_URL overrides base URL", func(t *testing.T) {
		t.Setenv("GRAFT_API_BASE_URL", "http://localhost:8080/v1")

		cfg := &Config{}
		cfg.applyEnvOverrides()

		assert.Equal(t, "http://localhost:8080/v1", cfg.LLM.BaseURL)
	})

	t.Run("GRAFT_AUTO_APPLY accepts true and false only", func(t *testing.T) {
		t.Setenv("GRAFT_AUTO_APPLY", "true")
		cfg := &Config{}
		cfg.applyEnvOverrides()
		assert.True(t, cfg.Agent.AutoApply)

		t.Setenv("GRAFT_AUTO_APPLY", "false")
		cfg = &Config{Agent: AgentConfig{AutoApply: true}}
		cfg.applyEnvOverrides()
		assert.False(t, cfg.Agent.AutoApply)

		t.Setenv("GRAFT_AUTO_APPLY", "yes")
		cfg = &Config{}
		cfg.applyEnvOverrides()
		assert.False(t, cfg.Agent.AutoApply, "non-boolean value should be ignored")
	})

	t.Run("GRAFT_SESSION_DB overrides database path", func(t *testing.T) {
		t.Setenv("GRAFT_SESSION_DB", "/tmp/test.db")

		cfg := &Config{}
		cfg.applyEnvOverrides()

		assert.Equal(t, "/tmp/test.db", cfg.Sessions.DatabasePath)
	})
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "none", cfg.LLM.Provider)
	assert.Equal(t, 20, cfg.Memory.MaxMessages)
	assert.Equal(t, 5*time.Minute, cfg.Memory.FollowUpTTL)
	assert.InDelta(t, 0.15, cfg.Classifier.AmbiguityMargin, 1e-9)
	assert.InDelta(t, 0.7, cfg.Strategy.HighConfidence, 1e-9)
	assert.Equal(t, 4, cfg.Suggestions.Max)
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
  format: json
llm:
  provider: eino
  token: sk-test
  timeout: 3s
memory:
  max_messages: 7
  follow_up_ttl: 90s
classifier:
  ambiguity_margin: 0.2
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "eino", cfg.LLM.Provider)
	assert.Equal(t, 3*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 7, cfg.Memory.MaxMessages)
	assert.Equal(t, 90*time.Second, cfg.Memory.FollowUpTTL)
	assert.InDelta(t, 0.2, cfg.Classifier.AmbiguityMargin, 1e-9)
	assert.Equal(t, 600, cfg.LLM.MaxTokens)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("GOVASSIST_LLM_TOKEN", "sk-from-env")
	t.Setenv("GOVASSIST_LLM_MODEL", "gpt-4o-mini")

	cfg, err := Load(writeConfig(t, "http:\n  addr: \":9090\"\n"))
	require.NoError(t, err)

	assert.Equal(t, "sk-from-env", cfg.LLM.Token)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, "langchain", cfg.LLM.Provider)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad yaml", "log: [unclosed"},
		{"bad provider", "llm:\n  provider: gemini\n"},
		{"missing token", "llm:\n  provider: langchain\n"},
		{"bad level", "log:\n  level: verbose\n"},
		{"scores out of order", "strategy:\n  moderate_score: 50\n  complex_score: 30\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

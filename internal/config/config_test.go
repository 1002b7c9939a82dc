package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewDefaults(t *testing.T) {
	cfg := New()
	if cfg.Recon.MaxTurns != 6 {
		t.Errorf("MaxTurns = %d, want 6", cfg.Recon.MaxTurns)
	}
	if cfg.Recon.MaxToolCalls != 40 {
		t.Errorf("MaxToolCalls = %d, want 40", cfg.Recon.MaxToolCalls)
	}
	if cfg.Recon.EventBuffer != 64 {
		t.Errorf("EventBuffer = %d, want 64", cfg.Recon.EventBuffer)
	}
	if cfg.Repomap.Binary != "repomap" {
		t.Errorf("Repomap.Binary = %q, want repomap", cfg.Repomap.Binary)
	}
	if cfg.Telemetry.Protocol != "noop" {
		t.Errorf("Telemetry.Protocol = %q, want noop", cfg.Telemetry.Protocol)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reposcope.toml")
	content := `
[recon]
max_turns = 10
max_tool_calls = 80

[repomap]
binary = "repomap-dev"
timeout = "2m"

[llm]
provider = "anthropic"
model = "claude-sonnet-4-20250514"
max_tokens = 8192

[profiles.fast]
model = "claude-3-5-haiku-20241022"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Recon.MaxTurns != 10 || cfg.Recon.MaxToolCalls != 80 {
		t.Errorf("recon overrides not applied: %+v", cfg.Recon)
	}
	// Unset keys keep their defaults.
	if cfg.Recon.EventBuffer != 64 {
		t.Errorf("EventBuffer should keep default, got %d", cfg.Recon.EventBuffer)
	}
	if cfg.Repomap.Binary != "repomap-dev" || cfg.Repomap.Timeout != "2m" {
		t.Errorf("repomap overrides not applied: %+v", cfg.Repomap)
	}
	if cfg.LLM.Provider != "anthropic" || cfg.LLM.MaxTokens != 8192 {
		t.Errorf("llm overrides not applied: %+v", cfg.LLM)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile("/nonexistent/reposcope.toml"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestGetProfileFallback(t *testing.T) {
	cfg := New()
	cfg.LLM = LLMConfig{Provider: "anthropic", Model: "base-model", APIKeyEnv: "KEY", MaxTokens: 4096}
	cfg.Profiles = map[string]Profile{
		"fast": {Model: "small-model"},
	}

	got := cfg.GetProfile("fast")
	if got.Model != "small-model" {
		t.Errorf("profile model = %q, want small-model", got.Model)
	}
	if got.Provider != "anthropic" || got.APIKeyEnv != "KEY" || got.MaxTokens != 4096 {
		t.Errorf("profile should inherit unset fields from default LLM: %+v", got)
	}

	if got := cfg.GetProfile("missing"); got.Model != "base-model" {
		t.Errorf("unknown profile should fall back to default LLM, got %+v", got)
	}
	if got := cfg.GetProfile(""); got.Model != "base-model" {
		t.Errorf("empty profile name should return default LLM, got %+v", got)
	}
}

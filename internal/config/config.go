// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the reposcope configuration.
type Config struct {
	Recon     ReconConfig        `toml:"recon"`     // Supervised sub-session limits
	Repomap   RepomapConfig      `toml:"repomap"`   // Repository mapping tool
	LLM       LLMConfig          `toml:"llm"`       // Default LLM settings
	SmallLLM  LLMConfig          `toml:"small_llm"` // Fast/cheap model, reserved for summarization
	Profiles  map[string]Profile `toml:"profiles"`  // Capability profiles
	Telemetry TelemetryConfig    `toml:"telemetry"`
}

// ReconConfig bounds a supervised reconnaissance session.
type ReconConfig struct {
	MaxTurns          int    `toml:"max_turns"`          // Assistant turn ceiling (default 6)
	MaxToolCalls      int    `toml:"max_tool_calls"`     // Tool call ceiling (default 40)
	EventBuffer       int    `toml:"event_buffer"`       // Retained event ring size (default 64)
	MaxOutputLines    int    `toml:"max_output_lines"`   // Tool output line ceiling (default 400)
	MaxOutputBytes    int    `toml:"max_output_bytes"`   // Tool output byte ceiling (default 65536)
	HeartbeatInterval string `toml:"heartbeat_interval"` // Liveness update period (default "5s")
}

// RepomapConfig configures the external mapping tool.
type RepomapConfig struct {
	Binary  string `toml:"binary"`  // Executable name (default "repomap")
	Timeout string `toml:"timeout"` // Per-invocation ceiling (default "10m")
}

// LLMConfig contains LLM provider settings.
type LLMConfig struct {
	Provider     string `toml:"provider"`
	Model        string `toml:"model"`
	APIKeyEnv    string `toml:"api_key_env"`
	MaxTokens    int    `toml:"max_tokens"`
	BaseURL      string `toml:"base_url"`      // Custom API endpoint (OpenRouter, LiteLLM, Ollama, LMStudio)
	MaxRetries   int    `toml:"max_retries"`   // Max retry attempts (default 5)
	RetryBackoff string `toml:"retry_backoff"` // Max backoff duration (default "60s")
}

// Profile represents a capability profile mapping to a specific LLM configuration.
type Profile struct {
	Provider  string `toml:"provider"`
	Model     string `toml:"model"`
	APIKeyEnv string `toml:"api_key_env"`
	MaxTokens int    `toml:"max_tokens"`
	BaseURL   string `toml:"base_url"` // Custom API endpoint
}

// TelemetryConfig contains telemetry settings.
type TelemetryConfig struct {
	Enabled  bool   `toml:"enabled"`
	Endpoint string `toml:"endpoint"` // OTLP endpoint (e.g., localhost:4317)
	Protocol string `toml:"protocol"` // grpc (default) or http
}

// New creates a new config with defaults.
func New() *Config {
	return &Config{
		Recon: ReconConfig{
			MaxTurns:          6,
			MaxToolCalls:      40,
			EventBuffer:       64,
			MaxOutputLines:    400,
			MaxOutputBytes:    64 * 1024,
			HeartbeatInterval: "5s",
		},
		Repomap: RepomapConfig{
			Binary:  "repomap",
			Timeout: "10m",
		},
		LLM: LLMConfig{
			MaxTokens: 4096,
		},
		Telemetry: TelemetryConfig{
			Protocol: "noop",
		},
	}
}

// Default returns a default configuration.
func Default() *Config {
	return New()
}

// LoadFile loads configuration from a TOML file.
func LoadFile(path string) (*Config, error) {
	cfg := New()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// LoadDefault loads configuration from reposcope.toml in the current directory.
func LoadDefault() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}

	return LoadFile(filepath.Join(cwd, "reposcope.toml"))
}

// GetAPIKey returns the API key from the configured environment variable.
// If api_key_env is not set, uses the default env var for the provider.
func (c *Config) GetAPIKey() string {
	envVar := c.LLM.APIKeyEnv
	if envVar == "" {
		envVar = DefaultAPIKeyEnv(c.LLM.Provider)
	}
	if envVar == "" {
		return ""
	}
	return os.Getenv(envVar)
}

// DefaultAPIKeyEnv returns the default environment variable name for a provider.
func DefaultAPIKeyEnv(provider string) string {
	switch provider {
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "openai":
		return "OPENAI_API_KEY"
	case "google":
		return "GOOGLE_API_KEY"
	case "mistral":
		return "MISTRAL_API_KEY"
	case "groq":
		return "GROQ_API_KEY"
	default:
		return ""
	}
}

// GetProfile returns the LLM config for a capability profile.
// Falls back to default LLM config if profile not found.
func (c *Config) GetProfile(name string) LLMConfig {
	if name == "" {
		return c.LLM
	}
	if profile, ok := c.Profiles[name]; ok {
		// Fill in defaults from main LLM config
		result := LLMConfig{
			Provider:  profile.Provider,
			Model:     profile.Model,
			APIKeyEnv: profile.APIKeyEnv,
			MaxTokens: profile.MaxTokens,
			BaseURL:   profile.BaseURL,
		}
		if result.Provider == "" {
			result.Provider = c.LLM.Provider
		}
		if result.APIKeyEnv == "" {
			result.APIKeyEnv = c.LLM.APIKeyEnv
		}
		if result.MaxTokens == 0 {
			result.MaxTokens = c.LLM.MaxTokens
		}
		return result
	}
	return c.LLM
}

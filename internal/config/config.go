// Package config loads and manages arcochat configuration.
// Source precedence, highest first:
//  1. environment variables (OPENAI_API_KEY, ANTHROPIC_API_KEY, ARCO_* ...)
//  2. the --config flag path
//  3. ~/.config/arcochat/config.yaml
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ProviderConfig holds one backend's connection settings.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// HistoryConfig selects the conversation store backend.
type HistoryConfig struct {
	// Backend: "sqlite" (default) | "file"
	Backend string `yaml:"backend"`

	// Path overrides the default database path or file directory.
	Path string `yaml:"path"`
}

// Config is the complete arcochat configuration.
type Config struct {
	// Provider selects the backend: "assistant" (default, hosted
	// threads/runs), "anthropic", or any OpenAI-compatible name
	// ("openai", "deepseek", "groq", ...).
	Provider string `yaml:"provider"`

	// Model overrides the provider's default model.
	Model string `yaml:"model"`

	// Providers holds per-backend connection settings.
	Providers map[string]*ProviderConfig `yaml:"providers"`

	// AssistantID identifies the hosted assistant ("assistant" provider).
	AssistantID string `yaml:"assistant_id"`

	// VectorStoreID is the knowledge-base corpus bound by `arcochat setup`.
	VectorStoreID string `yaml:"vector_store_id"`

	// Sampling pass-through. Zero values mean backend defaults.
	Temperature float64 `yaml:"temperature"`
	TopP        float64 `yaml:"top_p"`

	// Streaming switches the assistant backend from run polling to SSE.
	Streaming bool `yaml:"streaming"`

	// Run polling: delay between status checks and the attempt budget.
	PollIntervalSeconds int `yaml:"poll_interval_seconds"`
	PollMaxAttempts     int `yaml:"poll_max_attempts"`

	// PromptAugmentation is an optional template with a {message}
	// placeholder applied to submitted user text.
	PromptAugmentation string `yaml:"prompt_augmentation"`

	// CancelNotice leaves a system message when a turn is canceled
	// instead of removing the placeholder silently.
	CancelNotice bool `yaml:"cancel_notice"`

	// WelcomeQuestions is the number of sample questions on the welcome
	// message (0 disables).
	WelcomeQuestions int `yaml:"welcome_questions"`

	History HistoryConfig `yaml:"history"`
}

// ConfigurationError reports a missing or invalid setting. It is fatal:
// surfaced once at startup, never retried.
type ConfigurationError struct {
	Setting string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s %s", e.Setting, e.Reason)
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:            "assistant",
		Providers:           make(map[string]*ProviderConfig),
		PollIntervalSeconds: 1,
		PollMaxAttempts:     120,
		WelcomeQuestions:    5,
		History:             HistoryConfig{Backend: "sqlite"},
	}
}

// Load reads the config file and applies environment overrides. A missing
// file yields the defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			configPath = filepath.Join(home, ".config", "arcochat", "config.yaml")
		}
	}

	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
		}
	}

	applyEnvOverrides(cfg)

	if cfg.Providers == nil {
		cfg.Providers = make(map[string]*ProviderConfig)
	}

	return cfg, nil
}

// GetProviderConfig returns the named backend's settings, empty when unset.
func (c *Config) GetProviderConfig(name string) *ProviderConfig {
	if pc, ok := c.Providers[name]; ok {
		return pc
	}
	return &ProviderConfig{}
}

// OpenAIKey returns the OpenAI credential, shared by the "assistant" and
// "openai" providers.
func (c *Config) OpenAIKey() string {
	return c.GetProviderConfig("openai").APIKey
}

// Validate checks that the selected provider is usable.
func (c *Config) Validate() error {
	switch c.Provider {
	case "assistant":
		if c.OpenAIKey() == "" {
			return &ConfigurationError{Setting: "providers.openai.api_key", Reason: "is required (or set OPENAI_API_KEY)"}
		}
		if c.AssistantID == "" {
			return &ConfigurationError{Setting: "assistant_id", Reason: "is required (run `arcochat setup` or set ARCO_ASSISTANT_ID)"}
		}
	default:
		if c.GetProviderConfig(c.Provider).APIKey == "" {
			return &ConfigurationError{
				Setting: fmt.Sprintf("providers.%s.api_key", c.Provider),
				Reason:  "is required",
			}
		}
	}
	return nil
}

func setProviderKey(cfg *Config, name, key string) {
	if cfg.Providers[name] == nil {
		cfg.Providers[name] = &ProviderConfig{}
	}
	cfg.Providers[name].APIKey = key
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		setProviderKey(cfg, "openai", v)
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		setProviderKey(cfg, "anthropic", v)
	}
	if v := os.Getenv("ARCO_PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if v := os.Getenv("ARCO_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("ARCO_ASSISTANT_ID"); v != "" {
		cfg.AssistantID = v
	}
	if v := os.Getenv("ARCO_VECTOR_STORE_ID"); v != "" {
		cfg.VectorStoreID = v
	}
}

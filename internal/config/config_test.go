package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider != "assistant" {
		t.Errorf("Provider = %q, want assistant", cfg.Provider)
	}
	if cfg.PollIntervalSeconds != 1 || cfg.PollMaxAttempts != 120 {
		t.Errorf("poll defaults = %d/%d", cfg.PollIntervalSeconds, cfg.PollMaxAttempts)
	}
	if cfg.WelcomeQuestions != 5 {
		t.Errorf("WelcomeQuestions = %d, want 5", cfg.WelcomeQuestions)
	}
	if cfg.History.Backend != "sqlite" {
		t.Errorf("History.Backend = %q, want sqlite", cfg.History.Backend)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
provider: openai
model: gpt-4o-mini
assistant_id: asst_123
welcome_questions: 0
prompt_augmentation: "{message} — answer briefly"
providers:
  openai:
    api_key: sk-test
history:
  backend: file
  path: /tmp/arco
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Provider != "openai" || cfg.Model != "gpt-4o-mini" {
		t.Errorf("provider/model = %q/%q", cfg.Provider, cfg.Model)
	}
	if cfg.WelcomeQuestions != 0 {
		t.Errorf("WelcomeQuestions = %d, want explicit 0", cfg.WelcomeQuestions)
	}
	if cfg.OpenAIKey() != "sk-test" {
		t.Errorf("OpenAIKey = %q", cfg.OpenAIKey())
	}
	if cfg.History.Backend != "file" || cfg.History.Path != "/tmp/arco" {
		t.Errorf("history = %+v", cfg.History)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("ARCO_PROVIDER", "assistant")
	t.Setenv("ARCO_MODEL", "gpt-4o")
	t.Setenv("ARCO_ASSISTANT_ID", "asst_env")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OpenAIKey() != "sk-env" {
		t.Errorf("OpenAIKey = %q", cfg.OpenAIKey())
	}
	if cfg.Provider != "assistant" || cfg.Model != "gpt-4o" || cfg.AssistantID != "asst_env" {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()

	var confErr *ConfigurationError
	if err := cfg.Validate(); !errors.As(err, &confErr) {
		t.Fatalf("Validate without key = %v, want ConfigurationError", err)
	}

	setProviderKey(cfg, "openai", "sk-test")
	if err := cfg.Validate(); !errors.As(err, &confErr) {
		t.Fatalf("Validate without assistant_id = %v, want ConfigurationError", err)
	}
	if confErr.Setting != "assistant_id" {
		t.Errorf("Setting = %q, want assistant_id", confErr.Setting)
	}

	cfg.AssistantID = "asst_123"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate = %v, want nil", err)
	}

	direct := DefaultConfig()
	direct.Provider = "deepseek"
	if err := direct.Validate(); !errors.As(err, &confErr) {
		t.Fatalf("Validate direct provider = %v, want ConfigurationError", err)
	}
	setProviderKey(direct, "deepseek", "sk-ds")
	if err := direct.Validate(); err != nil {
		t.Errorf("Validate direct provider = %v, want nil", err)
	}
}

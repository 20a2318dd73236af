package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
environment: test
`

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Council.QuorumThreshold != 3 {
		t.Fatalf("default quorum threshold: got %d", cfg.Council.QuorumThreshold)
	}
	if cfg.Council.AttemptTimeout != 180*time.Second {
		t.Fatalf("default attempt timeout: got %s", cfg.Council.AttemptTimeout)
	}
	if cfg.Council.RunTimeout != 10*time.Minute {
		t.Fatalf("default run timeout: got %s", cfg.Council.RunTimeout)
	}
	if cfg.History.Backend != "file" {
		t.Fatalf("default history backend: got %s", cfg.History.Backend)
	}
	if cfg.History.File.Path != "ANALYSIS_HISTORY.md" {
		t.Fatalf("default history path: got %s", cfg.History.File.Path)
	}
	if cfg.Cache.QuoteTTL != 30*time.Second {
		t.Fatalf("default quote ttl: got %s", cfg.Cache.QuoteTTL)
	}
}

func TestLoadExpertDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
environment: test
council:
  experts:
    - name: solo
      primary_model: claude-sonnet-4-20250514
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	e := cfg.Council.Experts[0]
	if e.MaxTokens != 2000 {
		t.Fatalf("expert max_tokens default: got %d", e.MaxTokens)
	}
	if e.Temperature != 0.7 {
		t.Fatalf("expert temperature default: got %v", e.Temperature)
	}
	if e.FallbackEnabled == nil || !*e.FallbackEnabled {
		t.Fatalf("fallback must default to enabled")
	}
	if cfg.Council.Chairman.MaxTokens != 4000 {
		t.Fatalf("chairman max_tokens default: got %d", cfg.Council.Chairman.MaxTokens)
	}
	if cfg.Council.Chairman.Temperature != 0.3 {
		t.Fatalf("chairman temperature default: got %v", cfg.Council.Chairman.Temperature)
	}
}

func TestLoadRejectsMissingEnvironment(t *testing.T) {
	if _, err := Load(writeConfig(t, `server: {port: 8080}`)); err == nil {
		t.Fatalf("expected error for missing environment")
	}
}

func TestLoadRejectsBadHistoryBackend(t *testing.T) {
	_, err := Load(writeConfig(t, `
environment: test
history:
  backend: postgres
`))
	if err == nil {
		t.Fatalf("expected error for unknown history backend")
	}
}

func TestLoadRejectsDuplicateExperts(t *testing.T) {
	_, err := Load(writeConfig(t, `
environment: test
council:
  experts:
    - name: twin
      primary_model: claude-sonnet-4-20250514
    - name: twin
      primary_model: gpt-5
`))
	if err == nil {
		t.Fatalf("expected error for duplicate expert names")
	}
}

func TestLoadRejectsExpertWithoutModel(t *testing.T) {
	_, err := Load(writeConfig(t, `
environment: test
council:
  experts:
    - name: incomplete
`))
	if err == nil {
		t.Fatalf("expected error for expert without primary_model")
	}
}

func TestLoadRejectsKafkaWithoutBrokers(t *testing.T) {
	_, err := Load(writeConfig(t, `
environment: test
kafka:
  enabled: true
`))
	if err == nil {
		t.Fatalf("expected error for enabled kafka without brokers")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	t.Setenv("HISTORY_BACKEND", "clickhouse")
	t.Setenv("SYMBOLS", "AAPL,MSFT")
	t.Setenv("QUORUM_THRESHOLD", "4")

	cfg, err := LoadWithEnv(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Providers.Anthropic.APIKey != "sk-ant-test" {
		t.Fatalf("env override for anthropic key not applied")
	}
	if cfg.History.Backend != "clickhouse" {
		t.Fatalf("env override for history backend not applied")
	}
	if len(cfg.Finnhub.Symbols) != 2 || cfg.Finnhub.Symbols[1] != "MSFT" {
		t.Fatalf("env override for symbols not applied: %v", cfg.Finnhub.Symbols)
	}
	if cfg.Council.QuorumThreshold != 4 {
		t.Fatalf("env override for quorum threshold not applied: %d", cfg.Council.QuorumThreshold)
	}
}

func TestLoadWithEnvRejectsInvalidOverride(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	t.Setenv("QUORUM_THRESHOLD", "0")

	if _, err := LoadWithEnv(writeConfig(t, minimalConfig)); err == nil {
		t.Fatalf("expected error for quorum threshold override below 1")
	}
}

func TestLoadRejectsChairmanWithoutModel(t *testing.T) {
	_, err := Load(writeConfig(t, `
environment: test
council:
  chairman:
    name: custom_chair
`))
	if err == nil {
		t.Fatalf("expected error for configured chairman without primary_model")
	}
}

package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"ALLOWED_EXTENSIONS", "IGNORE_PATTERNS", "POLL_INTERVAL_MS", "NOTIFY_BUFFER",
		"ON_DOCUMENT_ERROR", "OLLAMA_GEN_MODEL", "POSTGRES_DSN", "NATS_URL", "LLM_BREAKER_ENABLED",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if len(cfg.AllowedExtensions) != 4 || cfg.AllowedExtensions[0] != ".pdf" {
		t.Fatalf("unexpected extensions: %v", cfg.AllowedExtensions)
	}
	if len(cfg.IgnorePatterns) != 2 || cfg.IgnorePatterns[0] != "~$*" {
		t.Fatalf("unexpected ignore patterns: %v", cfg.IgnorePatterns)
	}
	if cfg.PollInterval != 2*time.Second || cfg.NotifyBuffer != 256 {
		t.Fatalf("unexpected loop defaults: %s, %d", cfg.PollInterval, cfg.NotifyBuffer)
	}
	if cfg.OnError != "continue" || cfg.OllamaGenModel != "qwen3" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.PostgresDSN != "" || cfg.NATSURL != "" {
		t.Fatalf("optional integrations must be off by default")
	}
	if !cfg.LLMBreakerEnabled {
		t.Fatalf("breaker must be on by default")
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("ALLOWED_EXTENSIONS", " .pdf , ,.XLSX")
	t.Setenv("POLL_INTERVAL_MS", "250")
	t.Setenv("OLLAMA_RATE_PER_SECOND", "0.5")
	t.Setenv("LLM_BREAKER_ENABLED", "false")
	t.Setenv("NOTIFY_BUFFER", "not-a-number")

	cfg := Load()
	if len(cfg.AllowedExtensions) != 2 || cfg.AllowedExtensions[1] != ".XLSX" {
		t.Fatalf("unexpected extensions: %v", cfg.AllowedExtensions)
	}
	if cfg.PollInterval != 250*time.Millisecond {
		t.Fatalf("unexpected poll interval: %s", cfg.PollInterval)
	}
	if cfg.OllamaRatePerSecond != 0.5 || cfg.LLMBreakerEnabled {
		t.Fatalf("unexpected overrides: %+v", cfg)
	}
	if cfg.NotifyBuffer != 256 {
		t.Fatalf("invalid numbers must fall back, got %d", cfg.NotifyBuffer)
	}
}

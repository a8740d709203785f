package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	LogLevel string
	LogFile  string

	SettingsPath string

	AllowedExtensions []string
	IgnorePatterns    []string

	PollInterval   time.Duration
	NotifyBuffer   int
	OnError        string
	SuppressWindow time.Duration

	PDFMaxPages int

	OllamaURL            string
	OllamaGenModel       string
	OllamaTimeout        time.Duration
	OllamaMaxPromptChars int
	OllamaRatePerSecond  float64

	LLMRetryMaxAttempts int
	LLMBreakerEnabled   bool

	PostgresDSN string

	NATSURL     string
	NATSSubject string

	MetricsPort string
}

func Load() Config {
	return Config{
		LogLevel: mustEnv("LOG_LEVEL", "info"),
		LogFile:  mustEnv("LOG_FILE", ""),

		SettingsPath: mustEnv("SETTINGS_PATH", defaultSettingsPath()),

		AllowedExtensions: mustEnvList("ALLOWED_EXTENSIONS", ".pdf,.xlsx,.txt,.md"),
		IgnorePatterns:    mustEnvList("IGNORE_PATTERNS", "~$*,.*"),

		PollInterval:   time.Duration(mustEnvInt("POLL_INTERVAL_MS", 2000)) * time.Millisecond,
		NotifyBuffer:   mustEnvInt("NOTIFY_BUFFER", 256),
		OnError:        mustEnv("ON_DOCUMENT_ERROR", "continue"),
		SuppressWindow: time.Duration(mustEnvInt("SUPPRESS_WINDOW_SECONDS", 30)) * time.Second,

		PDFMaxPages: mustEnvInt("PDF_MAX_PAGES", 5),

		OllamaURL:            mustEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaGenModel:       mustEnv("OLLAMA_GEN_MODEL", "qwen3"),
		OllamaTimeout:        time.Duration(mustEnvInt("OLLAMA_TIMEOUT_SECONDS", 120)) * time.Second,
		OllamaMaxPromptChars: mustEnvInt("OLLAMA_MAX_PROMPT_CHARS", 12000),
		OllamaRatePerSecond:  mustEnvFloat("OLLAMA_RATE_PER_SECOND", 0),

		LLMRetryMaxAttempts: mustEnvInt("LLM_RETRY_MAX_ATTEMPTS", 3),
		LLMBreakerEnabled:   mustEnvBool("LLM_BREAKER_ENABLED", true),

		PostgresDSN: mustEnv("POSTGRES_DSN", ""),

		NATSURL:     mustEnv("NATS_URL", ""),
		NATSSubject: mustEnv("NATS_SUBJECT", "docsorter.events"),

		MetricsPort: mustEnv("METRICS_PORT", ""),
	}
}

func defaultSettingsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "docsorter.yaml"
	}
	return dir + string(os.PathSeparator) + "docsorter" + string(os.PathSeparator) + "settings.yaml"
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func mustEnvList(key, fallback string) []string {
	raw := mustEnv(key, fallback)
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

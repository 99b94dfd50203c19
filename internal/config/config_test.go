package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BindAddr != ":8000" {
		t.Fatalf("BindAddr = %q", cfg.BindAddr)
	}
	if cfg.HistoryWindow != 5 {
		t.Fatalf("HistoryWindow = %d", cfg.HistoryWindow)
	}
	if cfg.DeepgramSTTModel != "nova-2" || cfg.DeepgramTTSModel != "aura-2-thalia-en" {
		t.Fatalf("Deepgram models = %q / %q", cfg.DeepgramSTTModel, cfg.DeepgramTTSModel)
	}
	if !cfg.AllowAnyOrigin {
		t.Fatalf("AllowAnyOrigin should default to true")
	}
	if cfg.DeepgramAPIKey != "" || cfg.LLMAPIKey != "" {
		t.Fatalf("provider keys must default to empty")
	}
}

func TestLoadExplicitOverrides(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("APP_BIND_ADDR", ":9999")
	t.Setenv("APP_TURN_TIMEOUT", "90s")
	t.Setenv("APP_HISTORY_WINDOW", "3")
	t.Setenv("DEEPGRAM_API_KEY", "  dg-key  ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":9999" {
		t.Fatalf("BindAddr = %q", cfg.BindAddr)
	}
	if cfg.TurnTimeout != 90*time.Second {
		t.Fatalf("TurnTimeout = %v", cfg.TurnTimeout)
	}
	if cfg.HistoryWindow != 3 {
		t.Fatalf("HistoryWindow = %d", cfg.HistoryWindow)
	}
	if cfg.DeepgramAPIKey != "dg-key" {
		t.Fatalf("DeepgramAPIKey = %q, want trimmed", cfg.DeepgramAPIKey)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"APP_SESSION_INACTIVITY_TIMEOUT": "1s",
		"APP_HISTORY_WINDOW":             "0",
		"APP_WORKER_POOL_SIZE":           "-2",
		"LLM_TEMPERATURE":                "3.5",
		"APP_TURN_TIMEOUT":               "bogus",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			setCoreEnvEmpty(t)
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("Load() accepted %s=%q", key, value)
			}
		})
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_SESSION_INACTIVITY_TIMEOUT",
		"APP_METRICS_NAMESPACE",
		"APP_ALLOW_ANY_ORIGIN",
		"APP_KNOWLEDGE_BASE_PATH",
		"APP_HISTORY_WINDOW",
		"APP_WORKER_POOL_SIZE",
		"APP_TURN_TIMEOUT",
		"DEEPGRAM_API_KEY",
		"DEEPGRAM_BASE_URL",
		"DEEPGRAM_STT_MODEL",
		"DEEPGRAM_TTS_MODEL",
		"LLM_API_KEY",
		"LLM_BASE_URL",
		"LLM_MODEL",
		"LLM_MAX_TOKENS",
		"LLM_TEMPERATURE",
		"DATABASE_URL",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}

package config

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/knadh/koanf/v2"
)

func clearEnv() {
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "SWGATE_") {
			os.Unsetenv(strings.SplitN(kv, "=", 2)[0])
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Env != "prod" {
		t.Errorf("expected Env=prod, got %q", cfg.Env)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected LogLevel=info, got %q", cfg.LogLevel)
	}
	if cfg.Port != 8080 {
		t.Errorf("expected Port=8080, got %d", cfg.Port)
	}
	if cfg.OracleModel != "gemini-2.5-flash" {
		t.Errorf("expected default model, got %q", cfg.OracleModel)
	}
	if cfg.OracleTimeout() != 5*time.Second {
		t.Errorf("expected OracleTimeout=5s, got %v", cfg.OracleTimeout())
	}
	if cfg.FallbackCategory != "Uncategorized" {
		t.Errorf("expected FallbackCategory=Uncategorized, got %q", cfg.FallbackCategory)
	}
	if cfg.FallbackVerdict != "allowed" {
		t.Errorf("expected FallbackVerdict=allowed, got %q", cfg.FallbackVerdict)
	}
	if cfg.OracleAPIKey != "" {
		t.Errorf("expected empty OracleAPIKey by default, got %q", cfg.OracleAPIKey)
	}
}

func TestLoad_ValidOverrides(t *testing.T) {
	clearEnv()
	t.Setenv("SWGATE_ENV", "dev")
	t.Setenv("SWGATE_LOG_LEVEL", "debug")
	t.Setenv("SWGATE_PORT", "3128")
	t.Setenv("SWGATE_ORACLE_API_KEY", "test-key")
	t.Setenv("SWGATE_ORACLE_TIMEOUT_MS", "2500")
	t.Setenv("SWGATE_FALLBACK_VERDICT", "blocked")
	t.Setenv("SWGATE_POLICY_FILE", "/etc/swgate/categories.json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Env != "dev" {
		t.Errorf("expected Env=dev, got %q", cfg.Env)
	}
	if cfg.Port != 3128 {
		t.Errorf("expected Port=3128, got %d", cfg.Port)
	}
	if cfg.OracleAPIKey != "test-key" {
		t.Errorf("expected OracleAPIKey=test-key, got %q", cfg.OracleAPIKey)
	}
	if cfg.OracleTimeout() != 2500*time.Millisecond {
		t.Errorf("expected OracleTimeout=2.5s, got %v", cfg.OracleTimeout())
	}
	if cfg.FallbackVerdict != "blocked" {
		t.Errorf("expected FallbackVerdict=blocked, got %q", cfg.FallbackVerdict)
	}
	if cfg.PolicyFile != "/etc/swgate/categories.json" {
		t.Errorf("expected PolicyFile override, got %q", cfg.PolicyFile)
	}
}

func TestLoad_WhenKoanfLoadFails(t *testing.T) {
	orig := envLoader
	envLoader = func(k *koanf.Koanf) error {
		return errors.New("mocked error")
	}
	defer func() { envLoader = orig }()

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "mocked error") {
		t.Fatal("expected error when loading env, got nil")
	}
}

func TestLoad_InvalidEnv(t *testing.T) {
	clearEnv()
	t.Setenv("SWGATE_ENV", "staging")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid SWGATE_ENV, got nil")
	}
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	clearEnv()
	t.Setenv("SWGATE_LOG_LEVEL", "trace")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid SWGATE_LOG_LEVEL, got nil")
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	clearEnv()
	t.Setenv("SWGATE_PORT", "99999")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid SWGATE_PORT, got nil")
	}
}

func TestLoad_InvalidFallbackVerdict(t *testing.T) {
	clearEnv()
	t.Setenv("SWGATE_FALLBACK_VERDICT", "maybe")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid SWGATE_FALLBACK_VERDICT, got nil")
	}
}

func TestLoad_OracleTimeoutBounds(t *testing.T) {
	clearEnv()
	t.Setenv("SWGATE_ORACLE_TIMEOUT_MS", "10")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for out-of-range SWGATE_ORACLE_TIMEOUT_MS, got nil")
	}
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// AppConfig holds configuration values parsed from environment variables.
type AppConfig struct {
	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	// LogLevel controls log verbosity: "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`

	// Port is the network port the proxy transport will bind to.
	Port int `koanf:"port" validate:"required,gte=1,lt=65535"`

	// OracleAPIKey authenticates calls to the categorization service.
	// Deliberately not required: without it the miss path fails with a typed
	// error while cache-hit traffic keeps working.
	OracleAPIKey string `koanf:"oracle_api_key"`

	// OracleModel selects the generative model used for categorization.
	OracleModel string `koanf:"oracle_model" validate:"required"`

	// OracleTimeoutMS bounds a single categorization call, in milliseconds.
	OracleTimeoutMS int `koanf:"oracle_timeout_ms" validate:"required,gte=100,lte=60000"`

	// CacheFile is the durable domain→category cache (JSON).
	CacheFile string `koanf:"cache_file" validate:"required"`

	// PolicyFile is the operator-editable category→verdict table (JSON).
	PolicyFile string `koanf:"policy_file" validate:"required"`

	// ActivityLog is the append-only JSONL decision log.
	ActivityLog string `koanf:"activity_log" validate:"required"`

	// ActivityDB is the bolt-backed decision archive. Empty disables archiving.
	ActivityDB string `koanf:"activity_db"`

	// CacheSize bounds the in-memory decision cache in front of the store.
	CacheSize uint `koanf:"cache_size" validate:"required,gte=1"`

	// FallbackCategory is returned when classification fails.
	FallbackCategory string `koanf:"fallback_category" validate:"required"`

	// FallbackVerdict is the default policy for the fallback category:
	// "allowed" (fail-open) or "blocked" (fail-closed).
	FallbackVerdict string `koanf:"fallback_verdict" validate:"required,oneof=allowed blocked"`

	// PolicyRefreshMS bounds how stale the policy view may get when file
	// change notifications are missed, in milliseconds.
	PolicyRefreshMS int `koanf:"policy_refresh_ms" validate:"required,gte=100"`

	// BlockPageFile overrides the embedded block page template. Optional.
	BlockPageFile string `koanf:"block_page_file"`
}

// OracleTimeout returns the categorization deadline as a duration.
func (c *AppConfig) OracleTimeout() time.Duration {
	return time.Duration(c.OracleTimeoutMS) * time.Millisecond
}

// PolicyRefresh returns the policy staleness bound as a duration.
func (c *AppConfig) PolicyRefresh() time.Duration {
	return time.Duration(c.PolicyRefreshMS) * time.Millisecond
}

// envLoader loads environment variables with the prefix "SWGATE_",
// lowercasing keys and stripping the prefix. Mockable in tests.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: "SWGATE_",
		TransformFunc: func(key, value string) (string, any) {
			return strings.ToLower(strings.TrimPrefix(key, "SWGATE_")), value
		},
	}), nil)
}

// Load parses environment variables and returns an AppConfig instance.
// It applies default values and runs validation automatically.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	// Load default values using structs provider.
	k.Load(structs.Provider(AppConfig{
		Env:              "prod",
		LogLevel:         "info",
		Port:             8080,
		OracleModel:      "gemini-2.5-flash",
		OracleTimeoutMS:  5000,
		CacheFile:        "domain_cache.json",
		PolicyFile:       "categories.json",
		ActivityLog:      "activity.jsonl",
		ActivityDB:       "activity.db",
		CacheSize:        10000,
		FallbackCategory: "Uncategorized",
		FallbackVerdict:  "allowed",
		PolicyRefreshMS:  5000,
	}, "koanf"), nil)

	err := envLoader(k)
	if err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig

	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	err = validate.Struct(&cfg)
	if err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}

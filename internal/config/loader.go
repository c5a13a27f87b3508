package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if MATCHER_CONFIG is set
//  3. env (prefix MATCHER_)
func Load(ctx context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("MATCHER_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	// Environment variables: MATCHER_ADDR, MATCHER_WORKER_COUNT, ...
	// Keys map straight onto the koanf struct tags, underscores preserved.
	envProvider := env.Provider("MATCHER_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "matcher_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	switch {
	case cfg.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case cfg.Store != StoreMemory && cfg.Store != StoreSQLite:
		return fmt.Errorf("%w: store must be %q or %q, got %q", ErrInvalidConfig, StoreMemory, StoreSQLite, cfg.Store)
	case cfg.Store == StoreSQLite && cfg.SQLitePath == "":
		return fmt.Errorf("%w: sqlite_path must not be empty for the sqlite store", ErrInvalidConfig)
	case cfg.SlotGranularityMinutes <= 0:
		return fmt.Errorf("%w: slot_granularity_minutes must be positive", ErrInvalidConfig)
	case cfg.HorizonDays <= 0:
		return fmt.Errorf("%w: horizon_days must be positive", ErrInvalidConfig)
	case cfg.ToolSkipBound < 0:
		return fmt.Errorf("%w: tool_skip_bound must not be negative", ErrInvalidConfig)
	}
	return nil
}

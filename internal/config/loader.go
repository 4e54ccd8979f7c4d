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
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if ANEK_CONFIG is set
//  3. env (prefix ANEK_)
func Load(ctx context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("ANEK_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: ANEK_ADDR, ANEK_DATABASE_URL, ...
	// Map env keys like ANEK_POOL_MAX_CONNS -> pool_max_conns (flat keys)
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("ANEK_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "anek_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Basic validation
	switch {
	case cfg.Addr == "":
		return nil, fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case cfg.DatabaseURL == "":
		return nil, fmt.Errorf("%w: database_url must not be empty", ErrInvalidConfig)
	case cfg.PoolMaxConns < 1:
		return nil, fmt.Errorf("%w: pool_max_conns must be positive", ErrInvalidConfig)
	case cfg.LeaderboardSize < 1:
		return nil, fmt.Errorf("%w: leaderboard_size must be positive", ErrInvalidConfig)
	case cfg.MinRecords < 1:
		return nil, fmt.Errorf("%w: min_records must be positive", ErrInvalidConfig)
	}
	return &cfg, nil
}

package main

import (
	"fmt"

	"github.com/newthinker/orion/internal/config"
	"go.uber.org/zap"
)

// loadConfig reads --config when given, otherwise defaults plus the
// dashboard environment variables, and validates the result.
func loadConfig(log *zap.Logger) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if cfgFile != "" {
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	} else {
		cfg, err = config.FromEnv()
		if err != nil {
			return nil, fmt.Errorf("loading environment: %w", err)
		}
		log.Warn("no config file specified, using defaults and environment")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

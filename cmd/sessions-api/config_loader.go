package main

import (
	"fmt"

	"github.com/lightsource/sessions-api/internal/config"
)

// loadServeConfig assembles the effective configuration: defaults,
// then the config file if one is given, then flag and environment
// overrides, validated as a whole.
func loadServeConfig(flags *serveFlags) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if flags.configPath != "" {
		loaded, err := config.LoadConfig(flags.configPath)
		if err != nil {
			return nil, fmt.Errorf("load configuration: %w", err)
		}
		cfg = loaded
	}

	applyFlagOverrides(cfg, flags)

	if err := config.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyFlagOverrides writes set flags over the loaded configuration.
func applyFlagOverrides(cfg *config.Config, flags *serveFlags) {
	if flags.port != 0 {
		cfg.Server.Port = flags.port
	}
	if flags.metricsPort != 0 {
		cfg.Metrics.Port = flags.metricsPort
	}
	if flags.databaseURL != "" {
		cfg.Database.URL = flags.databaseURL
		cfg.Database.URLFrom = ""
	}
	if flags.policyURL != "" {
		cfg.Policy.Endpoint = flags.policyURL
	}
	if flags.otelEndpoint != "" {
		cfg.Tracing.OTLPEndpoint = flags.otelEndpoint
		cfg.Tracing.Enabled = true
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		cfg.Logging.Format = flags.logFormat
	}
}

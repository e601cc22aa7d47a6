// Package config provides configuration types and loading for the
// sessions API.
//
// This package defines the complete configuration model, YAML loading
// with environment variable substitution, and validation.
//
// # Features
//
//   - YAML configuration file loading over built-in defaults
//   - Environment variable substitution with ${VAR:-default} syntax
//   - Configuration validation with detailed error reporting
//   - Secret references (urlFrom, passwordFrom) resolved at startup
//
// # Configuration Loading
//
// Load configuration from a YAML file:
//
//	cfg, err := config.LoadConfig("sessions-api.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := config.ValidateConfig(cfg); err != nil {
//	    log.Fatal(err)
//	}
package config

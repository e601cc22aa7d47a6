package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Path    string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// HasErrors returns true if there are validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates service configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// ValidateConfig validates a service configuration.
func ValidateConfig(config *Config) error {
	v := NewValidator()
	return v.Validate(config)
}

// Validate validates the configuration and returns any errors.
func (v *Validator) Validate(config *Config) error {
	v.errors = make(ValidationErrors, 0)

	if config == nil {
		v.addError("", "configuration is nil")
		return v.errors
	}

	v.validateServer(&config.Server)
	v.validateMetrics(&config.Metrics, config.Server.Port)
	v.validateDatabase(&config.Database)
	v.validatePolicy(&config.Policy)
	v.validateGraphQL(&config.GraphQL)
	v.validateRateLimit(&config.RateLimit)
	v.validateLogging(&config.Logging)
	v.validateTracing(&config.Tracing)

	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

func (v *Validator) validateServer(server *ServerConfig) {
	if server.Port < 1 || server.Port > 65535 {
		v.addError("server.port", fmt.Sprintf("port must be between 1 and 65535, got %d", server.Port))
	}
	if server.ReadTimeout < 0 {
		v.addError("server.readTimeout", "timeout cannot be negative")
	}
	if server.WriteTimeout < 0 {
		v.addError("server.writeTimeout", "timeout cannot be negative")
	}
	if server.MaxRequestBodySize < 0 {
		v.addError("server.maxRequestBodySize", "size cannot be negative")
	}
}

func (v *Validator) validateMetrics(metrics *MetricsConfig, serverPort int) {
	if !metrics.Enabled {
		return
	}
	if metrics.Port < 1 || metrics.Port > 65535 {
		v.addError("metrics.port", fmt.Sprintf("port must be between 1 and 65535, got %d", metrics.Port))
	}
	if metrics.Port == serverPort {
		v.addError("metrics.port", "metrics port must differ from the server port")
	}
	if metrics.Path != "" && !strings.HasPrefix(metrics.Path, "/") {
		v.addError("metrics.path", "path must start with '/'")
	}
}

func (v *Validator) validateDatabase(db *DatabaseConfig) {
	if db.URL == "" && db.URLFrom == "" {
		v.addError("database", "one of url or urlFrom is required")
	}
	if db.URL != "" && db.URLFrom != "" {
		v.addError("database", "url and urlFrom are mutually exclusive")
	}
	if db.MaxOpenConns < 0 {
		v.addError("database.maxOpenConns", "value cannot be negative")
	}
	if db.MaxIdleConns < 0 {
		v.addError("database.maxIdleConns", "value cannot be negative")
	}
	if db.MaxOpenConns > 0 && db.MaxIdleConns > db.MaxOpenConns {
		v.addError("database.maxIdleConns", "cannot exceed maxOpenConns")
	}
}

func (v *Validator) validatePolicy(policy *PolicyConfig) {
	if policy.Endpoint == "" {
		v.addError("policy.endpoint", "endpoint is required")
	} else if u, err := url.Parse(policy.Endpoint); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		v.addError("policy.endpoint", fmt.Sprintf("invalid endpoint URL: %s", policy.Endpoint))
	}

	if policy.Timeout <= 0 {
		v.addError("policy.timeout", "timeout must be positive")
	}

	if policy.Breaker != nil && policy.Breaker.Enabled {
		if policy.Breaker.MaxFailures == 0 {
			v.addError("policy.breaker.maxFailures", "value must be positive")
		}
		if policy.Breaker.OpenTimeout <= 0 {
			v.addError("policy.breaker.openTimeout", "timeout must be positive")
		}
	}
}

func (v *Validator) validateGraphQL(graphql *GraphQLConfig) {
	if graphql.MaxDepth < 0 {
		v.addError("graphql.maxDepth", "value cannot be negative")
	}
	if graphql.MaxComplexity < 0 {
		v.addError("graphql.maxComplexity", "value cannot be negative")
	}
}

func (v *Validator) validateRateLimit(rl *RateLimitConfig) {
	if !rl.Enabled {
		return
	}

	if rl.Redis != nil {
		if rl.Redis.Address == "" {
			v.addError("rateLimit.redis.address", "address is required")
		}
		if rl.Redis.Window <= 0 {
			v.addError("rateLimit.redis.window", "window must be positive")
		}
		if rl.Redis.Limit <= 0 {
			v.addError("rateLimit.redis.limit", "limit must be positive")
		}
		return
	}

	if rl.RequestsPerSecond <= 0 {
		v.addError("rateLimit.requestsPerSecond", "value must be positive")
	}
	if rl.Burst <= 0 {
		v.addError("rateLimit.burst", "value must be positive")
	}
}

func (v *Validator) validateLogging(logging *LoggingConfig) {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if logging.Level != "" && !validLevels[logging.Level] {
		v.addError("logging.level", fmt.Sprintf("invalid level %q, must be one of: debug, info, warn, error", logging.Level))
	}

	if logging.Format != "" && logging.Format != "json" && logging.Format != "console" {
		v.addError("logging.format", fmt.Sprintf("invalid format %q, must be 'json' or 'console'", logging.Format))
	}
}

func (v *Validator) validateTracing(tracing *TracingConfig) {
	if tracing.SamplingRate < 0 || tracing.SamplingRate > 1 {
		v.addError("tracing.samplingRate", fmt.Sprintf("rate must be between 0 and 1, got %g", tracing.SamplingRate))
	}
	if tracing.Enabled && tracing.OTLPEndpoint == "" {
		v.addError("tracing.otlpEndpoint", "endpoint is required when tracing is enabled")
	}
}

// addError adds a validation error.
func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{Path: path, Message: message})
}

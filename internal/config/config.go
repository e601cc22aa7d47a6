package config

import "time"

// Config is the root configuration for the sessions API service.
type Config struct {
	Server    ServerConfig    `yaml:"server" json:"server"`
	Metrics   MetricsConfig   `yaml:"metrics" json:"metrics"`
	Database  DatabaseConfig  `yaml:"database" json:"database"`
	Policy    PolicyConfig    `yaml:"policy" json:"policy"`
	GraphQL   GraphQLConfig   `yaml:"graphql" json:"graphql"`
	RateLimit RateLimitConfig `yaml:"rateLimit" json:"rateLimit"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
	Tracing   TracingConfig   `yaml:"tracing" json:"tracing"`
}

// ServerConfig configures the GraphQL HTTP listener.
type ServerConfig struct {
	Address            string   `yaml:"address,omitempty" json:"address,omitempty"`
	Port               int      `yaml:"port" json:"port"`
	ReadTimeout        Duration `yaml:"readTimeout,omitempty" json:"readTimeout,omitempty"`
	WriteTimeout       Duration `yaml:"writeTimeout,omitempty" json:"writeTimeout,omitempty"`
	IdleTimeout        Duration `yaml:"idleTimeout,omitempty" json:"idleTimeout,omitempty"`
	MaxRequestBodySize int64    `yaml:"maxRequestBodySize,omitempty" json:"maxRequestBodySize,omitempty"`
}

// MetricsConfig configures the operational listener serving Prometheus
// metrics and health probes.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Port    int    `yaml:"port,omitempty" json:"port,omitempty"`
	Path    string `yaml:"path,omitempty" json:"path,omitempty"`
}

// DatabaseConfig configures the ISPyB MySQL connection pool.
//
// Exactly one of URL and URLFrom must be set. URLFrom is a secret
// reference (env://NAME, file:///path or vault://mount/path#key)
// resolved at startup, so the DSN never has to live in the config file.
type DatabaseConfig struct {
	URL             string   `yaml:"url,omitempty" json:"url,omitempty"`
	URLFrom         string   `yaml:"urlFrom,omitempty" json:"urlFrom,omitempty"`
	MaxOpenConns    int      `yaml:"maxOpenConns,omitempty" json:"maxOpenConns,omitempty"`
	MaxIdleConns    int      `yaml:"maxIdleConns,omitempty" json:"maxIdleConns,omitempty"`
	ConnMaxLifetime Duration `yaml:"connMaxLifetime,omitempty" json:"connMaxLifetime,omitempty"`
	ConnMaxIdleTime Duration `yaml:"connMaxIdleTime,omitempty" json:"connMaxIdleTime,omitempty"`
}

// PolicyConfig configures the external policy decision endpoint.
type PolicyConfig struct {
	Endpoint string         `yaml:"endpoint" json:"endpoint"`
	Timeout  Duration       `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Breaker  *BreakerConfig `yaml:"breaker,omitempty" json:"breaker,omitempty"`
}

// BreakerConfig configures the optional circuit breaker in front of
// the policy endpoint. While the breaker is open decisions fail closed.
type BreakerConfig struct {
	Enabled     bool     `yaml:"enabled" json:"enabled"`
	MaxFailures uint32   `yaml:"maxFailures,omitempty" json:"maxFailures,omitempty"`
	Interval    Duration `yaml:"interval,omitempty" json:"interval,omitempty"`
	OpenTimeout Duration `yaml:"openTimeout,omitempty" json:"openTimeout,omitempty"`
}

// GraphQLConfig configures query guard limits for the GraphQL endpoint.
type GraphQLConfig struct {
	MaxDepth      int  `yaml:"maxDepth,omitempty" json:"maxDepth,omitempty"`
	MaxComplexity int  `yaml:"maxComplexity,omitempty" json:"maxComplexity,omitempty"`
	Introspection bool `yaml:"introspection" json:"introspection"`
	GraphiQL      bool `yaml:"graphiql" json:"graphiql"`
}

// RateLimitConfig configures per-client request rate limiting.
//
// Without a redis section each instance keeps local token buckets.
// With one, instances share a fixed window counter in Redis.
type RateLimitConfig struct {
	Enabled           bool            `yaml:"enabled" json:"enabled"`
	RequestsPerSecond float64         `yaml:"requestsPerSecond,omitempty" json:"requestsPerSecond,omitempty"`
	Burst             int             `yaml:"burst,omitempty" json:"burst,omitempty"`
	Redis             *RedisRateLimit `yaml:"redis,omitempty" json:"redis,omitempty"`
}

// RedisRateLimit configures the shared Redis fixed window limiter.
type RedisRateLimit struct {
	Address      string   `yaml:"address" json:"address"`
	PasswordFrom string   `yaml:"passwordFrom,omitempty" json:"passwordFrom,omitempty"`
	DB           int      `yaml:"db,omitempty" json:"db,omitempty"`
	Window       Duration `yaml:"window,omitempty" json:"window,omitempty"`
	Limit        int64    `yaml:"limit,omitempty" json:"limit,omitempty"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty" json:"level,omitempty"`
	Format string `yaml:"format,omitempty" json:"format,omitempty"`
	Output string `yaml:"output,omitempty" json:"output,omitempty"`
}

// TracingConfig configures OpenTelemetry trace export.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	OTLPEndpoint string  `yaml:"otlpEndpoint,omitempty" json:"otlpEndpoint,omitempty"`
	SamplingRate float64 `yaml:"samplingRate,omitempty" json:"samplingRate,omitempty"`
	ServiceName  string  `yaml:"serviceName,omitempty" json:"serviceName,omitempty"`
}

// DefaultConfig returns a configuration with production defaults.
// Loading a file overrides only the fields it sets.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:               80,
			ReadTimeout:        Duration(30 * time.Second),
			WriteTimeout:       Duration(30 * time.Second),
			IdleTimeout:        Duration(120 * time.Second),
			MaxRequestBodySize: 1 << 20,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
			Path:    "/metrics",
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: Duration(30 * time.Minute),
			ConnMaxIdleTime: Duration(5 * time.Minute),
		},
		Policy: PolicyConfig{
			Timeout: Duration(30 * time.Second),
		},
		GraphQL: GraphQLConfig{
			MaxDepth:      15,
			MaxComplexity: 1000,
			Introspection: true,
			GraphiQL:      true,
		},
		RateLimit: RateLimitConfig{
			Enabled:           false,
			RequestsPerSecond: 100,
			Burst:             200,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Tracing: TracingConfig{
			Enabled:      false,
			SamplingRate: 1.0,
			ServiceName:  "sessions-api",
		},
	}
}

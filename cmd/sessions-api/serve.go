package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lightsource/sessions-api/internal/observability"
)

// serveFlags holds command line flags for the serve command. Empty or
// zero values mean "not set" and leave the configuration untouched.
type serveFlags struct {
	configPath   string
	port         int
	metricsPort  int
	databaseURL  string
	policyURL    string
	otelEndpoint string
	logLevel     string
	logFormat    string
}

func newServeCommand() *cobra.Command {
	flags := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the GraphQL API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.configPath, "config",
		getEnvOrDefault("SESSIONS_CONFIG_PATH", ""),
		"Path to configuration file")
	cmd.Flags().IntVar(&flags.port, "port",
		getEnvInt("PORT", 0),
		"GraphQL listener port (overrides config)")
	cmd.Flags().IntVar(&flags.metricsPort, "metrics-port",
		getEnvInt("METRICS_PORT", 0),
		"Metrics listener port (overrides config)")
	cmd.Flags().StringVar(&flags.databaseURL, "database-url",
		getEnvOrDefault("DATABASE_URL", ""),
		"ISPyB MySQL DSN, e.g. user:pass@tcp(host:3306)/ispyb (overrides config)")
	cmd.Flags().StringVar(&flags.policyURL, "policy-url",
		getEnvOrDefault("POLICY_URL", ""),
		"Policy decision endpoint URL (overrides config)")
	cmd.Flags().StringVar(&flags.otelEndpoint, "otel-endpoint",
		getEnvOrDefault("OTEL_COLLECTOR_ENDPOINT", ""),
		"OTLP collector endpoint; setting it enables trace export")
	cmd.Flags().StringVar(&flags.logLevel, "log-level",
		getEnvOrDefault("LOG_LEVEL", ""),
		"Log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&flags.logFormat, "log-format",
		getEnvOrDefault("LOG_FORMAT", ""),
		"Log format (json, console)")

	return cmd
}

func runServe(cmd *cobra.Command, flags *serveFlags) error {
	cfg, err := loadServeConfig(flags)
	if err != nil {
		return err
	}

	logger, err := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	observability.SetGlobalLogger(logger)

	logger.Info("starting sessions-api",
		observability.String("version", version),
		observability.String("config", flags.configPath),
		observability.Int("port", cfg.Server.Port),
	)

	app, err := initApplication(cmd.Context(), cfg, logger)
	if err != nil {
		logger.Error("failed to initialize application", observability.Error(err))
		return err
	}

	return runApplication(app, logger)
}

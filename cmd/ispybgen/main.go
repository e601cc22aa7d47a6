// Package main is the entry point for ispybgen, the offline generator
// that turns ISPyB table layouts into Go entity structs.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lightsource/sessions-api/internal/introspect"
	"github.com/lightsource/sessions-api/internal/ispyb"
	"github.com/lightsource/sessions-api/internal/observability"
)

// readTimeout bounds the INFORMATION_SCHEMA round trips.
const readTimeout = 30 * time.Second

// cliFlags holds command line flags.
type cliFlags struct {
	databaseURL string
	tables      string
	packageName string
	out         string
	logLevel    string
}

func main() {
	flags := parseFlags()

	logger := initLogger(flags)
	defer func() { _ = logger.Sync() }()

	if err := run(flags, logger); err != nil {
		logger.Fatal("generation failed", observability.Error(err))
	}
}

// parseFlags parses command line flags.
func parseFlags() cliFlags {
	databaseURL := flag.String("database-url", getEnvOrDefault("DATABASE_URL", ""),
		"ISPyB MySQL DSN, e.g. user:pass@tcp(host:3306)/ispyb")
	tables := flag.String("tables", "BLSession,Proposal",
		"Comma separated tables to describe")
	packageName := flag.String("package", "ispyb",
		"Package name of the generated file")
	out := flag.String("out", "",
		"Output file (defaults to stdout)")
	logLevel := flag.String("log-level", "info",
		"Log level (debug, info, warn, error)")
	flag.Parse()

	return cliFlags{
		databaseURL: *databaseURL,
		tables:      *tables,
		packageName: *packageName,
		out:         *out,
		logLevel:    *logLevel,
	}
}

// initLogger initializes the logger on stderr so generated source can
// be piped from stdout.
func initLogger(flags cliFlags) observability.Logger {
	logger, err := observability.NewLogger(observability.LogConfig{
		Level:  flags.logLevel,
		Format: "console",
		Output: "stderr",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

func run(flags cliFlags, logger observability.Logger) error {
	if flags.databaseURL == "" {
		return errors.New("--database-url is required")
	}

	names := splitTables(flags.tables)
	if len(names) == 0 {
		return errors.New("--tables must name at least one table")
	}

	db, err := ispyb.Open(ispyb.DBConfig{URL: flags.databaseURL})
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
	defer cancel()

	reader := introspect.NewReader(db, introspect.WithReaderLogger(logger))
	tables, err := reader.ReadTables(ctx, names)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := introspect.Emit(&buf, flags.packageName, tables); err != nil {
		return err
	}

	if flags.out == "" {
		_, err := os.Stdout.Write(buf.Bytes())
		return err
	}

	if err := os.WriteFile(flags.out, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", flags.out, err)
	}

	logger.Info("entities generated",
		observability.String("out", flags.out),
		observability.Int("tables", len(tables)),
	)

	return nil
}

// splitTables splits the comma separated table list, dropping empty
// entries.
func splitTables(list string) []string {
	parts := strings.Split(list, ",")
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// getEnvOrDefault returns the environment variable value or a default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

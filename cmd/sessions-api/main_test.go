package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightsource/sessions-api/internal/graph"
)

// executeCommand runs the command tree with args and captures output.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := &bytes.Buffer{}
	root := newRootCommand()
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)

	err := root.Execute()
	return buf.String(), err
}

// clearServeEnv blanks every environment variable the serve flags read
// so test outcomes do not depend on the host environment.
func clearServeEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SESSIONS_CONFIG_PATH", "PORT", "METRICS_PORT", "DATABASE_URL",
		"POLICY_URL", "OTEL_COLLECTOR_ENDPOINT", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := executeCommand(t, "version")

	require.NoError(t, err)
	assert.Contains(t, out, "sessions-api version dev")
	assert.Contains(t, out, "Git commit")
}

func TestSchemaCommandPrintsSDL(t *testing.T) {
	out, err := executeCommand(t, "schema")

	require.NoError(t, err)
	assert.Contains(t, out, "type Query {")
	assert.Contains(t, out, "sessions: [Session!]!")
	assert.Contains(t, out, "session(proposal: Int!, visit: Int!): Session")
	assert.NotContains(t, out, "_entities", "exported schema must not carry subgraph machinery")
}

func TestSchemaCommandWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.graphql")

	out, err := executeCommand(t, "schema", "--path", path)

	require.NoError(t, err)
	assert.Empty(t, out)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, graph.Schema, string(content))
}

func TestServeCommandMissingConfigFile(t *testing.T) {
	clearServeEnv(t)

	_, err := executeCommand(t, "serve", "--config", filepath.Join(t.TempDir(), "absent.yaml"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "load configuration")
}

func TestServeCommandInvalidConfig(t *testing.T) {
	clearServeEnv(t)

	_, err := executeCommand(t, "serve")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestServeCommandDatabaseUnreachable(t *testing.T) {
	clearServeEnv(t)

	_, err := executeCommand(t, "serve",
		"--database-url", "test:test@tcp(127.0.0.1:1)/ispyb?timeout=200ms",
		"--policy-url", "http://127.0.0.1:1/decision",
		"--log-level", "error",
	)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "database unreachable")
}

func TestGetEnvOrDefault(t *testing.T) {
	t.Setenv("SESSIONS_TEST_VALUE", "set")
	assert.Equal(t, "set", getEnvOrDefault("SESSIONS_TEST_VALUE", "fallback"))

	t.Setenv("SESSIONS_TEST_VALUE", "")
	assert.Equal(t, "fallback", getEnvOrDefault("SESSIONS_TEST_VALUE", "fallback"))
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("SESSIONS_TEST_PORT", "8080")
	assert.Equal(t, 8080, getEnvInt("SESSIONS_TEST_PORT", 80))

	t.Setenv("SESSIONS_TEST_PORT", "not-a-number")
	assert.Equal(t, 80, getEnvInt("SESSIONS_TEST_PORT", 80))

	t.Setenv("SESSIONS_TEST_PORT", "")
	assert.Equal(t, 80, getEnvInt("SESSIONS_TEST_PORT", 80))
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigYAML = `
server:
  port: 8080
database:
  url: "user:pass@tcp(localhost:3306)/ispyb"
policy:
  endpoint: "http://policy.local:8181/v1/data/sessions"
`

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions-api.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfigYAML), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "user:pass@tcp(localhost:3306)/ispyb", cfg.Database.URL)
	assert.Equal(t, "http://policy.local:8181/v1/data/sessions", cfg.Policy.Endpoint)
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigFromReader(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfigFromReader(strings.NewReader(testConfigYAML))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	t.Parallel()

	_, err := LoadConfigFromReader(strings.NewReader("server: [not a mapping"))
	assert.Error(t, err)
}

func TestLoadConfigDefaultsPreserved(t *testing.T) {
	t.Parallel()

	// A file that only sets the database URL keeps every other default.
	cfg, err := LoadConfigFromReader(strings.NewReader("database:\n  url: \"dsn\"\n"))
	require.NoError(t, err)

	assert.Equal(t, 80, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Policy.Timeout.Duration())
	assert.True(t, cfg.Metrics.Enabled)
	assert.True(t, cfg.GraphQL.GraphiQL)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestSubstituteEnvVars(t *testing.T) {
	loader := NewLoader()

	t.Setenv("SESSIONS_TEST_PORT", "9999")
	os.Unsetenv("SESSIONS_TEST_UNSET")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "set variable",
			input:    "port: ${SESSIONS_TEST_PORT}",
			expected: "port: 9999",
		},
		{
			name:     "unset variable becomes empty",
			input:    "value: ${SESSIONS_TEST_UNSET}",
			expected: "value: ",
		},
		{
			name:     "unset variable with default",
			input:    "value: ${SESSIONS_TEST_UNSET:-fallback}",
			expected: "value: fallback",
		},
		{
			name:     "set variable ignores default",
			input:    "port: ${SESSIONS_TEST_PORT:-1234}",
			expected: "port: 9999",
		},
		{
			name:     "escaped dollar is preserved",
			input:    "password: pa$$word",
			expected: "password: pa$word",
		},
		{
			name:     "no substitution",
			input:    "plain: value",
			expected: "plain: value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, loader.substituteEnvVars(tt.input))
		})
	}
}

func TestLoadConfigWithEnvSubstitution(t *testing.T) {
	t.Setenv("SESSIONS_TEST_DB_URL", "root:secret@tcp(db:3306)/ispyb")

	yaml := `
database:
  url: "${SESSIONS_TEST_DB_URL}"
policy:
  endpoint: "${SESSIONS_TEST_POLICY_URL:-http://localhost:8181}"
`
	cfg, err := LoadConfigFromReader(strings.NewReader(yaml))
	require.NoError(t, err)

	assert.Equal(t, "root:secret@tcp(db:3306)/ispyb", cfg.Database.URL)
	assert.Equal(t, "http://localhost:8181", cfg.Policy.Endpoint)
}

func TestResolveConfigPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sessions-api.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfigYAML), 0o600))

	resolved, err := ResolveConfigPath(path)
	require.NoError(t, err)
	assert.Equal(t, path, resolved)

	_, err = ResolveConfigPath(filepath.Join(dir, "absent.yaml"))
	assert.Error(t, err)
}

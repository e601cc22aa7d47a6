package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardDepth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  GuardConfig
		query   string
		wantErr string
	}{
		{
			name:   "within limit",
			config: GuardConfig{MaxDepth: 3, AllowIntrospection: true},
			query:  `{ sessions { proposal { code } } }`,
		},
		{
			name:    "exceeds limit",
			config:  GuardConfig{MaxDepth: 2, AllowIntrospection: true},
			query:   `{ sessions { proposal { code } } }`,
			wantErr: "exceeds maximum allowed depth",
		},
		{
			name:   "zero disables the check",
			config: GuardConfig{MaxDepth: 0, AllowIntrospection: true},
			query:  `{ sessions { proposal { sessions { proposal { code } } } } }`,
		},
		{
			name:   "flat query",
			config: GuardConfig{MaxDepth: 1, AllowIntrospection: true},
			query:  `{ sessions }`,
		},
		{
			name:    "fragment definition counted",
			config:  GuardConfig{MaxDepth: 2, AllowIntrospection: true},
			query:   `query { sessions { ...visit } } fragment visit on Session { proposal { code } }`,
			wantErr: "exceeds maximum allowed depth",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := NewGuard(tt.config).Check(tt.query)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGuardComplexity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  GuardConfig
		query   string
		wantErr string
	}{
		{
			name:   "within limit",
			config: GuardConfig{MaxComplexity: 3, AllowIntrospection: true},
			query:  `{ sessions { sessionId visitNumber } }`,
		},
		{
			name:    "exceeds limit",
			config:  GuardConfig{MaxComplexity: 2, AllowIntrospection: true},
			query:   `{ sessions { sessionId visitNumber } }`,
			wantErr: "exceeds maximum allowed complexity",
		},
		{
			name:   "zero disables the check",
			config: GuardConfig{MaxComplexity: 0, AllowIntrospection: true},
			query:  `{ sessions { sessionId visitNumber start end proposal { code number } } }`,
		},
		{
			name:    "aliases count per field",
			config:  GuardConfig{MaxComplexity: 2, AllowIntrospection: true},
			query:   `{ a: sessions b: sessions c: sessions }`,
			wantErr: "exceeds maximum allowed complexity",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := NewGuard(tt.config).Check(tt.query)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGuardIntrospection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  GuardConfig
		query   string
		wantErr string
	}{
		{
			name:    "schema query blocked",
			config:  GuardConfig{},
			query:   `{ __schema { types { name } } }`,
			wantErr: "introspection queries are not allowed",
		},
		{
			name:    "type query blocked",
			config:  GuardConfig{},
			query:   `{ __type(name: "Session") { name } }`,
			wantErr: "introspection queries are not allowed",
		},
		{
			name:    "nested introspection blocked",
			config:  GuardConfig{},
			query:   `{ sessions { __schema } }`,
			wantErr: "introspection queries are not allowed",
		},
		{
			name:   "typename is not introspection",
			config: GuardConfig{},
			query:  `{ sessions { __typename sessionId } }`,
		},
		{
			name:   "allowed when enabled",
			config: GuardConfig{AllowIntrospection: true},
			query:  `{ __schema { types { name } } }`,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := NewGuard(tt.config).Check(tt.query)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGuardPassesUnparsableQuery(t *testing.T) {
	t.Parallel()

	// Syntax errors are left to the executor, which reports them with
	// source positions.
	guard := NewGuard(GuardConfig{MaxDepth: 1, MaxComplexity: 1})
	assert.NoError(t, guard.Check(`{ sessions {`))
}

func TestGuardRecordsQueryShape(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics("guardtest")
	guard := NewGuard(GuardConfig{MaxDepth: 10, MaxComplexity: 100, AllowIntrospection: true},
		WithGuardMetrics(metrics))

	require.NoError(t, guard.Check(`{ sessions { sessionId } }`))

	families, err := metrics.Registry().Gather()
	require.NoError(t, err)

	var seen []string
	for _, f := range families {
		seen = append(seen, f.GetName())
	}
	assert.Contains(t, seen, "guardtest_graphql_query_depth")
	assert.Contains(t, seen, "guardtest_graphql_query_complexity")
}

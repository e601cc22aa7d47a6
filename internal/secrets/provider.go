package secrets

import (
	"context"
	"errors"
)

// ProviderType identifies a secrets backend. The type doubles as the
// reference scheme.
type ProviderType string

const (
	// ProviderTypeEnv reads process environment variables.
	ProviderTypeEnv ProviderType = "env"
	// ProviderTypeFile reads mounted secret files.
	ProviderTypeFile ProviderType = "file"
	// ProviderTypeVault reads the Vault KV v2 secrets engine.
	ProviderTypeVault ProviderType = "vault"
)

// DefaultKey is the data key used when a reference has no #key fragment.
const DefaultKey = "value"

var (
	// ErrSecretNotFound is returned when a secret does not exist.
	ErrSecretNotFound = errors.New("secret not found")
	// ErrInvalidPath is returned when the secret path is malformed.
	ErrInvalidPath = errors.New("invalid secret path")
	// ErrUnknownScheme is returned for references with an unregistered scheme.
	ErrUnknownScheme = errors.New("unknown secret scheme")
)

// Secret holds key-value secret data.
type Secret struct {
	Data map[string][]byte
}

// GetString returns a string value from the secret data.
func (s *Secret) GetString(key string) (string, bool) {
	if s == nil || s.Data == nil {
		return "", false
	}
	v, ok := s.Data[key]
	if !ok {
		return "", false
	}
	return string(v), true
}

// Provider retrieves secrets from one backend.
type Provider interface {
	// Type returns the provider type.
	Type() ProviderType

	// GetSecret retrieves a secret by path. Path format depends on
	// the provider:
	//   - env: "NAME" (the environment variable name)
	//   - file: "/path/to/file"
	//   - vault: "mount/path/to/secret"
	GetSecret(ctx context.Context, path string) (*Secret, error)

	// Close cleans up provider resources.
	Close() error
}

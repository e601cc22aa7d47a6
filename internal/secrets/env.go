package secrets

import (
	"context"
	"fmt"
	"os"

	"github.com/lightsource/sessions-api/internal/observability"
)

// EnvProvider reads secrets from environment variables. The reference
// path is the variable name itself.
type EnvProvider struct {
	logger observability.Logger
}

// EnvOption is a functional option for the env provider.
type EnvOption func(*EnvProvider)

// WithEnvLogger sets the logger.
func WithEnvLogger(logger observability.Logger) EnvOption {
	return func(p *EnvProvider) {
		p.logger = logger
	}
}

// NewEnvProvider creates an environment variable provider.
func NewEnvProvider(opts ...EnvOption) *EnvProvider {
	p := &EnvProvider{
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Type returns the provider type.
func (p *EnvProvider) Type() ProviderType {
	return ProviderTypeEnv
}

// GetSecret reads the named environment variable. The value is stored
// under DefaultKey. A variable set to the empty string is treated as
// unset.
func (p *EnvProvider) GetSecret(_ context.Context, path string) (*Secret, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty environment variable name", ErrInvalidPath)
	}

	value, exists := os.LookupEnv(path)
	if !exists || value == "" {
		return nil, fmt.Errorf("%w: environment variable %s is not set", ErrSecretNotFound, path)
	}

	p.logger.Debug("read secret from environment",
		observability.String("name", path),
	)

	return &Secret{
		Data: map[string][]byte{DefaultKey: []byte(value)},
	}, nil
}

// Close is a no-op for the env provider.
func (p *EnvProvider) Close() error {
	return nil
}

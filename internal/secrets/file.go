package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/lightsource/sessions-api/internal/observability"
)

// FileProvider reads secrets from files, typically mounted by the
// orchestrator. The reference path is the file path.
type FileProvider struct {
	logger observability.Logger
}

// FileOption is a functional option for the file provider.
type FileOption func(*FileProvider)

// WithFileLogger sets the logger.
func WithFileLogger(logger observability.Logger) FileOption {
	return func(p *FileProvider) {
		p.logger = logger
	}
}

// NewFileProvider creates a file provider.
func NewFileProvider(opts ...FileOption) *FileProvider {
	p := &FileProvider{
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Type returns the provider type.
func (p *FileProvider) Type() ProviderType {
	return ProviderTypeFile
}

// GetSecret reads the file at path. Mounted secrets usually carry a
// trailing newline, so surrounding whitespace is trimmed. The content
// is stored under DefaultKey.
func (p *FileProvider) GetSecret(_ context.Context, path string) (*Secret, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty secret file path", ErrInvalidPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, path)
		}
		return nil, fmt.Errorf("read secret file %s: %w", path, err)
	}

	p.logger.Debug("read secret from file",
		observability.String("path", path),
	)

	return &Secret{
		Data: map[string][]byte{DefaultKey: []byte(strings.TrimSpace(string(data)))},
	}, nil
}

// Close is a no-op for the file provider.
func (p *FileProvider) Close() error {
	return nil
}

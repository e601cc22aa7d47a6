package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	vaultapi "github.com/hashicorp/vault/api"

	"github.com/lightsource/sessions-api/internal/observability"
)

// kvReader is the slice of the Vault API the provider uses.
type kvReader interface {
	Get(ctx context.Context, mount, path string) (map[string]interface{}, error)
}

type apiKV struct {
	client *vaultapi.Client
}

func (r *apiKV) Get(ctx context.Context, mount, path string) (map[string]interface{}, error) {
	secret, err := r.client.KVv2(mount).Get(ctx, path)
	if err != nil {
		return nil, err
	}
	return secret.Data, nil
}

// VaultProvider reads secrets from the Vault KV v2 engine. The
// reference path is "mount/path/to/secret"; address and token come
// from the standard VAULT_* environment.
type VaultProvider struct {
	kv     kvReader
	logger observability.Logger
}

// VaultOption is a functional option for the vault provider.
type VaultOption func(*VaultProvider)

// WithVaultLogger sets the logger.
func WithVaultLogger(logger observability.Logger) VaultOption {
	return func(p *VaultProvider) {
		p.logger = logger
	}
}

// WithAPIClient sets a pre-built Vault API client.
func WithAPIClient(client *vaultapi.Client) VaultOption {
	return func(p *VaultProvider) {
		p.kv = &apiKV{client: client}
	}
}

// NewVaultProvider creates a Vault provider. Without WithAPIClient the
// client is built from the process environment.
func NewVaultProvider(opts ...VaultOption) (*VaultProvider, error) {
	p := &VaultProvider{
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.kv == nil {
		client, err := vaultapi.NewClient(vaultapi.DefaultConfig())
		if err != nil {
			return nil, fmt.Errorf("create vault client: %w", err)
		}
		p.kv = &apiKV{client: client}
	}

	return p, nil
}

// Type returns the provider type.
func (p *VaultProvider) Type() ProviderType {
	return ProviderTypeVault
}

// GetSecret reads mount/path from the KV v2 engine.
func (p *VaultProvider) GetSecret(ctx context.Context, path string) (*Secret, error) {
	mount, secretPath, found := strings.Cut(path, "/")
	if !found || mount == "" || secretPath == "" {
		return nil, fmt.Errorf("%w: vault path %q must be mount/path", ErrInvalidPath, path)
	}

	data, err := p.kv.Get(ctx, mount, secretPath)
	if err != nil {
		if errors.Is(err, vaultapi.ErrSecretNotFound) {
			return nil, fmt.Errorf("%w: vault secret %s", ErrSecretNotFound, path)
		}
		return nil, fmt.Errorf("read vault secret %s: %w", path, err)
	}

	p.logger.Debug("read secret from vault",
		observability.String("mount", mount),
		observability.String("path", secretPath),
		observability.Int("keys", len(data)),
	)

	return &Secret{Data: convertVaultData(data)}, nil
}

// Close is a no-op for the vault provider.
func (p *VaultProvider) Close() error {
	return nil
}

// convertVaultData flattens KV v2 data to bytes. Non-string values are
// JSON encoded.
func convertVaultData(data map[string]interface{}) map[string][]byte {
	out := make(map[string][]byte, len(data))
	for k, v := range data {
		switch val := v.(type) {
		case string:
			out[k] = []byte(val)
		default:
			encoded, err := json.Marshal(val)
			if err != nil {
				continue
			}
			out[k] = encoded
		}
	}
	return out
}

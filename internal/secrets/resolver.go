package secrets

import (
	"context"
	"fmt"
	"strings"

	"github.com/lightsource/sessions-api/internal/observability"
)

// Resolver dispatches secret references to providers by scheme.
//
// Register all providers before the first Resolve call; the provider
// map is not guarded.
type Resolver struct {
	providers map[ProviderType]Provider
	logger    observability.Logger
}

// ResolverOption is a functional option for the resolver.
type ResolverOption func(*Resolver)

// WithResolverLogger sets the logger.
func WithResolverLogger(logger observability.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithProvider registers a provider under its own type.
func WithProvider(p Provider) ResolverOption {
	return func(r *Resolver) {
		r.providers[p.Type()] = p
	}
}

// NewResolver creates a resolver with env and file providers
// registered. Further providers are added with options or Register.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		providers: make(map[ProviderType]Provider),
		logger:    observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if _, ok := r.providers[ProviderTypeEnv]; !ok {
		r.providers[ProviderTypeEnv] = NewEnvProvider(WithEnvLogger(r.logger))
	}
	if _, ok := r.providers[ProviderTypeFile]; !ok {
		r.providers[ProviderTypeFile] = NewFileProvider(WithFileLogger(r.logger))
	}

	return r
}

// Register adds a provider under its own type, replacing any previous
// registration.
func (r *Resolver) Register(p Provider) {
	r.providers[p.Type()] = p
}

// Resolve resolves a secret reference of the form scheme://path#key.
// The #key fragment selects a data key and defaults to DefaultKey.
// A value without a scheme is returned unchanged.
func (r *Resolver) Resolve(ctx context.Context, ref string) (string, error) {
	scheme, rest, found := strings.Cut(ref, "://")
	if !found || scheme == "" {
		return ref, nil
	}

	provider, ok := r.providers[ProviderType(scheme)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownScheme, scheme)
	}

	path, key, hasKey := strings.Cut(rest, "#")
	if !hasKey || key == "" {
		key = DefaultKey
	}

	secret, err := provider.GetSecret(ctx, path)
	if err != nil {
		return "", fmt.Errorf("resolve %s reference: %w", scheme, err)
	}

	value, ok := secret.GetString(key)
	if !ok {
		return "", fmt.Errorf("secret %q has no key %q", path, key)
	}

	r.logger.Debug("resolved secret reference",
		observability.String("scheme", scheme),
		observability.String("path", path),
	)
	return value, nil
}

// Close closes all registered providers.
func (r *Resolver) Close() error {
	var firstErr error
	for _, p := range r.providers {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

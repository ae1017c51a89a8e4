package providers

import (
	"context"
	"fmt"
	"sync"
)

// Provider is the minimum surface the registry needs from a cloud provider.
type Provider interface {
	// CheckCredentials makes sure the provider holds usable credentials,
	// renewing and re-verifying them when the lease ran out.
	CheckCredentials(ctx context.Context) error
}

// Registry caches one authenticated provider per vault namespace. Every Get
// re-runs the credential check, so callers always receive a provider whose
// credentials were valid moments ago.
type Registry[P Provider] struct {
	construct func(namespace string) (P, error)

	mu        sync.Mutex
	instances map[string]P
}

// NewRegistry builds a registry around a provider constructor. The
// constructor runs at most once per namespace.
func NewRegistry[P Provider](construct func(namespace string) (P, error)) *Registry[P] {
	return &Registry[P]{
		construct: construct,
		instances: make(map[string]P),
	}
}

// Get returns the cached provider for the namespace, constructing it on first
// use, and verifies its credentials before handing it out.
func (r *Registry[P]) Get(ctx context.Context, namespace string) (P, error) {
	r.mu.Lock()
	provider, ok := r.instances[namespace]
	if !ok {
		var err error
		provider, err = r.construct(namespace)
		if err != nil {
			r.mu.Unlock()
			var zero P
			return zero, fmt.Errorf("failed to construct provider for namespace %q: %w", namespace, err)
		}
		r.instances[namespace] = provider
	}
	r.mu.Unlock()

	if err := provider.CheckCredentials(ctx); err != nil {
		var zero P
		return zero, fmt.Errorf("credential check failed for namespace %q: %w", namespace, err)
	}
	return provider, nil
}

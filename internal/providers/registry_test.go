package providers

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	namespace string
	checks    int
	checkErr  error
}

func (f *fakeProvider) CheckCredentials(context.Context) error {
	f.checks++
	return f.checkErr
}

func TestRegistryCachesPerNamespace(t *testing.T) {
	constructed := 0
	registry := NewRegistry(func(namespace string) (*fakeProvider, error) {
		constructed++
		return &fakeProvider{namespace: namespace}, nil
	})

	ctx := context.Background()
	first, err := registry.Get(ctx, "qac")
	require.NoError(t, err)
	second, err := registry.Get(ctx, "qac")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, constructed)

	other, err := registry.Get(ctx, "sap")
	require.NoError(t, err)
	assert.NotSame(t, first, other)
	assert.Equal(t, 2, constructed)
}

func TestRegistryAlwaysChecksCredentials(t *testing.T) {
	registry := NewRegistry(func(namespace string) (*fakeProvider, error) {
		return &fakeProvider{namespace: namespace}, nil
	})

	ctx := context.Background()
	provider, err := registry.Get(ctx, "qac")
	require.NoError(t, err)
	_, err = registry.Get(ctx, "qac")
	require.NoError(t, err)
	assert.Equal(t, 2, provider.checks)
}

func TestRegistryPropagatesErrors(t *testing.T) {
	t.Run("constructor", func(t *testing.T) {
		registry := NewRegistry(func(string) (*fakeProvider, error) {
			return nil, fmt.Errorf("no vault for you")
		})
		_, err := registry.Get(context.Background(), "qac")
		assert.ErrorContains(t, err, "no vault for you")
	})

	t.Run("credential check", func(t *testing.T) {
		registry := NewRegistry(func(namespace string) (*fakeProvider, error) {
			return &fakeProvider{namespace: namespace, checkErr: fmt.Errorf("key rejected")}, nil
		})
		_, err := registry.Get(context.Background(), "qac")
		assert.ErrorContains(t, err, "key rejected")
	})
}

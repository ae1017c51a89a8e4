package vault

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCredentialStartsExpired(t *testing.T) {
	cred, err := New("qac", Config{
		Addr:     "https://vault.example.org:8200",
		User:     "ocw",
		Password: "hunter2",
	})
	require.NoError(t, err)

	assert.True(t, cred.IsExpired())
	_, err = cred.Data("access_key")
	assert.ErrorIs(t, err, ErrNotRenewed)
	assert.True(t, cred.AuthExpire().IsZero())
}

func TestNewCredentialDefaultsRole(t *testing.T) {
	cred, err := New("qac", Config{Addr: "https://vault.example.org:8200"})
	require.NoError(t, err)
	assert.Equal(t, DefaultRole, cred.role)
}

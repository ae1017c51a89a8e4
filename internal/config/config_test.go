package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("OCW_VAULT_ADDR", "https://vault.example.org:8200")
	t.Setenv("OCW_VAULT_USER", "ocw")
	t.Setenv("OCW_VAULT_PASSWORD", "hunter2")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "eu-central-1", cfg.DefaultRegion)
	assert.Equal(t, 1, cfg.MaxImagesPerFlavor)
	assert.Equal(t, 24*time.Hour, cfg.MaxImageAge)
	assert.Equal(t, 299, cfg.CredCheckRetries)
	assert.Equal(t, time.Second, cfg.CredCheckInterval)
	assert.False(t, cfg.DryRun)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("OCW_DEFAULT_REGION", "us-west-2")
	t.Setenv("OCW_MAX_IMAGES_PER_FLAVOR", "3")
	t.Setenv("OCW_MAX_IMAGE_AGE", "72h")
	t.Setenv("OCW_DRY_RUN", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "us-west-2", cfg.DefaultRegion)
	assert.Equal(t, 3, cfg.MaxImagesPerFlavor)
	assert.Equal(t, 72*time.Hour, cfg.MaxImageAge)
	assert.True(t, cfg.DryRun)
}

func TestLoadMissingVault(t *testing.T) {
	t.Setenv("OCW_VAULT_ADDR", "")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsNonsense(t *testing.T) {
	setRequired(t)
	t.Setenv("OCW_MAX_IMAGES_PER_FLAVOR", "0")
	_, err := Load()
	assert.ErrorContains(t, err, "OCW_MAX_IMAGES_PER_FLAVOR")
}

// Package config loads the watcher's runtime configuration from the
// environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the complete runtime configuration. Every field has an OCW_
// environment variable; vault settings are required, the rest default to the
// values the testing backend has always used.
type Config struct {
	// Vault connection for issuing AWS credentials.
	VaultAddr     string `env:"OCW_VAULT_ADDR,required,notEmpty"`
	VaultUser     string `env:"OCW_VAULT_USER,required,notEmpty"`
	VaultPassword string `env:"OCW_VAULT_PASSWORD,required,notEmpty"`
	VaultCertDir  string `env:"OCW_VAULT_CERT_DIR"`
	VaultRole     string `env:"OCW_VAULT_ROLE"`

	// DefaultRegion anchors region discovery and image cleanup.
	DefaultRegion string `env:"OCW_DEFAULT_REGION" envDefault:"eu-central-1"`

	// Image retention.
	MaxImagesPerFlavor int           `env:"OCW_MAX_IMAGES_PER_FLAVOR" envDefault:"1"`
	MaxImageAge        time.Duration `env:"OCW_MAX_IMAGE_AGE" envDefault:"24h"`

	// Credential verification poll.
	CredCheckRetries  int           `env:"OCW_CRED_CHECK_RETRIES" envDefault:"299"`
	CredCheckInterval time.Duration `env:"OCW_CRED_CHECK_INTERVAL" envDefault:"1s"`

	// DryRun logs deletions without performing them.
	DryRun bool `env:"OCW_DRY_RUN" envDefault:"false"`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if cfg.MaxImagesPerFlavor < 1 {
		return nil, fmt.Errorf("OCW_MAX_IMAGES_PER_FLAVOR must be at least 1, got %d", cfg.MaxImagesPerFlavor)
	}
	if cfg.CredCheckRetries < 1 {
		return nil, fmt.Errorf("OCW_CRED_CHECK_RETRIES must be at least 1, got %d", cfg.CredCheckRetries)
	}
	return &cfg, nil
}

// Package vault issues and renews short-lived AWS credentials from a
// HashiCorp Vault AWS secrets engine. Each tenant of the testing backend owns
// a vault namespace, which is the mount prefix of its secrets engine.
package vault

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/vault/api"

	"github.com/openqa-tools/ocw/internal/log"
)

const (
	// DefaultRole is the AWS secrets engine role the testing backend reads.
	DefaultRole = "openqa-role"

	// expiryGrace is subtracted from every lease horizon so credentials are
	// renewed before AWS starts rejecting them mid-operation.
	expiryGrace = time.Minute
)

var (
	ErrLogin        = fmt.Errorf("vault login failed")
	ErrNoAuthInfo   = fmt.Errorf("vault login returned no auth info")
	ErrReadCreds    = fmt.Errorf("failed to read credentials from vault")
	ErrNoCredData   = fmt.Errorf("vault credential response carried no data")
	ErrNotRenewed   = fmt.Errorf("credential was never renewed")
	ErrMissingField = fmt.Errorf("credential field missing")
)

// Config carries the connection settings for one vault server.
type Config struct {
	Addr     string
	User     string
	Password string
	// CertDir, when set, points at a directory of PEM CA certificates used to
	// verify the vault server.
	CertDir string
	// Role overrides DefaultRole.
	Role string
}

// Credential manages one AWS credential lease for one vault namespace.
//
// The zero value is not usable, construct with New. All methods are safe for
// concurrent use.
type Credential struct {
	Namespace string

	client *api.Client
	user   string
	pass   string
	role   string

	mu         sync.Mutex
	data       map[string]interface{}
	leaseID    string
	authExpire time.Time
	credExpire time.Time
}

// New builds a Credential for the given namespace. No vault traffic happens
// until the first Renew.
func New(namespace string, conf Config) (*Credential, error) {
	apiConf := api.DefaultConfig()
	apiConf.Address = conf.Addr
	if conf.CertDir != "" {
		if err := apiConf.ConfigureTLS(&api.TLSConfig{CAPath: conf.CertDir}); err != nil {
			return nil, fmt.Errorf("failed to configure vault TLS: %w", err)
		}
	}
	client, err := api.NewClient(apiConf)
	if err != nil {
		return nil, fmt.Errorf("failed to build vault client: %w", err)
	}
	role := conf.Role
	if role == "" {
		role = DefaultRole
	}
	return &Credential{
		Namespace: namespace,
		client:    client,
		user:      conf.User,
		pass:      conf.Password,
		role:      role,
	}, nil
}

// IsExpired reports whether either the auth token or the credential lease has
// crossed its horizon (minus a grace window). A credential that was never
// renewed is expired.
func (c *Credential) IsExpired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		return true
	}
	now := time.Now()
	return now.After(c.authExpire.Add(-expiryGrace)) ||
		now.After(c.credExpire.Add(-expiryGrace))
}

// Renew drops the current lease (best effort) and fetches a fresh AWS
// credential from the namespace's secrets engine.
func (c *Credential) Renew(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	ctx = log.With(ctx, "namespace", c.Namespace)

	if c.leaseID != "" {
		if err := c.client.Sys().RevokeWithContext(ctx, c.leaseID); err != nil {
			// Old leases expire on their own, losing the revoke only leaves a
			// short-lived key alive a little longer.
			log.Warn(ctx, "failed to revoke previous lease", "lease_id", c.leaseID, "error", err)
		}
		c.leaseID = ""
	}
	c.data = nil

	auth, err := c.client.Logical().WriteWithContext(ctx,
		"auth/userpass/login/"+c.user,
		map[string]interface{}{"password": c.pass},
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLogin, err)
	}
	if auth == nil || auth.Auth == nil {
		return ErrNoAuthInfo
	}
	c.client.SetToken(auth.Auth.ClientToken)
	c.authExpire = time.Now().Add(time.Duration(auth.Auth.LeaseDuration) * time.Second)

	secret, err := c.client.Logical().ReadWithContext(ctx,
		fmt.Sprintf("%s/aws/creds/%s", c.Namespace, c.role),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrReadCreds, err)
	}
	if secret == nil || len(secret.Data) == 0 {
		return ErrNoCredData
	}
	c.leaseID = secret.LeaseID
	c.credExpire = time.Now().Add(time.Duration(secret.LeaseDuration) * time.Second)
	c.data = secret.Data

	log.Info(ctx, "renewed AWS credential lease",
		"lease_id", c.leaseID,
		"auth_expire", c.authExpire,
		"cred_expire", c.credExpire,
	)
	return nil
}

// Data returns a string field from the most recently fetched credential.
func (c *Credential) Data(key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		return "", ErrNotRenewed
	}
	value, ok := c.data[key].(string)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrMissingField, key)
	}
	return value, nil
}

// AuthExpire returns the auth token's lease horizon, for log output.
func (c *Credential) AuthExpire() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authExpire
}

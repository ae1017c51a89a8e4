// Package ec2 implements the AWS provider of the testing backend. It holds
// one vault-issued credential per namespace, lazily builds per-region EC2 and
// EKS clients on top of it, and exposes the listing, deletion and image
// cleanup operations the backend schedules.
package ec2

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/openqa-tools/ocw/internal/awsapi"
	"github.com/openqa-tools/ocw/internal/log"
)

// Credential is the slice of vault.Credential the provider depends on.
type Credential interface {
	IsExpired() bool
	Renew(ctx context.Context) error
	Data(key string) (string, error)
	AuthExpire() time.Time
}

// Options tune a Provider. The zero value is completed by applyDefaults.
type Options struct {
	// DefaultRegion is used for region discovery and image cleanup.
	// Default: eu-central-1.
	DefaultRegion string

	// MaxImagesPerFlavor is how many recent builds of each image flavor
	// survive a cleanup run. Default: 1.
	MaxImagesPerFlavor int

	// MaxImageAge is how old a kept image may grow before it is deleted
	// anyway. Default: 24h.
	MaxImageAge time.Duration

	// CheckRetries and CheckInterval shape the credential verification poll:
	// CheckRetries probes, one every CheckInterval, then a final probe whose
	// error surfaces. Defaults: 299 and 1s.
	CheckRetries  int
	CheckInterval time.Duration

	// DryRun logs deletions without performing them.
	DryRun bool
}

func (o *Options) applyDefaults() {
	if o.DefaultRegion == "" {
		o.DefaultRegion = "eu-central-1"
	}
	if o.MaxImagesPerFlavor == 0 {
		o.MaxImagesPerFlavor = 1
	}
	if o.MaxImageAge == 0 {
		o.MaxImageAge = 24 * time.Hour
	}
	if o.CheckRetries == 0 {
		o.CheckRetries = 299
	}
	if o.CheckInterval == 0 {
		o.CheckInterval = time.Second
	}
}

// Provider talks to EC2 and EKS on behalf of one vault namespace. Safe for
// concurrent use; construct with New.
type Provider struct {
	namespace string
	cred      Credential
	opts      Options

	// checkMu serializes CheckCredentials, so one renewal settles into the
	// client cache as a whole before the next check observes the lease.
	checkMu sync.Mutex

	clients *clientCache
}

// New builds a Provider for the namespace. No AWS traffic happens until the
// first operation; run CheckCredentials before use (the registry does).
func New(namespace string, cred Credential, opts Options) *Provider {
	opts.applyDefaults()
	return &Provider{
		namespace: namespace,
		cred:      cred,
		opts:      opts,
		clients:   newClientCache(),
	}
}

// Namespace returns the vault namespace this provider serves.
func (p *Provider) Namespace() string { return p.namespace }

// DefaultRegion returns the region operations fall back to.
func (p *Provider) DefaultRegion() string { return p.opts.DefaultRegion }

// CheckCredentials brings the provider's credentials into a verified state.
//
// An expired lease is renewed first, which also drops every cached client so
// nothing keeps signing with the dead key. Freshly issued AWS keys are not
// immediately usable, so the new key is probed with DescribeRegions once per
// interval until it works or the retry ceiling is reached; the final probe's
// error is returned unwrapped by the poll.
func (p *Provider) CheckCredentials(ctx context.Context) error {
	p.checkMu.Lock()
	defer p.checkMu.Unlock()

	ctx = log.With(ctx, "namespace", p.namespace)

	if p.cred.IsExpired() {
		log.Info(ctx, "credential lease expired, renewing")
		if err := p.cred.Renew(ctx); err != nil {
			return fmt.Errorf("failed to renew credentials: %w", err)
		}
		p.clients.invalidate()
	}

	key, err := p.cred.Data("access_key")
	if err != nil {
		return err
	}
	secret, err := p.cred.Data("secret_key")
	if err != nil {
		return err
	}
	p.clients.setKeys(key, secret)

	for attempt := 1; attempt <= p.opts.CheckRetries; attempt++ {
		if _, err := p.Regions(ctx); err == nil {
			return nil
		}
		log.Info(ctx, "credential check failed, key not usable yet",
			"attempt", attempt,
			"access_key", key,
			"auth_expire", p.cred.AuthExpire(),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.opts.CheckInterval):
		}
	}
	_, err = p.Regions(ctx)
	return err
}

func (p *Provider) ec2Client(ctx context.Context, region string) (awsapi.EC2, error) {
	return p.clients.ec2(ctx, region)
}

func (p *Provider) eksClient(ctx context.Context, region string) (awsapi.EKS, error) {
	return p.clients.eks(ctx, region)
}

package ec2

import (
	"context"
	"fmt"
	"sync"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/eks"

	"github.com/openqa-tools/ocw/internal/awsapi"
)

// clientCache lazily constructs SDK clients per region for the current
// access/secret key pair. Invalidation empties the cache, so clients built
// from a revoked lease never get reused.
type clientCache struct {
	mu     sync.Mutex
	key    string
	secret string

	ec2Clients map[string]awsapi.EC2
	eksClients map[string]awsapi.EKS

	// Construction seams for tests.
	newEC2 func(ctx context.Context, key, secret, region string) (awsapi.EC2, error)
	newEKS func(ctx context.Context, key, secret, region string) (awsapi.EKS, error)
}

func newClientCache() *clientCache {
	return &clientCache{
		ec2Clients: make(map[string]awsapi.EC2),
		eksClients: make(map[string]awsapi.EKS),
		newEC2:     newEC2Client,
		newEKS:     newEKSClient,
	}
}

func (c *clientCache) setKeys(key, secret string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if key == c.key && secret == c.secret {
		return
	}
	c.key = key
	c.secret = secret
	c.ec2Clients = make(map[string]awsapi.EC2)
	c.eksClients = make(map[string]awsapi.EKS)
}

func (c *clientCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.key = ""
	c.secret = ""
	c.ec2Clients = make(map[string]awsapi.EC2)
	c.eksClients = make(map[string]awsapi.EKS)
}

func (c *clientCache) ec2(ctx context.Context, region string) (awsapi.EC2, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if client, ok := c.ec2Clients[region]; ok {
		return client, nil
	}
	client, err := c.newEC2(ctx, c.key, c.secret, region)
	if err != nil {
		return nil, err
	}
	c.ec2Clients[region] = client
	return client, nil
}

func (c *clientCache) eks(ctx context.Context, region string) (awsapi.EKS, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if client, ok := c.eksClients[region]; ok {
		return client, nil
	}
	client, err := c.newEKS(ctx, c.key, c.secret, region)
	if err != nil {
		return nil, err
	}
	c.eksClients[region] = client
	return client, nil
}

func newEC2Client(ctx context.Context, key, secret, region string) (awsapi.EC2, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(key, secret, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for region %q: %w", region, err)
	}
	return ec2.NewFromConfig(cfg), nil
}

func newEKSClient(ctx context.Context, key, secret, region string) (awsapi.EKS, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(key, secret, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for region %q: %w", region, err)
	}
	return eks.NewFromConfig(cfg), nil
}

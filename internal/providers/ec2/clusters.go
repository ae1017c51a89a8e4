package ec2

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/eks"
	"golang.org/x/sync/errgroup"
)

var ErrListClusters = fmt.Errorf("failed to list EKS clusters")

// Clusters returns the names of every EKS cluster across all enabled regions.
// Regions are queried in parallel; one failing region fails the whole call.
func (p *Provider) Clusters(ctx context.Context) ([]string, error) {
	regions, err := p.Regions(ctx)
	if err != nil {
		return nil, err
	}

	var (
		mu       sync.Mutex
		clusters []string
	)
	g, ctx := errgroup.WithContext(ctx)
	for _, region := range regions {
		g.Go(func() error {
			names, err := p.clustersInRegion(ctx, region)
			if err != nil {
				return fmt.Errorf("%w: region %q: %w", ErrListClusters, region, err)
			}
			mu.Lock()
			clusters = append(clusters, names...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Strings(clusters)
	return clusters, nil
}

func (p *Provider) clustersInRegion(ctx context.Context, region string) ([]string, error) {
	client, err := p.eksClient(ctx, region)
	if err != nil {
		return nil, err
	}

	var names []string
	input := &eks.ListClustersInput{}
	for {
		result, err := client.ListClusters(ctx, input)
		if err != nil {
			return nil, err
		}
		names = append(names, result.Clusters...)
		if result.NextToken == nil {
			break
		}
		input.NextToken = result.NextToken
	}
	return names, nil
}

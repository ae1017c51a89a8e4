package ec2

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
)

var ErrRegions = fmt.Errorf("failed to list EC2 regions")

// Regions returns the names of every region enabled for the account. The
// query itself runs against the default region.
func (p *Provider) Regions(ctx context.Context) ([]string, error) {
	client, err := p.ec2Client(ctx, p.opts.DefaultRegion)
	if err != nil {
		return nil, err
	}
	result, err := client.DescribeRegions(ctx, &ec2.DescribeRegionsInput{})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRegions, err)
	}
	regions := make([]string, 0, len(result.Regions))
	for _, region := range result.Regions {
		if region.RegionName != nil {
			regions = append(regions, *region.RegionName)
		}
	}
	return regions, nil
}

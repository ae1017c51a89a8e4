package ec2

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"

	"github.com/openqa-tools/ocw/internal/log"
)

var (
	ErrListInstances  = fmt.Errorf("failed to list EC2 instances")
	ErrInstanceDelete = fmt.Errorf("failed to terminate EC2 instance")
)

// ListInstances returns every instance in the region, flattened across
// reservations and pages.
func (p *Provider) ListInstances(ctx context.Context, region string) ([]types.Instance, error) {
	client, err := p.ec2Client(ctx, region)
	if err != nil {
		return nil, err
	}

	var instances []types.Instance
	input := &ec2.DescribeInstancesInput{}
	for {
		result, err := client.DescribeInstances(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrListInstances, err)
		}
		for _, reservation := range result.Reservations {
			instances = append(instances, reservation.Instances...)
		}
		if result.NextToken == nil {
			break
		}
		input.NextToken = result.NextToken
	}
	return instances, nil
}

// DeleteInstance terminates the instance with the given id in the default
// region. An instance the backend still tracks but EC2 no longer knows is
// logged as a warning and not treated as an error.
func (p *Provider) DeleteInstance(ctx context.Context, instanceID string) error {
	ctx = log.With(ctx, "namespace", p.namespace, "instance_id", instanceID)

	client, err := p.ec2Client(ctx, p.opts.DefaultRegion)
	if err != nil {
		return err
	}

	result, err := client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		if isInstanceNotFound(err) {
			log.Warn(ctx, "instance is ACTIVE in local DB but does not exist on EC2")
			return nil
		}
		return fmt.Errorf("%w: %w", ErrInstanceDelete, err)
	}
	found := false
	for _, reservation := range result.Reservations {
		if len(reservation.Instances) > 0 {
			found = true
			break
		}
	}
	if !found {
		log.Warn(ctx, "instance is ACTIVE in local DB but does not exist on EC2")
		return nil
	}

	if _, err := client.TerminateInstances(ctx, &ec2.TerminateInstancesInput{
		InstanceIds: []string{instanceID},
	}); err != nil {
		return fmt.Errorf("%w: %w", ErrInstanceDelete, err)
	}
	log.Info(ctx, "instance termination requested")
	return nil
}

func isInstanceNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "InvalidInstanceID.NotFound"
	}
	return false
}

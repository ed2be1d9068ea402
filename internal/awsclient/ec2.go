package awsclient

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/rcourtman/cloud-discovery-engine/internal/throttle"
)

const classEC2Describes throttle.Class = "ec2-describes"

// SpotInstanceRequests lists spot-instance requests in the region (Tier A
// batch resource).
func (p *ProviderClient) SpotInstanceRequests(ctx context.Context) ([]ec2types.SpotInstanceRequest, error) {
	var out []ec2types.SpotInstanceRequest
	paginator := ec2.NewDescribeSpotInstanceRequestsPaginator(p.ec2, &ec2.DescribeSpotInstanceRequestsInput{})
	for paginator.HasMorePages() {
		var page *ec2.DescribeSpotInstanceRequestsOutput
		err := p.call(ctx, "ec2", classEC2Describes, "DescribeSpotInstanceRequests", func() error {
			var innerErr error
			page, innerErr = paginator.NextPage(ctx)
			return innerErr
		})
		if err != nil {
			return nil, err
		}
		out = append(out, page.SpotInstanceRequests...)
	}
	return out, nil
}

// SpotFleetRequests lists spot-fleet requests in the region (Tier A batch
// resource).
func (p *ProviderClient) SpotFleetRequests(ctx context.Context) ([]ec2types.SpotFleetRequestConfig, error) {
	var out []ec2types.SpotFleetRequestConfig
	paginator := ec2.NewDescribeSpotFleetRequestsPaginator(p.ec2, &ec2.DescribeSpotFleetRequestsInput{})
	for paginator.HasMorePages() {
		var page *ec2.DescribeSpotFleetRequestsOutput
		err := p.call(ctx, "ec2", classEC2Describes, "DescribeSpotFleetRequests", func() error {
			var innerErr error
			page, innerErr = paginator.NextPage(ctx)
			return innerErr
		})
		if err != nil {
			return nil, err
		}
		out = append(out, page.SpotFleetRequestConfigs...)
	}
	return out, nil
}

// SpotFleetInstances lists the instances currently launched by fleetID, used
// to resolve the spot-fleet's associated-with edges.
func (p *ProviderClient) SpotFleetInstances(ctx context.Context, fleetID string) ([]ec2types.ActiveInstance, error) {
	var out *ec2.DescribeSpotFleetInstancesOutput
	err := p.call(ctx, "ec2", classEC2Describes, "DescribeSpotFleetInstances", func() error {
		var innerErr error
		out, innerErr = p.ec2.DescribeSpotFleetInstances(ctx, &ec2.DescribeSpotFleetInstancesInput{
			SpotFleetRequestId: aws.String(fleetID),
		})
		return innerErr
	})
	if err != nil {
		return nil, err
	}
	return out.ActiveInstances, nil
}

// DescribeTransitGatewayAttachment augments a provider attachment record with
// owner-account information, 's transitGatewayVpcAttachments
// batch handler.
func (p *ProviderClient) DescribeTransitGatewayAttachment(ctx context.Context, attachmentID string) (ec2types.TransitGatewayVpcAttachment, bool, error) {
	var out *ec2.DescribeTransitGatewayVpcAttachmentsOutput
	err := p.call(ctx, "ec2", classEC2Describes, "DescribeTransitGatewayVpcAttachments", func() error {
		var innerErr error
		out, innerErr = p.ec2.DescribeTransitGatewayVpcAttachments(ctx, &ec2.DescribeTransitGatewayVpcAttachmentsInput{
			TransitGatewayAttachmentIds: []string{attachmentID},
		})
		return innerErr
	})
	if err != nil {
		return ec2types.TransitGatewayVpcAttachment{}, false, err
	}
	if len(out.TransitGatewayVpcAttachments) == 0 {
		return ec2types.TransitGatewayVpcAttachment{}, false, nil
	}
	return out.TransitGatewayVpcAttachments[0], true, nil
}

// DescribeSubnets resolves a set of subnet ids to their availability zones
// and VPC. It is part of the inference.Client surface; the VPC-info-backfill
// post-pass and the database-instance handler do not call it.
func (p *ProviderClient) DescribeSubnets(ctx context.Context, subnetIDs []string) ([]ec2types.Subnet, error) {
	var out *ec2.DescribeSubnetsOutput
	err := p.call(ctx, "ec2", classEC2Describes, "DescribeSubnets", func() error {
		var innerErr error
		out, innerErr = p.ec2.DescribeSubnets(ctx, &ec2.DescribeSubnetsInput{SubnetIds: subnetIDs})
		return innerErr
	})
	if err != nil {
		return nil, err
	}
	return out.Subnets, nil
}

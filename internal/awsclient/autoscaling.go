package awsclient

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	astypes "github.com/aws/aws-sdk-go-v2/service/autoscaling/types"

	"github.com/rcourtman/cloud-discovery-engine/internal/throttle"
)

const classAutoScaling throttle.Class = "autoscaling-describes"

// AutoScalingGroups lists every auto-scaling group in the region, the source
// of the asgResourceNameToResourceIdMap and targetGroupToAsgMap lookups
//.
func (p *ProviderClient) AutoScalingGroups(ctx context.Context) ([]astypes.AutoScalingGroup, error) {
	var out []astypes.AutoScalingGroup
	paginator := autoscaling.NewDescribeAutoScalingGroupsPaginator(p.autoscaling, &autoscaling.DescribeAutoScalingGroupsInput{})
	for paginator.HasMorePages() {
		var page *autoscaling.DescribeAutoScalingGroupsOutput
		err := p.call(ctx, "autoscaling", classAutoScaling, "DescribeAutoScalingGroups", func() error {
			var innerErr error
			page, innerErr = paginator.NextPage(ctx)
			return innerErr
		})
		if err != nil {
			return nil, err
		}
		out = append(out, page.AutoScalingGroups...)
	}
	return out, nil
}

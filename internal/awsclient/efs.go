package awsclient

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/efs"
	efstypes "github.com/aws/aws-sdk-go-v2/service/efs/types"

	"github.com/rcourtman/cloud-discovery-engine/internal/throttle"
)

const classEFS throttle.Class = "efs-describes"

// AccessPoints lists EFS access points in the region, the target of the
// container-task volume handler's associated-with edges.
func (p *ProviderClient) AccessPoints(ctx context.Context) ([]efstypes.AccessPointDescription, error) {
	var out []efstypes.AccessPointDescription
	var marker *string
	for {
		var page *efs.DescribeAccessPointsOutput
		err := p.call(ctx, "efs", classEFS, "DescribeAccessPoints", func() error {
			var innerErr error
			page, innerErr = p.efs.DescribeAccessPoints(ctx, &efs.DescribeAccessPointsInput{Marker: marker})
			return innerErr
		})
		if err != nil {
			return nil, err
		}
		out = append(out, page.AccessPoints...)
		if page.NextMarker == nil {
			break
		}
		marker = page.NextMarker
	}
	return out, nil
}

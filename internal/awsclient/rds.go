package awsclient

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"

	"github.com/rcourtman/cloud-discovery-engine/internal/throttle"
)

const classRDS throttle.Class = "rds-describes"

// DBSubnetGroup fetches a database instance's subnet group, used by the
// database-instance hard-coded handler to find the subnet whose AZ matches
// the instance's AZ.
func (p *ProviderClient) DBSubnetGroup(ctx context.Context, name string) (*rdstypes.DBSubnetGroup, error) {
	var out *rds.DescribeDBSubnetGroupsOutput
	err := p.call(ctx, "rds", classRDS, "DescribeDBSubnetGroups", func() error {
		var innerErr error
		out, innerErr = p.rds.DescribeDBSubnetGroups(ctx, &rds.DescribeDBSubnetGroupsInput{DBSubnetGroupName: aws.String(name)})
		return innerErr
	})
	if err != nil {
		return nil, err
	}
	if len(out.DBSubnetGroups) == 0 {
		return nil, nil
	}
	return &out.DBSubnetGroups[0], nil
}

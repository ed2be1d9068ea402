package awsclient

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eks"
	ekstypes "github.com/aws/aws-sdk-go-v2/service/eks/types"

	"github.com/rcourtman/cloud-discovery-engine/internal/throttle"
)

// Nodegroups lists and describes the node groups of an EKS cluster; the
// cluster handler emits each as contained-in the cluster.
func (p *ProviderClient) Nodegroups(ctx context.Context, clusterName string) ([]ekstypes.Nodegroup, error) {
	var names []string
	var nextToken *string
	for {
		var page *eks.ListNodegroupsOutput
		err := p.call(ctx, "eks", throttle.ClassEKSDescribeNodegroup, "ListNodegroups", func() error {
			var innerErr error
			page, innerErr = p.eks.ListNodegroups(ctx, &eks.ListNodegroupsInput{ClusterName: aws.String(clusterName), NextToken: nextToken})
			return innerErr
		})
		if err != nil {
			return nil, err
		}
		names = append(names, page.Nodegroups...)
		if page.NextToken == nil {
			break
		}
		nextToken = page.NextToken
	}

	out := make([]ekstypes.Nodegroup, 0, len(names))
	for _, name := range names {
		var desc *eks.DescribeNodegroupOutput
		err := p.call(ctx, "eks", throttle.ClassEKSDescribeNodegroup, "DescribeNodegroup", func() error {
			var innerErr error
			desc, innerErr = p.eks.DescribeNodegroup(ctx, &eks.DescribeNodegroupInput{
				ClusterName: aws.String(clusterName),
				NodegroupName: aws.String(name),
			})
			return innerErr
		})
		if err != nil {
			return nil, err
		}
		out = append(out, *desc.Nodegroup)
	}
	return out, nil
}

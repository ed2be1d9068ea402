package awsclient

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbtypes "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"

	"github.com/rcourtman/cloud-discovery-engine/internal/throttle"
)

const classELB throttle.Class = throttle.ClassELBDescribes

// TargetGroups lists load-balancer target groups (Tier A batch resource).
func (p *ProviderClient) TargetGroups(ctx context.Context) ([]elbtypes.TargetGroup, error) {
	var out []elbtypes.TargetGroup
	paginator := elasticloadbalancingv2.NewDescribeTargetGroupsPaginator(p.elbv2, &elasticloadbalancingv2.DescribeTargetGroupsInput{})
	for paginator.HasMorePages() {
		var page *elasticloadbalancingv2.DescribeTargetGroupsOutput
		err := p.call(ctx, "elbv2", classELB, "DescribeTargetGroups", func() error {
			var innerErr error
			page, innerErr = paginator.NextPage(ctx)
			return innerErr
		})
		if err != nil {
			return nil, err
		}
		out = append(out, page.TargetGroups...)
	}
	return out, nil
}

// Listeners lists the listeners on a load balancer (ELBv2
// listener handler).
func (p *ProviderClient) Listeners(ctx context.Context, loadBalancerArn string) ([]elbtypes.Listener, error) {
	var out []elbtypes.Listener
	paginator := elasticloadbalancingv2.NewDescribeListenersPaginator(p.elbv2, &elasticloadbalancingv2.DescribeListenersInput{
		LoadBalancerArn: aws.String(loadBalancerArn),
	})
	for paginator.HasMorePages() {
		var page *elasticloadbalancingv2.DescribeListenersOutput
		err := p.call(ctx, "elbv2", classELB, "DescribeListeners", func() error {
			var innerErr error
			page, innerErr = paginator.NextPage(ctx)
			return innerErr
		})
		if err != nil {
			return nil, err
		}
		out = append(out, page.Listeners...)
	}
	return out, nil
}

// TargetHealth queries live target health for a target group, used by the
// target-group hard-coded handler to infer associated-with instance edges.
func (p *ProviderClient) TargetHealth(ctx context.Context, targetGroupArn string) ([]elbtypes.TargetHealthDescription, error) {
	var out *elasticloadbalancingv2.DescribeTargetHealthOutput
	err := p.call(ctx, "elbv2", classELB, "DescribeTargetHealth", func() error {
		var innerErr error
		out, innerErr = p.elbv2.DescribeTargetHealth(ctx, &elasticloadbalancingv2.DescribeTargetHealthInput{
			TargetGroupArn: aws.String(targetGroupArn),
		})
		return innerErr
	})
	if err != nil {
		return nil, err
	}
	return out.TargetHealthDescriptions, nil
}

// LoadBalancers lists application/network load balancers, used to populate
// the elbDnsToResourceIdMap lookup.
func (p *ProviderClient) LoadBalancers(ctx context.Context) ([]elbtypes.LoadBalancer, error) {
	var out []elbtypes.LoadBalancer
	paginator := elasticloadbalancingv2.NewDescribeLoadBalancersPaginator(p.elbv2, &elasticloadbalancingv2.DescribeLoadBalancersInput{})
	for paginator.HasMorePages() {
		var page *elasticloadbalancingv2.DescribeLoadBalancersOutput
		err := p.call(ctx, "elbv2", classELB, "DescribeLoadBalancers", func() error {
			var innerErr error
			page, innerErr = paginator.NextPage(ctx)
			return innerErr
		})
		if err != nil {
			return nil, err
		}
		out = append(out, page.LoadBalancers...)
	}
	return out, nil
}

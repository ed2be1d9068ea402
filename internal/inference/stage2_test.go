package inference

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	elbtypes "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"

	"github.com/rcourtman/cloud-discovery-engine/internal/model"
)

func TestGatewayMethodHandler_AddsLambdaEdgeFromIntegrationUri(t *testing.T) {
	method := &model.Resource{
		ID: "arn:method",
		ResourceType: "gateway-method",
		Configuration: map[string]any{
			"MethodIntegration": map[string]any{
				"Uri": "arn:aws:apigateway:us-east-1:lambda:path/2015-03-31/functions/arn:aws:lambda:us-east-1:111:function:myFn/invocations",
			},
		},
	}
	maps := model.NewLookupMaps()

	if err := gatewayMethodHandler(context.Background(), fakeClient{}, maps, method); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !method.HasRelationshipTo("arn:aws:lambda:us-east-1:111:function:myFn", "associated-with") {
		t.Errorf("expected integration URI to resolve to its lambda, got %+v", method.Relationships)
	}
}

func TestSecurityGroupHandler_DedupesGroupReferences(t *testing.T) {
	referenced := &model.Resource{ID: "arn:sg2", ResourceType: "security-group", ResourceID: "sg-2", AccountID: "111", Region: "us-east-1"}
	sg := &model.Resource{
		ID: "arn:sg1", ResourceType: "security-group", AccountID: "111", Region: "us-east-1",
		Configuration: map[string]any{
			"IpPermissions": []any{
				map[string]any{"UserIdGroupPairs": []any{map[string]any{"GroupId": "sg-2"}}},
			},
			"IpPermissionsEgress": []any{
				map[string]any{"UserIdGroupPairs": []any{map[string]any{"GroupId": "sg-2"}}},
			},
		},
	}
	maps := BuildLookupMaps([]*model.Resource{referenced, sg})

	if err := securityGroupHandler(context.Background(), fakeClient{}, maps, sg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	count := 0
	for _, rel := range sg.Relationships {
		if rel.Target == "arn:sg2" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected exactly one deduped associated-with-security-group edge, got %d", count)
	}
}

func TestElbv2TargetGroupHandler_SkipsASGInstancesButAddsSingleASGEdge(t *testing.T) {
	tg := &model.Resource{ID: "arn:tg", ResourceType: "elbv2-target-group", AccountID: "111", Region: "us-east-1", VpcID: "vpc-1"}
	maps := model.NewLookupMaps()
	maps.TargetGroupToASG["arn:tg"] = model.ASGBinding{ASGArn: "arn:asg", InstanceIDs: map[string]struct{}{"i-1": {}}}

	client := fakeClient{targetHealth: map[string][]elbtypes.TargetHealthDescription{
		"arn:tg": {
			{Target: &elbtypes.TargetDescription{Id: aws.String("i-1")}, TargetHealth: &elbtypes.TargetHealth{State: elbtypes.TargetHealthStateEnumHealthy}},
			{Target: &elbtypes.TargetDescription{Id: aws.String("i-2")}, TargetHealth: &elbtypes.TargetHealth{State: elbtypes.TargetHealthStateEnumHealthy}},
		},
	}}

	if err := elbv2TargetGroupHandler(context.Background(), client, maps, tg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tg.HasRelationshipTo("arn:aws:ec2:us-east-1:111:instance/i-1", "associated-with") {
		t.Error("expected the ASG-launched instance to be skipped in favor of a single ASG edge")
	}
	if !tg.HasRelationshipTo("arn:aws:ec2:us-east-1:111:instance/i-2", "associated-with") {
		t.Error("expected the non-ASG healthy instance to get an edge")
	}
	if !tg.HasRelationshipTo("arn:asg", "associated-with") {
		t.Error("expected a single associated-with asg edge")
	}
}

func TestIdentityHandler_OnlyAttachesProviderPartitionPolicies(t *testing.T) {
	role := &model.Resource{ID: "arn:role", ResourceType: "iam-role", ResourceName: "my-role"}
	client := fakeClient{attachedPolicies: map[string][]iamtypes.AttachedPolicy{
		"my-role": {
			{PolicyArn: aws.String("arn:aws:iam::aws:policy/ReadOnlyAccess")},
			{PolicyArn: aws.String("arn:aws:iam::111:policy/CustomPolicy")},
		},
	}}

	if err := identityHandler(context.Background(), client, model.NewLookupMaps(), role); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !role.HasRelationshipTo("arn:aws:iam::aws:policy/ReadOnlyAccess", "attached-to") {
		t.Error("expected the AWS-managed policy to be attached")
	}
	if role.HasRelationshipTo("arn:aws:iam::111:policy/CustomPolicy", "attached-to") {
		t.Error("expected the customer-managed policy to be excluded")
	}
}

func TestInlinePolicyHandler_TrimsWildcardSuffixAndResolves(t *testing.T) {
	bucket := &model.Resource{ID: "arn:aws:s3:::my-bucket", ResourceType: "s3-bucket"}
	policy := &model.Resource{
		ID: "arn:policy", ResourceType: "inline-policy",
		Configuration: map[string]any{
			"Statement": []any{
				map[string]any{"Resource": "arn:aws:s3:::my-bucket/*"},
			},
		},
	}
	maps := BuildLookupMaps([]*model.Resource{bucket, policy})

	if err := inlinePolicyHandler(context.Background(), fakeClient{}, maps, policy); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !policy.HasRelationshipTo(bucket.ID, "attached-to") {
		t.Errorf("expected trimmed ARN to resolve to the bucket, got %+v", policy.Relationships)
	}
}

func TestRouteTableHandler_ResolvesGatewayIdsToKnownResources(t *testing.T) {
	nat := &model.Resource{ID: "arn:nat", ResourceType: "nat-gateway", ResourceID: "nat-0123", AccountID: "111", Region: "us-east-1"}
	igw := &model.Resource{ID: "arn:igw", ResourceType: "internet-gateway", ResourceID: "igw-0123", AccountID: "111", Region: "us-east-1"}
	rt := &model.Resource{
		ID: "arn:rt", ResourceType: "route-table", AccountID: "111", Region: "us-east-1",
		Configuration: map[string]any{
			"Routes": []any{
				map[string]any{"NatGatewayId": "nat-0123"},
				map[string]any{"GatewayId": "igw-0123"},
				map[string]any{"GatewayId": "local"},
			},
		},
	}
	maps := BuildLookupMaps([]*model.Resource{nat, igw, rt})

	if err := routeTableHandler(context.Background(), fakeClient{}, maps, rt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rt.HasRelationshipTo("arn:nat", "contains") || !rt.HasRelationshipTo("arn:igw", "contains") {
		t.Errorf("expected contains edges resolved to the NAT gateway and internet gateway ARNs, got %+v", rt.Relationships)
	}
	if rt.HasRelationshipTo("local", "contains") {
		t.Error("expected the local route to be ignored")
	}
}

func TestRouteTableHandler_UnresolvedGatewayIdYieldsUnknown(t *testing.T) {
	rt := &model.Resource{
		ID: "arn:rt", ResourceType: "route-table", AccountID: "111", Region: "us-east-1",
		Configuration: map[string]any{
			"Routes": []any{map[string]any{"NatGatewayId": "nat-missing"}},
		},
	}
	if err := routeTableHandler(context.Background(), fakeClient{}, model.NewLookupMaps(), rt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rt.HasRelationshipTo(model.UnknownTarget, "contains") {
		t.Errorf("expected an unknown target for an unresolved gateway id, got %+v", rt.Relationships)
	}
}

func TestNetworkInterfaceHandler_UnmatchedDescriptionYieldsUnknown(t *testing.T) {
	eni := &model.Resource{ID: "arn:eni", ResourceType: "network-interface", Configuration: map[string]any{"Description": "some unrelated description"}}
	if err := networkInterfaceHandler(context.Background(), fakeClient{}, model.NewLookupMaps(), eni); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !eni.HasRelationshipTo(model.UnknownTarget, "attached-to") {
		t.Errorf("expected an unknown target for an unmatched description, got %+v", eni.Relationships)
	}
}

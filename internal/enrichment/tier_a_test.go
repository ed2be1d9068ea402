package enrichment

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	elbtypes "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	mctypes "github.com/aws/aws-sdk-go-v2/service/mediaconnect/types"
	ostypes "github.com/aws/aws-sdk-go-v2/service/opensearchservice/types"
	"github.com/aws/aws-sdk-go-v2/service/servicecatalogappregistry"
	sartypes "github.com/aws/aws-sdk-go-v2/service/servicecatalogappregistry/types"
)

type fakeTierAClient struct {
	applications []sartypes.ApplicationSummary
	flows []mctypes.ListedFlow
	managedPolicies []iamtypes.Policy
	targetGroups []elbtypes.TargetGroup
	spotInstanceRequests []ec2types.SpotInstanceRequest
	spotFleetRequests []ec2types.SpotFleetRequestConfig
	spotFleetInstances map[string][]ec2types.ActiveInstance
	searchDomains []ostypes.DomainStatus
}

func (f fakeTierAClient) Applications(ctx context.Context) ([]sartypes.ApplicationSummary, error) {
	return f.applications, nil
}
func (f fakeTierAClient) GetApplication(ctx context.Context, id string) (*servicecatalogappregistry.GetApplicationOutput, error) {
	return nil, nil
}
func (f fakeTierAClient) Flows(ctx context.Context) ([]mctypes.ListedFlow, error) { return f.flows, nil }
func (f fakeTierAClient) ManagedPolicies(ctx context.Context) ([]iamtypes.Policy, error) {
	return f.managedPolicies, nil
}
func (f fakeTierAClient) TargetGroups(ctx context.Context) ([]elbtypes.TargetGroup, error) {
	return f.targetGroups, nil
}
func (f fakeTierAClient) SpotInstanceRequests(ctx context.Context) ([]ec2types.SpotInstanceRequest, error) {
	return f.spotInstanceRequests, nil
}
func (f fakeTierAClient) SpotFleetRequests(ctx context.Context) ([]ec2types.SpotFleetRequestConfig, error) {
	return f.spotFleetRequests, nil
}
func (f fakeTierAClient) SpotFleetInstances(ctx context.Context, fleetID string) ([]ec2types.ActiveInstance, error) {
	return f.spotFleetInstances[fleetID], nil
}
func (f fakeTierAClient) SearchDomains(ctx context.Context) ([]ostypes.DomainStatus, error) {
	return f.searchDomains, nil
}

func TestRunTierA_CollectsAllRegionalHandlers(t *testing.T) {
	client := fakeTierAClient{
		flows: []mctypes.ListedFlow{{FlowArn: aws.String("arn:aws:mediaconnect:us-east-1:111:flow:1"), Name: aws.String("flow-1")}},
		targetGroups: []elbtypes.TargetGroup{{TargetGroupArn: aws.String("arn:aws:elasticloadbalancing:us-east-1:111:targetgroup/tg/1"), TargetGroupName: aws.String("tg"), VpcId: aws.String("vpc-1")}},
	}

	resources, errs := RunTierA(context.Background(), client, "111", "us-east-1")
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(resources) != 2 {
		t.Fatalf("expected 2 resources (flow + target group), got %d", len(resources))
	}
}

func TestManagedPolicies_UsesSyntheticAwsAccount(t *testing.T) {
	client := fakeTierAClient{managedPolicies: []iamtypes.Policy{{Arn: aws.String("arn:aws:iam::aws:policy/ReadOnlyAccess"), PolicyName: aws.String("ReadOnlyAccess")}}}

	resources, err := managedPolicies(context.Background(), client, "111", "us-east-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resources) != 1 || resources[0].AccountID != "aws" {
		t.Fatalf("expected accountId=aws, got %+v", resources)
	}
}

func TestSpotRequests_FleetCarriesAssociatedWithInstances(t *testing.T) {
	client := fakeTierAClient{
		spotFleetRequests: []ec2types.SpotFleetRequestConfig{{SpotFleetRequestId: aws.String("sfr-1")}},
		spotFleetInstances: map[string][]ec2types.ActiveInstance{
			"sfr-1": {{InstanceId: aws.String("i-abc")}},
		},
	}

	resources, err := spotRequests(context.Background(), client, "111", "us-east-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resources) != 1 {
		t.Fatalf("expected 1 spot-fleet resource, got %d", len(resources))
	}
	fleet := resources[0]
	if len(fleet.Relationships) != 1 || fleet.Relationships[0].Target != spotInstanceInstanceArn("111", "us-east-1", "i-abc") {
		t.Fatalf("expected associated-with edge to the launched instance, got %+v", fleet.Relationships)
	}
}

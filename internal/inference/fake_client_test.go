package inference

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	elbtypes "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"
	ebtypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

type fakeClient struct {
	eventSourceMappings map[string][]lambdatypes.EventSourceMappingConfiguration
	functionConfigs map[string]*lambda.GetFunctionConfigurationOutput
	subscriptions map[string][]snstypes.Subscription
	tgwAttachment ec2types.TransitGatewayVpcAttachment
	tgwFound bool
	targetHealth map[string][]elbtypes.TargetHealthDescription
	dbSubnetGroup *rdstypes.DBSubnetGroup
	rules map[string][]ebtypes.Rule
	attachedPolicies map[string][]iamtypes.AttachedPolicy
	rolePolicyDocuments map[string]string
}

func (f fakeClient) EventSourceMappings(ctx context.Context, functionName string) ([]lambdatypes.EventSourceMappingConfiguration, error) {
	return f.eventSourceMappings[functionName], nil
}

func (f fakeClient) GetFunctionConfiguration(ctx context.Context, functionName string) (*lambda.GetFunctionConfigurationOutput, error) {
	return f.functionConfigs[functionName], nil
}

func (f fakeClient) SubscriptionsByTopic(ctx context.Context, topicArn string) ([]snstypes.Subscription, error) {
	return f.subscriptions[topicArn], nil
}

func (f fakeClient) DescribeTransitGatewayAttachment(ctx context.Context, attachmentID string) (ec2types.TransitGatewayVpcAttachment, bool, error) {
	return f.tgwAttachment, f.tgwFound, nil
}

func (f fakeClient) TargetHealth(ctx context.Context, targetGroupArn string) ([]elbtypes.TargetHealthDescription, error) {
	return f.targetHealth[targetGroupArn], nil
}

func (f fakeClient) DBSubnetGroup(ctx context.Context, name string) (*rdstypes.DBSubnetGroup, error) {
	return f.dbSubnetGroup, nil
}

func (f fakeClient) DescribeSubnets(ctx context.Context, subnetIDs []string) ([]ec2types.Subnet, error) {
	return nil, nil
}

func (f fakeClient) RulesForBus(ctx context.Context, busName string) ([]ebtypes.Rule, error) {
	return f.rules[busName], nil
}

func (f fakeClient) AttachedRolePolicies(ctx context.Context, roleName string) ([]iamtypes.AttachedPolicy, error) {
	return f.attachedPolicies[roleName], nil
}

func (f fakeClient) RolePolicyDocument(ctx context.Context, roleName, policyName string) (string, error) {
	return f.rolePolicyDocuments[roleName+"/"+policyName], nil
}

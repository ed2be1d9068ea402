// Package inference implements the RelationshipInferencer: the pass that
// runs after enrichment to add edges the provider API never hands back
// directly, by building a set of lookup indices over the whole working set
// and then running batched and per-resource handlers against them. Grounded
// in shape on the same client-behind-an-interface idiom used throughout this
// module (internal/enrichment's ClientSet follows the same backend-interface
// pattern).
package inference

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	elbtypes "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"
	ebtypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
)

// Client is the set of live AWS calls the inferencer's batch and hard-coded
// handlers need beyond what is already captured in a resource's
// Configuration. One Client is scoped to a single (account, region) pair,
// mirroring enrichment.ClientSet.
type Client interface {
	EventSourceMappings(ctx context.Context, functionName string) ([]lambdatypes.EventSourceMappingConfiguration, error)
	GetFunctionConfiguration(ctx context.Context, functionName string) (*lambda.GetFunctionConfigurationOutput, error)
	SubscriptionsByTopic(ctx context.Context, topicArn string) ([]snstypes.Subscription, error)
	DescribeTransitGatewayAttachment(ctx context.Context, attachmentID string) (ec2types.TransitGatewayVpcAttachment, bool, error)
	TargetHealth(ctx context.Context, targetGroupArn string) ([]elbtypes.TargetHealthDescription, error)
	DBSubnetGroup(ctx context.Context, name string) (*rdstypes.DBSubnetGroup, error)
	DescribeSubnets(ctx context.Context, subnetIDs []string) ([]ec2types.Subnet, error)
	RulesForBus(ctx context.Context, busName string) ([]ebtypes.Rule, error)
	AttachedRolePolicies(ctx context.Context, roleName string) ([]iamtypes.AttachedPolicy, error)
	RolePolicyDocument(ctx context.Context, roleName, policyName string) (string, error)
}

// ClientResolver returns the Client scoped to one (account, region) pair.
type ClientResolver func(accountID, region string) (Client, bool)

// handlerError matches the {handlerName, accountId, region} shape every
// other stage in this module uses for per-unit failure collection.
type handlerError struct {
	HandlerName string
	AccountID string
	Region string
	Err error
}

func (e *handlerError) Error() string {
	return e.HandlerName + " (" + e.AccountID + "/" + e.Region + "): " + e.Err.Error()
}

func (e *handlerError) Unwrap() error { return e.Err }

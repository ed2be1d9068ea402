// Package enrichment implements three
// ordered tiers of handlers that add resources the aggregator baseline
// doesn't reliably surface, each tier's output visible to the next.
//
// Uses the bounded worker-pool idiom applied throughout this module (channel
// semaphore + sync.WaitGroup) for every tier's concurrency limit, and
// internal/awsclient for the exact AWS SDK v2 call shapes each handler
// drives.
package enrichment

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/apigateway"
	agtypes "github.com/aws/aws-sdk-go-v2/service/apigateway/types"
	asynctypes "github.com/aws/aws-sdk-go-v2/service/appsync/types"
	ddbstreamtypes "github.com/aws/aws-sdk-go-v2/service/dynamodbstreams/types"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	ekstypes "github.com/aws/aws-sdk-go-v2/service/eks/types"
	elbtypes "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	mctypes "github.com/aws/aws-sdk-go-v2/service/mediaconnect/types"
	ostypes "github.com/aws/aws-sdk-go-v2/service/opensearchservice/types"
	"github.com/aws/aws-sdk-go-v2/service/servicecatalogappregistry"
	sartypes "github.com/aws/aws-sdk-go-v2/service/servicecatalogappregistry/types"
)

// TierAClient is the BatchResources surface (Tier A).
type TierAClient interface {
	Applications(ctx context.Context) ([]sartypes.ApplicationSummary, error)
	GetApplication(ctx context.Context, id string) (*servicecatalogappregistry.GetApplicationOutput, error)
	Flows(ctx context.Context) ([]mctypes.ListedFlow, error)
	ManagedPolicies(ctx context.Context) ([]iamtypes.Policy, error)
	TargetGroups(ctx context.Context) ([]elbtypes.TargetGroup, error)
	SpotInstanceRequests(ctx context.Context) ([]ec2types.SpotInstanceRequest, error)
	SpotFleetRequests(ctx context.Context) ([]ec2types.SpotFleetRequestConfig, error)
	SpotFleetInstances(ctx context.Context, fleetID string) ([]ec2types.ActiveInstance, error)
	SearchDomains(ctx context.Context) ([]ostypes.DomainStatus, error)
}

// TierBClient is the FirstOrderEnrichers surface (Tier B).
type TierBClient interface {
	Resources(ctx context.Context, restAPIID string) ([]agtypes.Resource, error)
	Authorizers(ctx context.Context, restAPIID string) ([]agtypes.Authorizer, error)
	DataSources(ctx context.Context, apiID string) ([]asynctypes.DataSource, error)
	Resolvers(ctx context.Context, apiID, typeName string) ([]asynctypes.Resolver, error)
	DescribeStream(ctx context.Context, streamArn string) (*ddbstreamtypes.StreamDescription, error)
	RunningTasks(ctx context.Context, clusterArn, serviceName string) ([]ecstypes.Task, error)
	Nodegroups(ctx context.Context, clusterName string) ([]ekstypes.Nodegroup, error)
	RolePolicyNames(ctx context.Context, roleName string) ([]string, error)
	UserPolicyNames(ctx context.Context, userName string) ([]string, error)
}

// TierCClient is the SecondOrderEnrichers surface (Tier C).
type TierCClient interface {
	Method(ctx context.Context, restAPIID, resourceID, httpMethod string) (*apigateway.GetMethodOutput, error)
}

// ClientSet bundles every tier-specific interface a single (account, region)
// provider client satisfies.
type ClientSet interface {
	TierAClient
	TierBClient
	TierCClient
}

// handlerError carries the {handlerName, accountId, region} triple each
// collected handler failure logs.
type handlerError struct {
	HandlerName string
	AccountID string
	Region string
	Err error
}

func (e *handlerError) Error() string {
	return e.HandlerName + "[" + e.AccountID + "/" + e.Region + "]: " + e.Err.Error()
}

func (e *handlerError) Unwrap() error { return e.Err }

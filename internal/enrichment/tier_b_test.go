package enrichment

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	agtypes "github.com/aws/aws-sdk-go-v2/service/apigateway/types"
	asynctypes "github.com/aws/aws-sdk-go-v2/service/appsync/types"
	ddbstreamtypes "github.com/aws/aws-sdk-go-v2/service/dynamodbstreams/types"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	ekstypes "github.com/aws/aws-sdk-go-v2/service/eks/types"

	"github.com/rcourtman/cloud-discovery-engine/internal/model"
)

type fakeTierBClient struct {
	resources []agtypes.Resource
	authorizers []agtypes.Authorizer
	dataSources []asynctypes.DataSource
	resolvers map[string][]asynctypes.Resolver
	streamDesc *ddbstreamtypes.StreamDescription
	tasks []ecstypes.Task
	nodegroups []ekstypes.Nodegroup
	rolePolicies []string
	userPolicies []string
}

func (f fakeTierBClient) Resources(ctx context.Context, restAPIID string) ([]agtypes.Resource, error) {
	return f.resources, nil
}
func (f fakeTierBClient) Authorizers(ctx context.Context, restAPIID string) ([]agtypes.Authorizer, error) {
	return f.authorizers, nil
}
func (f fakeTierBClient) DataSources(ctx context.Context, apiID string) ([]asynctypes.DataSource, error) {
	return f.dataSources, nil
}
func (f fakeTierBClient) Resolvers(ctx context.Context, apiID, typeName string) ([]asynctypes.Resolver, error) {
	return f.resolvers[typeName], nil
}
func (f fakeTierBClient) DescribeStream(ctx context.Context, streamArn string) (*ddbstreamtypes.StreamDescription, error) {
	return f.streamDesc, nil
}
func (f fakeTierBClient) RunningTasks(ctx context.Context, clusterArn, serviceName string) ([]ecstypes.Task, error) {
	return f.tasks, nil
}
func (f fakeTierBClient) Nodegroups(ctx context.Context, clusterName string) ([]ekstypes.Nodegroup, error) {
	return f.nodegroups, nil
}
func (f fakeTierBClient) RolePolicyNames(ctx context.Context, roleName string) ([]string, error) {
	return f.rolePolicies, nil
}
func (f fakeTierBClient) UserPolicyNames(ctx context.Context, userName string) ([]string, error) {
	return f.userPolicies, nil
}

func TestGatewayRestAPIHandler_EmitsPathItemsAndAuthorizers(t *testing.T) {
	client := fakeTierBClient{
		resources: []agtypes.Resource{{Id: aws.String("res-1"), Path: aws.String("/widgets")}},
		authorizers: []agtypes.Authorizer{{Id: aws.String("auth-1"), Name: aws.String("my-authorizer"), AuthorizerUri: aws.String("arn:aws:apigateway:us-east-1:lambda:path/2015-03-31/functions/arn:aws:lambda:us-east-1:111:function:authFn/invocations")}},
	}
	parent := &model.Resource{ID: "arn:aws:apigateway::111:/restapis/api-1", AccountID: "111", Region: "us-east-1", ResourceType: "apigateway-restapi", ResourceID: "api-1"}

	children, err := gatewayRestAPIHandler(context.Background(), client, parent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(children) != 2 {
		t.Fatalf("expected 1 path item + 1 authorizer, got %d", len(children))
	}

	var authorizer *model.Resource
	for _, c := range children {
		if c.ResourceType == "gateway-authorizer" {
			authorizer = c
		}
	}
	if authorizer == nil {
		t.Fatal("expected an authorizer resource")
	}
	if !authorizer.HasRelationshipTo("arn:aws:lambda:us-east-1:111:function:authFn", "associated-with") {
		t.Errorf("expected authorizer associated-with its provider lambda, got %+v", authorizer.Relationships)
	}
}

func TestTableHandler_SkipsTablesWithoutLiveStream(t *testing.T) {
	parent := &model.Resource{ID: "arn:table", ResourceType: "dynamodb-table", Configuration: map[string]any{}}
	children, err := tableHandler(context.Background(), fakeTierBClient{}, parent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(children) != 0 {
		t.Fatalf("expected no stream resource for a table without a stream, got %d", len(children))
	}
}

func TestTableHandler_EmitsStreamResource(t *testing.T) {
	parent := &model.Resource{ID: "arn:table", ResourceType: "dynamodb-table", Configuration: map[string]any{"LatestStreamArn": "arn:stream"}}
	children, err := tableHandler(context.Background(), fakeTierBClient{}, parent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(children) != 1 || children[0].ID != "arn:stream" {
		t.Fatalf("expected one table-stream resource, got %+v", children)
	}
	if !children[0].HasRelationshipTo(parent.ID, "contained-in") {
		t.Error("expected stream contained-in table")
	}
}

func TestIdentityPrincipalHandler_RoleVsUser(t *testing.T) {
	client := fakeTierBClient{rolePolicies: []string{"inline-1"}}
	parent := &model.Resource{ID: "arn:role", AccountID: "111", ResourceType: "iam-role", ResourceName: "my-role"}

	children, err := identityPrincipalHandler(context.Background(), client, parent)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(children) != 1 || children[0].Region != "global" {
		t.Fatalf("expected one global inline-policy resource, got %+v", children)
	}
}

func TestTierBHandler_UnregisteredTypeReturnsFalse(t *testing.T) {
	if _, ok := tierBHandler("s3-bucket"); ok {
		t.Fatal("expected s3-bucket to have no registered Tier B handler")
	}
}

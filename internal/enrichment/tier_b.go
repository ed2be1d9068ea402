package enrichment

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/rs/zerolog/log"

	"github.com/rcourtman/cloud-discovery-engine/internal/model"
)

const tierBConcurrency = 15

type tierBHandlerFunc func(ctx context.Context, client TierBClient, parent *model.Resource) ([]*model.Resource, error)

func tierBHandler(resourceType string) (tierBHandlerFunc, bool) {
	switch resourceType {
	case "apigateway-restapi":
		return gatewayRestAPIHandler, true
	case "appsync-graphqlapi":
		return appSyncGraphQLAPIHandler, true
	case "dynamodb-table":
		return tableHandler, true
	case "ecs-service":
		return containerServiceHandler, true
	case "eks-cluster":
		return clusterHandler, true
	case "iam-role", "iam-user":
		return identityPrincipalHandler, true
	default:
		return nil, false
	}
}

// RunTierB runs the registered FirstOrderEnricher for every baseline
// resource whose type has one, concurrency 15 (Tier B).
func RunTierB(ctx context.Context, client TierBClient, baseline []*model.Resource) ([]*model.Resource, []error) {
	sem := make(chan struct{}, tierBConcurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var out []*model.Resource
	var errs []error

	for _, r := range baseline {
		handler, ok := tierBHandler(r.ResourceType)
		if !ok {
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(parent *model.Resource, handler tierBHandlerFunc) {
			defer wg.Done()
			defer func() { <-sem }()
			children, err := handler(ctx, client, parent)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Warn().Str("handlerName", parent.ResourceType).Str("accountId", parent.AccountID).Str("region", parent.Region).Err(err).Msg("tier B handler failed")
				errs = append(errs, &handlerError{HandlerName: parent.ResourceType, AccountID: parent.AccountID, Region: parent.Region, Err: err})
				return
			}
			out = append(out, children...)
		}(r, handler)
	}
	wg.Wait()
	return out, errs
}

var lambdaAuthorizerURIPattern = regexp.MustCompile(`functions/(arn:aws:lambda:[^/]+)/invocations`)

func extractLambdaArnFromAuthorizerURI(uri string) string {
	match := lambdaAuthorizerURIPattern.FindStringSubmatch(uri)
	if len(match) != 2 {
		return ""
	}
	return match[1]
}

func gatewayRestAPIHandler(ctx context.Context, client TierBClient, parent *model.Resource) ([]*model.Resource, error) {
	var out []*model.Resource

	resources, err := client.Resources(ctx, parent.ResourceID)
	if err != nil {
		return nil, err
	}
	for _, res := range resources {
		child := &model.Resource{
			ID: fmt.Sprintf("%s/resources/%s", parent.ID, aws.ToString(res.Id)),
			AccountID: parent.AccountID,
			Region: parent.Region,
			ResourceType: "gateway-path-item",
			ResourceID: aws.ToString(res.Id),
			ResourceName: aws.ToString(res.Path),
			Configuration: map[string]any{"RestApiId": parent.ResourceID},
		}
		child.AddRelationship(parent.ID, "contained-in")
		out = append(out, child)
	}

	authorizers, err := client.Authorizers(ctx, parent.ResourceID)
	if err != nil {
		return nil, err
	}
	for _, az := range authorizers {
		child := &model.Resource{
			ID: fmt.Sprintf("%s/authorizers/%s", parent.ID, aws.ToString(az.Id)),
			AccountID: parent.AccountID,
			Region: parent.Region,
			ResourceType: "gateway-authorizer",
			ResourceID: aws.ToString(az.Id),
			ResourceName: aws.ToString(az.Name),
		}
		child.AddRelationship(parent.ID, "contained-in")
		if providerArn := extractLambdaArnFromAuthorizerURI(aws.ToString(az.AuthorizerUri)); providerArn != "" {
			child.AddRelationship(providerArn, "associated-with")
		}
		out = append(out, child)
	}
	return out, nil
}

func appSyncGraphQLAPIHandler(ctx context.Context, client TierBClient, parent *model.Resource) ([]*model.Resource, error) {
	var out []*model.Resource

	dataSources, err := client.DataSources(ctx, parent.ResourceID)
	if err != nil {
		return nil, err
	}
	dsNameToARN := make(map[string]string, len(dataSources))
	for _, ds := range dataSources {
		name := aws.ToString(ds.Name)
		arn := fmt.Sprintf("%s/datasources/%s", parent.ID, name)
		dsNameToARN[name] = arn
		child := &model.Resource{
			ID: arn,
			AccountID: parent.AccountID,
			Region: parent.Region,
			ResourceType: "appsync-datasource",
			ResourceID: name,
			ResourceName: name,
		}
		child.AddRelationship(parent.ID, "contained-in")
		out = append(out, child)
	}

	for _, typeName := range []string{"Query", "Mutation"} {
		resolvers, resolverErr := client.Resolvers(ctx, parent.ResourceID, typeName)
		if resolverErr != nil {
			return nil, resolverErr
		}
		for _, r := range resolvers {
			fieldName := aws.ToString(r.FieldName)
			child := &model.Resource{
				ID: fmt.Sprintf("%s/resolvers/%s.%s", parent.ID, typeName, fieldName),
				AccountID: parent.AccountID,
				Region: parent.Region,
				ResourceType: "appsync-resolver",
				ResourceID: fieldName,
				ResourceName: fmt.Sprintf("%s.%s", typeName, fieldName),
			}
			child.AddRelationship(parent.ID, "contained-in")
			if dsArn, ok := dsNameToARN[aws.ToString(r.DataSourceName)]; ok {
				child.AddRelationship(dsArn, "associated-with")
			}
			out = append(out, child)
		}
	}
	return out, nil
}

func tableHandler(ctx context.Context, client TierBClient, parent *model.Resource) ([]*model.Resource, error) {
	streamArn, _ := parent.Configuration["LatestStreamArn"].(string)
	if streamArn == "" {
		return nil, nil
	}
	if _, err := client.DescribeStream(ctx, streamArn); err != nil {
		return nil, err
	}
	child := &model.Resource{
		ID: streamArn,
		AccountID: parent.AccountID,
		Region: parent.Region,
		ResourceType: "table-stream",
	}
	child.AddRelationship(parent.ID, "contained-in")
	return []*model.Resource{child}, nil
}

func containerServiceHandler(ctx context.Context, client TierBClient, parent *model.Resource) ([]*model.Resource, error) {
	clusterArn, _ := parent.Configuration["Cluster"].(string)
	serviceName, _ := parent.Configuration["ServiceName"].(string)
	if clusterArn == "" || serviceName == "" {
		return nil, nil
	}
	tasks, err := client.RunningTasks(ctx, clusterArn, serviceName)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Resource, 0, len(tasks))
	for _, t := range tasks {
		taskArn := aws.ToString(t.TaskArn)
		child := &model.Resource{
			ID: taskArn,
			AccountID: parent.AccountID,
			Region: parent.Region,
			ResourceType: "container-task",
		}
		child.AddRelationship(parent.ID, "associated-with")
		out = append(out, child)
	}
	return out, nil
}

func clusterHandler(ctx context.Context, client TierBClient, parent *model.Resource) ([]*model.Resource, error) {
	clusterName := parent.ResourceName
	if name, ok := parent.Configuration["Name"].(string); ok && name != "" {
		clusterName = name
	}
	nodegroups, err := client.Nodegroups(ctx, clusterName)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Resource, 0, len(nodegroups))
	for _, ng := range nodegroups {
		name := aws.ToString(ng.NodegroupName)
		child := &model.Resource{
			ID: aws.ToString(ng.NodegroupArn),
			AccountID: parent.AccountID,
			Region: parent.Region,
			ResourceType: "node-group",
			ResourceID: name,
			ResourceName: name,
		}
		child.AddRelationship(parent.ID, "contained-in")
		out = append(out, child)
	}
	return out, nil
}

func identityPrincipalHandler(ctx context.Context, client TierBClient, parent *model.Resource) ([]*model.Resource, error) {
	var names []string
	var err error
	if parent.ResourceType == "iam-role" {
		names, err = client.RolePolicyNames(ctx, parent.ResourceName)
	} else {
		names, err = client.UserPolicyNames(ctx, parent.ResourceName)
	}
	if err != nil {
		return nil, err
	}

	out := make([]*model.Resource, 0, len(names))
	for _, name := range names {
		child := &model.Resource{
			ID: fmt.Sprintf("%s/inline-policy/%s", parent.ID, name),
			AccountID: parent.AccountID,
			Region: "global",
			ResourceType: "inline-policy",
			ResourceID: name,
			ResourceName: name,
		}
		child.AddRelationship(parent.ID, "associated-with")
		out = append(out, child)
	}
	return out, nil
}

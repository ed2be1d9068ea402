package awsclient

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/appsync"
	asynctypes "github.com/aws/aws-sdk-go-v2/service/appsync/types"

	"github.com/rcourtman/cloud-discovery-engine/internal/throttle"
)

// GraphQLAPIs lists AppSync GraphQL APIs (Tier B registered-handler input).
func (p *ProviderClient) GraphQLAPIs(ctx context.Context) ([]asynctypes.GraphqlApi, error) {
	var out []asynctypes.GraphqlApi
	var nextToken *string
	for {
		var page *appsync.ListGraphqlApisOutput
		err := p.call(ctx, "appsync", throttle.ClassAppSyncList, "ListGraphqlApis", func() error {
			var innerErr error
			page, innerErr = p.appsync.ListGraphqlApis(ctx, &appsync.ListGraphqlApisInput{NextToken: nextToken})
			return innerErr
		})
		if err != nil {
			return nil, err
		}
		out = append(out, page.GraphqlApis...)
		if page.NextToken == nil {
			break
		}
		nextToken = page.NextToken
	}
	return out, nil
}

// DataSources lists the data sources registered on a GraphQL API.
func (p *ProviderClient) DataSources(ctx context.Context, apiID string) ([]asynctypes.DataSource, error) {
	var out []asynctypes.DataSource
	var nextToken *string
	for {
		var page *appsync.ListDataSourcesOutput
		err := p.call(ctx, "appsync", throttle.ClassAppSyncList, "ListDataSources", func() error {
			var innerErr error
			page, innerErr = p.appsync.ListDataSources(ctx, &appsync.ListDataSourcesInput{ApiId: aws.String(apiID), NextToken: nextToken})
			return innerErr
		})
		if err != nil {
			return nil, err
		}
		out = append(out, page.DataSources...)
		if page.NextToken == nil {
			break
		}
		nextToken = page.NextToken
	}
	return out, nil
}

// Resolvers lists the resolvers registered on apiID/typeName (Query and
// Mutation are the two type names that matter here).
func (p *ProviderClient) Resolvers(ctx context.Context, apiID, typeName string) ([]asynctypes.Resolver, error) {
	var out []asynctypes.Resolver
	var nextToken *string
	for {
		var page *appsync.ListResolversOutput
		err := p.call(ctx, "appsync", throttle.ClassAppSyncList, "ListResolvers", func() error {
			var innerErr error
			page, innerErr = p.appsync.ListResolvers(ctx, &appsync.ListResolversInput{
				ApiId: aws.String(apiID),
				TypeName: aws.String(typeName),
				NextToken: nextToken,
			})
			return innerErr
		})
		if err != nil {
			return nil, err
		}
		out = append(out, page.Resolvers...)
		if page.NextToken == nil {
			break
		}
		nextToken = page.NextToken
	}
	return out, nil
}

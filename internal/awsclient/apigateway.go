package awsclient

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigateway"
	agtypes "github.com/aws/aws-sdk-go-v2/service/apigateway/types"

	"github.com/rcourtman/cloud-discovery-engine/internal/throttle"
)

// RestAPIs lists REST APIs, paginated and throttled at the gateway-paginator
// ceiling (5/2000ms).
func (p *ProviderClient) RestAPIs(ctx context.Context) ([]agtypes.RestApi, error) {
	var out []agtypes.RestApi
	paginator := apigateway.NewGetRestApisPaginator(p.apigateway, &apigateway.GetRestApisInput{})
	for paginator.HasMorePages() {
		var page *apigateway.GetRestApisOutput
		err := p.call(ctx, "apigateway", throttle.ClassGatewayPaginator, "GetRestApis", func() error {
			var innerErr error
			page, innerErr = paginator.NextPage(ctx)
			return innerErr
		})
		if err != nil {
			return nil, err
		}
		out = append(out, page.Items...)
	}
	return out, nil
}

// Resources lists the path items (resources) of a REST API.
func (p *ProviderClient) Resources(ctx context.Context, restAPIID string) ([]agtypes.Resource, error) {
	var out []agtypes.Resource
	paginator := apigateway.NewGetResourcesPaginator(p.apigateway, &apigateway.GetResourcesInput{RestApiId: aws.String(restAPIID)})
	for paginator.HasMorePages() {
		var page *apigateway.GetResourcesOutput
		err := p.call(ctx, "apigateway", throttle.ClassGatewayTotalOps, "GetResources", func() error {
			var innerErr error
			page, innerErr = paginator.NextPage(ctx)
			return innerErr
		})
		if err != nil {
			return nil, err
		}
		out = append(out, page.Items...)
	}
	return out, nil
}

// Authorizers lists the authorizers attached to a REST API.
func (p *ProviderClient) Authorizers(ctx context.Context, restAPIID string) ([]agtypes.Authorizer, error) {
	var out *apigateway.GetAuthorizersOutput
	err := p.call(ctx, "apigateway", throttle.ClassGatewayTotalOps, "GetAuthorizers", func() error {
		var innerErr error
		out, innerErr = p.apigateway.GetAuthorizers(ctx, &apigateway.GetAuthorizersInput{RestApiId: aws.String(restAPIID)})
		return innerErr
	})
	if err != nil {
		return nil, err
	}
	return out.Items, nil
}

// Method fetches one HTTP method on a path item; a NotFound response is
// treated as a non-error empty result (second-order enricher
// attempts GET/POST/PUT/DELETE per path item).
func (p *ProviderClient) Method(ctx context.Context, restAPIID, resourceID, httpMethod string) (*apigateway.GetMethodOutput, error) {
	var out *apigateway.GetMethodOutput
	err := p.call(ctx, "apigateway", throttle.ClassGatewayTotalOps, "GetMethod", func() error {
		var innerErr error
		out, innerErr = p.apigateway.GetMethod(ctx, &apigateway.GetMethodInput{
			RestApiId: aws.String(restAPIID),
			ResourceId: aws.String(resourceID),
			HttpMethod: aws.String(httpMethod),
		})
		return innerErr
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return out, nil
}

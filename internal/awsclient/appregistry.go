package awsclient

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/servicecatalogappregistry"
	sartypes "github.com/aws/aws-sdk-go-v2/service/servicecatalogappregistry/types"

	"github.com/rcourtman/cloud-discovery-engine/internal/throttle"
)

// Applications lists AppRegistry applications, a Tier A regional batch
// resource.
func (p *ProviderClient) Applications(ctx context.Context) ([]sartypes.ApplicationSummary, error) {
	var out []sartypes.ApplicationSummary
	var nextToken *string
	for {
		var page *servicecatalogappregistry.ListApplicationsOutput
		err := p.call(ctx, "servicecatalogappregistry", throttle.ClassAppRegistry, "ListApplications", func() error {
			var innerErr error
			page, innerErr = p.appregistry.ListApplications(ctx, &servicecatalogappregistry.ListApplicationsInput{NextToken: nextToken})
			return innerErr
		})
		if err != nil {
			return nil, err
		}
		out = append(out, page.Applications...)
		if page.NextToken == nil {
			break
		}
		nextToken = page.NextToken
	}
	return out, nil
}

// GetApplication fetches one application's detail, used to read its
// "awsApplication" tag value for the AppRegistry hard-coded handler.
func (p *ProviderClient) GetApplication(ctx context.Context, id string) (*servicecatalogappregistry.GetApplicationOutput, error) {
	var out *servicecatalogappregistry.GetApplicationOutput
	err := p.call(ctx, "servicecatalogappregistry", throttle.ClassAppRegistry, "GetApplication", func() error {
		var innerErr error
		out, innerErr = p.appregistry.GetApplication(ctx, &servicecatalogappregistry.GetApplicationInput{Application: aws.String(id)})
		return innerErr
	})
	return out, err
}

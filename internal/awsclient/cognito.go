package awsclient

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	ciptypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"

	"github.com/rcourtman/cloud-discovery-engine/internal/throttle"
)

const classCognito throttle.Class = "cognito-user-pools"

// UserPools lists Cognito user pools, an md5Hash-set member and the target of
// the ELBv2 listener's AuthenticateCognitoConfig edge.
func (p *ProviderClient) UserPools(ctx context.Context) ([]ciptypes.UserPoolDescriptionType, error) {
	var out []ciptypes.UserPoolDescriptionType
	paginator := cognitoidentityprovider.NewListUserPoolsPaginator(p.cognito, &cognitoidentityprovider.ListUserPoolsInput{
		MaxResults: aws.Int32(60),
	})
	for paginator.HasMorePages() {
		var page *cognitoidentityprovider.ListUserPoolsOutput
		err := p.call(ctx, "cognitoidentityprovider", classCognito, "ListUserPools", func() error {
			var innerErr error
			page, innerErr = paginator.NextPage(ctx)
			return innerErr
		})
		if err != nil {
			return nil, err
		}
		out = append(out, page.UserPools...)
	}
	return out, nil
}

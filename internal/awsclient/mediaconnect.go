package awsclient

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/mediaconnect"
	mctypes "github.com/aws/aws-sdk-go-v2/service/mediaconnect/types"

	"github.com/rcourtman/cloud-discovery-engine/internal/throttle"
)

// Flows lists media-flow entities, a Tier A regional batch resource.
func (p *ProviderClient) Flows(ctx context.Context) ([]mctypes.ListedFlow, error) {
	var out []mctypes.ListedFlow
	var nextToken *string
	for {
		var page *mediaconnect.ListFlowsOutput
		err := p.call(ctx, "mediaconnect", throttle.ClassMediaConnectList, "ListFlows", func() error {
			var innerErr error
			page, innerErr = p.mediaconnect.ListFlows(ctx, &mediaconnect.ListFlowsInput{NextToken: nextToken})
			return innerErr
		})
		if err != nil {
			return nil, err
		}
		out = append(out, page.Flows...)
		if page.NextToken == nil {
			break
		}
		nextToken = page.NextToken
	}
	return out, nil
}

package awsclient

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/rcourtman/cloud-discovery-engine/internal/throttle"
)

const classSNS throttle.Class = "sns-list-subscriptions"

// SubscriptionsByTopic lists subscriptions on topicArn, consumed by the
// snsSubscriptions batch inference handler.
func (p *ProviderClient) SubscriptionsByTopic(ctx context.Context, topicArn string) ([]snstypes.Subscription, error) {
	var out []snstypes.Subscription
	var nextToken *string
	for {
		var page *sns.ListSubscriptionsByTopicOutput
		err := p.call(ctx, "sns", classSNS, "ListSubscriptionsByTopic", func() error {
			var innerErr error
			page, innerErr = p.sns.ListSubscriptionsByTopic(ctx, &sns.ListSubscriptionsByTopicInput{
				TopicArn: aws.String(topicArn),
				NextToken: nextToken,
			})
			return innerErr
		})
		if err != nil {
			return nil, err
		}
		out = append(out, page.Subscriptions...)
		if page.NextToken == nil {
			break
		}
		nextToken = page.NextToken
	}
	return out, nil
}

package awsclient

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	ebtypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"

	"github.com/rcourtman/cloud-discovery-engine/internal/throttle"
)

const classEventBridge throttle.Class = "eventbridge-list-rules"

// RulesForBus lists the rules registered on an event bus, populating
// eventBusRuleMap.
func (p *ProviderClient) RulesForBus(ctx context.Context, busName string) ([]ebtypes.Rule, error) {
	var out []ebtypes.Rule
	var nextToken *string
	for {
		var page *eventbridge.ListRulesOutput
		err := p.call(ctx, "eventbridge", classEventBridge, "ListRules", func() error {
			var innerErr error
			page, innerErr = p.eventbridge.ListRules(ctx, &eventbridge.ListRulesInput{EventBusName: aws.String(busName), NextToken: nextToken})
			return innerErr
		})
		if err != nil {
			return nil, err
		}
		out = append(out, page.Rules...)
		if page.NextToken == nil {
			break
		}
		nextToken = page.NextToken
	}
	return out, nil
}

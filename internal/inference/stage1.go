package inference

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/rcourtman/cloud-discovery-engine/internal/model"
)

// RunStage1 runs the fixed batch handlers for one (account, region) pair
// concurrently, collecting every handler's failures without letting one
// abort the others (Promise.allSettled semantics).
func RunStage1(ctx context.Context, client Client, maps *model.LookupMaps, accountID, region string, resources []*model.Resource) []error {
	handlers := []func(context.Context, Client, *model.LookupMaps, []*model.Resource) error{
		eventSources,
		functions,
		snsSubscriptions,
		transitGatewayVpcAttachments,
		eventBusRules,
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs []error
	names := []string{"eventSources", "functions", "snsSubscriptions", "transitGatewayVpcAttachments", "eventBusRules"}

	for i, handler := range handlers {
		wg.Add(1)
		go func(name string, h func(context.Context, Client, *model.LookupMaps, []*model.Resource) error) {
			defer wg.Done()
			if err := h(ctx, client, maps, resources); err != nil {
				mu.Lock()
				errs = append(errs, &handlerError{HandlerName: name, AccountID: accountID, Region: region, Err: err})
				mu.Unlock()
			}
		}(names[i], handler)
	}
	wg.Wait()
	return errs
}

func byType(resources []*model.Resource, resourceType string) []*model.Resource {
	var out []*model.Resource
	for _, r := range resources {
		if r.ResourceType == resourceType {
			out = append(out, r)
		}
	}
	return out
}

// eventSources adds `lambda associated-with source` edges for each
// function's stream/queue event source mappings.
func eventSources(ctx context.Context, client Client, maps *model.LookupMaps, resources []*model.Resource) error {
	for _, fn := range byType(resources, "lambda-function") {
		mappings, err := client.EventSourceMappings(ctx, fn.ResourceName)
		if err != nil {
			return err
		}
		for _, m := range mappings {
			if arn := aws.ToString(m.EventSourceArn); arn != "" {
				fn.AddRelationship(arn, "associated-with")
			}
		}
	}
	return nil
}

// functions resolves each function's environment-variable values via the
// shared environment-variable inference rule.
func functions(ctx context.Context, client Client, maps *model.LookupMaps, resources []*model.Resource) error {
	for _, fn := range byType(resources, "lambda-function") {
		cfg, err := client.GetFunctionConfiguration(ctx, fn.ResourceName)
		if err != nil {
			return err
		}
		if cfg == nil || cfg.Environment == nil {
			continue
		}
		for key, value := range cfg.Environment.Variables {
			inferEnvVarEdge(fn, maps, fn.AccountID, key, value)
		}
	}
	return nil
}

// snsSubscriptions adds `topic associated-with endpoint` edges when both the
// topic and the subscription's endpoint are known resources.
func snsSubscriptions(ctx context.Context, client Client, maps *model.LookupMaps, resources []*model.Resource) error {
	for _, topic := range byType(resources, "sns-topic") {
		subs, err := client.SubscriptionsByTopic(ctx, topic.ResourceID)
		if err != nil {
			return err
		}
		for _, sub := range subs {
			endpoint := aws.ToString(sub.Endpoint)
			if targetID, ok := maps.EndpointToID[endpoint]; ok {
				topic.AddRelationship(targetID, "associated-with")
				continue
			}
			if targetID, ok := maps.ResourceIdentifierToID[resourceIdentifierKey("sqs-queue", endpoint, topic.AccountID, topic.Region)]; ok {
				topic.AddRelationship(targetID, "associated-with")
			}
		}
	}
	return nil
}

// transitGatewayVpcAttachments augments the provider's attachment record
// with owner-account information and adds the attached-to/associated-with
// triple names.
func transitGatewayVpcAttachments(ctx context.Context, client Client, maps *model.LookupMaps, resources []*model.Resource) error {
	for _, att := range byType(resources, "transit-gateway-attachment") {
		live, found, err := client.DescribeTransitGatewayAttachment(ctx, att.ResourceID)
		if err != nil {
			return err
		}
		if !found {
			continue
		}
		if att.Configuration == nil {
			att.Configuration = map[string]any{}
		}
		att.Configuration["ResourceOwnerId"] = aws.ToString(live.ResourceOwnerId)

		gatewayArn := fmt.Sprintf("arn:aws:ec2:%s:%s:transit-gateway/%s", att.Region, att.AccountID, aws.ToString(live.TransitGatewayId))
		att.AddRelationship(gatewayArn, "attached-to")

		vpcArn := fmt.Sprintf("arn:aws:ec2:%s:%s:vpc/%s", att.Region, att.AccountID, aws.ToString(live.VpcId))
		att.AddRelationship(vpcArn, "associated-with")

		for _, subnetID := range live.SubnetIds {
			subnetArn := fmt.Sprintf("arn:aws:ec2:%s:%s:subnet/%s", att.Region, att.AccountID, subnetID)
			att.AddRelationship(subnetArn, "associated-with")
		}
	}
	return nil
}

// eventBusRules populates eventBusRuleMap for every event bus in this
// (account, region), feeding stage 2's event-bus hard-coded handler.
func eventBusRules(ctx context.Context, client Client, maps *model.LookupMaps, resources []*model.Resource) error {
	for _, bus := range byType(resources, "eventbridge-eventbus") {
		rules, err := client.RulesForBus(ctx, bus.ResourceName)
		if err != nil {
			return err
		}
		ruleIDs := make([]string, 0, len(rules))
		for _, rule := range rules {
			ruleIDs = append(ruleIDs, aws.ToString(rule.Arn))
		}
		maps.EventBusRuleMap[bus.ID] = ruleIDs
	}
	return nil
}

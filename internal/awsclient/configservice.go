package awsclient

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/configservice"
	cstypes "github.com/aws/aws-sdk-go-v2/service/configservice/types"

	"github.com/rcourtman/cloud-discovery-engine/internal/throttle"
)

// AggregateQuery issues one advanced aggregate query expressed in the
// aggregator's SQL dialect and accumulates every JSON page. The
// caller supplies the already-built expression (excluded resource types
// interpolated by internal/aggregator).
func (p *ProviderClient) AggregateQuery(ctx context.Context, aggregatorName, expression string) ([]json.RawMessage, error) {
	var results []json.RawMessage
	var nextToken *string

	for {
		var out *configservice.SelectAggregateResourceConfigOutput
		err := p.call(ctx, "configservice", throttle.ClassConfigSelectAggregate, "SelectAggregateResourceConfig", func() error {
			var innerErr error
			out, innerErr = p.configservice.SelectAggregateResourceConfig(ctx, &configservice.SelectAggregateResourceConfigInput{
				Expression: aws.String(expression),
				ConfigurationAggregatorName: aws.String(aggregatorName),
				Limit: 100,
				NextToken: nextToken,
			})
			return innerErr
		})
		if err != nil {
			return nil, err
		}
		for _, r := range out.Results {
			results = append(results, json.RawMessage(r))
		}
		if out.NextToken == nil || aws.ToString(out.NextToken) == "" {
			break
		}
		nextToken = out.NextToken
	}

	return results, nil
}

// BatchGetAggregateResourceConfig fetches full configuration items for a
// batch of resource keys in one call (batchGetAggregate class).
func (p *ProviderClient) BatchGetAggregateResourceConfig(ctx context.Context, aggregatorName string, keys []cstypes.AggregateResourceIdentifier) ([]cstypes.BaseConfigurationItem, error) {
	var out *configservice.BatchGetAggregateResourceConfigOutput
	err := p.call(ctx, "configservice", throttle.ClassConfigBatchGet, "BatchGetAggregateResourceConfig", func() error {
		var innerErr error
		out, innerErr = p.configservice.BatchGetAggregateResourceConfig(ctx, &configservice.BatchGetAggregateResourceConfigInput{
			ConfigurationAggregatorName: aws.String(aggregatorName),
			ResourceIdentifiers: keys,
		})
		return innerErr
	})
	if err != nil {
		return nil, err
	}
	return out.BaseConfigurationItems, nil
}

// AggregatorStatus describes whether a configuration aggregator exists and,
// if so, whether it is organization-sourced (preflight check).
type AggregatorStatus struct {
	Exists bool
	HasOrganizationAggregationSource bool
}

func (p *ProviderClient) DescribeConfigurationAggregator(ctx context.Context, name string) (AggregatorStatus, error) {
	var out *configservice.DescribeConfigurationAggregatorsOutput
	err := p.call(ctx, "configservice", throttle.Class("configservice-describe-aggregators"), "DescribeConfigurationAggregators", func() error {
		var innerErr error
		out, innerErr = p.configserviceDefault.DescribeConfigurationAggregators(ctx, &configservice.DescribeConfigurationAggregatorsInput{
			ConfigurationAggregatorNames: []string{name},
		})
		return innerErr
	})
	if err != nil {
		var notFound *cstypes.NoSuchConfigurationAggregatorException
		if errors.As(err, &notFound) {
			return AggregatorStatus{}, nil
		}
		return AggregatorStatus{}, err
	}
	if len(out.ConfigurationAggregators) == 0 {
		return AggregatorStatus{}, nil
	}
	agg := out.ConfigurationAggregators[0]
	return AggregatorStatus{
		Exists: true,
		HasOrganizationAggregationSource: agg.OrganizationAggregationSource != nil,
	}, nil
}

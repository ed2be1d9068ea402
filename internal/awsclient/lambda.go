package awsclient

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"

	"github.com/rcourtman/cloud-discovery-engine/internal/throttle"
)

const classLambda throttle.Class = "lambda-reads"

// EventSourceMappings lists a function's stream/queue event sources, the
// source of the eventSources batch inference handler's lambda
// associated-with source edges.
func (p *ProviderClient) EventSourceMappings(ctx context.Context, functionName string) ([]lambdatypes.EventSourceMappingConfiguration, error) {
	var out []lambdatypes.EventSourceMappingConfiguration
	var marker *string
	for {
		var page *lambda.ListEventSourceMappingsOutput
		err := p.call(ctx, "lambda", classLambda, "ListEventSourceMappings", func() error {
			var innerErr error
			page, innerErr = p.lambda.ListEventSourceMappings(ctx, &lambda.ListEventSourceMappingsInput{
				FunctionName: aws.String(functionName),
				Marker: marker,
			})
			return innerErr
		})
		if err != nil {
			return nil, err
		}
		out = append(out, page.EventSourceMappings...)
		if page.NextMarker == nil {
			break
		}
		marker = page.NextMarker
	}
	return out, nil
}

// GetFunctionConfiguration fetches a function's environment variables and
// role ARN, consumed by the functions batch inference handler.
func (p *ProviderClient) GetFunctionConfiguration(ctx context.Context, functionName string) (*lambda.GetFunctionConfigurationOutput, error) {
	var out *lambda.GetFunctionConfigurationOutput
	err := p.call(ctx, "lambda", classLambda, "GetFunctionConfiguration", func() error {
		var innerErr error
		out, innerErr = p.lambda.GetFunctionConfiguration(ctx, &lambda.GetFunctionConfigurationInput{FunctionName: aws.String(functionName)})
		return innerErr
	})
	return out, err
}

// Package awsclient is the ProviderClient of the discovery engine: a set of
// rate-limited, paginated, retried adapters over the cloud provider's service
// APIs. Every adapter is constructed from (credentials, region), shares the
// caller's throttle.Registry bucket for its operation class, and records its
// outcome against a per-service circuit.Breaker.
//
// Follows the "one typed adapter per backend, every call centrally
// instrumented" shape used elsewhere for provider-style clients: one
// interface-shaped adapter per service, constructed with credentials and a
// region, with response-header/error-code throttling signals funneled
// through CategorizeError in internal/circuit.
package awsclient

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/apigateway"
	"github.com/aws/aws-sdk-go-v2/service/appsync"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	configservice "github.com/aws/aws-sdk-go-v2/service/configservice"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodbstreams"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/efs"
	"github.com/aws/aws-sdk-go-v2/service/eks"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/mediaconnect"
	"github.com/aws/aws-sdk-go-v2/service/opensearchservice"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/servicecatalogappregistry"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/rs/zerolog/log"

	"github.com/rcourtman/cloud-discovery-engine/internal/circuit"
	"github.com/rcourtman/cloud-discovery-engine/internal/discoveryerrors"
	"github.com/rcourtman/cloud-discovery-engine/internal/throttle"
)

// Identity names the credentials principal a ProviderClient was minted for;
// it is the second component of the throttle.Registry's memoization key.
type Identity string

// ProviderClient bundles every per-service adapter minted for one
// (credentials, region) pair.
type ProviderClient struct {
	accountID string
	region string
	identity Identity

	awsConfig aws.Config

	throttles *throttle.Registry
	breakers map[string]*circuit.Breaker

	apigateway *apigateway.Client
	appsync *appsync.Client
	autoscaling *autoscaling.Client
	cognito *cognitoidentityprovider.Client
	configservice *configservice.Client
	configserviceDefault *configservice.Client
	dynamodb *dynamodb.Client
	dynamostreams *dynamodbstreams.Client
	ec2 *ec2.Client
	ecs *ecs.Client
	efs *efs.Client
	eks *eks.Client
	elbv2 *elasticloadbalancingv2.Client
	eventbridge *eventbridge.Client
	iam *iam.Client
	lambda *lambda.Client
	mediaconnect *mediaconnect.Client
	opensearch *opensearchservice.Client
	organizations *organizations.Client
	rds *rds.Client
	appregistry *servicecatalogappregistry.Client
	sns *sns.Client
	sts *sts.Client
}

// ResolveConfig builds the aws.Config a regional ProviderClient is minted
// from: the assumed-role session's static credentials, pinned to region, with
// customUserAgent attached to every call ("customUserAgent —
// attached to every provider call").
func ResolveConfig(ctx context.Context, region string, creds AssumedCredentials, customUserAgent string) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(awscreds.NewStaticCredentialsProvider(
			creds.AccessKeyID, creds.SecretAccessKey, creds.SessionToken,
		)),
	}
	if customUserAgent != "" {
		opts = append(opts, awsconfig.WithAppID(customUserAgent))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}

// New constructs a ProviderClient from a resolved aws.Config (already carrying
// the assumed-role credentials, the region, and the custom user agent),
// sharing the process-wide throttle registry.
func New(accountID, region string, identity Identity, cfg aws.Config, throttles *throttle.Registry) *ProviderClient {
	cfg = cfg.Copy()
	cfg.Retryer = func() aws.Retryer { return newDefaultRetryer() }

	aggregatorCfg := cfg.Copy()
	aggregatorCfg.Retryer = func() aws.Retryer { return newAggregatorRetryer() }

	return &ProviderClient{
		accountID: accountID,
		region: region,
		identity: identity,
		awsConfig: cfg,
		throttles: throttles,
		breakers: make(map[string]*circuit.Breaker),

		apigateway: apigateway.NewFromConfig(cfg),
		appsync: appsync.NewFromConfig(cfg),
		autoscaling: autoscaling.NewFromConfig(cfg),
		cognito: cognitoidentityprovider.NewFromConfig(cfg),
		configservice: configservice.NewFromConfig(aggregatorCfg),
		configserviceDefault: configservice.NewFromConfig(cfg),
		dynamodb: dynamodb.NewFromConfig(cfg),
		dynamostreams: dynamodbstreams.NewFromConfig(cfg),
		ec2: ec2.NewFromConfig(cfg),
		ecs: ecs.NewFromConfig(cfg),
		efs: efs.NewFromConfig(cfg),
		eks: eks.NewFromConfig(cfg),
		elbv2: elasticloadbalancingv2.NewFromConfig(cfg),
		eventbridge: eventbridge.NewFromConfig(cfg),
		iam: iam.NewFromConfig(cfg),
		lambda: lambda.NewFromConfig(cfg),
		mediaconnect: mediaconnect.NewFromConfig(cfg),
		opensearch: opensearchservice.NewFromConfig(cfg),
		organizations: organizations.NewFromConfig(cfg),
		rds: rds.NewFromConfig(cfg),
		appregistry: servicecatalogappregistry.NewFromConfig(cfg),
		sns: sns.NewFromConfig(cfg),
		sts: sts.NewFromConfig(cfg),
	}
}

func (p *ProviderClient) breaker(service string) *circuit.Breaker {
	b, ok := p.breakers[service]
	if !ok {
		b = circuit.NewBreaker(service, circuit.DefaultConfig())
		p.breakers[service] = b
	}
	return b
}

// call centrally instruments every adapter operation: it waits on the shared
// throttle bucket for class, runs op under this service's circuit breaker,
// and translates an access-denied signal into the typed taxonomy so it is
// first-class and observable via a structured error kind.
func (p *ProviderClient) call(ctx context.Context, service string, class throttle.Class, operation string, op func() error) error {
	if err := p.throttles.Wait(ctx, class, string(p.identity), p.region); err != nil {
		return fmt.Errorf("awsclient: throttle wait for %s: %w", operation, err)
	}

	b := p.breaker(service)
	err := b.Execute(op)
	if err == nil {
		return nil
	}
	if circuit.IsCircuitOpen(err) {
		log.Warn().Str("service", service).Str("operation", operation).Str("account_id", p.accountID).Msg("circuit open, skipping call")
		return err
	}

	if circuit.CategorizeError(err) == circuit.ErrorCategoryAccessDenied {
		return discoveryerrors.AccessDenied(operation, err)
	}
	return fmt.Errorf("awsclient: %s.%s: %w", service, operation, err)
}

func (p *ProviderClient) Region() string { return p.region }
func (p *ProviderClient) AccountID() string { return p.accountID }

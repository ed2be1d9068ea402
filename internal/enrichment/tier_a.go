package enrichment

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/rs/zerolog/log"

	"github.com/rcourtman/cloud-discovery-engine/internal/model"
)

// Tier A resource types. Every type here is in model's change-detection hash
// set except appregistry-application and mediaconnect-flow, which the
// aggregator would otherwise surface on its own capture-time cadence were
// they recorded resource types.
const (
	resourceTypeAppRegistryApplication = "appregistry-application"
	resourceTypeMediaConnectFlow = "mediaconnect-flow"
	resourceTypeManagedPolicy = "managed-policy"
	resourceTypeTargetGroup = "elbv2-target-group"
	resourceTypeSpot = "spot"
	resourceTypeSpotFleet = "spot-fleet"
	resourceTypeSearchDomain = "search-domain"
)

// managedPoliciesAccountID is the synthetic owner of AWS-managed policies:
// global, accountId = aws.
const managedPoliciesAccountID = "aws"

type tierAHandlerFunc func(ctx context.Context, client TierAClient, accountID, region string) ([]*model.Resource, error)

// regionalTierAHandlers run once per (account, region) pair.
var regionalTierAHandlers = map[string]tierAHandlerFunc{
	"appRegistryApplications": appRegistryApplications,
	"mediaConnectFlows": mediaConnectFlows,
	"targetGroups": targetGroups,
	"spotRequests": spotRequests,
	"searchDomains": searchDomains,
}

// globalTierAHandlers run once per account, against any one of its regional
// clients, since the resources they return are account-global.
var globalTierAHandlers = map[string]tierAHandlerFunc{
	"managedPolicies": managedPolicies,
}

// RunTierA runs every regional Tier A batch handler concurrently for one
// (account, region) pair.
func RunTierA(ctx context.Context, client TierAClient, accountID, region string) ([]*model.Resource, []error) {
	return runTierAHandlers(ctx, client, accountID, region, regionalTierAHandlers)
}

// RunTierAGlobal runs the account-global Tier A batch handlers once per
// account.
func RunTierAGlobal(ctx context.Context, client TierAClient, accountID string) ([]*model.Resource, []error) {
	return runTierAHandlers(ctx, client, accountID, "global", globalTierAHandlers)
}

func runTierAHandlers(ctx context.Context, client TierAClient, accountID, region string, handlers map[string]tierAHandlerFunc) ([]*model.Resource, []error) {
	var mu sync.Mutex
	var resources []*model.Resource
	var errs []error
	var wg sync.WaitGroup

	for name, handler := range handlers {
		wg.Add(1)
		go func(name string, handler tierAHandlerFunc) {
			defer wg.Done()
			out, err := handler(ctx, client, accountID, region)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Warn().Str("handlerName", name).Str("accountId", accountID).Str("region", region).Err(err).Msg("tier A handler failed")
				errs = append(errs, &handlerError{HandlerName: name, AccountID: accountID, Region: region, Err: err})
				return
			}
			resources = append(resources, out...)
		}(name, handler)
	}
	wg.Wait()
	return resources, errs
}

func appRegistryApplications(ctx context.Context, client TierAClient, accountID, region string) ([]*model.Resource, error) {
	apps, err := client.Applications(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Resource, 0, len(apps))
	for _, a := range apps {
		out = append(out, &model.Resource{
			ID: aws.ToString(a.Arn),
			AccountID: accountID,
			Region: region,
			ResourceType: resourceTypeAppRegistryApplication,
			ResourceID: aws.ToString(a.Id),
			ResourceName: aws.ToString(a.Name),
		})
	}
	return out, nil
}

func mediaConnectFlows(ctx context.Context, client TierAClient, accountID, region string) ([]*model.Resource, error) {
	flows, err := client.Flows(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Resource, 0, len(flows))
	for _, f := range flows {
		out = append(out, &model.Resource{
			ID: aws.ToString(f.FlowArn),
			AccountID: accountID,
			Region: region,
			ResourceType: resourceTypeMediaConnectFlow,
			ResourceName: aws.ToString(f.Name),
		})
	}
	return out, nil
}

func managedPolicies(ctx context.Context, client TierAClient, accountID, region string) ([]*model.Resource, error) {
	policies, err := client.ManagedPolicies(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Resource, 0, len(policies))
	for _, p := range policies {
		out = append(out, &model.Resource{
			ID: aws.ToString(p.Arn),
			AccountID: managedPoliciesAccountID,
			Region: "global",
			ResourceType: resourceTypeManagedPolicy,
			ResourceID: aws.ToString(p.PolicyId),
			ResourceName: aws.ToString(p.PolicyName),
		})
	}
	return out, nil
}

func targetGroups(ctx context.Context, client TierAClient, accountID, region string) ([]*model.Resource, error) {
	groups, err := client.TargetGroups(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Resource, 0, len(groups))
	for _, g := range groups {
		r := &model.Resource{
			ID: aws.ToString(g.TargetGroupArn),
			AccountID: accountID,
			Region: region,
			ResourceType: resourceTypeTargetGroup,
			ResourceID: aws.ToString(g.TargetGroupArn),
			ResourceName: aws.ToString(g.TargetGroupName),
			VpcID: aws.ToString(g.VpcId),
		}
		for _, lbArn := range g.LoadBalancerArns {
			r.AddRelationship(lbArn, "associated-with")
		}
		out = append(out, r)
	}
	return out, nil
}

func spotInstanceArn(accountID, region, requestID string) string {
	return fmt.Sprintf("arn:aws:ec2:%s:%s:spot-instances-request/%s", region, accountID, requestID)
}

func spotFleetArn(accountID, region, requestID string) string {
	return fmt.Sprintf("arn:aws:ec2:%s:%s:spot-fleet-request/%s", region, accountID, requestID)
}

// spotRequests covers both spot-instance requests and spot-fleet requests.
// A fleet's "launched in its name" instances are resolved via the dedicated
// DescribeSpotFleetInstances API rather than a tag scan, since AWS already
// exposes the mapping the fleet-id tag would otherwise have to reconstruct.
func spotRequests(ctx context.Context, client TierAClient, accountID, region string) ([]*model.Resource, error) {
	var out []*model.Resource

	instanceRequests, err := client.SpotInstanceRequests(ctx)
	if err != nil {
		return nil, err
	}
	for _, sr := range instanceRequests {
		requestID := aws.ToString(sr.SpotInstanceRequestId)
		out = append(out, &model.Resource{
			ID: spotInstanceArn(accountID, region, requestID),
			AccountID: accountID,
			Region: region,
			ResourceType: resourceTypeSpot,
			ResourceID: requestID,
		})
	}

	fleets, err := client.SpotFleetRequests(ctx)
	if err != nil {
		return nil, err
	}
	for _, f := range fleets {
		requestID := aws.ToString(f.SpotFleetRequestId)
		fleetResource := &model.Resource{
			ID: spotFleetArn(accountID, region, requestID),
			AccountID: accountID,
			Region: region,
			ResourceType: resourceTypeSpotFleet,
			ResourceID: requestID,
		}
		instances, instErr := client.SpotFleetInstances(ctx, requestID)
		if instErr != nil {
			log.Warn().Str("spotFleetRequestId", requestID).Err(instErr).Msg("failed to resolve spot-fleet instances")
		} else {
			for _, inst := range instances {
				fleetResource.AddRelationship(spotInstanceInstanceArn(accountID, region, aws.ToString(inst.InstanceId)), "associated-with")
			}
		}
		out = append(out, fleetResource)
	}

	return out, nil
}

func spotInstanceInstanceArn(accountID, region, instanceID string) string {
	return fmt.Sprintf("arn:aws:ec2:%s:%s:instance/%s", region, accountID, instanceID)
}

func searchDomains(ctx context.Context, client TierAClient, accountID, region string) ([]*model.Resource, error) {
	domains, err := client.SearchDomains(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Resource, 0, len(domains))
	for _, d := range domains {
		out = append(out, &model.Resource{
			ID: aws.ToString(d.ARN),
			AccountID: accountID,
			Region: region,
			ResourceType: resourceTypeSearchDomain,
			ResourceID: aws.ToString(d.DomainId),
			ResourceName: aws.ToString(d.DomainName),
		})
	}
	return out, nil
}

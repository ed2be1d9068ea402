// Package initializer runs a three-step preflight:
// network reachability, mutual exclusion against a concurrent run, and
// (in organization mode) aggregator validation.
//
// Follows the same startup-sequence idiom used for other long-running
// processes in this style: a short series of checks run before entering the
// main loop, aborting on the first hard failure; here each step produces one
// of the typed preflight errors instead of a bare os.Exit.
package initializer

import (
	"context"
	"net"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rcourtman/cloud-discovery-engine/internal/discoveryerrors"
)

const endpointProbeTimeout = 5 * time.Second

// Endpoints is the fixed list of service endpoints the VPC reachability probe
// checks: identity, STS, config, gateway, compute, containers,
// identity-aware, search, logs, the graph-store endpoint, and — only if
// organization mode is active — the organizations endpoint.
type Endpoints struct {
	IAM string
	STS string
	ConfigService string
	Gateway string
	EC2 string
	Containers string
	IdentityAware string
	Search string
	Logs string
	GraphStore string
	Organizations string // only probed when organizationMode is true
}

// Dialer abstracts the network probe so tests don't need a live network.
type Dialer interface {
	DialTimeout(network, address string, timeout time.Duration) (net.Conn, error)
}

type netDialer struct{}

func (netDialer) DialTimeout(network, address string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout(network, address, timeout)
}

// ProbeReachability dials every required endpoint with a 5s timeout,
// returning a VpcConfigurationValidation error carrying every unreachable
// service name, or nil if all succeeded.
func ProbeReachability(ctx context.Context, dialer Dialer, endpoints Endpoints, organizationMode bool) error {
	if dialer == nil {
		dialer = netDialer{}
	}

	targets := map[string]string{
		"iam": endpoints.IAM,
		"sts": endpoints.STS,
		"config": endpoints.ConfigService,
		"gateway": endpoints.Gateway,
		"ec2": endpoints.EC2,
		"containers": endpoints.Containers,
		"identity-aware": endpoints.IdentityAware,
		"search": endpoints.Search,
		"logs": endpoints.Logs,
		"graph-store": endpoints.GraphStore,
	}
	if organizationMode {
		targets["organizations"] = endpoints.Organizations
	}

	var unreachable []string
	for name, address := range targets {
		if address == "" {
			continue
		}
		conn, err := dialer.DialTimeout("tcp", address, endpointProbeTimeout)
		if err != nil {
			log.Warn().Str("service", name).Str("address", address).Err(err).Msg("endpoint unreachable during preflight")
			unreachable = append(unreachable, name)
			continue
		}
		conn.Close()
	}

	if len(unreachable) > 0 {
		return discoveryerrors.VpcConfigurationValidation(unreachable)
	}
	return nil
}

// TaskInventory abstracts the scheduler's task-listing API for the mutex
// probe (step 2's "two task-definition ARNs compare equal
// ignoring the trailing version segment").
type TaskInventory interface {
	RunningTaskDefinitions(ctx context.Context, clusterName string) ([]string, error)
}

func familyOf(taskDefArn string) string {
	// Strip the trailing ":<version>" segment.
	for i := len(taskDefArn) - 1; i >= 0; i-- {
		if taskDefArn[i] == ':' {
			return taskDefArn[:i]
		}
	}
	return taskDefArn
}

// ProbeMutualExclusion fails with DiscoveryAlreadyRunning if more than one
// task of this process's own task-definition family is currently running in
// clusterName.
func ProbeMutualExclusion(ctx context.Context, inventory TaskInventory, clusterName, selfTaskDefArn string) error {
	running, err := inventory.RunningTaskDefinitions(ctx, clusterName)
	if err != nil {
		return err
	}

	selfFamily := familyOf(selfTaskDefArn)
	count := 0
	for _, arn := range running {
		if familyOf(arn) == selfFamily {
			count++
		}
	}

	if count > 1 {
		return discoveryerrors.DiscoveryAlreadyRunning()
	}
	return nil
}

// AggregatorValidator abstracts the one ConfigService call the aggregator
// validation step needs.
type AggregatorValidator interface {
	DescribeConfigurationAggregator(ctx context.Context, name string) (exists, hasOrgSource bool, err error)
}

// ValidateAggregator fails with AggregatorNotFound or OrgAggregatorValidation
// when organization mode is active and the named aggregator is missing or
// lacks an OrganizationAggregationSource (step 3).
func ValidateAggregator(ctx context.Context, validator AggregatorValidator, aggregatorName string) error {
	exists, hasOrgSource, err := validator.DescribeConfigurationAggregator(ctx, aggregatorName)
	if err != nil {
		return err
	}
	if !exists {
		return discoveryerrors.AggregatorNotFound(aggregatorName)
	}
	if !hasOrgSource {
		return discoveryerrors.OrgAggregatorValidation(aggregatorName)
	}
	return nil
}

package initializer

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/rcourtman/cloud-discovery-engine/internal/discoveryerrors"
)

type fakeDialer struct {
	unreachable map[string]bool
}

func (f fakeDialer) DialTimeout(network, address string, timeout time.Duration) (net.Conn, error) {
	if f.unreachable[address] {
		return nil, errors.New("connection refused")
	}
	return &net.TCPConn{}, nil
}

func TestProbeReachability_AllReachable(t *testing.T) {
	dialer := fakeDialer{}
	endpoints := Endpoints{IAM: "iam.amazonaws.com:443", STS: "sts.amazonaws.com:443"}

	err := ProbeReachability(context.Background(), dialer, endpoints, false)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestProbeReachability_SkipsOrganizationsWhenNotOrgMode(t *testing.T) {
	dialer := fakeDialer{unreachable: map[string]bool{"organizations.amazonaws.com:443": true}}
	endpoints := Endpoints{IAM: "iam.amazonaws.com:443", Organizations: "organizations.amazonaws.com:443"}

	err := ProbeReachability(context.Background(), dialer, endpoints, false)
	if err != nil {
		t.Fatalf("expected organizations endpoint to be skipped in non-org mode, got %v", err)
	}
}

func TestProbeReachability_FatalOnUnreachable(t *testing.T) {
	dialer := fakeDialer{unreachable: map[string]bool{"sts.amazonaws.com:443": true}}
	endpoints := Endpoints{STS: "sts.amazonaws.com:443"}

	err := ProbeReachability(context.Background(), dialer, endpoints, false)
	if err == nil {
		t.Fatal("expected VpcConfigurationValidation error")
	}
	kind, ok := discoveryerrors.AsKind(err)
	if !ok || kind != discoveryerrors.KindVpcConfigurationValidation {
		t.Errorf("expected KindVpcConfigurationValidation, got %v (ok=%v)", kind, ok)
	}
}

type fakeInventory struct {
	running []string
}

func (f fakeInventory) RunningTaskDefinitions(ctx context.Context, clusterName string) ([]string, error) {
	return f.running, nil
}

func TestProbeMutualExclusion_IgnoresVersionSuffix(t *testing.T) {
	inv := fakeInventory{running: []string{
		"arn:aws:ecs:us-east-1:111:task-definition/discovery:3",
		"arn:aws:ecs:us-east-1:111:task-definition/discovery:4",
	}}

	err := ProbeMutualExclusion(context.Background(), inv, "cluster", "arn:aws:ecs:us-east-1:111:task-definition/discovery:4")
	if err == nil {
		t.Fatal("expected DiscoveryAlreadyRunning")
	}
	kind, _ := discoveryerrors.AsKind(err)
	if kind != discoveryerrors.KindDiscoveryAlreadyRunning {
		t.Errorf("expected KindDiscoveryAlreadyRunning, got %v", kind)
	}
}

func TestProbeMutualExclusion_SingleInstanceOK(t *testing.T) {
	inv := fakeInventory{running: []string{"arn:aws:ecs:us-east-1:111:task-definition/discovery:4"}}

	if err := ProbeMutualExclusion(context.Background(), inv, "cluster", "arn:aws:ecs:us-east-1:111:task-definition/discovery:4"); err != nil {
		t.Fatalf("expected no error for a single running instance, got %v", err)
	}
}

type fakeAggregatorValidator struct {
	exists bool
	hasOrgSource bool
}

func (f fakeAggregatorValidator) DescribeConfigurationAggregator(ctx context.Context, name string) (bool, bool, error) {
	return f.exists, f.hasOrgSource, nil
}

func TestValidateAggregator_NotFound(t *testing.T) {
	err := ValidateAggregator(context.Background(), fakeAggregatorValidator{exists: false}, "agg")
	kind, _ := discoveryerrors.AsKind(err)
	if kind != discoveryerrors.KindAggregatorNotFound {
		t.Errorf("expected KindAggregatorNotFound, got %v", kind)
	}
}

func TestValidateAggregator_MissingOrgSource(t *testing.T) {
	err := ValidateAggregator(context.Background(), fakeAggregatorValidator{exists: true, hasOrgSource: false}, "agg")
	kind, _ := discoveryerrors.AsKind(err)
	if kind != discoveryerrors.KindOrgAggregatorValidation {
		t.Errorf("expected KindOrgAggregatorValidation, got %v", kind)
	}
}

func TestValidateAggregator_Valid(t *testing.T) {
	err := ValidateAggregator(context.Background(), fakeAggregatorValidator{exists: true, hasOrgSource: true}, "agg")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

package enrichment

import (
	"context"
	"testing"

	"github.com/rcourtman/cloud-discovery-engine/internal/model"
)

func TestPipeline_Run_TierBConsumesTierABaselineAndOutput(t *testing.T) {
	client := fakeTierAClient{}
	bClient := fakeTierBClient{rolePolicies: []string{"inline-1"}}

	combined := struct {
		fakeTierAClient
		fakeTierBClient
		fakeTierCClient
	}{client, bClient, fakeTierCClient{}}

	pipeline := &Pipeline{
		ClientFor: func(accountID, region string) (ClientSet, bool) {
			return combined, true
		},
	}

	baseline := []*model.Resource{
		{ID: "arn:role", AccountID: "111", Region: "us-east-1", ResourceType: "iam-role", ResourceName: "my-role"},
	}

	out, errs := pipeline.Run(context.Background(), []AccountRegion{{AccountID: "111", Region: "us-east-1"}}, baseline)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	var sawInlinePolicy, sawTag bool
	for _, r := range out {
		if r.ResourceType == "inline-policy" {
			sawInlinePolicy = true
		}
		if r.ResourceType == tagResourceType {
			sawTag = true
		}
	}
	if !sawInlinePolicy {
		t.Error("expected tier B to emit an inline-policy resource for the baseline role")
	}
	_ = sawTag // no tags on the fixture resources; tier D runs but finds none to synthesize
}

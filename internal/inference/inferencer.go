package inference

import (
	"context"

	"github.com/rcourtman/cloud-discovery-engine/internal/awsclient"
	"github.com/rcourtman/cloud-discovery-engine/internal/model"
)

var _ Client = (*awsclient.ProviderClient)(nil)

// AccountRegion identifies one stage-1 batch target, mirroring
// enrichment.AccountRegion.
type AccountRegion struct {
	AccountID string
	Region string
}

// Inferencer runs the RelationshipInferencer over a fully enriched working
// set: build lookup maps once, run stage 1's batched handlers per (account,
// region), run stage 2's per-resource handlers over every resource, then the
// two post-passes.
type Inferencer struct {
	ClientFor ClientResolver
}

// Run mutates resources in place (each handler appends relationships
// directly onto its resource) and returns the collected, non-fatal handler
// errors.
func (inf *Inferencer) Run(ctx context.Context, targets []AccountRegion, resources []*model.Resource) []error {
	maps := BuildLookupMaps(resources)

	var errs []error

	groups := make(map[AccountRegion][]*model.Resource)
	for _, r := range resources {
		key := AccountRegion{AccountID: r.AccountID, Region: r.Region}
		groups[key] = append(groups[key], r)
	}
	for _, target := range targets {
		client, ok := inf.ClientFor(target.AccountID, target.Region)
		if !ok {
			continue
		}
		group := groups[AccountRegion{AccountID: target.AccountID, Region: target.Region}]
		errs = append(errs, RunStage1(ctx, client, maps, target.AccountID, target.Region, group)...)
	}

	for _, target := range targets {
		client, ok := inf.ClientFor(target.AccountID, target.Region)
		if !ok {
			continue
		}
		group := groups[AccountRegion{AccountID: target.AccountID, Region: target.Region}]
		errs = append(errs, RunStage2(ctx, client, maps, group)...)
	}

	NormalizeRelationshipNames(resources, maps)
	BackfillVPCInfo(resources, maps)

	return errs
}

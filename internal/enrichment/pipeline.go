package enrichment

import (
	"context"

	"github.com/rcourtman/cloud-discovery-engine/internal/model"
)

// AccountRegion is one (account, region) pair Tier A's batch handlers run
// against.
type AccountRegion struct {
	AccountID string
	Region string
}

// ClientResolver returns the ClientSet scoped to one (account, region) pair,
// and false if no credentials were resolved for it.
type ClientResolver func(accountID, region string) (ClientSet, bool)

// Pipeline runs EnrichmentPipeline tiers A-D over a resolved accounts-map's
// regional clients.
type Pipeline struct {
	ClientFor ClientResolver
}

// Run executes tiers A-D in order, appending each tier's output to the
// working set before the next tier runs, matching "output of each
// tier is appended to the working set and visible to subsequent tiers."
func (p *Pipeline) Run(ctx context.Context, targets []AccountRegion, baseline []*model.Resource) ([]*model.Resource, []error) {
	var enriched []*model.Resource
	var errs []error

	seenGlobalAccounts := make(map[string]bool)
	for _, target := range targets {
		client, ok := p.ClientFor(target.AccountID, target.Region)
		if !ok {
			continue
		}

		regional, regionalErrs := RunTierA(ctx, client, target.AccountID, target.Region)
		enriched = append(enriched, regional...)
		errs = append(errs, regionalErrs...)

		if !seenGlobalAccounts[target.AccountID] {
			seenGlobalAccounts[target.AccountID] = true
			global, globalErrs := RunTierAGlobal(ctx, client, target.AccountID)
			enriched = append(enriched, global...)
			errs = append(errs, globalErrs...)
		}
	}

	workingSet := make([]*model.Resource, 0, len(baseline)+len(enriched))
	workingSet = append(workingSet, baseline...)
	workingSet = append(workingSet, enriched...)

	tierBOut, tierBErrs := p.runTierB(ctx, workingSet)
	enriched = append(enriched, tierBOut...)
	errs = append(errs, tierBErrs...)
	workingSet = append(workingSet, tierBOut...)

	tierCOut, tierCErrs := p.runTierC(ctx, tierBOut)
	enriched = append(enriched, tierCOut...)
	errs = append(errs, tierCErrs...)
	workingSet = append(workingSet, tierCOut...)

	enriched = append(enriched, RunTierD(workingSet)...)

	return enriched, errs
}

// runTierB groups baseline resources by (account, region) so each group can
// be handed the right regional client, then fans every group through
// RunTierB concurrently.
func (p *Pipeline) runTierB(ctx context.Context, resources []*model.Resource) ([]*model.Resource, []error) {
	groups := groupByAccountRegion(resources)

	var out []*model.Resource
	var errs []error
	for key, group := range groups {
		client, ok := p.ClientFor(key.AccountID, key.Region)
		if !ok {
			continue
		}
		groupOut, groupErrs := RunTierB(ctx, client, group)
		out = append(out, groupOut...)
		errs = append(errs, groupErrs...)
	}
	return out, errs
}

func (p *Pipeline) runTierC(ctx context.Context, resources []*model.Resource) ([]*model.Resource, []error) {
	groups := groupByAccountRegion(resources)

	var out []*model.Resource
	var errs []error
	for key, group := range groups {
		client, ok := p.ClientFor(key.AccountID, key.Region)
		if !ok {
			continue
		}
		groupOut, groupErrs := RunTierC(ctx, client, group)
		out = append(out, groupOut...)
		errs = append(errs, groupErrs...)
	}
	return out, errs
}

func groupByAccountRegion(resources []*model.Resource) map[AccountRegion][]*model.Resource {
	groups := make(map[AccountRegion][]*model.Resource)
	for _, r := range resources {
		key := AccountRegion{AccountID: r.AccountID, Region: r.Region}
		groups[key] = append(groups[key], r)
	}
	return groups
}

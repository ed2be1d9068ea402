package orchestrator

import (
	"context"

	"github.com/rcourtman/cloud-discovery-engine/internal/awsclient"
	"github.com/rcourtman/cloud-discovery-engine/internal/graphstore"
	"github.com/rcourtman/cloud-discovery-engine/internal/model"
)

// aggregatorValidatorAdapter reshapes ProviderClient.DescribeConfigurationAggregator's
// (AggregatorStatus, error) into the (exists, hasOrgSource bool, error) shape
// initializer.AggregatorValidator expects.
type aggregatorValidatorAdapter struct {
	client *awsclient.ProviderClient
}

func (a aggregatorValidatorAdapter) DescribeConfigurationAggregator(ctx context.Context, name string) (bool, bool, error) {
	status, err := a.client.DescribeConfigurationAggregator(ctx, name)
	if err != nil {
		return false, false, err
	}
	return status.Exists, status.HasOrganizationAggregationSource, nil
}

// storedAccountsToModel converts the graph store's wire shape into the
// AccountResolver's stored-view input.
func storedAccountsToModel(stored []graphstore.StoredAccount) map[string]*model.Account {
	out := make(map[string]*model.Account, len(stored))
	for _, s := range stored {
		regions := make([]model.AccountRegion, len(s.Regions))
		for i, r := range s.Regions {
			regions[i] = model.AccountRegion{
				Name: r.Name,
				LastCrawled: r.LastCrawled,
				IsConfigEnabled: r.IsConfigEnabled,
			}
		}
		out[s.AccountID] = &model.Account{
			AccountID: s.AccountID,
			OrganizationID: s.OrganizationID,
			Name: s.Name,
			IsManagementAccount: s.IsManagementAccount,
			IsIamRoleDeployed: s.IsIamRoleDeployed,
			LastCrawled: s.LastCrawled,
			Regions: regions,
		}
	}
	return out
}

// reconcile applies post-persistence correction: ids that never
// landed in either store are dropped, and ids whose delete the search index
// rejected are reinserted using the pre-crawl value read at the start of the
// crawl. The result is the input to rollup.
func reconcile(workingSet []*model.Resource, dbResources map[string]graphstore.StoredResource, failedStores, failedDeletes []string) []*model.Resource {
	failed := make(map[string]bool, len(failedStores))
	for _, id := range failedStores {
		failed[id] = true
	}

	out := make([]*model.Resource, 0, len(workingSet)+len(failedDeletes))
	for _, r := range workingSet {
		if failed[r.ID] {
			continue
		}
		out = append(out, r)
	}
	for _, id := range failedDeletes {
		if stored, ok := dbResources[id]; ok {
			out = append(out, resourceFromStored(stored))
		}
	}
	return out
}

// resourceFromStored rebuilds just enough of a Resource from its stored,
// flattened properties for the RegionMetadataAggregator's rollup: accountId,
// region, and resourceType are the only fields reads.
func resourceFromStored(s graphstore.StoredResource) *model.Resource {
	return &model.Resource{
		ID: s.ID,
		AccountID: s.Properties["accountId"],
		Region: s.Properties["region"],
		ResourceType: s.Properties["resourceType"],
	}
}

// Package regionmeta implements the region-metadata rollup:
// it rolls the reconciled working set up into per-account, per-region,
// per-type counts, attaches the rollup to each account record alongside
// lastCrawled, and — in organization mode — splits the account list into
// add/update/delete buckets for the accounts-specific Persister step that
// follows it in the control flow.
//
// Grounded on internal/accounts' own account-bookkeeping shape (model.Account)
// and on internal/persist's GraphStore seam, reused here rather than
// redeclared, since writing an account record is the same signed-batch write
// internal/persist already wraps.
package regionmeta

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rcourtman/cloud-discovery-engine/internal/graphstore"
	"github.com/rcourtman/cloud-discovery-engine/internal/model"
	"github.com/rcourtman/cloud-discovery-engine/internal/persist"
)

// Aggregate groups resources by (accountId, region, resourceType) and
// produces the rollup for every account with at least one
// resource.
func Aggregate(resources []*model.Resource) map[string]*model.RegionMetadata {
	type regionTypeKey struct {
		accountID, region, resourceType string
	}
	counts := make(map[regionTypeKey]int)
	for _, r := range resources {
		counts[regionTypeKey{r.AccountID, r.Region, r.ResourceType}]++
	}

	regionCounts := make(map[string]map[string]int) // accountId -> region -> count
	typeCounts := make(map[string]map[string]map[string]int) // accountId -> region -> type -> count

	for key, count := range counts {
		if regionCounts[key.accountID] == nil {
			regionCounts[key.accountID] = make(map[string]int)
			typeCounts[key.accountID] = make(map[string]map[string]int)
		}
		regionCounts[key.accountID][key.region] += count
		if typeCounts[key.accountID][key.region] == nil {
			typeCounts[key.accountID][key.region] = make(map[string]int)
		}
		typeCounts[key.accountID][key.region][key.resourceType] += count
	}

	out := make(map[string]*model.RegionMetadata, len(regionCounts))
	for accountID, byRegion := range regionCounts {
		regions := make([]model.RegionMetadataEntry, 0, len(byRegion))
		total := 0
		for region, count := range byRegion {
			total += count

			byType := typeCounts[accountID][region]
			types := make([]model.ResourceTypeCount, 0, len(byType))
			for t, c := range byType {
				types = append(types, model.ResourceTypeCount{Type: t, Count: c})
			}
			sort.Slice(types, func(i, j int) bool { return types[i].Type < types[j].Type })

			regions = append(regions, model.RegionMetadataEntry{Name: region, Count: count, ResourceTypes: types})
		}
		sort.Slice(regions, func(i, j int) bool { return regions[i].Name < regions[j].Name })

		out[accountID] = &model.RegionMetadata{Count: total, Regions: regions}
	}
	return out
}

// Attach sets ResourcesRegionMetadata on every account that has a rollup,
// and advances LastCrawled only for accounts with a deployed trust role
// ( invariant 8: an account with isIamRoleDeployed = false never
// has lastCrawled advanced in the same crawl).
func Attach(accounts map[string]*model.Account, metadata map[string]*model.RegionMetadata, crawledAt time.Time) {
	for accountID, acct := range accounts {
		if rollup, ok := metadata[accountID]; ok {
			acct.ResourcesRegionMetadata = rollup
		}
		if acct.IsIamRoleDeployed {
			acct.LastCrawled = crawledAt.UTC().Format(time.RFC3339)
		}
	}
}

// SplitBuckets splits the account list into add/update/delete buckets by
// ToDelete and the presence of LastCrawled (organization-mode
// bucketing): an account marked ToDelete goes to the delete bucket; an
// account with no prior LastCrawled is new and goes to the add bucket;
// everything else is an update.
func SplitBuckets(accounts map[string]*model.Account) (toAdd, toUpdate, toDelete []*model.Account) {
	for _, acct := range accounts {
		switch {
		case acct.ToDelete:
			toDelete = append(toDelete, acct)
		case acct.LastCrawled == "":
			toAdd = append(toAdd, acct)
		default:
			toUpdate = append(toUpdate, acct)
		}
	}
	return toAdd, toUpdate, toDelete
}

// PersistAccounts writes the three buckets to the graph store with
// settled-all semantics: every bucket's write is attempted regardless of
// whether another bucket's write failed, and every error is returned.
func PersistAccounts(ctx context.Context, store persist.GraphStore, toAdd, toUpdate, toDelete []*model.Account) []error {
	var mu sync.Mutex
	var errs []error
	collect := func(err error) {
		if err == nil {
			return
		}
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	var wg sync.WaitGroup
	writeBucket := func(operation string, items []map[string]any) {
		defer wg.Done()
		if len(items) == 0 {
			return
		}
		if err := store.Write(ctx, graphstore.WriteBatch{Operation: operation, Items: items}); err != nil {
			log.Error().Err(err).Str("operation", operation).Msg("account batch failed")
			collect(err)
		}
	}

	wg.Add(3)
	go writeBucket("addAccounts", accountsToItems(toAdd))
	go writeBucket("updateAccounts", accountsToItems(toUpdate))
	go writeBucket("deleteAccounts", deleteItems(toDelete))
	wg.Wait()

	return errs
}

func accountsToItems(accounts []*model.Account) []map[string]any {
	items := make([]map[string]any, len(accounts))
	for i, a := range accounts {
		persisted := a.ForPersistence()
		item := map[string]any{
			"accountId": persisted.AccountID,
			"organizationId": persisted.OrganizationID,
			"name": persisted.Name,
			"isManagementAccount": persisted.IsManagementAccount,
			"isIamRoleDeployed": persisted.IsIamRoleDeployed,
			"lastCrawled": persisted.LastCrawled,
			"regions": persisted.Regions,
		}
		if persisted.ResourcesRegionMetadata != nil {
			item["resourcesRegionMetadata"] = persisted.ResourcesRegionMetadata
		}
		items[i] = item
	}
	return items
}

func deleteItems(accounts []*model.Account) []map[string]any {
	items := make([]map[string]any, len(accounts))
	for i, a := range accounts {
		items[i] = map[string]any{"accountId": a.AccountID}
	}
	return items
}

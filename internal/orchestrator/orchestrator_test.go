package orchestrator

import (
	"testing"

	"github.com/rcourtman/cloud-discovery-engine/internal/graphstore"
	"github.com/rcourtman/cloud-discovery-engine/internal/model"
)

func TestRegionTargets_SkipsDisabledRegions(t *testing.T) {
	eligible := map[string]*model.Account{
		"111111111111": {
			AccountID: "111111111111",
			Regions: []model.AccountRegion{
				{Name: "us-east-1", IsConfigEnabled: true},
				{Name: "eu-west-1", IsConfigEnabled: false},
			},
		},
		"222222222222": {
			AccountID: "222222222222",
			Regions: []model.AccountRegion{
				{Name: "us-east-1", IsConfigEnabled: true},
			},
		},
	}

	got := regionTargets(eligible)
	if len(got) != 2 {
		t.Fatalf("regionTargets = %v, want 2 entries", got)
	}

	seen := map[accountRegion]bool{}
	for _, ar := range got {
		seen[ar] = true
	}
	if !seen[accountRegion{AccountID: "111111111111", Region: "us-east-1"}] {
		t.Error("missing enabled region for account 111111111111")
	}
	if !seen[accountRegion{AccountID: "222222222222", Region: "us-east-1"}] {
		t.Error("missing enabled region for account 222222222222")
	}
	if seen[accountRegion{AccountID: "111111111111", Region: "eu-west-1"}] {
		t.Error("disabled region eu-west-1 should not be a target")
	}
}

func TestReconcile_DropsFailedStoresAndReinsertsFailedDeletes(t *testing.T) {
	workingSet := []*model.Resource{
		{ID: "kept-1"},
		{ID: "dropped-because-store-failed"},
		{ID: "kept-2"},
	}
	dbResources := map[string]graphstore.StoredResource{
		"reinserted-because-delete-failed": {
			ID: "reinserted-because-delete-failed",
			Properties: map[string]string{
				"accountId": "111111111111",
				"region": "us-east-1",
				"resourceType": "AWS::EC2::Instance",
			},
		},
		"not-in-working-set-and-not-failed-delete": {
			ID: "not-in-working-set-and-not-failed-delete",
		},
	}

	got := reconcile(
		workingSet,
		dbResources,
		[]string{"dropped-because-store-failed"},
		[]string{"reinserted-because-delete-failed"},
	)

	ids := make(map[string]bool, len(got))
	for _, r := range got {
		ids[r.ID] = true
	}

	if !ids["kept-1"] || !ids["kept-2"] {
		t.Errorf("reconcile dropped resources that should survive: %v", got)
	}
	if ids["dropped-because-store-failed"] {
		t.Error("reconcile kept a resource whose store failed")
	}
	if !ids["reinserted-because-delete-failed"] {
		t.Error("reconcile did not reinsert a resource whose delete failed")
	}
	if ids["not-in-working-set-and-not-failed-delete"] {
		t.Error("reconcile introduced a resource that was never part of either set")
	}

	for _, r := range got {
		if r.ID == "reinserted-because-delete-failed" {
			if r.AccountID != "111111111111" || r.Region != "us-east-1" || r.ResourceType != "AWS::EC2::Instance" {
				t.Errorf("resourceFromStored produced %+v, want fields copied from StoredResource.Properties", r)
			}
		}
	}
}

func TestStoredAccountsToModel_PreservesRegions(t *testing.T) {
	stored := []graphstore.StoredAccount{
		{
			AccountID: "111111111111",
			OrganizationID: "o-abc123",
			Name: "prod",
			IsManagementAccount: true,
			IsIamRoleDeployed: true,
			LastCrawled: "2026-07-01T00:00:00Z",
			Regions: []graphstore.StoredAccountRegion{
				{Name: "us-east-1", LastCrawled: "2026-07-01T00:00:00Z", IsConfigEnabled: true},
			},
		},
	}

	got := storedAccountsToModel(stored)
	acct, ok := got["111111111111"]
	if !ok {
		t.Fatal("storedAccountsToModel missing account 111111111111")
	}
	if acct.OrganizationID != "o-abc123" || !acct.IsManagementAccount || !acct.IsIamRoleDeployed {
		t.Errorf("storedAccountsToModel = %+v, want fields copied verbatim", acct)
	}
	if len(acct.Regions) != 1 || acct.Regions[0].Name != "us-east-1" || !acct.Regions[0].IsConfigEnabled {
		t.Errorf("storedAccountsToModel regions = %+v", acct.Regions)
	}
	if acct.Credentials != nil {
		t.Error("storedAccountsToModel must never populate Credentials from a stored read")
	}
}

func TestRunSummary_Degraded(t *testing.T) {
	cases := []struct {
		name string
		s RunSummary
		want bool
	}{
		{"clean run", RunSummary{}, false},
		{"enrichment failure", RunSummary{EnrichmentFailures: 1}, true},
		{"inference failure", RunSummary{InferenceFailures: 1}, true},
		{"failed store", RunSummary{FailedStores: 1}, true},
		{"failed delete", RunSummary{FailedDeletes: 1}, true},
		{"account persist failure", RunSummary{AccountPersistFailures: 1}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.s.degraded(); got != tc.want {
				t.Errorf("degraded = %v, want %v", got, tc.want)
			}
		})
	}
}

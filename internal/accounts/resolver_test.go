package accounts

import (
	"context"
	"errors"
	"testing"

	"github.com/rcourtman/cloud-discovery-engine/internal/awsclient"
	"github.com/rcourtman/cloud-discovery-engine/internal/discoveryerrors"
	"github.com/rcourtman/cloud-discovery-engine/internal/model"
)

type fakeOrg struct {
	managementAccountID string
	ousByParent map[string][]awsclient.OrganizationalUnit
	accountsByParent map[string][]awsclient.OrgAccount
}

func (f *fakeOrg) DescribeOrganization(ctx context.Context) (string, error) {
	return f.managementAccountID, nil
}

func (f *fakeOrg) ListOrganizationalUnits(ctx context.Context, parentID string) ([]awsclient.OrganizationalUnit, error) {
	return f.ousByParent[parentID], nil
}

func (f *fakeOrg) ListAccountsForParent(ctx context.Context, parentID, managementAccountID string) ([]awsclient.OrgAccount, error) {
	out := f.accountsByParent[parentID]
	for i := range out {
		out[i].IsManagementAccount = out[i].AccountID == managementAccountID
	}
	return out, nil
}

type fakeAssumer struct {
	deniedAccounts map[string]bool
	failAccounts map[string]bool
}

func (f *fakeAssumer) AssumeRole(ctx context.Context, roleArn, sessionName string) (awsclient.AssumedCredentials, error) {
	for acct := range f.deniedAccounts {
		if hasSubstr(roleArn, acct) {
			return awsclient.AssumedCredentials{}, discoveryerrors.AccessDenied("AssumeRole", errors.New("denied"))
		}
	}
	for acct := range f.failAccounts {
		if hasSubstr(roleArn, acct) {
			return awsclient.AssumedCredentials{}, errors.New("throttled")
		}
	}
	return awsclient.AssumedCredentials{AccessKeyID: "AKIA", SecretAccessKey: "secret", SessionToken: "token"}, nil
}

func hasSubstr(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}

type fakeConfigProbe struct {
	enabled bool
	err error
}

func (f fakeConfigProbe) ConfigEnablement(ctx context.Context) (bool, error) {
	return f.enabled, f.err
}

func TestResolveDirect_HappyPath(t *testing.T) {
	stored := map[string]*model.Account{
		"111": {AccountID: "111"},
	}
	resolver := &Resolver{
		Assumer: &fakeAssumer{},
		RootAccountID: "000",
		TrustRoleName: "discovery",
		Regions: []string{"us-east-1", "us-west-2"},
		SessionName: "discovery-crawl",
		NewRegionalClient: func(ctx context.Context, region string, creds awsclient.AssumedCredentials) (ConfigProbe, error) {
			return fakeConfigProbe{enabled: true}, nil
		},
	}

	out, err := resolver.ResolveDirect(context.Background(), stored)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	acct := out["111"]
	if !acct.IsIamRoleDeployed {
		t.Fatal("expected trust role deployed")
	}
	if len(acct.Regions) != 2 {
		t.Fatalf("expected 2 regions probed, got %d", len(acct.Regions))
	}
	for _, r := range acct.Regions {
		if !r.IsConfigEnabled {
			t.Errorf("expected region %s config enabled", r.Name)
		}
	}
}

func TestResolveDirect_AssumeAccessDeniedMarksUndeployed(t *testing.T) {
	stored := map[string]*model.Account{
		"222": {AccountID: "222"},
	}
	resolver := &Resolver{
		Assumer: &fakeAssumer{deniedAccounts: map[string]bool{"222": true}},
		RootAccountID: "000",
		TrustRoleName: "discovery",
		Regions: []string{"us-east-1"},
		SessionName: "discovery-crawl",
		NewRegionalClient: func(ctx context.Context, region string, creds awsclient.AssumedCredentials) (ConfigProbe, error) {
			return fakeConfigProbe{enabled: true}, nil
		},
	}

	out, err := resolver.ResolveDirect(context.Background(), stored)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["222"].IsIamRoleDeployed {
		t.Fatal("expected isIamRoleDeployed=false on access-denied assume")
	}
	if len(Eligible(out)) != 0 {
		t.Fatal("expected account to be ineligible")
	}
}

func TestResolveDirect_OtherAssumeFailureDropsAccount(t *testing.T) {
	stored := map[string]*model.Account{
		"333": {AccountID: "333"},
	}
	resolver := &Resolver{
		Assumer: &fakeAssumer{failAccounts: map[string]bool{"333": true}},
		RootAccountID: "000",
		TrustRoleName: "discovery",
		Regions: []string{"us-east-1"},
		SessionName: "discovery-crawl",
		NewRegionalClient: func(ctx context.Context, region string, creds awsclient.AssumedCredentials) (ConfigProbe, error) {
			return fakeConfigProbe{enabled: true}, nil
		},
	}

	out, _ := resolver.ResolveDirect(context.Background(), stored)
	if !out["333"].ToDelete {
		t.Fatal("expected account dropped (toDelete) on non-access-denied assume failure")
	}
}

func TestEligible_FiltersUndeployedAndToDelete(t *testing.T) {
	accountsMap := map[string]*model.Account{
		"a": {AccountID: "a", IsIamRoleDeployed: true},
		"b": {AccountID: "b", IsIamRoleDeployed: false},
		"c": {AccountID: "c", IsIamRoleDeployed: true, ToDelete: true},
	}
	eligible := Eligible(accountsMap)
	if len(eligible) != 1 {
		t.Fatalf("expected exactly 1 eligible account, got %d", len(eligible))
	}
	if _, ok := eligible["a"]; !ok {
		t.Fatal("expected account a to be eligible")
	}
}

func TestResolveOrganization_MarksMissingAccountsToDelete(t *testing.T) {
	org := &fakeOrg{
		managementAccountID: "mgmt",
		accountsByParent: map[string][]awsclient.OrgAccount{
			"ou-root": {{AccountID: "mgmt", Name: "management"}},
		},
	}
	stored := map[string]*model.Account{
		"stale": {AccountID: "stale"},
	}
	resolver := &Resolver{
		Org: org,
		Assumer: &fakeAssumer{},
		RootAccountID: "000",
		TrustRoleName: "discovery",
		Regions: []string{"us-east-1"},
		SessionName: "discovery-crawl",
		NewRegionalClient: func(ctx context.Context, region string, creds awsclient.AssumedCredentials) (ConfigProbe, error) {
			return fakeConfigProbe{enabled: true}, nil
		},
	}

	out, err := resolver.ResolveOrganization(context.Background(), "ou-root", stored)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out["stale"].ToDelete {
		t.Fatal("expected account no longer present in the org tree to be marked toDelete")
	}
	if out["mgmt"] == nil || !out["mgmt"].IsManagementAccount {
		t.Fatal("expected management account to be labeled")
	}
}

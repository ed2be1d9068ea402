// Package accounts implements account resolution: it produces
// the accounts-map every later pipeline stage reads — either by walking an
// AWS Organizations tree or by trusting a stored account list, then in both
// modes assuming the discovery trust role in each account and probing Config
// enablement per region.
//
// Uses the bounded worker-pool idiom applied throughout this module (a
// buffered channel used as a semaphore plus a sync.WaitGroup, the same shape
// used to fan out per-peer polls elsewhere) rather than a third-party pool
// library.
package accounts

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/rcourtman/cloud-discovery-engine/internal/awsclient"
	"github.com/rcourtman/cloud-discovery-engine/internal/discoveryerrors"
	"github.com/rcourtman/cloud-discovery-engine/internal/model"
)

const (
	accountConcurrency = 30
	probeConcurrency = 5
)

// OrgClient is the Organizations surface the organization-mode OU walk
// needs.
type OrgClient interface {
	ListOrganizationalUnits(ctx context.Context, parentID string) ([]awsclient.OrganizationalUnit, error)
	ListAccountsForParent(ctx context.Context, parentID, managementAccountID string) ([]awsclient.OrgAccount, error)
	DescribeOrganization(ctx context.Context) (string, error)
}

// RoleAssumer assumes the discovery trust role in a target account.
type RoleAssumer interface {
	AssumeRole(ctx context.Context, roleArn, sessionName string) (awsclient.AssumedCredentials, error)
}

// ConfigProbe reports whether a single account/region has Config enabled.
type ConfigProbe interface {
	ConfigEnablement(ctx context.Context) (bool, error)
}

// RegionalClientFactory mints a ConfigProbe scoped to one account/region
// using the credentials AssumeRole returned.
type RegionalClientFactory func(ctx context.Context, region string, creds awsclient.AssumedCredentials) (ConfigProbe, error)

// Resolver implements the AccountResolver.
type Resolver struct {
	Org OrgClient
	Assumer RoleAssumer
	NewRegionalClient RegionalClientFactory
	RootAccountID string
	TrustRoleName string
	Regions []string
	SessionName string
}

func trustRoleArn(accountID, rootAccountID, trustRoleName string) string {
	return fmt.Sprintf("arn:aws:iam::%s:role/%s-%s", accountID, trustRoleName, rootAccountID)
}

// ResolveOrganization walks the organization tree rooted at ouID, merges it
// with the stored accounts map (marking anything no longer present in the
// tree toDelete), then runs the mode-independent trust-assume and
// config-enablement pipeline.
func (r *Resolver) ResolveOrganization(ctx context.Context, ouID string, stored map[string]*model.Account) (map[string]*model.Account, error) {
	managementAccountID, err := r.Org.DescribeOrganization(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]*model.Account)
	if err := r.walkOU(ctx, ouID, managementAccountID, seen); err != nil {
		return nil, err
	}

	for id, acct := range stored {
		if _, ok := seen[id]; !ok {
			acct.ToDelete = true
			seen[id] = acct
		}
	}

	return r.resolveCommon(ctx, seen)
}

func (r *Resolver) walkOU(ctx context.Context, parentID, managementAccountID string, out map[string]*model.Account) error {
	accountsHere, err := r.Org.ListAccountsForParent(ctx, parentID, managementAccountID)
	if err != nil {
		return err
	}
	for _, a := range accountsHere {
		out[a.AccountID] = &model.Account{
			AccountID: a.AccountID,
			Name: a.Name,
			IsManagementAccount: a.IsManagementAccount,
		}
	}

	children, err := r.Org.ListOrganizationalUnits(ctx, parentID)
	if err != nil {
		return err
	}
	for _, ou := range children {
		if err := r.walkOU(ctx, ou.ID, managementAccountID, out); err != nil {
			return err
		}
	}
	return nil
}

// ResolveDirect uses the stored account list as the source of truth (direct
// mode — there is no organization tree to reconcile against).
func (r *Resolver) ResolveDirect(ctx context.Context, stored map[string]*model.Account) (map[string]*model.Account, error) {
	return r.resolveCommon(ctx, stored)
}

// resolveCommon runs the mode-independent trust-assume + config-enablement
// pipeline shared by both modes (steps 1-3).
func (r *Resolver) resolveCommon(ctx context.Context, accountsMap map[string]*model.Account) (map[string]*model.Account, error) {
	sem := make(chan struct{}, accountConcurrency)
	var wg sync.WaitGroup

	for _, acct := range accountsMap {
		if acct.ToDelete {
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(acct *model.Account) {
			defer wg.Done()
			defer func() { <-sem }()
			r.resolveAccount(ctx, acct)
		}(acct)
	}
	wg.Wait()

	return accountsMap, nil
}

func (r *Resolver) resolveAccount(ctx context.Context, acct *model.Account) {
	roleArn := trustRoleArn(acct.AccountID, r.RootAccountID, r.TrustRoleName)
	creds, err := r.Assumer.AssumeRole(ctx, roleArn, r.SessionName)
	if err != nil {
		if kind, ok := discoveryerrors.AsKind(err); ok && kind == discoveryerrors.KindAccessDenied {
			acct.IsIamRoleDeployed = false
			log.Warn().Str("accountId", acct.AccountID).Msg("trust role assume denied")
			return
		}
		log.Warn().Str("accountId", acct.AccountID).Err(err).Msg("trust role assume failed, account dropped")
		acct.ToDelete = true
		return
	}

	acct.IsIamRoleDeployed = true
	acct.Credentials = &model.Credentials{
		AccessKeyID: creds.AccessKeyID,
		SecretAccessKey: creds.SecretAccessKey,
		SessionToken: creds.SessionToken,
	}

	regions := make([]model.AccountRegion, len(r.Regions))
	probeSem := make(chan struct{}, probeConcurrency)
	var probeWg sync.WaitGroup
	var probeMu sync.Mutex
	accessDenied := false

	for i, region := range r.Regions {
		probeWg.Add(1)
		probeSem <- struct{}{}
		go func(i int, region string) {
			defer probeWg.Done()
			defer func() { <-probeSem }()

			result := r.probeRegion(ctx, region, creds)
			probeMu.Lock()
			defer probeMu.Unlock()
			regions[i] = model.AccountRegion{Name: region, IsConfigEnabled: result.enabled}
			if result.accessDenied {
				accessDenied = true
			}
		}(i, region)
	}
	probeWg.Wait()

	if accessDenied {
		acct.IsIamRoleDeployed = false
	}
	acct.Regions = regions
}

type probeResult struct {
	enabled bool
	accessDenied bool
}

func (r *Resolver) probeRegion(ctx context.Context, region string, creds awsclient.AssumedCredentials) probeResult {
	client, err := r.NewRegionalClient(ctx, region, creds)
	if err != nil {
		log.Warn().Str("region", region).Err(err).Msg("regional client construction failed")
		return probeResult{}
	}

	enabled, err := client.ConfigEnablement(ctx)
	if err != nil {
		if kind, ok := discoveryerrors.AsKind(err); ok && kind == discoveryerrors.KindAccessDenied {
			return probeResult{accessDenied: true}
		}
		log.Warn().Str("region", region).Err(err).Msg("config enablement probe failed")
		return probeResult{}
	}
	return probeResult{enabled: enabled}
}

// Eligible filters accountsMap down to accounts eligible for enrichment:
// trust deployed and not marked for deletion (accounts-map
// output contract).
func Eligible(accountsMap map[string]*model.Account) map[string]*model.Account {
	out := make(map[string]*model.Account, len(accountsMap))
	for id, acct := range accountsMap {
		if acct.IsIamRoleDeployed && !acct.ToDelete {
			out[id] = acct
		}
	}
	return out
}

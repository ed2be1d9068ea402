// Package orchestrator sequences the discovery engine's pipeline stages in a
// fixed order and owns a crawl's overall success/failure semantics:
// preflight → account resolution → baseline read → enrichment → inference →
// delta → persistence → reconciliation → region rollup → account
// persistence.
//
// No other package in this module runs a comparable multi-stage pipeline, so
// its shape follows the general "bounded worker pool + zerolog +
// context.Context" idiom used throughout this module's other packages
// (internal/accounts, internal/persist), threading a zerolog sub-logger
// carrying a run correlation id the way a long-running process configures
// its global zerolog.Logger once at process start, scoped here to one crawl.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"

	"github.com/rcourtman/cloud-discovery-engine/internal/accounts"
	"github.com/rcourtman/cloud-discovery-engine/internal/aggregator"
	"github.com/rcourtman/cloud-discovery-engine/internal/awsclient"
	"github.com/rcourtman/cloud-discovery-engine/internal/config"
	"github.com/rcourtman/cloud-discovery-engine/internal/delta"
	"github.com/rcourtman/cloud-discovery-engine/internal/discoveryerrors"
	"github.com/rcourtman/cloud-discovery-engine/internal/enrichment"
	"github.com/rcourtman/cloud-discovery-engine/internal/graphstore"
	"github.com/rcourtman/cloud-discovery-engine/internal/inference"
	"github.com/rcourtman/cloud-discovery-engine/internal/initializer"
	"github.com/rcourtman/cloud-discovery-engine/internal/metrics"
	"github.com/rcourtman/cloud-discovery-engine/internal/model"
	"github.com/rcourtman/cloud-discovery-engine/internal/persist"
	"github.com/rcourtman/cloud-discovery-engine/internal/regionmeta"
	"github.com/rcourtman/cloud-discovery-engine/internal/searchindex"
	"github.com/rcourtman/cloud-discovery-engine/internal/throttle"
)

var tracer = otel.Tracer("github.com/rcourtman/cloud-discovery-engine/internal/orchestrator")

// Orchestrator holds every dependency the pipeline needs, constructed once
// per process and run exactly once (single-shot, no-CLI process).
type Orchestrator struct {
	Config config.Config

	// RootClient carries this process's own task/ambient credentials (never
	// an assumed role): Organizations calls, the per-account AssumeRole,
	// the scheduler mutex probe, aggregator validation, and the aggregate
	// query itself all run against it.
	RootClient *awsclient.ProviderClient

	GraphStore *graphstore.Client
	SearchIndex *searchindex.Client

	Resolver *accounts.Resolver
	Persister *persist.Persister
	Metrics *metrics.Collectors

	ThrottleRegistry *throttle.Registry

	Dialer initializer.Dialer
	Endpoints initializer.Endpoints
	ClusterName string
	SelfTaskDefArn string

	ExcludedResourceTypes []string

	clientsMu sync.Mutex
	clients map[string]*awsclient.ProviderClient
}

// New wires an Orchestrator from its constructed dependencies. sessionName is
// the scheduler task-group session name AssumeRole mints: per-account
// credentials are scoped to a single scheduler role-session name.
func New(cfg config.Config, rootClient *awsclient.ProviderClient, graphStore *graphstore.Client, searchIndex *searchindex.Client, throttles *throttle.Registry, endpoints initializer.Endpoints, dialer initializer.Dialer, selfTaskDefArn, sessionName string) *Orchestrator {
	o := &Orchestrator{
		Config: cfg,
		RootClient: rootClient,
		GraphStore: graphStore,
		SearchIndex: searchIndex,
		ThrottleRegistry: throttles,
		Dialer: dialer,
		Endpoints: endpoints,
		ClusterName: cfg.ClusterName,
		SelfTaskDefArn: selfTaskDefArn,
		Metrics: metrics.New(),
		Persister: &persist.Persister{SearchIndex: searchIndex, GraphStore: graphStore},
	}
	o.Resolver = &accounts.Resolver{
		Org: rootClient,
		Assumer: rootClient,
		NewRegionalClient: o.newRegionalProbeClient,
		RootAccountID: cfg.RootAccountID,
		TrustRoleName: cfg.DiscoveryRoleName,
		Regions: cfg.Regions,
		SessionName: sessionName,
	}
	return o
}

// newRegionalProbeClient mints a throwaway regional ProviderClient for the
// AccountResolver's per-region config-enablement probe (step 3).
// It satisfies accounts.ConfigProbe directly via ProviderClient.ConfigEnablement.
func (o *Orchestrator) newRegionalProbeClient(ctx context.Context, region string, creds awsclient.AssumedCredentials) (accounts.ConfigProbe, error) {
	cfg, err := awsclient.ResolveConfig(ctx, region, creds, o.Config.CustomUserAgent)
	if err != nil {
		return nil, err
	}
	return awsclient.New("", region, awsclient.Identity("config-probe"), cfg, o.ThrottleRegistry), nil
}

// regionalClient returns the cached, long-lived regional client for
// (accountID, region), minting and caching one from the account's assumed
// credentials on first use.
func (o *Orchestrator) regionalClient(ctx context.Context, eligible map[string]*model.Account, accountID, region string) (*awsclient.ProviderClient, bool) {
	key := accountID + "/" + region

	o.clientsMu.Lock()
	if client, ok := o.clients[key]; ok {
		o.clientsMu.Unlock()
		return client, true
	}
	o.clientsMu.Unlock()

	acct, ok := eligible[accountID]
	if !ok || acct.Credentials == nil {
		return nil, false
	}
	creds := awsclient.AssumedCredentials{
		AccessKeyID: acct.Credentials.AccessKeyID,
		SecretAccessKey: acct.Credentials.SecretAccessKey,
		SessionToken: acct.Credentials.SessionToken,
	}
	cfg, err := awsclient.ResolveConfig(ctx, region, creds, o.Config.CustomUserAgent)
	if err != nil {
		log.Warn().Str("accountId", accountID).Str("region", region).Err(err).Msg("failed to resolve regional client config")
		return nil, false
	}
	client := awsclient.New(accountID, region, awsclient.Identity(accountID), cfg, o.ThrottleRegistry)

	o.clientsMu.Lock()
	if o.clients == nil {
		o.clients = make(map[string]*awsclient.ProviderClient)
	}
	o.clients[key] = client
	o.clientsMu.Unlock()

	return client, true
}

type accountRegion struct {
	AccountID string
	Region string
}

func regionTargets(eligible map[string]*model.Account) []accountRegion {
	var out []accountRegion
	for accountID, acct := range eligible {
		for _, r := range acct.Regions {
			if !r.IsConfigEnabled {
				continue
			}
			out = append(out, accountRegion{AccountID: accountID, Region: r.Name})
		}
	}
	return out
}

// preflight runs the Initializer's three-step sequence. Any
// returned error is the process's fatal or non-fatal outcome, unchanged.
func (o *Orchestrator) preflight(ctx context.Context) error {
	organizationMode := o.Config.IsOrganizationMode()

	if err := initializer.ProbeReachability(ctx, o.Dialer, o.Endpoints, organizationMode); err != nil {
		return err
	}
	if err := initializer.ProbeMutualExclusion(ctx, o.RootClient, o.ClusterName, o.SelfTaskDefArn); err != nil {
		return err
	}
	if organizationMode {
		validator := aggregatorValidatorAdapter{client: o.RootClient}
		if err := initializer.ValidateAggregator(ctx, validator, o.Config.ConfigAggregatorName); err != nil {
			return err
		}
	}
	return nil
}

// Run executes one complete crawl. It is safe to call again after a prior
// call returns (including after a fatal error): every stage recomputes its
// state from the graph store's current contents rather than from in-memory
// leftovers, so a re-run after a crash or a fatal preflight failure is not a
// distinct code path: the next crawl recomputes delta against whatever made
// it into the store.
func (o *Orchestrator) Run(ctx context.Context) (*RunSummary, error) {
	runID := uuid.New().String()

	prevLogger := log.Logger
	log.Logger = log.With().Str("run_id", runID).Logger()
	defer func() { log.Logger = prevLogger }()

	ctx, span := tracer.Start(ctx, "orchestrator.Run")
	defer span.End()

	start := time.Now()
	summary := &RunSummary{RunID: runID}

	if err := o.runPreflight(ctx); err != nil {
		if kind, ok := discoveryerrors.AsKind(err); ok && kind == discoveryerrors.KindDiscoveryAlreadyRunning {
			log.Info().Str("kind", string(kind)).Msg(err.Error())
			return summary, err
		}
		summary.Outcome = "fatal"
		o.Metrics.RecordRunOutcome("fatal")
		return summary, err
	}

	accountsMap, eligible, err := o.resolveAccounts(ctx)
	if err != nil {
		summary.Outcome = "fatal"
		o.Metrics.RecordRunOutcome("fatal")
		return summary, fmt.Errorf("orchestrator: resolve accounts: %w", err)
	}
	summary.AccountsCrawled = len(eligible)

	baseline, dbResources, dbRelationships, err := o.readBaseline(ctx, accountsMap)
	if err != nil {
		summary.Outcome = "fatal"
		o.Metrics.RecordRunOutcome("fatal")
		return summary, fmt.Errorf("orchestrator: read baseline: %w", err)
	}
	o.Metrics.AddPhaseItems("aggregator", len(baseline))

	targets := regionTargets(eligible)

	workingSet, enrichErrs := o.runEnrichment(ctx, eligible, targets, baseline)
	summary.EnrichmentFailures = len(enrichErrs)
	o.Metrics.AddPhaseItems("enrichment", len(workingSet)-len(baseline))

	inferErrs := o.runInference(ctx, eligible, targets, workingSet)
	summary.InferenceFailures = len(inferErrs)

	d := o.runDelta(ctx, workingSet, dbResources, dbRelationships)
	summary.ResourcesToStore = len(d.ResourcesToStore)
	summary.ResourcesToUpdate = len(d.ResourcesToUpdate)
	summary.ResourcesToDelete = len(d.ResourceIDsToDelete)
	summary.LinksToAdd = len(d.LinksToAdd)
	summary.LinksToDelete = len(d.LinksToDelete)

	result := o.runPersist(ctx, d)
	summary.FailedStores = len(result.FailedStores)
	summary.FailedDeletes = len(result.FailedDeletes)

	accountErrs := o.runAccountRollup(ctx, accountsMap, workingSet, dbResources, result)
	summary.AccountPersistFailures = len(accountErrs)

	o.Metrics.ObservePhaseDuration("run", time.Since(start).Seconds())

	summary.Outcome = "success"
	if summary.degraded() {
		summary.Outcome = "succeeded-with-degradation"
	}
	o.Metrics.RecordRunOutcome(summary.Outcome)

	log.Info().
		Str("outcome", summary.Outcome).
		Int("accounts_crawled", summary.AccountsCrawled).
		Int("resources_to_store", summary.ResourcesToStore).
		Int("resources_to_update", summary.ResourcesToUpdate).
		Int("resources_to_delete", summary.ResourcesToDelete).
		Int("links_to_add", summary.LinksToAdd).
		Int("links_to_delete", summary.LinksToDelete).
		Int("enrichment_failures", summary.EnrichmentFailures).
		Int("inference_failures", summary.InferenceFailures).
		Int("failed_stores", summary.FailedStores).
		Int("failed_deletes", summary.FailedDeletes).
		Int("account_persist_failures", summary.AccountPersistFailures).
		Dur("duration", time.Since(start)).
		Msg("crawl completed")

	return summary, nil
}

func (o *Orchestrator) runPreflight(ctx context.Context) error {
	_, span := tracer.Start(ctx, "initializer")
	defer span.End()
	return o.preflight(ctx)
}

func (o *Orchestrator) resolveAccounts(ctx context.Context) (map[string]*model.Account, map[string]*model.Account, error) {
	_, span := tracer.Start(ctx, "account-resolver")
	defer span.End()

	stored, err := o.GraphStore.ReadAccounts(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("read stored accounts: %w", err)
	}
	storedMap := storedAccountsToModel(stored)

	var accountsMap map[string]*model.Account
	if o.Config.IsOrganizationMode() {
		accountsMap, err = o.Resolver.ResolveOrganization(ctx, o.Config.OrganizationUnitID, storedMap)
	} else {
		accountsMap, err = o.Resolver.ResolveDirect(ctx, storedMap)
	}
	if err != nil {
		return nil, nil, err
	}
	return accountsMap, accounts.Eligible(accountsMap), nil
}

// readBaseline runs the AggregatorReader and the graph store's pre-crawl read
// concurrently.
func (o *Orchestrator) readBaseline(ctx context.Context, accountsMap map[string]*model.Account) ([]*model.Resource, map[string]graphstore.StoredResource, []graphstore.StoredRelationship, error) {
	_, span := tracer.Start(ctx, "aggregator-and-snapshot-read")
	defer span.End()

	var (
		baseline []*model.Resource
		dbResources map[string]graphstore.StoredResource
		dbRelationships []graphstore.StoredRelationship
		aggregateErr, resourcesErr, relsErr error
	)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		reader := &aggregator.Reader{
			Client: o.RootClient,
			AggregatorName: o.Config.ConfigAggregatorName,
			ExcludedResourceTypes: o.ExcludedResourceTypes,
		}
		baseline, aggregateErr = reader.Read(ctx, accountsMap)
	}()
	go func() {
		defer wg.Done()
		dbResources, resourcesErr = o.GraphStore.ReadResources(ctx)
	}()
	go func() {
		defer wg.Done()
		dbRelationships, relsErr = o.GraphStore.ReadRelationships(ctx)
	}()
	wg.Wait()

	if aggregateErr != nil {
		return nil, nil, nil, fmt.Errorf("aggregate query: %w", aggregateErr)
	}
	if resourcesErr != nil {
		return nil, nil, nil, fmt.Errorf("read resources: %w", resourcesErr)
	}
	if relsErr != nil {
		return nil, nil, nil, fmt.Errorf("read relationships: %w", relsErr)
	}
	return baseline, dbResources, dbRelationships, nil
}

func (o *Orchestrator) runEnrichment(ctx context.Context, eligible map[string]*model.Account, targets []accountRegion, baseline []*model.Resource) ([]*model.Resource, []error) {
	_, span := tracer.Start(ctx, "enrichment-pipeline")
	defer span.End()

	enrichTargets := make([]enrichment.AccountRegion, len(targets))
	for i, t := range targets {
		enrichTargets[i] = enrichment.AccountRegion{AccountID: t.AccountID, Region: t.Region}
	}

	pipeline := &enrichment.Pipeline{
		ClientFor: func(accountID, region string) (enrichment.ClientSet, bool) {
			return o.regionalClient(ctx, eligible, accountID, region)
		},
	}
	enriched, errs := pipeline.Run(ctx, enrichTargets, baseline)
	for _, e := range errs {
		log.Warn().Err(e).Msg("enrichment handler failed")
		o.Metrics.RecordTierFailure("enrichment", "unknown")
	}

	workingSet := make([]*model.Resource, 0, len(baseline)+len(enriched))
	workingSet = append(workingSet, baseline...)
	workingSet = append(workingSet, enriched...)
	return workingSet, errs
}

func (o *Orchestrator) runInference(ctx context.Context, eligible map[string]*model.Account, targets []accountRegion, workingSet []*model.Resource) []error {
	_, span := tracer.Start(ctx, "relationship-inferencer")
	defer span.End()

	inferTargets := make([]inference.AccountRegion, len(targets))
	for i, t := range targets {
		inferTargets[i] = inference.AccountRegion{AccountID: t.AccountID, Region: t.Region}
	}

	inferencer := &inference.Inferencer{
		ClientFor: func(accountID, region string) (inference.Client, bool) {
			return o.regionalClient(ctx, eligible, accountID, region)
		},
	}
	errs := inferencer.Run(ctx, inferTargets, workingSet)
	for _, e := range errs {
		log.Warn().Err(e).Msg("inference handler failed")
		o.Metrics.RecordTierFailure("inference", "unknown")
	}
	return errs
}

func (o *Orchestrator) runDelta(ctx context.Context, workingSet []*model.Resource, dbResources map[string]graphstore.StoredResource, dbRelationships []graphstore.StoredRelationship) delta.Delta {
	_, span := tracer.Start(ctx, "delta-engine")
	defer span.End()
	return delta.Compute(workingSet, dbResources, dbRelationships)
}

func (o *Orchestrator) runPersist(ctx context.Context, d delta.Delta) persist.Result {
	_, span := tracer.Start(ctx, "persister")
	defer span.End()

	result := o.Persister.Persist(ctx, d)
	o.Metrics.RecordPersisterBatch("storeResources", len(result.FailedStores))
	o.Metrics.RecordPersisterBatch("deleteResources", len(result.FailedDeletes))
	return result
}

// runAccountRollup implements reconciliation into rollup,
// then the accounts-specific Persister step that closes the control flow.
func (o *Orchestrator) runAccountRollup(ctx context.Context, accountsMap map[string]*model.Account, workingSet []*model.Resource, dbResources map[string]graphstore.StoredResource, result persist.Result) []error {
	_, span := tracer.Start(ctx, "region-metadata-aggregator")
	defer span.End()

	reconciled := reconcile(workingSet, dbResources, result.FailedStores, result.FailedDeletes)

	rollup := regionmeta.Aggregate(reconciled)
	regionmeta.Attach(accountsMap, rollup, time.Now())

	toAdd, toUpdate, toDelete := regionmeta.SplitBuckets(accountsMap)
	errs := regionmeta.PersistAccounts(ctx, o.GraphStore, toAdd, toUpdate, toDelete)
	for _, e := range errs {
		log.Warn().Err(e).Msg("account persistence failed")
	}
	return errs
}

package model

import "sync"

// WorkingSet is the in-memory resource graph under construction for a single
// crawl. It is populated by AggregatorReader and EnrichmentPipeline, read and
// mutated in place by RelationshipInferencer, then frozen for DeltaEngine.
// Per the scheduler assigns exactly one work item per resource per
// pass, so the mutex here only guards the append-to-the-set operations that
// happen during the concurrent enrichment tiers, not relationship mutation.
type WorkingSet struct {
	mu sync.RWMutex
	resources map[string]*Resource
	order []string // insertion order, for deterministic iteration in tests
}

func NewWorkingSet() *WorkingSet {
	return &WorkingSet{resources: make(map[string]*Resource)}
}

// Add inserts a resource, overwriting any existing entry with the same ID.
// Per uniqueness invariant this should never happen in a
// well-formed crawl; callers that detect a collision should treat it as a
// handler bug, not silently accept it.
func (w *WorkingSet) Add(r *Resource) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, exists := w.resources[r.ID]; !exists {
		w.order = append(w.order, r.ID)
	}
	w.resources[r.ID] = r
}

func (w *WorkingSet) Get(id string) (*Resource, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	r, ok := w.resources[id]
	return r, ok
}

// All returns every resource in insertion order. The returned slice is a
// snapshot; later mutations to the set are not reflected.
func (w *WorkingSet) All() []*Resource {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]*Resource, 0, len(w.order))
	for _, id := range w.order {
		out = append(out, w.resources[id])
	}
	return out
}

func (w *WorkingSet) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.resources)
}

// Remove deletes a resource from the set, used by reconciliation after a
// partial persistence failure.
func (w *WorkingSet) Remove(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.resources[id]; !ok {
		return
	}
	delete(w.resources, id)
	for i, existing := range w.order {
		if existing == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
}

// LookupMaps are the fixed set of indices the RelationshipInferencer builds
// once before its two inference stages.
type LookupMaps struct {
	// ResourceIdentifierToID maps composite keys
	// "resourceType|resourceId-or-Name|accountId|region" to a resource id.
	ResourceIdentifierToID map[string]string
	// EnvVarResourceIdentifierToID is the same index without the resource
	// type component, used to resolve environment-variable values.
	EnvVarResourceIdentifierToID map[string]string
	// EndpointToID maps any discovered endpoint/address string to a
	// resource id.
	EndpointToID map[string]string
	// ElbDNSToResource maps a load balancer's DNS name to its identity.
	ElbDNSToResource map[string]ElbIdentity
	// TargetGroupToASG maps a target-group ARN to its owning ASG and the
	// set of instance ids launched by that ASG.
	TargetGroupToASG map[string]ASGBinding
	// ASGResourceNameToID maps an auto-scaling group's name to its
	// resource id.
	ASGResourceNameToID map[string]string
	// EventBusRuleMap maps an event bus ARN to the rule ids registered on
	// it.
	EventBusRuleMap map[string][]string
	// KnownResourceIDs is the full set of resource ids (ARNs) in the working
	// set, used by the environment-variable inference rule's first check:
	// a value that is itself an exact resource ARN.
	KnownResourceIDs map[string]bool
	// ByID resolves a resource id to its live working-set pointer, used by
	// handlers (e.g. the container-task network-interface cross-mutation)
	// that need to mutate another resource already in the set, not just
	// test whether its id is known.
	ByID map[string]*Resource
}

// ElbIdentity is the value type of LookupMaps.ElbDNSToResource.
type ElbIdentity struct {
	ResourceID string
	ResourceType string
	Region string
}

// ASGBinding is the value type of LookupMaps.TargetGroupToASG.
type ASGBinding struct {
	ASGArn string
	InstanceIDs map[string]struct{}
}

func NewLookupMaps() *LookupMaps {
	return &LookupMaps{
		ResourceIdentifierToID: make(map[string]string),
		EnvVarResourceIdentifierToID: make(map[string]string),
		EndpointToID: make(map[string]string),
		ElbDNSToResource: make(map[string]ElbIdentity),
		TargetGroupToASG: make(map[string]ASGBinding),
		ASGResourceNameToID: make(map[string]string),
		EventBusRuleMap: make(map[string][]string),
		KnownResourceIDs: make(map[string]bool),
		ByID: make(map[string]*Resource),
	}
}

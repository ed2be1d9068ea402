// Package model holds the data shapes every pipeline stage shares: the
// mutable Resource/Relationship graph built by the enrichment and inference
// stages, the Account bookkeeping record, and the WorkingSet that threads
// them through a crawl. Follows the wrap-a-concrete-mutable-state-struct-
// behind-simple-accessor-methods shape used for other in-memory state
// containers; here the "state" is the resource graph under construction
// rather than a fleet snapshot.
package model

import "sort"

// Tag is a single key/value pair attached to a Resource.
type Tag struct {
	Key string
	Value string
}

// Relationship is a resolved edge: source and target are Resource IDs
// (canonical ARNs) and Label is a lowercase, hyphenated name such as
// "associated-with".
type Relationship struct {
	Source string
	Target string
	Label string
}

// UnknownTarget is the sentinel used for an edge whose target could not be
// resolved against the working set. Edges carrying it are dropped before
// persistence.
const UnknownTarget = "unknown"

// IsUnknown reports whether this edge's target is the unresolved sentinel.
func (r Relationship) IsUnknown() bool {
	return r.Target == UnknownTarget
}

// IdentifierType names how a RelationshipDescriptor's value should be
// resolved to a Resource id.
type IdentifierType string

const (
	IdentifierARN IdentifierType = "arn"
	IdentifierResourceID IdentifierType = "resourceId"
	IdentifierResourceName IdentifierType = "resourceName"
	IdentifierEndpoint IdentifierType = "endpoint"
)

// RelationshipDescriptor is a pre-resolution edge declaration, evaluated by
// the inferencer's schema-driven handler against a resource's configuration
// (or an SDK call's response) using a JMESPath-style path expression.
type RelationshipDescriptor struct {
	RelationshipName string
	ResourceType string
	IdentifierType IdentifierType
	Path string
	RootPath string // defaults to "configuration" when empty
	SDKClient string // name of the SDK call to invoke first, if any
	SDKArgs map[string]string
	AccountID string
	Region string
	RelNameSuffix string
}

// Resource is a discovered entity, identified globally by its canonical ARN.
type Resource struct {
	ID string
	AccountID string
	// Region is the literal "global" for region-less resources.
	Region string
	AvailabilityZone string // "not-applicable", "multiple", or a real AZ
	ResourceType string // "namespace::service::kind"
	ResourceID string
	ResourceName string
	Configuration map[string]any
	SupplementaryConfiguration map[string]any
	Tags []Tag
	ConfigurationItemCaptureTime string
	ConfigurationItemStatus string
	Relationships []Relationship

	// Derived fields, set by the RelationshipInferencer and the projection
	// step.
	VpcID string
	SubnetID string
	Private bool
	LoginURL string
	LoggedInURL string
	Title string
	MD5Hash string
}

// TagValue returns the value of the first tag with the given key, and
// whether it was present.
func (r *Resource) TagValue(key string) (string, bool) {
	for _, t := range r.Tags {
		if t.Key == key {
			return t.Value, true
		}
	}
	return "", false
}

// AddRelationship appends an edge to this resource's relationship list. It is
// the only mutation point the inference stage uses, matching 
// guarantee that relationship lists are touched by at most one inference step
// at a time.
func (r *Resource) AddRelationship(target, label string) {
	r.Relationships = append(r.Relationships, Relationship{
		Source: r.ID,
		Target: target,
		Label: label,
	})
}

// HasRelationshipTo reports whether an edge to target with the given label
// already exists, used by handlers that must dedupe before adding
// (e.g. security-group associations).
func (r *Resource) HasRelationshipTo(target, label string) bool {
	for _, rel := range r.Relationships {
		if rel.Target == target && rel.Label == label {
			return true
		}
	}
	return false
}

// hashSet is the fixed set of resource types whose change detection uses
// MD5Hash instead of ConfigurationItemCaptureTime (glossary).
var hashSet = map[string]bool{
	"gateway-method": true,
	"gateway-path-item": true,
	"table-stream": true,
	"container-task": true,
	"elbv2-listener": true,
	"node-group": true,
	"elbv2-target-group": true,
	"managed-policy": true,
	"spot": true,
	"spot-fleet": true,
	"inline-policy": true,
	"user-pool": true,
	"search-domain": true,
}

// InHashSet reports whether resourceType uses MD5Hash-based change detection.
func InHashSet(resourceType string) bool {
	return hashSet[resourceType]
}

// normalizationSet is the set of target types whose relationship names get a
// type-suffix appended when unqualified (post-pass).
var normalizationSet = map[string]string{
	"instance": "Instance",
	"network-interface": "NetworkInterface",
	"security-group": "SecurityGroup",
	"subnet": "Subnet",
	"volume": "Volume",
	"vpc": "VPC",
	"role": "Role",
}

// NormalizationSuffix returns the camel-case suffix to append to an
// unqualified relationship name whose target is of targetType, and whether
// targetType is in the normalization set at all.
func NormalizationSuffix(targetType string) (string, bool) {
	suffix, ok := normalizationSet[targetType]
	return suffix, ok
}

// SortedTagKeys returns this resource's tag keys in sorted order, used by Tier
// D's deterministic tag-synthesis pass.
func (r *Resource) SortedTagKeys() []string {
	keys := make([]string, 0, len(r.Tags))
	for _, t := range r.Tags {
		keys = append(keys, t.Key)
	}
	sort.Strings(keys)
	return keys
}

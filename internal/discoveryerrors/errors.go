// Package discoveryerrors defines the typed error taxonomy a crawl can produce.
//
// Only the preflight kinds here are fatal in this sense: they
// abort the crawl and propagate to cmd/discovery, which prints a kind-specific
// message and sets the process exit code. Everything else (AccessDenied,
// UnprocessedSearchIndexResources, PayloadTooLarge, ConnectionClosedPrematurely,
// ResolverCodeSize) is recoverable at the item, batch, or query level and is
// handled by the component that produced it.
package discoveryerrors

import (
	"errors"
	"fmt"
)

// Kind identifies a member of the error taxonomy in.
type Kind string

const (
	KindVpcConfigurationValidation Kind = "VpcConfigurationValidation"
	KindDiscoveryAlreadyRunning Kind = "DiscoveryAlreadyRunning"
	KindAggregatorNotFound Kind = "AggregatorNotFound"
	KindOrgAggregatorValidation Kind = "OrgAggregatorValidation"
	KindAccessDenied Kind = "AccessDenied"
	KindUnprocessedSearchIndex Kind = "UnprocessedSearchIndexResources"
	KindPayloadTooLarge Kind = "PayloadTooLarge"
	KindConnectionClosedPrematurely Kind = "ConnectionClosedPrematurely"
	KindResolverCodeSize Kind = "ResolverCodeSize"
)

// fatalKinds abort the crawl: preflight failures the Orchestrator cannot work
// around. DiscoveryAlreadyRunning is deliberately absent — it is logged at info
// and the process exits 0.
var fatalKinds = map[Kind]bool{
	KindVpcConfigurationValidation: true,
	KindAggregatorNotFound: true,
	KindOrgAggregatorValidation: true,
}

// DiscoveryError is the common shape every taxonomy member implements.
type DiscoveryError struct {
	Kind Kind
	Message string
	Cause error
	// Services carries the offending endpoint names for VpcConfigurationValidation.
	Services []string
}

func (e *DiscoveryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *DiscoveryError) Unwrap() error { return e.Cause }

// IsFatal reports whether this error kind aborts the crawl per.
func (e *DiscoveryError) IsFatal() bool { return fatalKinds[e.Kind] }

func New(kind Kind, message string) *DiscoveryError {
	return &DiscoveryError{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *DiscoveryError {
	return &DiscoveryError{Kind: kind, Message: message, Cause: cause}
}

func VpcConfigurationValidation(services []string) *DiscoveryError {
	return &DiscoveryError{
		Kind: KindVpcConfigurationValidation,
		Message: "one or more required service endpoints are unreachable",
		Services: services,
	}
}

func DiscoveryAlreadyRunning() *DiscoveryError {
	return New(KindDiscoveryAlreadyRunning, "another instance of this task group is already running")
}

func AggregatorNotFound(name string) *DiscoveryError {
	return New(KindAggregatorNotFound, fmt.Sprintf("config aggregator %q was not found", name))
}

func OrgAggregatorValidation(name string) *DiscoveryError {
	return New(KindOrgAggregatorValidation, fmt.Sprintf("config aggregator %q has no OrganizationAggregationSource", name))
}

// AccessDenied wraps an access-denied signal surfaced by a provider or graph
// store call. It is never fatal; callers decide the item-level fallback.
func AccessDenied(operation string, cause error) *DiscoveryError {
	return Wrap(KindAccessDenied, fmt.Sprintf("access denied for %s", operation), cause)
}

// UnprocessedSearchIndexResources carries the subset of a write batch the
// search index rejected. The dual-store coordinator in internal/persist does
// not use this type: it works from the []string of rejected ids that
// internal/searchindex returns.
type UnprocessedSearchIndexResources struct {
	FailedIDs []string
}

func (e *UnprocessedSearchIndexResources) Error() string {
	return fmt.Sprintf("%s: %d resources unprocessed by search index", KindUnprocessedSearchIndex, len(e.FailedIDs))
}

// PayloadTooLarge signals the graph store rejected a page for size; the
// adaptive paginator halves its window and replays.
type PayloadTooLarge struct{}

func (e *PayloadTooLarge) Error() string { return string(KindPayloadTooLarge) }

// ConnectionClosedPrematurely triggers exactly one automatic retry.
type ConnectionClosedPrematurely struct{ Cause error }

func (e *ConnectionClosedPrematurely) Error() string {
	return fmt.Sprintf("%s: %v", KindConnectionClosedPrematurely, e.Cause)
}
func (e *ConnectionClosedPrematurely) Unwrap() error { return e.Cause }

// ResolverCodeSize aborts the current query immediately; no retry.
type ResolverCodeSize struct{ Cause error }

func (e *ResolverCodeSize) Error() string {
	return fmt.Sprintf("%s: %v", KindResolverCodeSize, e.Cause)
}
func (e *ResolverCodeSize) Unwrap() error { return e.Cause }

// AsKind extracts the taxonomy Kind from any error in the tree, if present.
func AsKind(err error) (Kind, bool) {
	var de *DiscoveryError
	if errors.As(err, &de) {
		return de.Kind, true
	}
	var unprocessed *UnprocessedSearchIndexResources
	if errors.As(err, &unprocessed) {
		return KindUnprocessedSearchIndex, true
	}
	var tooLarge *PayloadTooLarge
	if errors.As(err, &tooLarge) {
		return KindPayloadTooLarge, true
	}
	var closed *ConnectionClosedPrematurely
	if errors.As(err, &closed) {
		return KindConnectionClosedPrematurely, true
	}
	var resolver *ResolverCodeSize
	if errors.As(err, &resolver) {
		return KindResolverCodeSize, true
	}
	return "", false
}

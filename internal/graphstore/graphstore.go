// Package graphstore implements a signed,
// paginated, retried transport to the backing graph API, with an adaptive
// paginator that halves its page size on a "payload too large" signal and a
// recoverable-error probe that gives a "connection closed prematurely" error
// exactly one automatic retry.
//
// Retries are handled by this package's own fetchPage loop (no circuit
// breaker is involved); internal/discoveryerrors supplies the typed
// recoverable-error taxonomy this package's paginator and retry probe react
// to, and the httptransport 413 sentinel is treated as payload-too-large.
package graphstore

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/rcourtman/cloud-discovery-engine/internal/discoveryerrors"
	"github.com/rcourtman/cloud-discovery-engine/internal/httptransport"
)

const (
	defaultResourcePageSize = 1000
	defaultRelationshipPageSize = 2500
	minPageSize = 1
)

// Transport is the signed GraphQL-style request surface the client wraps.
// It is satisfied by the real HTTP client this package would otherwise
// implement directly against graphStoreUrl; tests substitute a fake.
type Transport interface {
	// Do executes a single signed request, returning the raw JSON response
	// body. operation identifies the GraphQL operation name for logging.
	Do(ctx context.Context, operation string, variables map[string]any) ([]byte, error)
}

// Client is the GraphStoreClient.
type Client struct {
	transport Transport
}

func New(transport Transport) *Client {
	return &Client{transport: transport}
}

// StoredResource is the projected shape a read returns: nil properties are
// rejected before the caller sees them.
type StoredResource struct {
	ID string
	Label string
	MD5Hash string
	Properties map[string]string
}

// StoredRelationship mirrors a persisted edge.
type StoredRelationship struct {
	Source string
	Target string
	Label string
}

// StoredAccountRegion mirrors one region entry of a persisted account.
type StoredAccountRegion struct {
	Name string `json:"name"`
	LastCrawled string `json:"lastCrawled"`
	IsConfigEnabled bool `json:"isConfigEnabled"`
}

// StoredAccount is the projected shape a read of the account list returns;
// credentials and toDelete are never on the wire, matching the shape
// ForPersistence writes.
type StoredAccount struct {
	AccountID string
	OrganizationID string
	Name string
	IsManagementAccount bool
	IsIamRoleDeployed bool
	LastCrawled string
	Regions []StoredAccountRegion
}

// paginatorState is the (start, end, pageSize) state machine driving reads:
// transitions are success → advance, payload-too-large → halve; pageSize
// resets to its configured default on every successful advance.
type paginatorState struct {
	start int
	pageSize int
	defaultSize int
}

func newPaginatorState(defaultSize int) *paginatorState {
	return &paginatorState{start: 0, pageSize: defaultSize, defaultSize: defaultSize}
}

func (s *paginatorState) window() (start, end int) {
	return s.start, s.start + s.pageSize
}

func (s *paginatorState) onSuccess() {
	s.start += s.pageSize
	s.pageSize = s.defaultSize
}

func (s *paginatorState) onPayloadTooLarge() {
	if s.pageSize > minPageSize {
		s.pageSize /= 2
	}
}

// fetchPage runs one page of a paginated read/write, retrying exactly once on
// ConnectionClosedPrematurely and halving the paginator window on
// PayloadTooLarge before replaying (scenario 5).
func fetchPage(ctx context.Context, state *paginatorState, call func(ctx context.Context, start, end int) error) error {
	retriedConnectionClose := false

	for {
		start, end := state.window()
		err := call(ctx, start, end)
		if err == nil {
			state.onSuccess()
			return nil
		}

		kind, _ := discoveryerrors.AsKind(err)
		if httptransport.IsPayloadTooLarge(err) {
			kind = discoveryerrors.KindPayloadTooLarge
		}
		switch kind {
		case discoveryerrors.KindPayloadTooLarge:
			log.Warn().Int("start", start).Int("end", end).Msg("graph store rejected payload, halving page size")
			state.onPayloadTooLarge()
			continue

		case discoveryerrors.KindConnectionClosedPrematurely:
			if retriedConnectionClose {
				return err
			}
			retriedConnectionClose = true
			log.Warn().Int("start", start).Int("end", end).Msg("connection closed prematurely, retrying once")
			continue

		case discoveryerrors.KindResolverCodeSize:
			return err

		default:
			return err
		}
	}
}

// ReadResources performs a full paged read of the stored resource set.
func (c *Client) ReadResources(ctx context.Context) (map[string]StoredResource, error) {
	out := make(map[string]StoredResource)
	state := newPaginatorState(defaultResourcePageSize)

	for {
		var page []StoredResource
		done := false

		err := fetchPage(ctx, state, func(ctx context.Context, start, end int) error {
			p, isDone, innerErr := c.readResourcePage(ctx, start, end)
			if innerErr != nil {
				return innerErr
			}
			page = p
			done = isDone
			return nil
		})
		if err != nil {
			return nil, err
		}
		for _, r := range page {
			out[r.ID] = r
		}
		if done {
			break
		}
	}

	return out, nil
}

func (c *Client) readResourcePage(ctx context.Context, start, end int) ([]StoredResource, bool, error) {
	body, err := c.transport.Do(ctx, "readResources", map[string]any{"start": start, "end": end})
	if err != nil {
		return nil, false, err
	}
	return decodeResourcePage(body)
}

// ReadRelationships performs a full paged read of the stored edge set.
func (c *Client) ReadRelationships(ctx context.Context) ([]StoredRelationship, error) {
	var out []StoredRelationship
	state := newPaginatorState(defaultRelationshipPageSize)

	for {
		var page []StoredRelationship
		done := false

		err := fetchPage(ctx, state, func(ctx context.Context, start, end int) error {
			body, innerErr := c.transport.Do(ctx, "readRelationships", map[string]any{"start": start, "end": end})
			if innerErr != nil {
				return innerErr
			}
			p, isDone, decodeErr := decodeRelationshipPage(body)
			if decodeErr != nil {
				return decodeErr
			}
			page = p
			done = isDone
			return nil
		})
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if done {
			break
		}
	}

	return out, nil
}

// ReadAccounts performs a full paged read of the stored account list, the
// AccountResolver's "stored view" input.
func (c *Client) ReadAccounts(ctx context.Context) ([]StoredAccount, error) {
	var out []StoredAccount
	state := newPaginatorState(defaultResourcePageSize)

	for {
		var page []StoredAccount
		done := false

		err := fetchPage(ctx, state, func(ctx context.Context, start, end int) error {
			body, innerErr := c.transport.Do(ctx, "readAccounts", map[string]any{"start": start, "end": end})
			if innerErr != nil {
				return innerErr
			}
			p, isDone, decodeErr := decodeAccountPage(body)
			if decodeErr != nil {
				return decodeErr
			}
			page = p
			done = isDone
			return nil
		})
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if done {
			break
		}
	}

	return out, nil
}

// WriteBatch describes one homogeneous batch the Persister submits.
type WriteBatch struct {
	Operation string // "storeResources", "updateResources", "deleteResources", etc.
	Items []map[string]any
}

// Write submits one batch to the graph store, subject to the same
// recoverable-error probe as reads. It does not paginate: batch sizing is the
// Persister's responsibility (concurrency/batch table).
func (c *Client) Write(ctx context.Context, batch WriteBatch) error {
	state := newPaginatorState(len(batch.Items))
	return fetchPage(ctx, state, func(ctx context.Context, _, _ int) error {
		_, err := c.transport.Do(ctx, batch.Operation, map[string]any{"items": batch.Items})
		return err
	})
}

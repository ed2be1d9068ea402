// Package persist implements a fixed-concurrency,
// fixed-batch-size writer that applies a delta.Delta to the search index and
// graph store under a dual-store policy, and reports the reconciliation input
// (failedStores/failedDeletes) the orchestrator feeds back into the working
// set for.
//
// The batched fan-out runs on an errgroup.Group bounded with SetLimit, unlike
// the channel-semaphore-plus-sync.WaitGroup pools in internal/accounts,
// internal/enrichment and internal/inference. Each batch is written to the
// search index first, and only the subset the index accepted is then written
// to the graph store.
package persist

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/rcourtman/cloud-discovery-engine/internal/delta"
	"github.com/rcourtman/cloud-discovery-engine/internal/graphstore"
	"github.com/rcourtman/cloud-discovery-engine/internal/searchindex"
)

// SearchIndex is the subset of searchindex.Client's surface the Persister
// drives; tests substitute a fake.
type SearchIndex interface {
	Index(ctx context.Context, items []searchindex.Item) ([]string, error)
	Update(ctx context.Context, items []searchindex.Item) ([]string, error)
	DeleteIndexed(ctx context.Context, ids []string) ([]string, error)
}

// GraphStore is the subset of graphstore.Client's surface the Persister
// drives; tests substitute a fake.
type GraphStore interface {
	Write(ctx context.Context, batch graphstore.WriteBatch) error
}

var (
	_ SearchIndex = (*searchindex.Client)(nil)
	_ GraphStore = (*graphstore.Client)(nil)
)

// Concurrency and batch size per phase, table.
const (
	deleteResourcesConcurrency = 5
	deleteResourcesBatch = 50
	updateResourcesConcurrency = 10
	updateResourcesBatch = 10
	storeResourcesConcurrency = 10
	storeResourcesBatch = 10
	deleteRelationshipsConcurrency = 5
	deleteRelationshipsBatch = 50
	storeRelationshipsConcurrency = 10
	storeRelationshipsBatch = 20
)

// Persister writes a computed delta.Delta under the dual-store policy.
type Persister struct {
	SearchIndex SearchIndex
	GraphStore GraphStore
}

// Result is the reconciliation input: ids that never landed in
// either store, and ids whose delete was rejected by the search index and so
// are still present.
type Result struct {
	FailedStores []string
	FailedDeletes []string
}

// Persist writes every part of d, in a fixed phase order,
// and returns the accumulated failure sets for reconciliation.
func (p *Persister) Persist(ctx context.Context, d delta.Delta) Result {
	var result Result
	var mu sync.Mutex
	collect := func(dst *[]string, ids []string) {
		if len(ids) == 0 {
			return
		}
		mu.Lock()
		*dst = append(*dst, ids...)
		mu.Unlock()
	}

	runBatches(d.ResourcesToStore, storeResourcesBatch, storeResourcesConcurrency, func(batch []delta.Projected) {
		collect(&result.FailedStores, p.storeBatch(ctx, "storeResources", batch))
	})
	runBatches(d.ResourcesToUpdate, updateResourcesBatch, updateResourcesConcurrency, func(batch []delta.Update) {
		collect(&result.FailedStores, p.updateBatch(ctx, "updateResources", batch))
	})
	runBatches(d.ResourceIDsToDelete, deleteResourcesBatch, deleteResourcesConcurrency, func(batch []string) {
		collect(&result.FailedDeletes, p.deleteBatch(ctx, "deleteResources", batch))
	})
	runBatches(d.LinksToAdd, storeRelationshipsBatch, storeRelationshipsConcurrency, func(batch []delta.Edge) {
		p.writeRelationships(ctx, "storeRelationships", batch)
	})
	runBatches(d.LinksToDelete, deleteRelationshipsBatch, deleteRelationshipsConcurrency, func(batch []delta.Edge) {
		p.writeRelationships(ctx, "deleteRelationships", batch)
	})

	return result
}

// storeBatch indexes a batch of new resources, then writes to the graph
// store only the subset the index accepted, returning the rejected ids.
func (p *Persister) storeBatch(ctx context.Context, operation string, batch []delta.Projected) []string {
	items := make([]searchindex.Item, len(batch))
	for i, item := range batch {
		items[i] = searchindex.Item{ID: item.ID, Label: item.Label, Properties: item.Properties}
	}
	failed, err := p.SearchIndex.Index(ctx, items)
	if err != nil {
		log.Error().Err(err).Str("operation", operation).Msg("search index batch failed")
		return idsOf(batch, func(p delta.Projected) string { return p.ID })
	}

	accepted := acceptedProjected(batch, failed)
	if len(accepted) == 0 {
		return failed
	}
	if err := p.GraphStore.Write(ctx, graphstore.WriteBatch{Operation: operation, Items: projectedToGraphItems(accepted)}); err != nil {
		log.Error().Err(err).Str("operation", operation).Msg("graph store batch failed")
		failed = append(failed, idsOf(accepted, func(p delta.Projected) string { return p.ID })...)
	}
	return failed
}

func (p *Persister) updateBatch(ctx context.Context, operation string, batch []delta.Update) []string {
	items := make([]searchindex.Item, len(batch))
	for i, item := range batch {
		items[i] = searchindex.Item{ID: item.ID, Label: item.Label, Properties: item.Properties}
	}
	failed, err := p.SearchIndex.Update(ctx, items)
	if err != nil {
		log.Error().Err(err).Str("operation", operation).Msg("search index batch failed")
		return idsOf(batch, func(u delta.Update) string { return u.ID })
	}

	accepted := acceptedUpdate(batch, failed)
	if len(accepted) == 0 {
		return failed
	}
	if err := p.GraphStore.Write(ctx, graphstore.WriteBatch{Operation: operation, Items: updateToGraphItems(accepted)}); err != nil {
		log.Error().Err(err).Str("operation", operation).Msg("graph store batch failed")
		failed = append(failed, idsOf(accepted, func(u delta.Update) string { return u.ID })...)
	}
	return failed
}

// deleteBatch removes a batch of ids from the search index, then deletes
// from the graph store only the subset the index accepted, returning the
// rejected ids (still present).
func (p *Persister) deleteBatch(ctx context.Context, operation string, ids []string) []string {
	failed, err := p.SearchIndex.DeleteIndexed(ctx, ids)
	if err != nil {
		log.Error().Err(err).Str("operation", operation).Msg("search index batch failed")
		return ids
	}

	accepted := acceptedIDs(ids, failed)
	if len(accepted) == 0 {
		return failed
	}
	items := make([]map[string]any, len(accepted))
	for i, id := range accepted {
		items[i] = map[string]any{"id": id}
	}
	if err := p.GraphStore.Write(ctx, graphstore.WriteBatch{Operation: operation, Items: items}); err != nil {
		log.Error().Err(err).Str("operation", operation).Msg("graph store batch failed")
		failed = append(failed, accepted...)
	}
	return failed
}

// writeRelationships writes a batch of edges directly to the graph store; the
// search index carries resource documents only, so edge mutations are not
// part of the dual-store policy.
func (p *Persister) writeRelationships(ctx context.Context, operation string, batch []delta.Edge) {
	items := make([]map[string]any, len(batch))
	for i, e := range batch {
		items[i] = map[string]any{"source": e.Source, "target": e.Target, "label": e.Label}
	}
	if err := p.GraphStore.Write(ctx, graphstore.WriteBatch{Operation: operation, Items: items}); err != nil {
		log.Error().Err(err).Str("operation", operation).Msg("graph store batch failed")
	}
}

func projectedToGraphItems(batch []delta.Projected) []map[string]any {
	items := make([]map[string]any, len(batch))
	for i, p := range batch {
		items[i] = map[string]any{"id": p.ID, "label": p.Label, "md5Hash": p.MD5Hash, "properties": p.Properties}
	}
	return items
}

func updateToGraphItems(batch []delta.Update) []map[string]any {
	items := make([]map[string]any, len(batch))
	for i, u := range batch {
		items[i] = map[string]any{"id": u.ID, "label": u.Label, "md5Hash": u.MD5Hash, "properties": u.Properties}
	}
	return items
}

func acceptedProjected(batch []delta.Projected, failed []string) []delta.Projected {
	rejected := toSet(failed)
	var out []delta.Projected
	for _, p := range batch {
		if !rejected[p.ID] {
			out = append(out, p)
		}
	}
	return out
}

func acceptedUpdate(batch []delta.Update, failed []string) []delta.Update {
	rejected := toSet(failed)
	var out []delta.Update
	for _, u := range batch {
		if !rejected[u.ID] {
			out = append(out, u)
		}
	}
	return out
}

func acceptedIDs(ids, failed []string) []string {
	rejected := toSet(failed)
	var out []string
	for _, id := range ids {
		if !rejected[id] {
			out = append(out, id)
		}
	}
	return out
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func idsOf[T any](items []T, id func(T) string) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = id(item)
	}
	return out
}

// runBatches chunks items into fixed-size batches and runs fn over each
// batch concurrently, bounded by concurrency, blocking until every batch has
// completed. fn reports its own failures via the shared Result rather than
// an error return, so the group is used purely for its concurrency limit.
func runBatches[T any](items []T, batchSize, concurrency int, fn func(batch []T)) {
	if len(items) == 0 {
		return
	}
	g := new(errgroup.Group)
	g.SetLimit(concurrency)

	for start := 0; start < len(items); start += batchSize {
		end := start + batchSize
		if end > len(items) {
			end = len(items)
		}
		batch := items[start:end]

		g.Go(func() error {
			fn(batch)
			return nil
		})
	}
	g.Wait()
}

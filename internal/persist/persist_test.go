package persist

import (
	"context"
	"sync"
	"testing"

	"github.com/rcourtman/cloud-discovery-engine/internal/delta"
	"github.com/rcourtman/cloud-discovery-engine/internal/graphstore"
	"github.com/rcourtman/cloud-discovery-engine/internal/searchindex"
)

type fakeSearchIndex struct {
	mu sync.Mutex
	indexRejectIDs map[string]bool
	deleteRejectIDs map[string]bool
	indexed []searchindex.Item
	updated []searchindex.Item
	deleted []string
}

func (f *fakeSearchIndex) Index(ctx context.Context, items []searchindex.Item) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed = append(f.indexed, items...)
	var rejected []string
	for _, item := range items {
		if f.indexRejectIDs[item.ID] {
			rejected = append(rejected, item.ID)
		}
	}
	return rejected, nil
}

func (f *fakeSearchIndex) Update(ctx context.Context, items []searchindex.Item) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, items...)
	return nil, nil
}

func (f *fakeSearchIndex) DeleteIndexed(ctx context.Context, ids []string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, ids...)
	var rejected []string
	for _, id := range ids {
		if f.deleteRejectIDs[id] {
			rejected = append(rejected, id)
		}
	}
	return rejected, nil
}

type fakeGraphStore struct {
	mu sync.Mutex
	batches []graphstore.WriteBatch
	failOn string
}

func (f *fakeGraphStore) Write(ctx context.Context, batch graphstore.WriteBatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, batch)
	if batch.Operation == f.failOn {
		return errFakeWrite
	}
	return nil
}

var errFakeWrite = &fakeError{"graph store write failed"}

type fakeError struct{ msg string }

func (e *fakeError) Error() string { return e.msg }

func TestPersist_StoresOnlySearchIndexAcceptedSubsetToGraph(t *testing.T) {
	search := &fakeSearchIndex{indexRejectIDs: map[string]bool{"arn:rejected": true}}
	graph := &fakeGraphStore{}
	p := &Persister{SearchIndex: search, GraphStore: graph}

	d := delta.Delta{
		ResourcesToStore: []delta.Projected{
			{ID: "arn:ok", Label: "l"},
			{ID: "arn:rejected", Label: "l"},
		},
	}

	result := p.Persist(context.Background(), d)

	if len(result.FailedStores) != 1 || result.FailedStores[0] != "arn:rejected" {
		t.Fatalf("expected arn:rejected in FailedStores, got %+v", result.FailedStores)
	}

	var graphItems []map[string]any
	for _, b := range graph.batches {
		if b.Operation == "storeResources" {
			graphItems = b.Items
		}
	}
	if len(graphItems) != 1 || graphItems[0]["id"] != "arn:ok" {
		t.Errorf("expected only the accepted resource to reach the graph store, got %+v", graphItems)
	}
}

func TestPersist_DeleteRejectedBySearchIndexStaysOutOfGraphDelete(t *testing.T) {
	search := &fakeSearchIndex{deleteRejectIDs: map[string]bool{"arn:stuck": true}}
	graph := &fakeGraphStore{}
	p := &Persister{SearchIndex: search, GraphStore: graph}

	d := delta.Delta{ResourceIDsToDelete: []string{"arn:gone", "arn:stuck"}}

	result := p.Persist(context.Background(), d)

	if len(result.FailedDeletes) != 1 || result.FailedDeletes[0] != "arn:stuck" {
		t.Fatalf("expected arn:stuck in FailedDeletes, got %+v", result.FailedDeletes)
	}
	for _, b := range graph.batches {
		if b.Operation != "deleteResources" {
			continue
		}
		for _, item := range b.Items {
			if item["id"] == "arn:stuck" {
				t.Error("expected the rejected delete id to never reach the graph store")
			}
		}
	}
}

func TestPersist_RelationshipsBypassSearchIndex(t *testing.T) {
	search := &fakeSearchIndex{}
	graph := &fakeGraphStore{}
	p := &Persister{SearchIndex: search, GraphStore: graph}

	d := delta.Delta{
		LinksToAdd: []delta.Edge{{Source: "a", Target: "b", Label: "associated-with"}},
		LinksToDelete: []delta.Edge{{Source: "a", Target: "c", Label: "contained-in"}},
	}

	p.Persist(context.Background(), d)

	if len(search.indexed) != 0 || len(search.updated) != 0 || len(search.deleted) != 0 {
		t.Error("expected no search index calls for relationship-only deltas")
	}

	var sawStore, sawDelete bool
	for _, b := range graph.batches {
		switch b.Operation {
		case "storeRelationships":
			sawStore = true
		case "deleteRelationships":
			sawDelete = true
		}
	}
	if !sawStore || !sawDelete {
		t.Errorf("expected both relationship operations on the graph store, got %+v", graph.batches)
	}
}

func TestPersist_GraphStoreFailureCountsAcceptedItemsAsFailedStores(t *testing.T) {
	search := &fakeSearchIndex{}
	graph := &fakeGraphStore{failOn: "storeResources"}
	p := &Persister{SearchIndex: search, GraphStore: graph}

	d := delta.Delta{ResourcesToStore: []delta.Projected{{ID: "arn:ok", Label: "l"}}}

	result := p.Persist(context.Background(), d)

	if len(result.FailedStores) != 1 || result.FailedStores[0] != "arn:ok" {
		t.Errorf("expected a graph store write failure to mark the item as failed, got %+v", result.FailedStores)
	}
}

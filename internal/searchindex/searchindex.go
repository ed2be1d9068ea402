// Package searchindex implements the search-index half of the dual-store
// write coordination: index/update/deleteIndexed, each
// returning the subset of items the index rejected so the graph-store
// mutation can be scoped to the accepted subset.
//
// Grounded on the same Transport-interface shape as internal/graphstore (the
// teacher's internal/ai/providers package keeps every backend behind a thin
// interface so tests substitute a fake instead of hitting a real service).
package searchindex

import "context"

// Transport is the signed request surface a concrete search index client
// implements; tests substitute a fake.
type Transport interface {
	Do(ctx context.Context, operation string, payload map[string]any) (unprocessedIDs []string, err error)
}

// Client is the search-index half of the dual-store writer.
type Client struct {
	transport Transport
}

func New(transport Transport) *Client {
	return &Client{transport: transport}
}

// Item is one resource document submitted to the index.
type Item struct {
	ID string
	Label string
	Properties map[string]string
}

// Index submits new documents, returning the ids the index rejected.
func (c *Client) Index(ctx context.Context, items []Item) ([]string, error) {
	return c.transport.Do(ctx, "index", map[string]any{"items": items})
}

// Update submits document updates, returning the ids the index rejected.
func (c *Client) Update(ctx context.Context, items []Item) ([]string, error) {
	return c.transport.Do(ctx, "update", map[string]any{"items": items})
}

// DeleteIndexed removes documents by id, returning the ids the index failed
// to remove.
func (c *Client) DeleteIndexed(ctx context.Context, ids []string) ([]string, error) {
	return c.transport.Do(ctx, "deleteIndexed", map[string]any{"ids": ids})
}

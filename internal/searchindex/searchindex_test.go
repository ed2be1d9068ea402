package searchindex

import (
	"context"
	"testing"
)

type fakeTransport struct {
	rejected []string
}

func (f *fakeTransport) Do(ctx context.Context, operation string, payload map[string]any) ([]string, error) {
	return f.rejected, nil
}

func TestClient_Index_ReturnsUnprocessed(t *testing.T) {
	client := New(&fakeTransport{rejected: []string{"arn:a", "arn:b"}})

	unprocessed, err := client.Index(context.Background(), []Item{{ID: "arn:a"}, {ID: "arn:b"}, {ID: "arn:c"}})
	if err != nil {
		t.Fatalf("Index returned error: %v", err)
	}
	if len(unprocessed) != 2 {
		t.Fatalf("expected 2 unprocessed ids, got %d", len(unprocessed))
	}
}

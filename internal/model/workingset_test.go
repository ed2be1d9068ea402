package model

import "testing"

func TestWorkingSet_AddAndGet(t *testing.T) {
	ws := NewWorkingSet()
	r := &Resource{ID: "arn:x"}
	ws.Add(r)

	got, ok := ws.Get("arn:x")
	if !ok || got != r {
		t.Fatal("expected to retrieve the added resource")
	}
	if ws.Len() != 1 {
		t.Errorf("Len = %d, want 1", ws.Len())
	}
}

func TestWorkingSet_RemovePreservesOrder(t *testing.T) {
	ws := NewWorkingSet()
	ws.Add(&Resource{ID: "a"})
	ws.Add(&Resource{ID: "b"})
	ws.Add(&Resource{ID: "c"})

	ws.Remove("b")

	all := ws.All()
	if len(all) != 2 {
		t.Fatalf("expected 2 resources after removal, got %d", len(all))
	}
	if all[0].ID != "a" || all[1].ID != "c" {
		t.Errorf("unexpected order after removal: %v", all)
	}
}

func TestResource_AddRelationshipAndDedupe(t *testing.T) {
	r := &Resource{ID: "a"}
	r.AddRelationship("b", "ASSOCIATED_WITH")
	r.AddRelationship("b", "ASSOCIATED_WITH")

	if len(r.Relationships) != 2 {
		t.Fatal("AddRelationship should not dedupe on its own")
	}
	if !r.HasRelationshipTo("b", "ASSOCIATED_WITH") {
		t.Error("expected HasRelationshipTo to find the added edge")
	}
}

func TestInHashSet(t *testing.T) {
	if !InHashSet("user-pool") {
		t.Error("user-pool should be in the hash set")
	}
	if InHashSet("ec2-instance") {
		t.Error("ec2-instance should not be in the hash set")
	}
}
